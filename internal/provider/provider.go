// Package provider wraps the OpenAI-compatible chat completions API used to
// turn a grounding prompt into rep-facing guidance text.
package provider

import "context"

// Generator produces text from a composed prompt. Implementations must treat
// errors as recoverable; callers fall back to the deterministic template.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
