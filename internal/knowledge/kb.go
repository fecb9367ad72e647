// Package knowledge holds the curated knowledge base and the deterministic
// matching, composition, and prompt-building logic over it. Nothing in this
// package calls a generative model: all selection is pure scoring.
package knowledge

import "time"

// CaseStudy is a verified customer success record. Case studies are the
// grounding material for every outbound message; the content gate refuses to
// run without at least one.
type CaseStudy struct {
	ID             string   `json:"id"`
	Company        string   `json:"company"`
	Industry       string   `json:"industry"`
	Segment        string   `json:"segment,omitempty"`
	Challenge      string   `json:"challenge"`
	Result         string   `json:"result"`
	Metric         string   `json:"metric,omitempty"`
	RelevantStages []string `json:"relevant_stages,omitempty"`
	Links          []string `json:"links,omitempty"`
}

// CompetitorPositioning is a curated differentiation entry for one competitor.
type CompetitorPositioning struct {
	ID             string   `json:"id"`
	Competitor     string   `json:"competitor"`
	Differentiator string   `json:"differentiator"`
	Category       string   `json:"category,omitempty"`
	Evidence       string   `json:"evidence,omitempty"`
	Links          []string `json:"links,omitempty"`
}

// Objection pairs a common objection with its curated response.
type Objection struct {
	ID             string   `json:"id"`
	Objection      string   `json:"objection"`
	Response       string   `json:"response"`
	Competitor     string   `json:"competitor,omitempty"`
	Category       string   `json:"category,omitempty"`
	RelevantStages []string `json:"relevant_stages,omitempty"`
}

// Methodology is the optional sales methodology with per-stage guidance.
type Methodology struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	StageGuidance map[string]string `json:"stage_guidance,omitempty"`
}

// Meta is the knowledge base bookkeeping block.
type Meta struct {
	UpdatedAt    time.Time `json:"updated_at"`
	TotalEntries int       `json:"total_entries"`
	Configured   bool      `json:"configured"`
}

// Base is the single durable knowledge base instance. It is read fully
// before each delivery decision and rewritten fully on each mutation.
type Base struct {
	CaseStudies []CaseStudy             `json:"case_studies"`
	Positioning []CompetitorPositioning `json:"competitor_positioning"`
	Objections  []Objection             `json:"objections"`
	Methodology *Methodology            `json:"methodology,omitempty"`
	Meta        Meta                    `json:"_meta"`
}

// Refresh recomputes the meta block. Configured is true iff at least one
// case study exists; that single fact is what the content gate checks.
func (b *Base) Refresh(now time.Time) {
	b.Meta.UpdatedAt = now
	b.Meta.TotalEntries = len(b.CaseStudies) + len(b.Positioning) + len(b.Objections)
	b.Meta.Configured = len(b.CaseStudies) > 0
}

// Gate is the anti-fabrication control: content generation must never run
// when it returns false. Empty positioning or objections are fine; an empty
// case-study list means there is no grounding material at all.
func Gate(b *Base) bool {
	return b.Meta.Configured && len(b.CaseStudies) > 0
}
