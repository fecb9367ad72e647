package knowledge

import (
	"fmt"
	"strings"

	"github.com/salesrelay/salesrelay/internal/crm"
)

// Per-field truncation caps for deal fields interpolated into the prompt.
// Bounds prompt size and shrinks the injection surface from untrusted CRM
// input. The truncation marker makes cut fields visible to reviewers.
const (
	maxNameLen       = 150
	maxCompanyLen    = 150
	maxIndustryLen   = 100
	maxCompetitorLen = 100
	maxStageLen      = 100
	maxNotesLen      = 1000

	truncationMarker = "…[truncated]"
)

// ComposePrompt builds the constrained prompt for the external
// text-generation collaborator. It embeds only verified knowledge-base
// content plus sanitized deal fields, and instructs the model to say
// "not available" rather than invent case studies, claims, or metrics.
// The composer performs no network call.
func ComposePrompt(deal crm.Deal, kb *Base) string {
	var b strings.Builder

	b.WriteString("You are a sales enablement assistant. Draft a short, actionable note for the deal owner.\n\n")

	b.WriteString("## DEAL\n")
	fmt.Fprintf(&b, "Name: %s\n", clip(deal.DealName, maxNameLen))
	fmt.Fprintf(&b, "Company: %s\n", clip(deal.CompanyName, maxCompanyLen))
	fmt.Fprintf(&b, "Stage: %s\n", clip(deal.DealStage, maxStageLen))
	fmt.Fprintf(&b, "Industry: %s\n", clip(deal.Industry, maxIndustryLen))
	fmt.Fprintf(&b, "Competitor: %s\n", clip(deal.Competitor, maxCompetitorLen))
	fmt.Fprintf(&b, "Size: $%.0f\n", deal.DealSize)
	if deal.DealNotes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", clip(deal.DealNotes, maxNotesLen))
	}

	b.WriteString("\n## CASE STUDIES (verified, the only ones that exist)\n")
	for _, cs := range kb.CaseStudies {
		fmt.Fprintf(&b, "[%s] %s (%s) | Challenge: %s | Result: %s | Metric: %s | Stages: %s\n",
			cs.ID, cs.Company, cs.Industry, cs.Challenge, cs.Result, cs.Metric,
			strings.Join(cs.RelevantStages, ", "))
	}

	b.WriteString("\n## COMPETITOR POSITIONING (verified)\n")
	for _, p := range kb.Positioning {
		fmt.Fprintf(&b, "[%s] vs %s | %s | Evidence: %s\n",
			p.ID, p.Competitor, p.Differentiator, p.Evidence)
	}

	b.WriteString("\n## OBJECTION LIBRARY (verified)\n")
	for _, o := range kb.Objections {
		fmt.Fprintf(&b, "[%s] %q -> %s (competitor: %s)\n",
			o.ID, o.Objection, o.Response, o.Competitor)
	}

	if kb.Methodology != nil {
		b.WriteString("\n## METHODOLOGY\n")
		fmt.Fprintf(&b, "%s: %s\n", kb.Methodology.Name, kb.Methodology.Description)
		for stage, guidance := range kb.Methodology.StageGuidance {
			fmt.Fprintf(&b, "- %s: %s\n", stage, guidance)
		}
	}

	b.WriteString("\n## RULES\n")
	b.WriteString("- Use ONLY the case studies, positioning, and objections listed above.\n")
	b.WriteString("- NEVER invent a case study, competitor claim, customer name, or metric.\n")
	b.WriteString("- If no listed entry fits, say \"not available\" for that section instead of fabricating.\n")
	b.WriteString("- Quote metrics verbatim from the entries.\n")

	return b.String()
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + truncationMarker
}
