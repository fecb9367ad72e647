package knowledge

import (
	"fmt"
	"strings"

	"github.com/salesrelay/salesrelay/internal/crm"
)

const sectionSeparator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// Composition is the assembled content package plus the knowledge entry ids
// it surfaced, recorded on the delivery for later feedback correlation.
type Composition struct {
	Text           string
	CaseStudyIDs   []string
	PositioningIDs []string
}

// Compose deterministically selects and assembles the most relevant
// knowledge for a deal without invoking any generative model. Section order
// is fixed: objection responses, best case study, competitor positioning,
// methodology guidance, deal-context header. Sections with no underlying
// match are omitted; the deal-context header and separator always appear.
// Precondition: only call after Gate passed (the case-study list is
// non-empty); an empty base still composes, just without a case study.
func Compose(deal crm.Deal, kb *Base) Composition {
	var comp Composition
	var sections []string

	if objections := SelectObjections(kb.Objections, deal.Competitor, deal.DealStage); len(objections) > 0 {
		var b strings.Builder
		b.WriteString("🛡️ OBJECTION HANDLING\n")
		for _, o := range objections {
			fmt.Fprintf(&b, "• %s\n  ↳ %s\n", o.Objection, o.Response)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if cs, ok := BestCaseStudy(kb.CaseStudies, deal.Industry, deal.DealStage); ok {
		comp.CaseStudyIDs = append(comp.CaseStudyIDs, cs.ID)
		var b strings.Builder
		if strings.EqualFold(cs.Industry, deal.Industry) {
			fmt.Fprintf(&b, "📌 CASE STUDY: %s\n", cs.Company)
		} else {
			fmt.Fprintf(&b, "📌 CASE STUDY (closest match): %s — %s\n", cs.Company, cs.Industry)
		}
		fmt.Fprintf(&b, "Challenge: %s\n", cs.Challenge)
		fmt.Fprintf(&b, "Result: %s\n", cs.Result)
		if cs.Metric != "" {
			fmt.Fprintf(&b, "Metric: %s\n", cs.Metric)
		}
		for _, link := range cs.Links {
			fmt.Fprintf(&b, "🔗 %s\n", link)
		}
		sections = append(sections, strings.TrimRight(b.String(), "\n"))
	}

	if !CompetitorUnspecified(deal.Competitor) {
		if pos, ok := FindPositioning(kb.Positioning, deal.Competitor); ok {
			comp.PositioningIDs = append(comp.PositioningIDs, pos.ID)
			var b strings.Builder
			fmt.Fprintf(&b, "⚔️ VS %s\n%s\n", pos.Competitor, pos.Differentiator)
			if pos.Evidence != "" {
				fmt.Fprintf(&b, "Evidence: %s\n", pos.Evidence)
			}
			for _, link := range pos.Links {
				fmt.Fprintf(&b, "🔗 %s\n", link)
			}
			sections = append(sections, strings.TrimRight(b.String(), "\n"))
		} else {
			sections = append(sections,
				fmt.Sprintf("⚔️ No positioning available for %s yet.", deal.Competitor))
		}
	}

	if guidance := MethodologyGuidance(kb.Methodology, deal.DealStage); guidance != "" {
		name := kb.Methodology.Name
		if name == "" {
			name = "Methodology"
		}
		sections = append(sections, fmt.Sprintf("🧭 %s\n%s", name, guidance))
	}

	var header strings.Builder
	header.WriteString(sectionSeparator + "\n")
	fmt.Fprintf(&header, "DEAL CONTEXT: %s", deal.DealName)
	if deal.CompanyName != "" {
		fmt.Fprintf(&header, " — %s", deal.CompanyName)
	}
	header.WriteString("\n")
	fmt.Fprintf(&header, "Stage: %s | Industry: %s | Size: $%.0f | Competitor: %s",
		deal.DealStage, deal.Industry, deal.DealSize, deal.Competitor)
	sections = append(sections, header.String())

	comp.Text = strings.Join(sections, "\n\n")
	return comp
}
