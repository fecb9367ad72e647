package knowledge

import (
	"sort"
	"strings"
)

// Sentinel competitor values meaning "unspecified". When a deal carries one
// of these, the positioning section is omitted entirely rather than showing
// a "no positioning" apology.
var unspecifiedCompetitors = map[string]bool{
	"unknown":       true,
	"none":          true,
	"not specified": true,
}

// CompetitorUnspecified reports whether a deal's competitor value is a
// marker for "no competitor named".
func CompetitorUnspecified(competitor string) bool {
	return unspecifiedCompetitors[strings.ToLower(strings.TrimSpace(competitor))]
}

// ScoreCaseStudy computes the deterministic relevance score of one case
// study against a deal's industry and stage: exact industry match 10, stage
// relevance 5, substring industry overlap 3 (only when the exact match did
// not apply).
func ScoreCaseStudy(cs CaseStudy, industry, stage string) int {
	score := 0
	switch {
	case industry != "" && strings.EqualFold(cs.Industry, industry):
		score += 10
	case industryOverlap(cs.Industry, industry):
		score += 3
	}
	if stageRelevant(cs.RelevantStages, stage) {
		score += 5
	}
	return score
}

// BestCaseStudy picks the highest-scoring case study, first-highest winning
// ties. When nothing scores above 0 the first entry is still returned: a
// zero-score "closest available" beats returning nothing. Callers must only
// invoke this after the content gate passed, which guarantees a non-empty
// list; an empty list still degrades safely to ok=false.
func BestCaseStudy(list []CaseStudy, industry, stage string) (CaseStudy, bool) {
	if len(list) == 0 {
		return CaseStudy{}, false
	}
	best := 0
	bestScore := ScoreCaseStudy(list[0], industry, stage)
	for i := 1; i < len(list); i++ {
		if s := ScoreCaseStudy(list[i], industry, stage); s > bestScore {
			best, bestScore = i, s
		}
	}
	return list[best], true
}

// FindPositioning looks up competitor positioning by exact case-insensitive
// competitor name. No partial matching: a near-miss competitor name is
// treated as absent.
func FindPositioning(list []CompetitorPositioning, competitor string) (CompetitorPositioning, bool) {
	for _, p := range list {
		if strings.EqualFold(p.Competitor, competitor) {
			return p, true
		}
	}
	return CompetitorPositioning{}, false
}

// ScoreObjection computes an objection's relevance: exact competitor match
// 10, stage relevance 5. An entry with no assigned competitor gets a flat 1
// only when it would otherwise score 0, so general-purpose objections
// surface when nothing specific applies but never outrank a specific match.
func ScoreObjection(o Objection, competitor, stage string) int {
	score := 0
	if o.Competitor != "" && strings.EqualFold(o.Competitor, competitor) {
		score += 10
	}
	if stageRelevant(o.RelevantStages, stage) {
		score += 5
	}
	if o.Competitor == "" && score == 0 {
		score = 1
	}
	return score
}

// SelectObjections returns the top 3 objections scoring above 0, sorted
// descending by score, stable on ties (curation order preserved).
func SelectObjections(list []Objection, competitor, stage string) []Objection {
	type scored struct {
		entry Objection
		score int
	}
	eligible := make([]scored, 0, len(list))
	for _, o := range list {
		if s := ScoreObjection(o, competitor, stage); s > 0 {
			eligible = append(eligible, scored{o, s})
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].score > eligible[j].score
	})
	if len(eligible) > 3 {
		eligible = eligible[:3]
	}
	out := make([]Objection, len(eligible))
	for i, s := range eligible {
		out[i] = s.entry
	}
	return out
}

// MethodologyGuidance returns the stage-specific guidance when a
// case-insensitive key match exists, else the general description.
func MethodologyGuidance(m *Methodology, stage string) string {
	if m == nil {
		return ""
	}
	for key, guidance := range m.StageGuidance {
		if strings.EqualFold(key, stage) {
			return guidance
		}
	}
	return m.Description
}

func industryOverlap(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func stageRelevant(stages []string, stage string) bool {
	for _, s := range stages {
		if strings.EqualFold(s, stage) {
			return true
		}
	}
	return false
}
