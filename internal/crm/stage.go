package crm

// StageClass is the routing decision for a deal stage.
type StageClass string

const (
	StageEnablement StageClass = "enablement"
	StageOutcome    StageClass = "outcome"
	StageIgnore     StageClass = "ignore"
)

// Matching is exact and case-sensitive. A CRM that spells a stage
// differently silently routes to ignore; the pipeline logs the raw stage at
// debug level so spelling drift is diagnosable.
var enablementStages = map[string]bool{
	"Demo Scheduled": true,
	"Demo Completed": true,
	"Proposal Sent":  true,
	"Negotiation":    true,
	"Contract Sent":  true,
}

var outcomeStages = map[string]bool{
	"Closed Won":  true,
	"Closed Lost": true,
}

// Classify maps a free-text deal stage to a routing class.
func Classify(stage string) StageClass {
	switch {
	case enablementStages[stage]:
		return StageEnablement
	case outcomeStages[stage]:
		return StageOutcome
	default:
		return StageIgnore
	}
}
