// Package crm normalizes heterogeneous CRM webhook payloads into one
// canonical Deal record and classifies deal stages for routing.
package crm

// Source identifies the CRM vendor a payload was detected as.
type Source string

const (
	SourceHubSpot    Source = "hubspot"
	SourceSalesforce Source = "salesforce"
	SourceAttio      Source = "attio"
	SourcePipedrive  Source = "pipedrive"
	SourceClose      Source = "close"
	SourceGeneric    Source = "generic"
)

// Typed defaults applied whenever a payload field is absent, empty, or the
// wrong type. Empty strings in payloads are treated the same as absent
// fields: CRMs routinely send empty-string placeholders for unset fields.
const (
	DefaultDealName   = "Unknown Deal"
	DefaultIndustry   = "Technology"
	DefaultCompetitor = "Not specified"
	DefaultInterest   = "Not specified"
)

// Deal is the canonical record produced per inbound CRM event. It lives for
// one pipeline run: constructed by Normalize, enriched by copy through the
// identity resolver, discarded after the delivery is logged.
type Deal struct {
	DealName        string  `json:"deal_name"`
	DealStage       string  `json:"deal_stage"`
	CompanyName     string  `json:"company_name"`
	DealNotes       string  `json:"deal_notes"`
	ProductInterest string  `json:"product_interest"`
	Industry        string  `json:"industry"`
	Competitor      string  `json:"competitor"`
	DealSize        float64 `json:"deal_size"`
	RepEmail        string  `json:"rep_email"`
	RepMessagingID  string  `json:"rep_messaging_id"`

	IdentityResolved bool   `json:"identity_resolved"`
	ResolutionMethod string `json:"resolution_method"`
	SourceCRM        Source `json:"source_crm"`

	// Raw keeps the original payload for audit. Never written back to the CRM.
	Raw map[string]any `json:"raw,omitempty"`
}
