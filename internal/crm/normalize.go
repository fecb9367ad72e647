package crm

import "strconv"

// detector pairs a shape predicate with its field mapper. Detection is
// order-sensitive: marker fields overlap across vendors (a Close payload can
// carry a top-level "Name"), so the first matching predicate wins and the
// slice order below is a tested invariant.
type detector struct {
	source Source
	match  func(map[string]any) bool
	parse  func(map[string]any) Deal
}

var detectors = []detector{
	{SourceHubSpot, matchHubSpot, parseHubSpot},
	{SourceSalesforce, matchSalesforce, parseSalesforce},
	{SourceAttio, matchAttio, parseAttio},
	{SourcePipedrive, matchPipedrive, parsePipedrive},
	{SourceClose, matchClose, parseClose},
	{SourceGeneric, func(map[string]any) bool { return true }, parseGeneric},
}

// Normalize maps an arbitrary key-value payload into a canonical Deal.
// It never fails: an unrecognized shape falls through to the generic parser
// and any missing field takes its typed default.
func Normalize(payload map[string]any) Deal {
	body := unwrapBody(payload)
	for _, d := range detectors {
		if !d.match(body) {
			continue
		}
		deal := d.parse(body)
		deal.SourceCRM = d.source
		deal.Raw = payload
		return deal
	}
	// Unreachable: the generic detector always matches.
	return Deal{DealName: DefaultDealName, SourceCRM: SourceGeneric, Raw: payload}
}

// ExtractStage pulls the raw stage string using the same vendor priority as
// Normalize, without running the full parse. The gateway uses it to classify
// before deciding whether a payload is worth normalizing at all.
func ExtractStage(payload map[string]any) string {
	body := unwrapBody(payload)
	if props, ok := childMap(body, "properties"); ok {
		return stringField(props, "dealstage", "")
	}
	if _, ok := body["StageName"]; ok {
		return stringField(body, "StageName", "")
	}
	if _, ok := body["Name"]; ok {
		return stringField(body, "StageName", "")
	}
	if attrs, ok := childMap(body, "attributes"); ok {
		return stringField(attrs, "stage", "")
	}
	if current, ok := childMap(body, "current"); ok {
		return stringField(current, "stage_name", "")
	}
	if lead, ok := childMap(body, "lead"); ok {
		if s := stringField(lead, "status_label", ""); s != "" {
			return s
		}
		return stringField(body, "status_label", "")
	}
	if _, ok := body["status_label"]; ok {
		return stringField(body, "status_label", "")
	}
	return stringField(body, "deal_stage", "")
}

// unwrapBody strips one level of generic "body" wrapping that some webhook
// relays add around the vendor payload.
func unwrapBody(payload map[string]any) map[string]any {
	if payload == nil {
		return map[string]any{}
	}
	if inner, ok := childMap(payload, "body"); ok {
		return inner
	}
	return payload
}

func matchHubSpot(m map[string]any) bool {
	_, ok := childMap(m, "properties")
	return ok
}

func parseHubSpot(m map[string]any) Deal {
	props, _ := childMap(m, "properties")
	return Deal{
		DealName:        stringField(props, "dealname", DefaultDealName),
		DealStage:       stringField(props, "dealstage", ""),
		CompanyName:     stringField(props, "company", ""),
		DealNotes:       stringField(props, "deal_notes", ""),
		ProductInterest: stringField(props, "product_interest", DefaultInterest),
		Industry:        stringField(props, "industry", DefaultIndustry),
		Competitor:      stringField(props, "competitor", DefaultCompetitor),
		DealSize:        numberField(props, "amount"),
		RepEmail:        stringField(props, "owner_email", ""),
		RepMessagingID:  stringField(props, "slack_user_id", ""),
	}
}

func matchSalesforce(m map[string]any) bool {
	if _, ok := m["StageName"]; ok {
		return true
	}
	_, ok := m["Name"]
	return ok
}

func parseSalesforce(m map[string]any) Deal {
	return Deal{
		DealName:        stringField(m, "Name", DefaultDealName),
		DealStage:       stringField(m, "StageName", ""),
		CompanyName:     stringField(m, "Account_Name", ""),
		DealNotes:       stringField(m, "Description", ""),
		ProductInterest: stringField(m, "Product_Interest__c", DefaultInterest),
		Industry:        stringField(m, "Industry", DefaultIndustry),
		Competitor:      stringField(m, "Competitor__c", DefaultCompetitor),
		DealSize:        numberField(m, "Amount"),
		RepEmail:        stringField(m, "Owner_Email__c", ""),
		RepMessagingID:  stringField(m, "Slack_ID__c", ""),
	}
}

func matchAttio(m map[string]any) bool {
	_, ok := childMap(m, "attributes")
	return ok
}

func parseAttio(m map[string]any) Deal {
	attrs, _ := childMap(m, "attributes")
	return Deal{
		DealName:        stringField(attrs, "name", DefaultDealName),
		DealStage:       stringField(attrs, "stage", ""),
		CompanyName:     stringField(attrs, "company", ""),
		DealNotes:       stringField(attrs, "notes", ""),
		ProductInterest: stringField(attrs, "product_interest", DefaultInterest),
		Industry:        stringField(attrs, "industry", DefaultIndustry),
		Competitor:      stringField(attrs, "competitor", DefaultCompetitor),
		DealSize:        numberField(attrs, "value"),
		RepEmail:        stringField(attrs, "owner_email", ""),
		RepMessagingID:  stringField(attrs, "slack_user_id", ""),
	}
}

func matchPipedrive(m map[string]any) bool {
	_, ok := childMap(m, "current")
	return ok
}

func parsePipedrive(m map[string]any) Deal {
	current, _ := childMap(m, "current")
	return Deal{
		DealName:        stringField(current, "title", DefaultDealName),
		DealStage:       stringField(current, "stage_name", ""),
		CompanyName:     stringField(current, "org_name", ""),
		DealNotes:       stringField(current, "notes", ""),
		ProductInterest: stringField(current, "product_interest", DefaultInterest),
		Industry:        stringField(current, "industry", DefaultIndustry),
		Competitor:      stringField(current, "competitor", DefaultCompetitor),
		DealSize:        numberField(current, "value"),
		RepEmail:        stringField(current, "owner_email", ""),
		RepMessagingID:  stringField(current, "slack_user_id", ""),
	}
}

func matchClose(m map[string]any) bool {
	if _, ok := childMap(m, "lead"); ok {
		return true
	}
	_, ok := m["status_label"]
	return ok
}

func parseClose(m map[string]any) Deal {
	lead, _ := childMap(m, "lead")
	stage := stringField(lead, "status_label", "")
	if stage == "" {
		stage = stringField(m, "status_label", "")
	}
	return Deal{
		DealName:        stringField(m, "opportunity_name", DefaultDealName),
		DealStage:       stage,
		CompanyName:     stringField(lead, "display_name", ""),
		DealNotes:       stringField(m, "note", ""),
		ProductInterest: stringField(m, "product_interest", DefaultInterest),
		Industry:        stringField(m, "industry", DefaultIndustry),
		Competitor:      stringField(m, "competitor", DefaultCompetitor),
		DealSize:        numberField(m, "opportunity_value"),
		RepEmail:        stringField(m, "user_email", ""),
		RepMessagingID:  stringField(m, "slack_user_id", ""),
	}
}

func parseGeneric(m map[string]any) Deal {
	return Deal{
		DealName:        stringField(m, "deal_name", DefaultDealName),
		DealStage:       stringField(m, "deal_stage", ""),
		CompanyName:     stringField(m, "company_name", ""),
		DealNotes:       stringField(m, "deal_notes", ""),
		ProductInterest: stringField(m, "product_interest", DefaultInterest),
		Industry:        stringField(m, "industry", DefaultIndustry),
		Competitor:      stringField(m, "competitor", DefaultCompetitor),
		DealSize:        numberField(m, "deal_size"),
		RepEmail:        stringField(m, "rep_email", ""),
		RepMessagingID:  stringField(m, "rep_messaging_id", ""),
	}
}

func childMap(m map[string]any, key string) (map[string]any, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	child, ok := v.(map[string]any)
	return child, ok
}

func stringField(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

// numberField accepts a number as-is, parses numeric strings with standard
// decimal parsing, and yields 0 for anything else. Deal sizes are never
// negative, so negative values clamp to 0.
func numberField(m map[string]any, key string) float64 {
	if m == nil {
		return 0
	}
	var n float64
	switch v := m[key].(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		n = parsed
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}
