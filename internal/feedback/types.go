// Package feedback parses heterogeneous inbound feedback payloads into one
// canonical event model and correlates events with logged deliveries.
package feedback

import "time"

// Source classifies where a feedback event came from.
type Source string

const (
	SourceReaction  Source = "reaction"
	SourceReply     Source = "reply"
	SourceOutcome   Source = "outcome"
	SourceCallIntel Source = "call_intel"
)

// Entry is one append-only feedback log record. Written once per inbound
// feedback or outcome event, never mutated.
type Entry struct {
	FeedbackID string    `json:"feedback_id"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Source     Source    `json:"source"`
	Value      string    `json:"value"`
	RawText    string    `json:"raw_text,omitempty"`
	RepID      string    `json:"rep_id,omitempty"`
	DealName   string    `json:"deal_name,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Log is the durable feedback log.
type Log struct {
	Entries []Entry `json:"entries"`
}

// Delivery is one append-only delivery log record, written at send time.
type Delivery struct {
	DeliveryID     string    `json:"delivery_id"`
	DealName       string    `json:"deal_name"`
	DealStage      string    `json:"deal_stage"`
	Industry       string    `json:"industry"`
	Competitor     string    `json:"competitor"`
	RepID          string    `json:"rep_id"`
	CaseStudyIDs   []string  `json:"case_study_ids,omitempty"`
	PositioningIDs []string  `json:"positioning_ids,omitempty"`
	Channel        string    `json:"channel"`
	Timestamp      time.Time `json:"timestamp"`
}

// DeliveryLog is the durable delivery log.
type DeliveryLog struct {
	Entries []Delivery `json:"entries"`
}
