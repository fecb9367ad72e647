// Package timeline records pipeline events in sqlite for the status API and
// operator diagnostics. Recording is best-effort: timeline failures never
// affect webhook processing or delivery.
package timeline

import "time"

// Event kinds.
const (
	KindWebhookReceived  = "webhook_received"
	KindPipelineSkipped  = "pipeline_skipped"
	KindDeliverySent     = "delivery_sent"
	KindFeedbackRecorded = "feedback_recorded"
	KindOutcomeRecorded  = "outcome_recorded"
	KindError            = "error"
)

// Event is one row in the pipeline event log.
type Event struct {
	ID         int64     `json:"id"`
	EventID    string    `json:"event_id"`
	TraceID    string    `json:"trace_id"`
	Kind       string    `json:"kind"`
	Channel    string    `json:"channel,omitempty"`
	DealName   string    `json:"deal_name,omitempty"`
	DeliveryID string    `json:"delivery_id,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Schema is the sqlite schema, applied idempotently on open.
const Schema = `
CREATE TABLE IF NOT EXISTS pipeline_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT UNIQUE NOT NULL,
	trace_id TEXT,
	kind TEXT NOT NULL,
	channel TEXT,
	deal_name TEXT,
	delivery_id TEXT,
	detail TEXT,
	timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_kind ON pipeline_events(kind);
CREATE INDEX IF NOT EXISTS idx_events_trace ON pipeline_events(trace_id);
CREATE INDEX IF NOT EXISTS idx_events_delivery ON pipeline_events(delivery_id);
`
