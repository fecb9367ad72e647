package channels

import "context"

// Message is one outbound enablement or notification message. DeliveryID is
// threaded into the feedback buttons so later reactions can be correlated
// back to this delivery.
type Message struct {
	Recipient           string
	Text                string
	DeliveryID          string
	WithFeedbackButtons bool
}

// Channel defines the interface for messaging platforms (Slack, Telegram).
type Channel interface {
	// Name returns the channel name (e.g. "slack").
	Name() string
	// Send delivers a message to a specific recipient.
	Send(ctx context.Context, msg *Message) error
}
