package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/slack-go/slack"

	"github.com/salesrelay/salesrelay/internal/config"
)

const (
	actionHelpful    = "feedback_helpful"
	actionNotHelpful = "feedback_not_helpful"

	// Slack caps section text at 3000 characters.
	slackSectionLimit = 3000
)

// SlackChannel delivers enablement packages as Slack DMs with feedback
// buttons attached. It also implements identity.PlatformLookup via the
// users.lookupByEmail API.
type SlackChannel struct {
	api *slack.Client
	cfg config.SlackConfig
}

func NewSlackChannel(cfg config.SlackConfig) *SlackChannel {
	opts := []slack.Option{}
	if base := strings.TrimSpace(cfg.APIBase); base != "" {
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, slack.OptionAPIURL(base))
	}
	return &SlackChannel{api: slack.New(cfg.BotToken, opts...), cfg: cfg}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(ctx context.Context, msg *Message) error {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return fmt.Errorf("slack send: empty recipient")
	}
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if msg.WithFeedbackButtons && strings.TrimSpace(msg.DeliveryID) != "" {
		section := slack.NewSectionBlock(
			slack.NewTextBlockObject(slack.MarkdownType, sectionText(msg.Text), false, false), nil, nil)
		actions := slack.NewActionBlock("feedback",
			slack.NewButtonBlockElement(actionHelpful, msg.DeliveryID,
				slack.NewTextBlockObject(slack.PlainTextType, "👍 Helpful", true, false)),
			slack.NewButtonBlockElement(actionNotHelpful, msg.DeliveryID,
				slack.NewTextBlockObject(slack.PlainTextType, "👎 Not helpful", true, false)),
		)
		opts = append(opts, slack.MsgOptionBlocks(section, actions))
	}
	if _, _, err := c.api.PostMessageContext(ctx, recipient, opts...); err != nil {
		return fmt.Errorf("slack post message: %w", err)
	}
	return nil
}

// LookupByEmail resolves a workspace member's user ID from their email.
func (c *SlackChannel) LookupByEmail(ctx context.Context, email string) (string, error) {
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		return "", fmt.Errorf("slack lookup %s: %w", email, err)
	}
	return user.ID, nil
}

// AcknowledgeAction replaces the original button message via the interaction
// response_url so the rep sees their vote registered.
func AcknowledgeAction(ctx context.Context, client *http.Client, responseURL, text string) error {
	if strings.TrimSpace(responseURL) == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	body, _ := json.Marshal(map[string]any{
		"replace_original": true,
		"text":             text,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responseURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("slack response_url status: %d", resp.StatusCode)
	}
	return nil
}

func sectionText(s string) string {
	runes := []rune(s)
	if len(runes) <= slackSectionLimit {
		return s
	}
	return string(runes[:slackSectionLimit-1]) + "…"
}
