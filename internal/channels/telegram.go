package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/salesrelay/salesrelay/internal/config"
)

// TelegramChannel is the secondary delivery path, used for operator
// notifications and reps registered with a Telegram chat ID. It talks to the
// Bot API directly over HTTP.
type TelegramChannel struct {
	cfg    config.TelegramConfig
	client *http.Client
}

func NewTelegramChannel(cfg config.TelegramConfig) *TelegramChannel {
	return &TelegramChannel{cfg: cfg, client: http.DefaultClient}
}

func (c *TelegramChannel) Name() string { return "telegram" }

func (c *TelegramChannel) Send(ctx context.Context, msg *Message) error {
	recipient := strings.TrimSpace(msg.Recipient)
	if recipient == "" {
		return fmt.Errorf("telegram send: empty recipient")
	}
	payload := map[string]any{
		"chat_id": recipient,
		"text":    msg.Text,
	}
	if msg.WithFeedbackButtons && strings.TrimSpace(msg.DeliveryID) != "" {
		payload["reply_markup"] = map[string]any{
			"inline_keyboard": [][]map[string]any{{
				{"text": "👍 Helpful", "callback_data": "helpful:" + msg.DeliveryID},
				{"text": "👎 Not helpful", "callback_data": "not_helpful:" + msg.DeliveryID},
			}},
		}
	}
	return c.call(ctx, "sendMessage", payload)
}

// AnswerCallbackQuery dismisses the loading spinner on a tapped button.
func (c *TelegramChannel) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	return c.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	})
}

// ClearReplyMarkup removes the feedback buttons after a vote is recorded.
func (c *TelegramChannel) ClearReplyMarkup(ctx context.Context, chatID string, messageID int64) error {
	return c.call(ctx, "editMessageReplyMarkup", map[string]any{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": map[string]any{"inline_keyboard": [][]map[string]any{}},
	})
}

func (c *TelegramChannel) call(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL(method), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram %s status %d: %s", method, resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

func (c *TelegramChannel) apiURL(method string) string {
	base := strings.TrimSpace(c.cfg.APIBase)
	if base == "" {
		base = "https://api.telegram.org"
	}
	return strings.TrimRight(base, "/") + "/bot" + c.cfg.BotToken + "/" + method
}
