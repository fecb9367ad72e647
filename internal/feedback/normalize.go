package feedback

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Synthetic delivery-id prefixes for platforms that cannot carry a native
// delivery id on replies. Correlation works when the delivery side recorded
// the same synthesized id; when it didn't, the feedback is still logged.
const (
	slackThreadPrefix    = "del-slack-"
	telegramReplyPrefix  = "del-tg-"
	actionHelpful        = "feedback_helpful"
	valueHelpful         = "helpful"
	valueNotHelpful      = "not_helpful"
	verificationTypeName = "url_verification"
)

// Result is the outcome of shape detection: either a verification challenge
// to echo back, or a normalized feedback entry.
type Result struct {
	Challenge string
	Entry     *Entry
}

// Normalize matches an arbitrary inbound payload against the known shapes
// in fixed priority order and returns the first match, or nil when nothing
// matches. Callers treat nil as "ignore silently, log only": webhook senders
// always get a 200 regardless.
func Normalize(payload map[string]any) *Result {
	if payload == nil {
		return nil
	}
	if challenge, ok := matchVerification(payload); ok {
		return &Result{Challenge: challenge}
	}
	if entry := matchInteractiveAction(payload); entry != nil {
		return &Result{Entry: entry}
	}
	if entry := matchThreadReply(payload); entry != nil {
		return &Result{Entry: entry}
	}
	if entry := matchCallbackQuery(payload); entry != nil {
		return &Result{Entry: entry}
	}
	if entry := matchMessageReply(payload); entry != nil {
		return &Result{Entry: entry}
	}
	if entry := matchIntelPost(payload); entry != nil {
		return &Result{Entry: entry}
	}
	return nil
}

// Shape 1: URL-verification challenge. Echoed unchanged, never logged.
func matchVerification(m map[string]any) (string, bool) {
	if asString(m["type"]) != verificationTypeName {
		return "", false
	}
	challenge := asString(m["challenge"])
	return challenge, challenge != ""
}

// Shape 2: Slack interactive action. The "payload" field arrives either as
// a JSON-encoded string (form post) or an already-decoded object. Malformed
// JSON is a non-match, not an error.
func matchInteractiveAction(m map[string]any) *Entry {
	raw, ok := m["payload"]
	if !ok {
		return nil
	}
	var action map[string]any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &action); err != nil {
			return nil
		}
	case map[string]any:
		action = v
	default:
		return nil
	}
	actions, ok := action["actions"].([]any)
	if !ok || len(actions) == 0 {
		return nil
	}
	first, ok := actions[0].(map[string]any)
	if !ok {
		return nil
	}
	value := valueNotHelpful
	if asString(first["action_id"]) == actionHelpful {
		value = valueHelpful
	}
	entry := &Entry{
		Source:     SourceReaction,
		Value:      value,
		DeliveryID: asString(first["value"]),
	}
	if user, ok := action["user"].(map[string]any); ok {
		entry.RepID = asString(user["id"])
	}
	return entry
}

// Shape 3: Slack event with message text and a thread identifier. The only
// way a thread reply correlates back to a delivery is the synthesized
// prefix+thread id.
func matchThreadReply(m map[string]any) *Entry {
	event, ok := m["event"].(map[string]any)
	if !ok {
		return nil
	}
	text := asString(event["text"])
	thread := asString(event["thread_ts"])
	if text == "" || thread == "" {
		return nil
	}
	return &Entry{
		Source:     SourceReply,
		Value:      "reply",
		RawText:    text,
		DeliveryID: slackThreadPrefix + thread,
		RepID:      asString(event["user"]),
	}
}

// Shape 4: Telegram callback query carrying colon-delimited data:
// "<value>:<delivery id>".
func matchCallbackQuery(m map[string]any) *Entry {
	cb, ok := m["callback_query"].(map[string]any)
	if !ok {
		return nil
	}
	data := asString(cb["data"])
	if !strings.Contains(data, ":") {
		return nil
	}
	parts := strings.SplitN(data, ":", 2)
	entry := &Entry{
		Source:     SourceReaction,
		Value:      parts[0],
		DeliveryID: parts[1],
	}
	if from, ok := cb["from"].(map[string]any); ok {
		entry.RepID = asIDString(from["id"])
	}
	return entry
}

// Shape 5: Telegram message replying to an earlier message.
func matchMessageReply(m map[string]any) *Entry {
	msg, ok := m["message"].(map[string]any)
	if !ok {
		return nil
	}
	text := asString(msg["text"])
	replyTo, hasReply := msg["reply_to_message"].(map[string]any)
	if text == "" || !hasReply {
		return nil
	}
	replyID := asIDString(replyTo["message_id"])
	if replyID == "" {
		return nil
	}
	entry := &Entry{
		Source:     SourceReply,
		Value:      "reply",
		RawText:    text,
		DeliveryID: telegramReplyPrefix + replyID,
	}
	if from, ok := msg["from"].(map[string]any); ok {
		entry.RepID = asIDString(from["id"])
	}
	return entry
}

// Shape 6: freeform intel post with a deal name and summary.
func matchIntelPost(m map[string]any) *Entry {
	dealName := asString(m["deal_name"])
	summary := asString(m["summary"])
	if dealName == "" || summary == "" {
		return nil
	}
	return &Entry{
		Source:   SourceCallIntel,
		Value:    summary,
		RawText:  summary,
		DealName: dealName,
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asIDString renders platform ids that arrive as JSON numbers or strings.
func asIDString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case float64:
		return strconv.FormatInt(int64(n), 10)
	case int:
		return strconv.Itoa(n)
	case int64:
		return strconv.FormatInt(n, 10)
	default:
		return ""
	}
}
