package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/salesrelay/salesrelay/internal/channels"
	"github.com/salesrelay/salesrelay/internal/feedback"
	"github.com/salesrelay/salesrelay/internal/identity"
	"github.com/salesrelay/salesrelay/internal/knowledge"
	"github.com/salesrelay/salesrelay/internal/pipeline"
	"github.com/salesrelay/salesrelay/internal/store"
	"github.com/salesrelay/salesrelay/internal/timeline"
)

// Intel post limits. Anything larger is rejected before it reaches the log.
const (
	intelDealNameMax = 500
	intelSummaryMax  = 10000
)

type gatewayDeps struct {
	pipe      *pipeline.Pipeline
	store     *store.Store
	timeline  *timeline.Service
	telegram  *channels.TelegramChannel
	authToken string
}

// newGatewayMux builds the HTTP surface. Webhook ingress always answers 200
// immediately; all real work runs detached so slow downstreams can never
// stall or fail the sender's retry loop.
func newGatewayMux(deps gatewayDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook/crm", deps.handleCRMWebhook)
	mux.HandleFunc("POST /webhook/slack", deps.handleSlackWebhook)
	mux.HandleFunc("POST /webhook/telegram", deps.handleTelegramWebhook)
	mux.HandleFunc("POST /intel", deps.handleIntel)
	mux.HandleFunc("PUT /sync/kb", deps.handleSyncKnowledge)
	mux.HandleFunc("PUT /sync/rep-directory", deps.handleSyncDirectory)
	mux.HandleFunc("GET /api/v1/status", deps.handleStatus)
	return mux
}

func (d gatewayDeps) handleCRMWebhook(w http.ResponseWriter, r *http.Request) {
	traceID := newTraceID()
	var payload map[string]any
	err := json.NewDecoder(r.Body).Decode(&payload)

	// The CRM gets its 200 no matter what; a retry storm over a bad payload
	// helps nobody.
	writeJSON(w, http.StatusOK, map[string]any{"status": "received"})

	d.pipe.RecordWebhook(traceID, "crm")
	if err != nil || payload == nil {
		return
	}
	d.pipe.Detach(traceID, "stage_change", func(ctx context.Context) {
		d.pipe.HandleStageChange(ctx, traceID, payload)
	})
}

func (d gatewayDeps) handleSlackWebhook(w http.ResponseWriter, r *http.Request) {
	traceID := newTraceID()
	payload := decodeSlackPayload(r)

	// URL verification has to be answered synchronously or Slack marks the
	// endpoint broken. Shape detection is pure; everything that touches the
	// store waits until after the 200.
	if payload != nil {
		if res := feedback.Normalize(payload); res != nil && res.Challenge != "" {
			writeJSON(w, http.StatusOK, map[string]any{"challenge": res.Challenge})
			d.pipe.RecordWebhook(traceID, "slack")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	d.pipe.RecordWebhook(traceID, "slack")
	if payload == nil {
		return
	}
	responseURL := slackResponseURL(payload)
	d.pipe.Detach(traceID, "slack_feedback", func(ctx context.Context) {
		d.pipe.HandleFeedback(ctx, traceID, payload)
		if responseURL != "" {
			_ = channels.AcknowledgeAction(ctx, nil, responseURL, "🙏 Thanks, feedback recorded.")
		}
	})
}

func (d gatewayDeps) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	traceID := newTraceID()
	var payload map[string]any
	err := json.NewDecoder(r.Body).Decode(&payload)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	d.pipe.RecordWebhook(traceID, "telegram")
	if err != nil || payload == nil {
		return
	}
	d.pipe.Detach(traceID, "telegram_feedback", func(ctx context.Context) {
		d.pipe.HandleFeedback(ctx, traceID, payload)
		d.ackTelegramCallback(ctx, payload)
	})
}

func (d gatewayDeps) handleIntel(w http.ResponseWriter, r *http.Request) {
	traceID := newTraceID()
	var req struct {
		DealName string `json:"deal_name"`
		Summary  string `json:"summary"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	dealName := strings.TrimSpace(req.DealName)
	summary := strings.TrimSpace(req.Summary)
	if dealName == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "deal_name is required"})
		return
	}
	if utf8.RuneCountInString(dealName) > intelDealNameMax {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "deal_name exceeds maximum length"})
		return
	}
	if summary == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "summary is required"})
		return
	}
	if utf8.RuneCountInString(summary) > intelSummaryMax {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "summary exceeds maximum length"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "received"})
	d.pipe.Detach(traceID, "call_intel", func(ctx context.Context) {
		d.pipe.HandleFeedback(ctx, traceID, map[string]any{
			"deal_name": dealName,
			"summary":   summary,
		})
	})
}

func (d gatewayDeps) handleSyncKnowledge(w http.ResponseWriter, r *http.Request) {
	if !d.authorize(w, r) {
		return
	}
	body, ok := decodeSyncBody(w, r, "case_studies")
	if !ok {
		return
	}
	var kb knowledge.Base
	if err := json.Unmarshal(body, &kb); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed knowledge base"})
		return
	}
	if err := d.store.SaveKnowledge(kb); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "write failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "synced"})
}

func (d gatewayDeps) handleSyncDirectory(w http.ResponseWriter, r *http.Request) {
	if !d.authorize(w, r) {
		return
	}
	body, ok := decodeSyncBody(w, r, "reps")
	if !ok {
		return
	}
	var dir identity.Directory
	if err := json.Unmarshal(body, &dir); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "malformed directory"})
		return
	}
	for i := range dir.Reps {
		if dir.Reps[i].RegisteredVia == "" {
			dir.Reps[i].RegisteredVia = identity.RegisteredSync
		}
	}
	if err := d.store.SaveDirectory(dir); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "write failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "synced"})
}

func (d gatewayDeps) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": version,
	}
	if kb, err := d.store.Knowledge(); err == nil {
		resp["knowledge_configured"] = kb.Meta.Configured
	}
	if dir, err := d.store.Directory(); err == nil {
		resp["reps"] = len(dir.Reps)
	}
	if dlog, err := d.store.Deliveries(); err == nil {
		resp["deliveries"] = len(dlog.Entries)
	}
	if counts, err := d.timeline.Counts(); err == nil {
		resp["events"] = counts
	}
	writeJSON(w, http.StatusOK, resp)
}

// authorize enforces the sync endpoint token. Order matters: an instance
// with no token configured cannot accept pushes at all.
func (d gatewayDeps) authorize(w http.ResponseWriter, r *http.Request) bool {
	if strings.TrimSpace(d.authToken) == "" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "sync not configured"})
		return false
	}
	auth := r.Header.Get("Authorization")
	if auth == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "missing authorization"})
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	if token != d.authToken {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "invalid token"})
		return false
	}
	return true
}

// decodeSyncBody validates the push envelope: the named collection must be
// an array and _meta must be an object. Returns the raw body for a typed
// second decode.
func decodeSyncBody(w http.ResponseWriter, r *http.Request, collection string) (json.RawMessage, bool) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&raw); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return nil, false
	}
	coll, ok := raw[collection]
	if !ok || !startsWith(coll, '[') {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": collection + " must be an array"})
		return nil, false
	}
	meta, ok := raw["_meta"]
	if !ok || !startsWith(meta, '{') {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "_meta must be an object"})
		return nil, false
	}
	body, err := json.Marshal(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return nil, false
	}
	return body, true
}

func startsWith(raw json.RawMessage, c byte) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed != "" && trimmed[0] == c
}

// decodeSlackPayload handles both delivery styles: interactive actions come
// form-encoded with a JSON string in the "payload" field, events arrive as
// a plain JSON body.
func decodeSlackPayload(r *http.Request) map[string]any {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		if err := r.ParseForm(); err != nil {
			return nil
		}
		raw := r.FormValue("payload")
		if raw == "" {
			return nil
		}
		return map[string]any{"payload": raw}
	}
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		return nil
	}
	return payload
}

// slackResponseURL digs the interaction response_url out of a payload map,
// tolerating both encoded and decoded forms.
func slackResponseURL(payload map[string]any) string {
	if payload == nil {
		return ""
	}
	raw, ok := payload["payload"]
	if !ok {
		return ""
	}
	var action map[string]any
	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &action); err != nil {
			return ""
		}
	case map[string]any:
		action = v
	default:
		return ""
	}
	s, _ := action["response_url"].(string)
	return s
}

// ackTelegramCallback dismisses the button spinner and strips the keyboard
// after a callback vote.
func (d gatewayDeps) ackTelegramCallback(ctx context.Context, payload map[string]any) {
	if d.telegram == nil {
		return
	}
	cb, ok := payload["callback_query"].(map[string]any)
	if !ok {
		return
	}
	if id, _ := cb["id"].(string); id != "" {
		_ = d.telegram.AnswerCallbackQuery(ctx, id, "Feedback recorded")
	}
	msg, ok := cb["message"].(map[string]any)
	if !ok {
		return
	}
	chat, _ := msg["chat"].(map[string]any)
	chatID := ""
	if chat != nil {
		switch v := chat["id"].(type) {
		case string:
			chatID = v
		case float64:
			chatID = strconv.FormatInt(int64(v), 10)
		}
	}
	messageID, _ := msg["message_id"].(float64)
	if chatID != "" && messageID > 0 {
		_ = d.telegram.ClearReplyMarkup(ctx, chatID, int64(messageID))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
