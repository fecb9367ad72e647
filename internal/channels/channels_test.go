package channels

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/salesrelay/salesrelay/internal/config"
)

func TestSlackSendAttachesFeedbackButtons(t *testing.T) {
	var gotPath string
	var gotBlocks string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotBlocks = r.FormValue("blocks")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"channel":"U42","ts":"123.456"}`)
	}))
	defer srv.Close()

	ch := NewSlackChannel(config.SlackConfig{BotToken: "xoxb-test", APIBase: srv.URL + "/"})
	err := ch.Send(context.Background(), &Message{
		Recipient:           "U42",
		Text:                "package text",
		DeliveryID:          "del-abc",
		WithFeedbackButtons: true,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if !strings.HasSuffix(gotPath, "chat.postMessage") {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if !strings.Contains(gotBlocks, actionHelpful) || !strings.Contains(gotBlocks, "del-abc") {
		t.Fatalf("feedback buttons missing from blocks: %s", gotBlocks)
	}
}

func TestSlackSendPlainWhenButtonsDisabled(t *testing.T) {
	var gotBlocks string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		gotBlocks = r.FormValue("blocks")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"channel":"U42","ts":"123.456"}`)
	}))
	defer srv.Close()

	ch := NewSlackChannel(config.SlackConfig{BotToken: "xoxb-test", APIBase: srv.URL + "/"})
	if err := ch.Send(context.Background(), &Message{Recipient: "U42", Text: "hi"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotBlocks != "" {
		t.Fatalf("expected no blocks, got: %s", gotBlocks)
	}
}

func TestSlackSendEmptyRecipient(t *testing.T) {
	ch := NewSlackChannel(config.SlackConfig{BotToken: "xoxb-test"})
	if err := ch.Send(context.Background(), &Message{Text: "hi"}); err == nil {
		t.Fatal("expected error for empty recipient")
	}
}

func TestSlackLookupByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "users.lookupByEmail") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"ok":true,"user":{"id":"U777"}}`)
	}))
	defer srv.Close()

	ch := NewSlackChannel(config.SlackConfig{BotToken: "xoxb-test", APIBase: srv.URL + "/"})
	id, err := ch.LookupByEmail(context.Background(), "rep@example.com")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if id != "U777" {
		t.Fatalf("unexpected id: %s", id)
	}
}

func TestAcknowledgeAction(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := AcknowledgeAction(context.Background(), nil, srv.URL, "Thanks!"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if got["replace_original"] != true || got["text"] != "Thanks!" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestAcknowledgeActionBlankURL(t *testing.T) {
	if err := AcknowledgeAction(context.Background(), nil, "  ", "x"); err != nil {
		t.Fatalf("blank url must be a no-op: %v", err)
	}
}

func TestTelegramSendCallbackData(t *testing.T) {
	var gotPath string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{BotToken: "tok", APIBase: srv.URL})
	err := ch.Send(context.Background(), &Message{
		Recipient:           "555",
		Text:                "update",
		DeliveryID:          "del-xyz",
		WithFeedbackButtons: true,
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if gotPath != "/bottok/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	raw, _ := json.Marshal(got["reply_markup"])
	if !strings.Contains(string(raw), "helpful:del-xyz") {
		t.Fatalf("callback data missing: %s", raw)
	}
}

func TestTelegramErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"Bad Request"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{BotToken: "tok", APIBase: srv.URL})
	err := ch.Send(context.Background(), &Message{Recipient: "555", Text: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("status missing from error: %v", err)
	}
}

func TestTelegramAnswerCallbackQuery(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "answerCallbackQuery") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	ch := NewTelegramChannel(config.TelegramConfig{BotToken: "tok", APIBase: srv.URL})
	if err := ch.AnswerCallbackQuery(context.Background(), "cb-1", "Recorded"); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if got["callback_query_id"] != "cb-1" {
		t.Fatalf("unexpected body: %+v", got)
	}
}
