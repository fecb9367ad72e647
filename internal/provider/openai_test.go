package provider

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

func TestNewOpenAIProviderNilWithoutKey(t *testing.T) {
	if p := NewOpenAIProvider(config.ProviderConfig{}); p != nil {
		t.Fatalf("expected nil provider without key, got %+v", p)
	}
}

func TestGenerate(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Fatalf("unexpected auth header: %s", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Here is the briefing."},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{APIKey: "sk-test", APIBase: srv.URL, Model: "test-model"})
	text, err := p.Generate(context.Background(), "prompt body")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if text != "Here is the briefing." {
		t.Fatalf("unexpected text: %q", text)
	}
	if got["model"] != "test-model" {
		t.Fatalf("unexpected model: %v", got["model"])
	}
	msgs, ok := got["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("unexpected messages: %v", got["messages"])
	}
}

func TestGenerateErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{APIKey: "sk-test", APIBase: srv.URL})
	if _, err := p.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	} else if !strings.Contains(err.Error(), "429") {
		t.Fatalf("status missing from error: %v", err)
	}
}

func TestGenerateEmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"  "},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{APIKey: "sk-test", APIBase: srv.URL})
	if _, err := p.Generate(context.Background(), "x"); err == nil {
		t.Fatal("expected error for empty completion")
	}
}
