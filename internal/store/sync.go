package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Remote sync paths, matching the receiving gateway's routes.
const (
	syncPathKnowledge = "/sync/kb"
	syncPathDirectory = "/sync/rep-directory"
)

// SyncPusher mirrors knowledge and directory writes to a remote relay. The
// push is fire-and-forget: it swallows and logs its own errors and never
// propagates them to the write caller.
type SyncPusher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewSyncPusher returns a pusher for the given endpoint, or nil when
// baseURL is empty (sync disabled). A nil *SyncPusher is safe to call.
func NewSyncPusher(baseURL, token string) *SyncPusher {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil
	}
	return &SyncPusher{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Push sends the record asynchronously. Errors are logged with endpoint
// context and dropped.
func (p *SyncPusher) Push(path string, record any) {
	if p == nil {
		return
	}
	body, err := json.Marshal(record)
	if err != nil {
		slog.Error("Sync push encode failed", "path", path, "error", err)
		return
	}
	go func() {
		if err := p.put(path, body); err != nil {
			slog.Warn("Sync push failed", "path", path, "error", err)
		}
	}()
}

func (p *SyncPusher) put(path string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sync endpoint status: %d", resp.StatusCode)
	}
	return nil
}
