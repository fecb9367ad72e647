package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/salesrelay/salesrelay/internal/channels"
	"github.com/salesrelay/salesrelay/internal/identity"
	"github.com/salesrelay/salesrelay/internal/knowledge"
	"github.com/salesrelay/salesrelay/internal/pipeline"
	"github.com/salesrelay/salesrelay/internal/store"
	"github.com/salesrelay/salesrelay/internal/timeline"
)

type stubChannel struct {
	mu   sync.Mutex
	sent []channels.Message
}

func (s *stubChannel) Name() string { return "slack" }

func (s *stubChannel) Send(_ context.Context, msg *channels.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, *msg)
	return nil
}

func (s *stubChannel) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

type stubLookup struct{}

func (stubLookup) LookupByEmail(context.Context, string) (string, error) { return "U1", nil }

func newTestGateway(t *testing.T, authToken string) (*httptest.Server, *store.Store, *stubChannel) {
	t.Helper()
	st, err := store.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	err = st.SaveKnowledge(knowledge.Base{CaseStudies: []knowledge.CaseStudy{
		{ID: "cs-001", Company: "MidBank", Industry: "Technology", Result: "40% faster close"},
	}})
	if err != nil {
		t.Fatalf("seed knowledge: %v", err)
	}
	err = st.SaveDirectory(identity.Directory{Reps: []identity.RepEntry{
		{Email: "rep@example.com", SlackID: "U100"},
	}})
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}

	ch := &stubChannel{}
	pipe := pipeline.New(pipeline.Options{
		Store:    st,
		Resolver: identity.NewResolver(st, stubLookup{}),
		Channel:  ch,
	})
	mux := newGatewayMux(gatewayDeps{pipe: pipe, store: st, authToken: authToken})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, st, ch
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return m
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestCRMWebhookAlways200(t *testing.T) {
	srv, _, _ := newTestGateway(t, "")

	resp := postJSON(t, srv.URL+"/webhook/crm", "{not json")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("malformed body must still get 200, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["status"] != "received" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestCRMWebhookTriggersDelivery(t *testing.T) {
	srv, st, ch := newTestGateway(t, "")

	payload := `{"properties":{"dealname":"Acme Corp","dealstage":"Demo Scheduled","industry":"Technology","owner_email":"rep@example.com"}}`
	resp := postJSON(t, srv.URL+"/webhook/crm", payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	waitFor(t, func() bool { return ch.count() == 1 })
	waitFor(t, func() bool {
		dlog, err := st.Deliveries()
		return err == nil && len(dlog.Entries) == 1
	})
}

func TestSlackWebhookEchoesChallenge(t *testing.T) {
	srv, _, _ := newTestGateway(t, "")

	resp := postJSON(t, srv.URL+"/webhook/slack", `{"type":"url_verification","challenge":"xyz789"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["challenge"] != "xyz789" {
		t.Fatalf("challenge not echoed: %+v", body)
	}
}

func TestSlackWebhookFormEncodedAction(t *testing.T) {
	srv, st, _ := newTestGateway(t, "")

	action := `{"actions":[{"action_id":"feedback_helpful","value":"del-1"}],"user":{"id":"U100"}}`
	form := url.Values{"payload": {action}}
	resp, err := http.Post(srv.URL+"/webhook/slack", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["ok"] != true {
		t.Fatalf("unexpected body: %+v", body)
	}

	waitFor(t, func() bool {
		flog, err := st.Feedback()
		return err == nil && len(flog.Entries) == 1
	})
	flog, _ := st.Feedback()
	if flog.Entries[0].Value != "helpful" {
		t.Fatalf("unexpected entry: %+v", flog.Entries[0])
	}
}

// blockingChannel stalls every send until released so a test can observe
// what the gateway does while a continuation is still in flight.
type blockingChannel struct {
	stubChannel
	release chan struct{}
}

func (b *blockingChannel) Send(ctx context.Context, msg *channels.Message) error {
	<-b.release
	return b.stubChannel.Send(ctx, msg)
}

func TestSlackActionAckPrecedesProcessing(t *testing.T) {
	st, err := store.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	ch := &blockingChannel{release: make(chan struct{})}
	pipe := pipeline.New(pipeline.Options{
		Store:     st,
		Resolver:  identity.NewResolver(st, stubLookup{}),
		Channel:   ch,
		PMMTarget: "#product-marketing",
	})
	srv := httptest.NewServer(newGatewayMux(gatewayDeps{pipe: pipe, store: st}))
	t.Cleanup(srv.Close)

	action := `{"actions":[{"action_id":"feedback_helpful","value":"del-1"}],"user":{"id":"U100"}}`
	form := url.Values{"payload": {action}}
	resp, err := http.Post(srv.URL+"/webhook/slack", "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	// The 200 must come back while the continuation is still blocked on its
	// outbound send.
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()
	if got := ch.count(); got != 0 {
		t.Fatalf("continuation finished before ack, %d sends", got)
	}

	close(ch.release)
	waitFor(t, func() bool { return ch.count() == 1 })
	waitFor(t, func() bool {
		flog, err := st.Feedback()
		return err == nil && len(flog.Entries) == 1
	})
}

func TestSlackChallengeRecordedInTimeline(t *testing.T) {
	st, err := store.New(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	tl, err := timeline.New(filepath.Join(t.TempDir(), "timeline.db"))
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	t.Cleanup(func() { tl.Close() })
	pipe := pipeline.New(pipeline.Options{
		Store:    st,
		Resolver: identity.NewResolver(st, stubLookup{}),
		Channel:  &stubChannel{},
		Timeline: tl,
	})
	srv := httptest.NewServer(newGatewayMux(gatewayDeps{pipe: pipe, store: st, timeline: tl}))
	t.Cleanup(srv.Close)

	resp := postJSON(t, srv.URL+"/webhook/slack", `{"type":"url_verification","challenge":"xyz789"}`)
	if body := decodeBody(t, resp); body["challenge"] != "xyz789" {
		t.Fatalf("challenge not echoed: %+v", body)
	}

	waitFor(t, func() bool {
		counts, err := tl.Counts()
		return err == nil && counts[timeline.KindWebhookReceived] == 1
	})
}

func TestTelegramWebhookAlways200(t *testing.T) {
	srv, _, _ := newTestGateway(t, "")

	resp := postJSON(t, srv.URL+"/webhook/telegram", `{"unexpected":"shape"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestIntelValidation(t *testing.T) {
	srv, _, _ := newTestGateway(t, "")

	tests := []struct {
		name      string
		body      string
		status    int
		errSubstr string
	}{
		{"missing deal name", `{"summary":"notes"}`, http.StatusBadRequest, "deal_name"},
		{"blank summary", `{"deal_name":"Acme","summary":"   "}`, http.StatusBadRequest, "summary"},
		{"deal name too long", `{"deal_name":"` + strings.Repeat("x", 501) + `","summary":"ok"}`,
			http.StatusBadRequest, "deal_name"},
		{"summary too long", `{"deal_name":"Acme","summary":"` + strings.Repeat("y", 10001) + `"}`,
			http.StatusBadRequest, "summary"},
		{"valid", `{"deal_name":"Acme","summary":"strong interest in integrations"}`, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, srv.URL+"/intel", tt.body)
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}
			body := decodeBody(t, resp)
			if tt.errSubstr != "" {
				msg, _ := body["error"].(string)
				if !strings.Contains(msg, tt.errSubstr) {
					t.Fatalf("error %q does not name the field %q", msg, tt.errSubstr)
				}
			}
		})
	}
}

func TestIntelAppendsCallIntel(t *testing.T) {
	srv, st, _ := newTestGateway(t, "")

	resp := postJSON(t, srv.URL+"/intel", `{"deal_name":"Acme Corp","summary":"asked about SSO"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	waitFor(t, func() bool {
		flog, err := st.Feedback()
		return err == nil && len(flog.Entries) == 1
	})
	flog, _ := st.Feedback()
	e := flog.Entries[0]
	if e.DealName != "Acme Corp" || e.RawText != "asked about SSO" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func putJSON(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put %s: %v", url, err)
	}
	return resp
}

func TestSyncAuthMatrix(t *testing.T) {
	valid := `{"case_studies":[],"competitor_positioning":[],"objections":[],"_meta":{}}`

	t.Run("unconfigured", func(t *testing.T) {
		srv, _, _ := newTestGateway(t, "")
		resp := putJSON(t, srv.URL+"/sync/kb", "whatever", valid)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", resp.StatusCode)
		}
	})

	t.Run("missing auth", func(t *testing.T) {
		srv, _, _ := newTestGateway(t, "secret")
		resp := putJSON(t, srv.URL+"/sync/kb", "", valid)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("wrong token", func(t *testing.T) {
		srv, _, _ := newTestGateway(t, "secret")
		resp := putJSON(t, srv.URL+"/sync/kb", "not-it", valid)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", resp.StatusCode)
		}
	})

	t.Run("bad shape", func(t *testing.T) {
		srv, _, _ := newTestGateway(t, "secret")
		resp := putJSON(t, srv.URL+"/sync/kb", "secret", `{"case_studies":"nope","_meta":{}}`)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("accepted", func(t *testing.T) {
		srv, st, _ := newTestGateway(t, "secret")
		body := `{"case_studies":[{"id":"cs-009","company":"NewCo","industry":"Retail","result":"2x pipeline"}],"competitor_positioning":[],"objections":[],"_meta":{}}`
		resp := putJSON(t, srv.URL+"/sync/kb", "secret", body)
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		kb, err := st.Knowledge()
		if err != nil {
			t.Fatalf("knowledge: %v", err)
		}
		if len(kb.CaseStudies) != 1 || kb.CaseStudies[0].ID != "cs-009" {
			t.Fatalf("sync not applied: %+v", kb.CaseStudies)
		}
	})
}

func TestSyncDirectoryMarksVia(t *testing.T) {
	srv, st, _ := newTestGateway(t, "secret")
	body := `{"reps":[{"email":"new@example.com","slack_id":"U9"}],"_meta":{}}`
	resp := putJSON(t, srv.URL+"/sync/rep-directory", "secret", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	dir, err := st.Directory()
	if err != nil {
		t.Fatalf("directory: %v", err)
	}
	if len(dir.Reps) != 1 || dir.Reps[0].RegisteredVia != identity.RegisteredSync {
		t.Fatalf("unexpected directory: %+v", dir.Reps)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _, _ := newTestGateway(t, "")

	resp, err := http.Get(srv.URL + "/api/v1/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ok" || body["knowledge_configured"] != true {
		t.Fatalf("unexpected body: %+v", body)
	}
}
