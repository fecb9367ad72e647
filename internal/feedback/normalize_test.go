package feedback

import "testing"

func TestNormalize_VerificationChallenge(t *testing.T) {
	res := Normalize(map[string]any{
		"type":      "url_verification",
		"challenge": "abc123",
		// Extra fields must not change the outcome.
		"event":   map[string]any{"text": "hi", "thread_ts": "1"},
		"payload": `{"actions":[{"action_id":"feedback_helpful","value":"del-1"}]}`,
	})
	if res == nil || res.Challenge != "abc123" {
		t.Fatalf("expected echoed challenge, got %+v", res)
	}
	if res.Entry != nil {
		t.Fatal("a verification challenge must never produce a feedback entry")
	}
}

func TestNormalize_SlackButton(t *testing.T) {
	res := Normalize(map[string]any{
		"payload": `{"actions":[{"action_id":"feedback_helpful","value":"del-123"}],"user":{"id":"U42"}}`,
	})
	if res == nil || res.Entry == nil {
		t.Fatalf("expected entry, got %+v", res)
	}
	e := res.Entry
	if e.Source != SourceReaction || e.Value != "helpful" || e.DeliveryID != "del-123" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.RepID != "U42" {
		t.Fatalf("unexpected rep id: %+v", e)
	}
}

func TestNormalize_SlackButtonNotHelpful(t *testing.T) {
	res := Normalize(map[string]any{
		"payload": map[string]any{
			"actions": []any{map[string]any{"action_id": "feedback_not_helpful", "value": "del-9"}},
		},
	})
	if res == nil || res.Entry == nil || res.Entry.Value != "not_helpful" {
		t.Fatalf("any action id other than feedback_helpful maps to not_helpful: %+v", res)
	}
}

func TestNormalize_MalformedPayloadJSONIsNoMatch(t *testing.T) {
	if res := Normalize(map[string]any{"payload": `{not json`}); res != nil {
		t.Fatalf("malformed payload JSON must be a no-match, got %+v", res)
	}
}

func TestNormalize_SlackThreadReply(t *testing.T) {
	res := Normalize(map[string]any{
		"event": map[string]any{
			"text":      "this case study landed well",
			"thread_ts": "1711100000.000200",
			"user":      "U7",
		},
	})
	if res == nil || res.Entry == nil {
		t.Fatalf("expected entry, got %+v", res)
	}
	e := res.Entry
	if e.Source != SourceReply || e.DeliveryID != "del-slack-1711100000.000200" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.RawText != "this case study landed well" || e.RepID != "U7" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestNormalize_TelegramCallback(t *testing.T) {
	res := Normalize(map[string]any{
		"callback_query": map[string]any{
			"data": "helpful:del-456",
			"from": map[string]any{"id": 987654.0},
		},
	})
	if res == nil || res.Entry == nil {
		t.Fatalf("expected entry, got %+v", res)
	}
	e := res.Entry
	if e.Source != SourceReaction || e.Value != "helpful" || e.DeliveryID != "del-456" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.RepID != "987654" {
		t.Fatalf("unexpected rep id: %+v", e)
	}
}

func TestNormalize_TelegramReply(t *testing.T) {
	res := Normalize(map[string]any{
		"message": map[string]any{
			"text":             "prospect asked about pricing",
			"reply_to_message": map[string]any{"message_id": 5151.0},
			"from":             map[string]any{"id": "12"},
		},
	})
	if res == nil || res.Entry == nil {
		t.Fatalf("expected entry, got %+v", res)
	}
	e := res.Entry
	if e.Source != SourceReply || e.DeliveryID != "del-tg-5151" {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestNormalize_IntelPost(t *testing.T) {
	res := Normalize(map[string]any{
		"deal_name": "Acme Expansion",
		"summary":   "They want SOC2 evidence before signing.",
	})
	if res == nil || res.Entry == nil {
		t.Fatalf("expected entry, got %+v", res)
	}
	e := res.Entry
	if e.Source != SourceCallIntel || e.DealName != "Acme Expansion" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Value != e.RawText {
		t.Fatalf("summary must be both value and raw text: %+v", e)
	}
}

func TestNormalize_NoMatch(t *testing.T) {
	for _, payload := range []map[string]any{
		nil,
		{},
		{"event": map[string]any{"text": "no thread"}},
		{"callback_query": map[string]any{"data": "no-delimiter"}},
		{"message": map[string]any{"text": "no reply ref"}},
		{"deal_name": "only name"},
	} {
		if res := Normalize(payload); res != nil {
			t.Fatalf("expected no match for %+v, got %+v", payload, res)
		}
	}
}
