package stream

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestEventEncode_AllFields(t *testing.T) {
	ev := Event{
		ID:    "42",
		Type:  EventSystemMessage,
		Retry: 3000,
		Data:  "hello",
	}
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "id: 42\nevent: system_message\nretry: 3000\ndata: hello\n\n"
	if string(raw) != want {
		t.Errorf("encoded = %q, want %q", raw, want)
	}
}

func TestEventEncode_OmitsEmptyFields(t *testing.T) {
	raw, err := Event{Type: EventHeartbeat, Data: "x"}.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := string(raw)
	if strings.Contains(got, "id:") || strings.Contains(got, "retry:") {
		t.Errorf("expected no id/retry lines, got %q", got)
	}
	if !strings.HasSuffix(got, "\n\n") {
		t.Errorf("expected blank line terminator, got %q", got)
	}
}

func TestEventEncode_MultilineData(t *testing.T) {
	raw, err := Event{Type: EventSystemMessage, Data: "line one\nline two\nline three"}.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := string(raw)
	for _, line := range []string{"data: line one\n", "data: line two\n", "data: line three\n"} {
		if !strings.Contains(got, line) {
			t.Errorf("expected %q in %q", line, got)
		}
	}
	if strings.Count(got, "data: ") != 3 {
		t.Errorf("expected 3 data lines, got %q", got)
	}
}

func TestEventEncode_JSONPayload(t *testing.T) {
	ev := NewSystemMessage("Leaderboard cleared")
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := string(raw)
	if !strings.HasPrefix(got, "event: system_message\n") {
		t.Errorf("expected event line first, got %q", got)
	}

	// The data line must carry valid JSON with a timestamp.
	dataLine := ""
	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "data: ") {
			dataLine = strings.TrimPrefix(line, "data: ")
		}
	}
	if dataLine == "" {
		t.Fatalf("no data line in %q", got)
	}
	var payload SystemPayload
	if err := json.Unmarshal([]byte(dataLine), &payload); err != nil {
		t.Fatalf("data line is not JSON: %v", err)
	}
	if payload.Message != "Leaderboard cleared" {
		t.Errorf("message = %q", payload.Message)
	}
	if payload.Timestamp.IsZero() {
		t.Error("expected a timestamp in the payload")
	}
}

func TestEventConstructors(t *testing.T) {
	cases := []struct {
		ev   Event
		want EventType
	}{
		{NewLeaderboardUpdate(nil), EventLeaderboardUpdate},
		{NewUserScoreUpdate(userScoreFixture()), EventUserScoreUpdate},
		{NewSystemMessage("m"), EventSystemMessage},
		{NewHeartbeat(), EventHeartbeat},
	}
	for _, tc := range cases {
		if tc.ev.Type != tc.want {
			t.Errorf("event type = %s, want %s", tc.ev.Type, tc.want)
		}
		if _, err := tc.ev.Encode(); err != nil {
			t.Errorf("%s: unexpected encode error: %v", tc.want, err)
		}
	}
}
