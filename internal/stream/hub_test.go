package stream

import (
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ranklab/liveboard/internal/domain/model"
	"github.com/ranklab/liveboard/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func userScoreFixture() model.UserScore {
	return model.UserScore{
		UserID:      "u1",
		Username:    "Alice",
		Score:       5,
		LastUpdated: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// fakeSink records everything written to it and can be told to start
// rejecting writes.
type fakeSink struct {
	mu     sync.Mutex
	writes []string
	fail   bool
	closed bool
}

func (s *fakeSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return os.ErrClosed
	}
	s.writes = append(s.writes, string(p))
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSink) setFail(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}

func (s *fakeSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.writes))
	copy(out, s.writes)
	return out
}

func (s *fakeSink) countEvents(typ EventType) int {
	n := 0
	for _, w := range s.snapshot() {
		if strings.Contains(w, "event: "+string(typ)+"\n") {
			n++
		}
	}
	return n
}

func TestHub_AttachSendsConnectedMessage(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	sink := &fakeSink{}
	hub.Attach("c1", sink)

	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("subscriber count = %d, want 1", got)
	}
	writes := sink.snapshot()
	if len(writes) != 1 {
		t.Fatalf("expected 1 write on attach, got %d", len(writes))
	}
	if !strings.Contains(writes[0], "event: system_message\n") ||
		!strings.Contains(writes[0], "Connected to scoreboard updates") {
		t.Errorf("unexpected welcome event: %q", writes[0])
	}
}

func TestHub_AttachFailedWelcomeDetaches(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	sink := &fakeSink{fail: true}
	hub.Attach("c1", sink)

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count = %d, want 0 after failed welcome", got)
	}
	if !sink.isClosed() {
		t.Error("expected sink to be closed after failed welcome")
	}
}

func TestHub_PublishFansOut(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	hub.Attach("c1", s1)
	hub.Attach("c2", s2)

	hub.Publish(NewLeaderboardUpdate(nil))

	for name, sink := range map[string]*fakeSink{"c1": s1, "c2": s2} {
		if got := sink.countEvents(EventLeaderboardUpdate); got != 1 {
			t.Errorf("%s: leaderboard_update count = %d, want 1", name, got)
		}
	}
}

func TestHub_PublishPrunesDeadSubscribers(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	healthy := &fakeSink{}
	dead := &fakeSink{}
	hub.Attach("healthy", healthy)
	hub.Attach("dead", dead)
	dead.setFail(true)

	hub.Publish(NewSystemMessage("first"))

	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("subscriber count = %d, want 1 after pruning", got)
	}
	if !dead.isClosed() {
		t.Error("expected the dead sink to be closed")
	}

	// The healthy subscriber keeps receiving.
	hub.Publish(NewSystemMessage("second"))
	if got := healthy.countEvents(EventSystemMessage); got != 3 { // welcome + 2 publishes
		t.Errorf("healthy system_message count = %d, want 3", got)
	}
}

func TestHub_SendTo(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	hub.Attach("c1", s1)
	hub.Attach("c2", s2)

	if err := hub.SendTo("c1", NewLeaderboardUpdate(nil)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s1.countEvents(EventLeaderboardUpdate); got != 1 {
		t.Errorf("c1 leaderboard_update count = %d, want 1", got)
	}
	if got := s2.countEvents(EventLeaderboardUpdate); got != 0 {
		t.Errorf("c2 leaderboard_update count = %d, want 0", got)
	}

	// Unknown id is a no-op.
	if err := hub.SendTo("ghost", NewHeartbeat()); err != nil {
		t.Errorf("unexpected error for unknown id: %v", err)
	}
}

func TestHub_DetachIsIdempotent(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	sink := &fakeSink{}
	hub.Attach("c1", sink)

	hub.Detach("c1")
	hub.Detach("c1")
	hub.Detach("never-attached")

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count = %d, want 0", got)
	}
	if !sink.isClosed() {
		t.Error("expected sink to be closed on detach")
	}
}

func TestHub_AttachReplacesExistingID(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	first := &fakeSink{}
	second := &fakeSink{}
	hub.Attach("c1", first)
	hub.Attach("c1", second)

	if got := hub.SubscriberCount(); got != 1 {
		t.Fatalf("subscriber count = %d, want 1", got)
	}

	hub.Publish(NewSystemMessage("after replace"))

	if got := second.countEvents(EventSystemMessage); got != 2 { // welcome + publish
		t.Errorf("replacement system_message count = %d, want 2", got)
	}
	for _, w := range first.snapshot() {
		if strings.Contains(w, "after replace") {
			t.Error("replaced sink still receives publishes")
		}
	}
}

func TestHub_CloseAllSendsFarewell(t *testing.T) {
	hub := NewHub()

	s1 := &fakeSink{}
	s2 := &fakeSink{}
	hub.Attach("c1", s1)
	hub.Attach("c2", s2)

	hub.CloseAll()

	if got := hub.SubscriberCount(); got != 0 {
		t.Errorf("subscriber count = %d, want 0 after close", got)
	}
	for name, sink := range map[string]*fakeSink{"c1": s1, "c2": s2} {
		if !sink.isClosed() {
			t.Errorf("%s: expected sink to be closed", name)
		}
		found := false
		for _, w := range sink.snapshot() {
			if strings.Contains(w, "Server shutting down") {
				found = true
			}
		}
		if !found {
			t.Errorf("%s: expected a farewell message", name)
		}
	}

	// The hub remains usable for new subscribers.
	s3 := &fakeSink{}
	hub.Attach("c3", s3)
	if got := hub.SubscriberCount(); got != 1 {
		t.Errorf("subscriber count = %d, want 1 after re-attach", got)
	}
	hub.CloseAll()
}

func TestHub_HeartbeatDelivery(t *testing.T) {
	hub := NewHub(WithHeartbeatInterval(10 * time.Millisecond))
	defer hub.CloseAll()

	sink := &fakeSink{}
	hub.Attach("c1", sink)

	deadline := time.After(2 * time.Second)
	for sink.countEvents(EventHeartbeat) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for heartbeats; got %d", sink.countEvents(EventHeartbeat))
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestHub_HeartbeatFailureDetaches(t *testing.T) {
	hub := NewHub(WithHeartbeatInterval(10 * time.Millisecond))
	defer hub.CloseAll()

	sink := &fakeSink{}
	hub.Attach("c1", sink)
	sink.setFail(true)

	deadline := time.After(2 * time.Second)
	for hub.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for heartbeat failure to detach the subscriber")
		case <-time.After(5 * time.Millisecond):
		}
	}
	if !sink.isClosed() {
		t.Error("expected sink to be closed after heartbeat failure")
	}
}
