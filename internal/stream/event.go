// Package stream provides the broadcast hub and its event encoding.
//
// Events travel to subscribers in the text/event-stream wire format:
// optional "id:", "event:" and "retry:" lines, one "data:" line per payload
// line, and a blank line terminator.
package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ranklab/liveboard/internal/domain/model"
)

// EventType tags the kind of a broadcast event.
type EventType string

// Event kinds delivered to subscribers.
const (
	EventLeaderboardUpdate EventType = "leaderboard_update"
	EventUserScoreUpdate   EventType = "user_score_update"
	EventSystemMessage     EventType = "system_message"
	EventHeartbeat         EventType = "heartbeat"
)

// Event is an immutable tagged payload broadcast to subscribers.
// Data is JSON-encoded at write time unless it is already a string.
type Event struct {
	ID    string
	Type  EventType
	Retry int
	Data  any
}

// LeaderboardPayload carries a full top-K snapshot.
type LeaderboardPayload struct {
	Leaderboard []model.Entry `json:"leaderboard"`
	Timestamp   time.Time     `json:"timestamp"`
}

// UserScorePayload carries one user's updated score.
type UserScorePayload struct {
	UserScore model.UserScore `json:"userScore"`
	Timestamp time.Time       `json:"timestamp"`
}

// SystemPayload carries an operator-facing message.
type SystemPayload struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatPayload keeps idle connections alive through intermediaries.
type HeartbeatPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

// NewLeaderboardUpdate builds a leaderboard snapshot event.
func NewLeaderboardUpdate(entries []model.Entry) Event {
	return Event{
		Type: EventLeaderboardUpdate,
		Data: LeaderboardPayload{Leaderboard: entries, Timestamp: time.Now()},
	}
}

// NewUserScoreUpdate builds an individual score update event.
func NewUserScoreUpdate(us model.UserScore) Event {
	return Event{
		Type: EventUserScoreUpdate,
		Data: UserScorePayload{UserScore: us, Timestamp: time.Now()},
	}
}

// NewSystemMessage builds a system message event.
func NewSystemMessage(msg string) Event {
	return Event{
		Type: EventSystemMessage,
		Data: SystemPayload{Message: msg, Timestamp: time.Now()},
	}
}

// NewHeartbeat builds a heartbeat event.
func NewHeartbeat() Event {
	return Event{
		Type: EventHeartbeat,
		Data: HeartbeatPayload{Timestamp: time.Now()},
	}
}

// Encode renders the event in server-sent-event wire format. Multi-line
// payloads are split on newlines with each line prefixed independently.
func (e Event) Encode() ([]byte, error) {
	var buf bytes.Buffer

	if e.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", e.ID)
	}
	if e.Type != "" {
		fmt.Fprintf(&buf, "event: %s\n", e.Type)
	}
	if e.Retry > 0 {
		fmt.Fprintf(&buf, "retry: %d\n", e.Retry)
	}

	data, ok := e.Data.(string)
	if !ok {
		raw, err := json.Marshal(e.Data)
		if err != nil {
			return nil, fmt.Errorf("encode event data: %w", err)
		}
		data = string(raw)
	}
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}

	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
