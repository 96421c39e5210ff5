package chat

import "time"

// State tracks where a session sits in its lifecycle. Sessions start New,
// bounce between Active and Idle as turns arrive, and end Expired once the
// idle timeout passes.
type State string

const (
	StateNew     State = "new"
	StateActive  State = "active"
	StateIdle    State = "idle"
	StateExpired State = "expired"
)

// Session captures a transient anonymous consultation. It lives only in
// process memory and is discarded after the idle timeout.
type Session struct {
	ID                   string    `json:"session_id"`
	CreatedAt            time.Time `json:"created_at"`
	LastActiveAt         time.Time `json:"last_active_at"`
	State                State     `json:"state"`
	Turns                []Turn    `json:"turns"`
	LastDetectedLanguage string    `json:"last_detected_language,omitempty"`
}

// TurnCount returns the number of committed turns.
func (s *Session) TurnCount() int {
	return len(s.Turns)
}
