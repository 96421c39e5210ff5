package chat

import "time"

// Speaker values for a turn.
const (
	SpeakerUser      = "user"
	SpeakerAssistant = "assistant"
)

// Turn is one utterance in a consultation. Turns are append-only within a
// session lifetime; Language holds the language detected for this turn.
type Turn struct {
	Speaker   string    `json:"speaker"`
	Text      string    `json:"text"`
	Language  string    `json:"language,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
