package domain

import "time"

// EntryType records how a journal entry was submitted.
type EntryType string

const (
	EntryVoice EntryType = "voice"
	EntryText  EntryType = "text"
)

// JournalEntry is a single completed check-in. State is nil when the
// classification produced no record.
type JournalEntry struct {
	ID        int64        `json:"id"`
	Text      string       `json:"text"`
	Timestamp time.Time    `json:"timestamp"`
	State     *StateRecord `json:"state"`
	Type      EntryType    `json:"type"`
}

// MusicTrack is the generated music prompt for the most recent state.
type MusicTrack struct {
	Prompt string   `json:"prompt"`
	State  Category `json:"state"`
}

// CallLogEntry is one request/response pair against the remote service,
// kept for diagnostics only.
type CallLogEntry struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Endpoint  string    `json:"endpoint"`
	Method    string    `json:"method"`
	Payload   any       `json:"payload"`
	Response  any       `json:"response"`
}
