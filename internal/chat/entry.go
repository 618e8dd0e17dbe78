// Package chat holds the room's data model and the projections derived
// from the log.
package chat

import (
	"time"

	"github.com/google/uuid"
)

// MaxLog bounds the persisted log; everything past it falls off on save.
const MaxLog = 2000

// MaxMessageRunes caps user input length. Enforced at input time only;
// stored and received entries are taken as-is.
const MaxMessageRunes = 120

// PresenceWindow is how recent an author's last entry must be for them to
// count as currently present.
const PresenceWindow = 5 * time.Minute

// Entry is one chat message or system notice. Immutable once created.
// Time is the sender's wall clock; the log is ordered by local insertion,
// so it is not guaranteed monotonic in Time.
type Entry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Color   string `json:"color"`
	Message string `json:"message"`
	Time    int64  `json:"time"` // milliseconds since epoch
	System  bool   `json:"system,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Participant is derived from the log, never stored. ID doubles as the
// name: two authors sharing a name collapse into one participant.
type Participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// The room keeper authors all system notices.
const (
	SystemName  = "管理人"
	SystemColor = "#0000ff"
)

// NewEntry builds a user entry stamped with a fresh id and the current time.
func NewEntry(name, color, message, email string) Entry {
	return Entry{
		ID:      uuid.NewString(),
		Name:    name,
		Color:   color,
		Message: message,
		Time:    time.Now().UnixMilli(),
		Email:   email,
	}
}

// NewSystemEntry builds an administrative notice.
func NewSystemEntry(message string) Entry {
	return Entry{
		ID:      "sys-" + uuid.NewString(),
		Name:    SystemName,
		Color:   SystemColor,
		Message: message,
		Time:    time.Now().UnixMilli(),
		System:  true,
	}
}
