// Package store defines the persistence contracts for the chat log.
package store

import (
	"context"

	"github.com/yuichat/yuichat/internal/chat"
)

// Log is the local persistence slot for the chat log: one bounded JSON
// array, newest first, blind-overwritten on every save. Two tabs saving
// concurrently race and the later write wins; that is accepted.
type Log interface {
	// Load returns the persisted log, newest first. Missing or malformed
	// data yields an empty log, never an error.
	Load() []chat.Entry

	// Save persists at most the first chat.MaxLog entries, replacing any
	// previous value. Best effort; failures are logged, not returned.
	Save(log []chat.Entry)

	// Clear removes all persisted entries.
	Clear()
}

// Mirror is an optional shared table entries are copied into. It is an
// independent source of truth: the engine never reconciles it with the
// local slot automatically, reading it is an explicit reload.
type Mirror interface {
	// Append inserts one entry. Callers fire and forget.
	Append(ctx context.Context, e chat.Entry) error

	// Latest returns the newest chat.MaxLog entries ordered by time
	// descending.
	Latest(ctx context.Context) ([]chat.Entry, error)

	// Clear deletes every mirrored entry.
	Clear(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
