// Package file persists the chat log as a single JSON document, the way
// a browser tab keeps it under one localStorage key.
package file

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/yuichat/yuichat/internal/chat"
)

// Store is one (dir, key) slot holding a newest-first JSON array of
// entries, capped at chat.MaxLog.
type Store struct {
	path string
	log  *zerolog.Logger
}

// New creates the storage directory if needed and returns the slot for key.
func New(dir, key string, logger *zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, key+".json"), log: logger}, nil
}

// Load returns the persisted log, or an empty one if the slot is missing
// or holds anything but a well-formed array. Fails soft on purpose: a
// corrupt slot must never take the session down.
func (s *Store) Load() []chat.Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var entries []chat.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("discarding malformed chat log")
		return nil
	}
	return entries
}

// Save overwrites the slot with at most the first chat.MaxLog entries.
func (s *Store) Save(log []chat.Entry) {
	if len(log) > chat.MaxLog {
		log = log[:chat.MaxLog]
	}
	data, err := json.Marshal(log)
	if err != nil {
		s.log.Warn().Err(err).Msg("encode chat log")
		return
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("write chat log")
	}
}

// Clear removes the slot.
func (s *Store) Clear() {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Warn().Err(err).Str("path", s.path).Msg("remove chat log")
	}
}
