package file

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/yuichat/yuichat/internal/chat"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := zerolog.Nop()
	st, err := New(t.TempDir(), "yui_chat_dat", &logger)
	require.NoError(t, err)
	return st
}

func TestRoundTrip(t *testing.T) {
	st := newTestStore(t)
	saved := []chat.Entry{
		chat.NewEntry("alice", "#f00", "newest", ""),
		chat.NewEntry("bob", "#0f0", "older", "bob@example.com"),
	}

	st.Save(saved)
	got := st.Load()

	require.Equal(t, saved, got)
}

func TestLoadMissingSlotIsEmpty(t *testing.T) {
	st := newTestStore(t)
	require.Empty(t, st.Load())
}

func TestSaveTruncatesToMaxLog(t *testing.T) {
	st := newTestStore(t)
	oversized := make([]chat.Entry, chat.MaxLog+500)
	for i := range oversized {
		oversized[i] = chat.Entry{ID: strconv.Itoa(i), Name: "n", Color: "c", Message: "m"}
	}

	st.Save(oversized)
	got := st.Load()

	require.Len(t, got, chat.MaxLog)
	require.Equal(t, "0", got[0].ID)
	require.Equal(t, strconv.Itoa(chat.MaxLog-1), got[len(got)-1].ID)
}

func TestLoadMalformedPayloadFailsSoft(t *testing.T) {
	for name, payload := range map[string]string{
		"truncated json": `{invalid`,
		"object":         `{"not":"an array"}`,
		"scalar":         `42`,
	} {
		t.Run(name, func(t *testing.T) {
			st := newTestStore(t)
			require.NoError(t, os.WriteFile(st.path, []byte(payload), 0o600))
			require.Empty(t, st.Load())
		})
	}
}

func TestClearRemovesSlot(t *testing.T) {
	st := newTestStore(t)
	st.Save([]chat.Entry{chat.NewEntry("alice", "#f00", "bye", "")})

	st.Clear()

	require.Empty(t, st.Load())
	_, err := os.Stat(st.path)
	require.ErrorIs(t, err, os.ErrNotExist)

	// Clearing an already empty slot is fine.
	st.Clear()
}

func TestTwoKeysAreIndependentSlots(t *testing.T) {
	dir := t.TempDir()
	logger := zerolog.Nop()
	a, err := New(dir, "room_a", &logger)
	require.NoError(t, err)
	b, err := New(dir, "room_b", &logger)
	require.NoError(t, err)

	a.Save([]chat.Entry{chat.NewEntry("alice", "#f00", "only in a", "")})

	require.Empty(t, b.Load())
	require.Len(t, a.Load(), 1)
	require.Equal(t, filepath.Dir(a.path), filepath.Dir(b.path))
}
