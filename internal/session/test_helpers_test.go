package session

import (
	"sync"
	"testing"
	"time"

	"github.com/yuichat/yuichat/internal/chat"
	"github.com/yuichat/yuichat/internal/proto"
)

// captureTransport records publishes and lets tests inject inbound frames.
type captureTransport struct {
	mu        sync.Mutex
	published []proto.Frame
	frames    chan proto.Frame
}

func newCaptureTransport() *captureTransport {
	return &captureTransport{frames: make(chan proto.Frame, 16)}
}

func (t *captureTransport) Publish(f proto.Frame) {
	t.mu.Lock()
	t.published = append(t.published, f)
	t.mu.Unlock()
}

func (t *captureTransport) Frames() <-chan proto.Frame { return t.frames }

func (t *captureTransport) Close() error { return nil }

func (t *captureTransport) take() []proto.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]proto.Frame, len(t.published))
	copy(out, t.published)
	return out
}

func (t *captureTransport) countOf(frameType string) int {
	n := 0
	for _, f := range t.take() {
		if f.Type == frameType {
			n++
		}
	}
	return n
}

// memStore is an in-memory store.Log.
type memStore struct {
	mu      sync.Mutex
	log     []chat.Entry
	cleared int
}

func (m *memStore) Load() []chat.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]chat.Entry, len(m.log))
	copy(out, m.log)
	return out
}

func (m *memStore) Save(log []chat.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(log) > chat.MaxLog {
		log = log[:chat.MaxLog]
	}
	m.log = make([]chat.Entry, len(log))
	copy(m.log, log)
}

func (m *memStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
	m.cleared++
}

func (m *memStore) clearCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cleared
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func peerChat(name, message string) proto.Frame {
	e := chat.Entry{
		ID:      "peer-" + name + "-" + message,
		Name:    name,
		Color:   "#00ff00",
		Message: message,
		Time:    time.Now().UnixMilli(),
	}
	return proto.Frame{Type: proto.TypeChat, Sender: "peer", Chat: &e}
}
