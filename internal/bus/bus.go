// Package bus is an in-process broadcast channel: a frame published on
// one subscription is delivered to every other subscription on the same
// bus, at most once, with no replay and no acknowledgment. It is the
// same-origin multicast the session engine runs on when all tabs live in
// one process.
package bus

import (
	"sync"

	"github.com/yuichat/yuichat/internal/proto"
)

const subBuffer = 64

// Bus fans frames out across its subscriptions.
type Bus struct {
	name string

	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// New creates an empty bus. The name only identifies the channel; two
// Bus values with the same name are still independent channels.
func New(name string) *Bus {
	return &Bus{
		name: name,
		subs: make(map[*Subscription]struct{}),
	}
}

// Name returns the channel name the bus was created with.
func (b *Bus) Name() string { return b.name }

// Subscribe registers a new receiver on the bus.
func (b *Bus) Subscribe() *Subscription {
	s := &Subscription{
		bus:    b,
		frames: make(chan proto.Frame, subBuffer),
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Subscription is one endpoint on the bus. It never receives the frames
// it publishes itself.
type Subscription struct {
	bus    *Bus
	frames chan proto.Frame
	once   sync.Once
}

// Publish delivers the frame to every other subscription. Fire and
// forget: a subscription whose buffer is full misses the frame.
func (s *Subscription) Publish(f proto.Frame) {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s]; !ok {
		return
	}
	for sub := range b.subs {
		if sub == s {
			continue
		}
		select {
		case sub.frames <- f:
		default:
			// Drop if slow consumer.
		}
	}
}

// Frames is the receive side of the subscription. It is closed by Close.
func (s *Subscription) Frames() <-chan proto.Frame { return s.frames }

// Close unsubscribes and closes the frame channel.
func (s *Subscription) Close() error {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs, s)
		close(s.frames)
		s.bus.mu.Unlock()
	})
	return nil
}
