package bus

import (
	"testing"
	"time"

	"github.com/yuichat/yuichat/internal/proto"
)

func recvFrame(t *testing.T, ch <-chan proto.Frame) proto.Frame {
	t.Helper()
	select {
	case f := <-ch:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("expected frame not received")
		return proto.Frame{}
	}
}

func assertSilent(t *testing.T, ch <-chan proto.Frame) {
	t.Helper()
	select {
	case f := <-ch:
		t.Fatalf("unexpected frame: %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublishReachesOthersNotSelf(t *testing.T) {
	b := New("test")
	a := b.Subscribe()
	c := b.Subscribe()

	a.Publish(proto.Frame{Type: proto.TypeClear, Sender: "a"})

	f := recvFrame(t, c.Frames())
	if f.Type != proto.TypeClear || f.Sender != "a" {
		t.Fatalf("unexpected frame: %+v", f)
	}
	assertSilent(t, a.Frames())
}

func TestCloseStopsDelivery(t *testing.T) {
	b := New("test")
	a := b.Subscribe()
	c := b.Subscribe()

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	a.Publish(proto.Frame{Type: proto.TypeClear})

	if _, ok := <-c.Frames(); ok {
		t.Fatal("closed subscription must not receive frames")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New("test")
	s := b.Subscribe()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestSlowConsumerDoesNotBlockPublish(t *testing.T) {
	b := New("test")
	a := b.Subscribe()
	slow := b.Subscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subBuffer*2; i++ {
			a.Publish(proto.Frame{Type: proto.TypeClear})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow consumer")
	}

	// The slow consumer got at most a buffer's worth; the rest dropped.
	if n := len(slow.Frames()); n > subBuffer {
		t.Fatalf("expected at most %d buffered frames, got %d", subBuffer, n)
	}
}
