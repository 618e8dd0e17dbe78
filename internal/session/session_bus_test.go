package session

import (
	"context"
	"testing"

	"github.com/yuichat/yuichat/internal/bus"
)

// Two sessions on one in-process channel behave like two tabs of the
// same room.
func TestTwoTabsConverge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New("yui_chat_room")
	aliceStore, bobStore := &memStore{}, &memStore{}

	alice := New(b.Subscribe(), aliceStore, nil, Options{})
	bob := New(b.Subscribe(), bobStore, nil, Options{})
	go alice.Run(ctx)
	go bob.Run(ctx)

	if err := alice.Enter("alice", "#f00"); err != nil {
		t.Fatal(err)
	}
	if err := bob.Enter("bob", "#0f0"); err != nil {
		t.Fatal(err)
	}

	alice.Send("hello bob")

	waitFor(t, func() bool {
		for _, e := range bob.Snapshot().Log {
			if e.Message == "hello bob" && e.Name == "alice" {
				return true
			}
		}
		return false
	}, "bob never received alice's message")

	// Bob learned alice through the presence handshake or her message.
	waitFor(t, func() bool {
		for _, p := range bob.Snapshot().Participants {
			if p.Name == "alice" {
				return true
			}
		}
		return false
	}, "alice not visible in bob's participants")
}

func TestClearPropagatesToPeerTab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := bus.New("yui_chat_room")
	aliceStore, bobStore := &memStore{}, &memStore{}

	alice := New(b.Subscribe(), aliceStore, nil, Options{})
	bob := New(b.Subscribe(), bobStore, nil, Options{})
	go alice.Run(ctx)
	go bob.Run(ctx)

	if err := alice.Enter("alice", "#f00"); err != nil {
		t.Fatal(err)
	}
	if err := bob.Enter("bob", "#0f0"); err != nil {
		t.Fatal(err)
	}
	alice.Send("soon gone")
	waitFor(t, func() bool {
		return len(bob.Snapshot().Log) >= 2
	}, "bob never saw the message")

	alice.Send("clear")

	if len(alice.Snapshot().Log) != 0 {
		t.Fatal("clear must wipe the issuing tab immediately")
	}
	waitFor(t, func() bool {
		return len(bob.Snapshot().Log) == 0
	}, "clear never reached bob")
	waitFor(t, func() bool {
		return bobStore.clearCount() >= 1
	}, "clear never wiped bob's store")
}
