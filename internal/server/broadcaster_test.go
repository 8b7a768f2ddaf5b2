package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/orchestraai/orchestra/internal/conversation"
)

func turn(content string) conversation.Turn {
	return conversation.NewTurn(conversation.RoleEther, conversation.KindSystemInfo, content)
}

func drain(ch <-chan conversation.Turn) []conversation.Turn {
	var out []conversation.Turn
	for {
		select {
		case t, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, t)
		default:
			return out
		}
	}
}

func TestBroadcasterDeliversToAllObservers(t *testing.T) {
	b := NewBroadcaster(10)
	ch1, _, unsub1 := b.Subscribe()
	ch2, _, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	b.Publish(turn("hello"))

	for i, ch := range []<-chan conversation.Turn{ch1, ch2} {
		select {
		case got := <-ch:
			if got.Content != "hello" {
				t.Fatalf("observer %d: got %q", i, got.Content)
			}
		case <-time.After(time.Second):
			t.Fatalf("observer %d: no delivery", i)
		}
	}
}

func TestBroadcasterBacklogCatchUp(t *testing.T) {
	b := NewBroadcaster(3)
	for i := 0; i < 5; i++ {
		b.Publish(turn(fmt.Sprintf("turn-%d", i)))
	}

	ch, _, unsub := b.Subscribe()
	defer unsub()

	got := drain(ch)
	if len(got) != 3 {
		t.Fatalf("catch-up burst: got %d turns, want 3", len(got))
	}
	// Only the most recent turns survive the ring.
	for i, want := range []string{"turn-2", "turn-3", "turn-4"} {
		if got[i].Content != want {
			t.Fatalf("burst[%d]: got %q want %q", i, got[i].Content, want)
		}
	}
}

func TestBroadcasterDropsSlowObserver(t *testing.T) {
	b := NewBroadcaster(2)
	ch, done, _ := b.Subscribe()

	// The subscriber channel holds backlog+256; fill past that without
	// draining to trip the slow-client path.
	for i := 0; i < 300; i++ {
		b.Publish(turn(fmt.Sprintf("t%d", i)))
	}

	if b.Observers() != 0 {
		t.Fatalf("slow observer not pruned: %d observers", b.Observers())
	}

	// The channel is closed for the dropped client, but the broadcaster's done
	// channel stays open: only Close signals termination.
	drain(ch)
	if _, ok := <-ch; ok {
		t.Fatal("dropped observer channel must be closed")
	}
	select {
	case <-done:
		t.Fatal("done channel must not close on a slow-client drop")
	default:
	}
}

func TestBroadcasterUnsubscribe(t *testing.T) {
	b := NewBroadcaster(10)
	_, _, unsub := b.Subscribe()
	if b.Observers() != 1 {
		t.Fatalf("observers: %d", b.Observers())
	}
	unsub()
	if b.Observers() != 0 {
		t.Fatalf("observers after unsubscribe: %d", b.Observers())
	}
	unsub() // second call is a no-op
}

func TestBroadcasterClose(t *testing.T) {
	b := NewBroadcaster(10)
	ch, done, _ := b.Subscribe()

	b.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed on Close")
	}
	if _, ok := <-ch; ok {
		t.Fatal("observer channel must be closed on Close")
	}

	// Publishing after close is a no-op, and late subscribers still get the
	// backlog followed by a closed channel.
	b.Publish(turn("late"))
	late, lateDone, _ := b.Subscribe()
	got := drain(late)
	if len(got) != 0 {
		t.Fatalf("post-close publish leaked into backlog: %d turns", len(got))
	}
	select {
	case <-lateDone:
	default:
		t.Fatal("late subscriber must see the closed done channel")
	}
}
