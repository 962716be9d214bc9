package timeline

import (
	"fmt"
	"testing"
)

func TestHydrateThenAppendPreservesOrder(t *testing.T) {
	tl := New()

	tl.Hydrate([]Message{
		{User: "alice", Text: "m1"},
		{User: "bob", Text: "m2"},
		{User: "alice", Text: "m3"},
	})
	tl.Append(Message{User: "bob", Text: "m4"})

	snap := tl.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(snap))
	}
	for i, want := range []string{"m1", "m2", "m3", "m4"} {
		if snap[i].Text != want {
			t.Errorf("index %d: expected %q, got %q", i, want, snap[i].Text)
		}
	}
}

func TestHydrateReplacesPriorState(t *testing.T) {
	tl := New()

	tl.Append(Message{User: "alice", Text: "old"})
	tl.Hydrate([]Message{{User: "bob", Text: "new"}})

	snap := tl.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("expected 1 message after hydrate, got %d", len(snap))
	}
	if snap[0].Text != "new" {
		t.Errorf("expected %q, got %q", "new", snap[0].Text)
	}
}

func TestReset(t *testing.T) {
	tl := New()

	tl.Hydrate([]Message{{User: "alice", Text: "m1"}})
	tl.Append(Message{User: "bob", Text: "m2"})
	tl.Reset()

	if tl.Len() != 0 {
		t.Fatalf("expected empty timeline after reset, got %d messages", tl.Len())
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tl := New()

	tl.Append(Message{User: "alice", Text: "m1"})

	snap := tl.Snapshot()
	snap[0].Text = "mutated"

	if got := tl.Snapshot()[0].Text; got != "m1" {
		t.Errorf("snapshot mutation leaked into timeline: got %q", got)
	}
}

func TestHydrateCopiesInput(t *testing.T) {
	tl := New()

	src := []Message{{User: "alice", Text: "m1"}}
	tl.Hydrate(src)
	src[0].Text = "mutated"

	if got := tl.Snapshot()[0].Text; got != "m1" {
		t.Errorf("input mutation leaked into timeline: got %q", got)
	}
}

func TestAppendManyKeepsReceiptOrder(t *testing.T) {
	tl := New()

	for i := 0; i < 100; i++ {
		tl.Append(Message{User: "alice", Text: fmt.Sprintf("msg-%d", i)})
	}

	snap := tl.Snapshot()
	if len(snap) != 100 {
		t.Fatalf("expected 100 messages, got %d", len(snap))
	}
	for i, msg := range snap {
		if want := fmt.Sprintf("msg-%d", i); msg.Text != want {
			t.Fatalf("index %d: expected %q, got %q", i, want, msg.Text)
		}
	}
}
