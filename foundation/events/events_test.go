package events_test

import (
	"testing"

	"github.com/adamwoolhether/lattice/foundation/events"
)

func TestEvents(t *testing.T) {
	evts := events.New()

	a := evts.Acquire("a")
	b := evts.Acquire("b")

	evts.Send("election: Start: started")

	for i, ch := range []chan string{a, b} {
		if got := <-ch; got != "election: Start: started" {
			t.Errorf("[case:%d] error: wrong message %q", i, got)
		}
	}

	if err := evts.Release("a"); err != nil {
		t.Fatalf("releasing: %s", err)
	}
	if _, open := <-a; open {
		t.Fatal("released channel should be closed")
	}
	if err := evts.Release("a"); err == nil {
		t.Fatal("releasing twice should fail")
	}

	evts.Shutdown()
	if _, open := <-b; open {
		t.Fatal("shutdown should close every channel")
	}
}
