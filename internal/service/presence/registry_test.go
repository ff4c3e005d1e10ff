package presence

import (
	"fmt"
	"sync"
	"testing"

	"dm_chat/internal/model"
)

type fakeLink struct {
	mu     sync.Mutex
	sent   int
	closed bool
}

func (l *fakeLink) Send(ev model.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent++
	return nil
}

func (l *fakeLink) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *fakeLink) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func TestRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	l := &fakeLink{}

	r.Register("alice", l)

	got, ok := r.Lookup("alice")
	if !ok || got != Link(l) {
		t.Fatal("Lookup must return the registered link")
	}
	if !r.IsLive("alice") {
		t.Fatal("IsLive must report a registered user")
	}
	if r.IsLive("bob") {
		t.Fatal("IsLive must not report an unknown user")
	}
}

func TestRegisterEvictsPrevious(t *testing.T) {
	r := NewRegistry()
	first := &fakeLink{}
	second := &fakeLink{}

	r.Register("alice", first)
	r.Register("alice", second)

	if !first.isClosed() {
		t.Fatal("second login must close the first connection")
	}
	got, _ := r.Lookup("alice")
	if got != Link(second) {
		t.Fatal("lookup must return the newest connection")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestUnregisterIdempotent(t *testing.T) {
	r := NewRegistry()
	l := &fakeLink{}

	r.Register("alice", l)
	r.Unregister("alice", l)
	r.Unregister("alice", l) // disconnect detection and error path both fire

	if r.IsLive("alice") {
		t.Fatal("user still live after unregister")
	}
}

func TestUnregisterIgnoresStaleLink(t *testing.T) {
	r := NewRegistry()
	old := &fakeLink{}
	current := &fakeLink{}

	r.Register("alice", old)
	r.Register("alice", current)

	// the evicted session's cleanup path must not tear down the new one
	r.Unregister("alice", old)

	if !r.IsLive("alice") {
		t.Fatal("stale unregister evicted the current session")
	}
}

func TestCloseAll(t *testing.T) {
	r := NewRegistry()
	links := []*fakeLink{{}, {}, {}}
	for i, l := range links {
		r.Register(fmt.Sprintf("user-%d", i), l)
	}

	r.CloseAll()

	if r.Len() != 0 {
		t.Fatalf("Len = %d after CloseAll, want 0", r.Len())
	}
	for i, l := range links {
		if !l.isClosed() {
			t.Fatalf("link %d not closed", i)
		}
	}
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("user-%d", i%4)
			for j := 0; j < 200; j++ {
				l := &fakeLink{}
				r.Register(user, l)
				if link, ok := r.Lookup(user); ok {
					_ = link.Send(model.Event{Type: model.EventMessage})
				}
				r.IsLive(user)
				r.Unregister(user, l)
			}
		}(i)
	}
	wg.Wait()
}
