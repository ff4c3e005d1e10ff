// Package presence maps user identities to their live connection. It is
// the only shared mutable state between connection handlers; entries are
// best-effort, never persisted.
package presence

import (
	"sync"

	"dm_chat/internal/model"
)

// Link is the narrow view of a live connection the rest of the system
// needs: push an event, or tear it down.
type Link interface {
	Send(ev model.Event) error
	Close()
}

type Registry struct {
	mu    sync.RWMutex
	links map[string]Link
}

func NewRegistry() *Registry {
	return &Registry{
		links: make(map[string]Link),
	}
}

// Register records the link as the single live connection for the user.
// A second login evicts the first; the evicted link is closed after the
// swap so its user never observes two live sessions.
func (r *Registry) Register(user string, l Link) {
	r.mu.Lock()
	previous := r.links[user]
	r.links[user] = l
	r.mu.Unlock()

	if previous != nil && previous != l {
		previous.Close()
	}
}

// Unregister removes the entry only if it still maps to this exact link,
// so a stale disconnect cannot evict a newer session. Idempotent.
func (r *Registry) Unregister(user string, l Link) {
	r.mu.Lock()
	if current, ok := r.links[user]; ok && current == l {
		delete(r.links, user)
	}
	r.mu.Unlock()
}

func (r *Registry) Lookup(user string) (Link, bool) {
	r.mu.RLock()
	l, ok := r.links[user]
	r.mu.RUnlock()
	return l, ok
}

func (r *Registry) IsLive(user string) bool {
	_, ok := r.Lookup(user)
	return ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.links)
}

// CloseAll clears the registry and closes every tracked link, for
// shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	links := make([]Link, 0, len(r.links))
	for _, l := range r.links {
		links = append(links, l)
	}
	r.links = make(map[string]Link)
	r.mu.Unlock()

	for _, l := range links {
		l.Close()
	}
}
