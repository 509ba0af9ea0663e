// Package registry maps live lobby identifiers to their actors' mailboxes.
// It is the process-wide source of truth for which lobbies are currently
// routable.
package registry

import (
	"errors"
	"sync"

	"github.com/veylan/guildpost/internal/lobby/actor"
)

var (
	// ErrAlreadyRegistered indicates a second registration for the same id.
	// Correct operation never triggers it; treat as a programming error.
	ErrAlreadyRegistered = errors.New("lobby already registered")
	// ErrNotFound indicates no live lobby is registered under the id.
	ErrNotFound = errors.New("lobby not registered")
)

// Registry is a synchronized id → mailbox directory. Critical sections cover
// only map operations; it is never held while an actor processes an event.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*actor.Mailbox
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*actor.Mailbox)}
}

// Register installs a mailbox under a lobby id.
func (r *Registry) Register(lobbyID string, mailbox *actor.Mailbox) error {
	if mailbox == nil {
		return errors.New("mailbox is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[lobbyID]; exists {
		return ErrAlreadyRegistered
	}
	r.entries[lobbyID] = mailbox
	return nil
}

// Lookup returns the mailbox registered under a lobby id.
func (r *Registry) Lookup(lobbyID string) (*actor.Mailbox, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	mailbox, ok := r.entries[lobbyID]
	if !ok {
		return nil, ErrNotFound
	}
	return mailbox, nil
}

// Deregister removes a lobby id. Removing an absent id is a no-op.
func (r *Registry) Deregister(lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, lobbyID)
}

// Drain removes every entry and returns the mailboxes that were registered.
// Shutdown uses it to stop all actors without racing new registrations.
func (r *Registry) Drain() []*actor.Mailbox {
	r.mu.Lock()
	defer r.mu.Unlock()
	mailboxes := make([]*actor.Mailbox, 0, len(r.entries))
	for id, mailbox := range r.entries {
		mailboxes = append(mailboxes, mailbox)
		delete(r.entries, id)
	}
	return mailboxes
}

// Len reports how many lobbies are currently registered.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
