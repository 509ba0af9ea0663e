package actor

import (
	"errors"
	"sync"

	"github.com/veylan/guildpost/internal/lobby/domain"
)

// ErrMailboxClosed indicates a send against a destroyed lobby. Routers report
// it as "stale lobby"; timers drop it silently.
var ErrMailboxClosed = errors.New("mailbox is closed")

// Mailbox is an unbounded FIFO queue of events with a single consumer.
// Sends never block; receive blocks until an event arrives or the mailbox is
// closed and drained.
type Mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []domain.Event
	closed bool
}

// NewMailbox returns an open, empty mailbox.
func NewMailbox() *Mailbox {
	m := &Mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Send enqueues one event. It never blocks.
func (m *Mailbox) Send(event domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrMailboxClosed
	}
	m.queue = append(m.queue, event)
	m.cond.Signal()
	return nil
}

// Receive dequeues the oldest event, blocking while the mailbox is open and
// empty. The second result is false once the mailbox is closed and drained.
func (m *Mailbox) Receive() (domain.Event, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.closed {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return domain.Event{}, false
	}
	event := m.queue[0]
	m.queue = m.queue[1:]
	return event, true
}

// Close rejects further sends. Events already queued are still delivered.
// Safe to call more than once.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.cond.Broadcast()
}
