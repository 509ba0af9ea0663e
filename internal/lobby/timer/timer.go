// Package timer runs the delayed reminder/expiry chain for one lobby.
//
// A controller owns at most one live chain. The chain never touches session
// state; it only produces ReminderDue/ExpireDue events for the owning actor's
// mailbox, preserving the single-writer rule.
package timer

import (
	"context"
	"sync"
	"time"

	"github.com/veylan/guildpost/internal/lobby/domain"
)

// Config sets the offsets of the chain relative to the scheduled time.
type Config struct {
	// ReminderLead is how long before the schedule the reminder fires.
	ReminderLead time.Duration
	// ExpiryGrace is how long after the schedule the lobby expires.
	ExpiryGrace time.Duration
}

// Default chain offsets, matching the ten-minute reminder and grace the
// product has always used.
const (
	DefaultReminderLead = 10 * time.Minute
	DefaultExpiryGrace  = 10 * time.Minute
)

func (c Config) withDefaults() Config {
	if c.ReminderLead <= 0 {
		c.ReminderLead = DefaultReminderLead
	}
	if c.ExpiryGrace <= 0 {
		c.ExpiryGrace = DefaultExpiryGrace
	}
	return c
}

// SendFunc delivers one timer event to the owning actor. A delivery error
// means the mailbox already closed; the chain stops silently.
type SendFunc func(domain.Event) error

// Controller owns at most one pending reminder/expiry chain.
type Controller struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns a controller with no chain installed.
func New() *Controller {
	return &Controller{}
}

// Install replaces any live chain with one for the given schedule. The
// reminder fires at schedule-lead and the expiry at schedule+grace; instants
// already in the past fire without waiting, which recovery relies on for
// elapsed or in-window schedules.
func (c *Controller) Install(schedule time.Time, cfg Config, send SendFunc) {
	cfg = cfg.withDefaults()

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	reminderAt := schedule.Add(-cfg.ReminderLead)
	expireAt := schedule.Add(cfg.ExpiryGrace)

	go func() {
		defer close(done)
		if !waitUntil(ctx, reminderAt) {
			return
		}
		if err := send(domain.Event{Type: domain.EventReminderDue}); err != nil {
			return
		}
		if !waitUntil(ctx, expireAt) {
			return
		}
		_ = send(domain.Event{Type: domain.EventExpireDue})
	}()
}

// Cancel aborts the live chain, if any, without emitting further events.
// It returns once the chain goroutine has stopped.
func (c *Controller) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.done = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// waitUntil sleeps until the instant or cancellation; it reports false when
// cancelled. Instants in the past return immediately.
func waitUntil(ctx context.Context, at time.Time) bool {
	wait := time.Until(at)
	if wait <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
