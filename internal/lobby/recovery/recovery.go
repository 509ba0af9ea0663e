// Package recovery rebuilds in-memory lobby actors from persisted sessions at
// process start, as if the process had never stopped.
package recovery

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/veylan/guildpost/internal/lobby/actor"
	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/registry"
	"github.com/veylan/guildpost/internal/lobby/render"
	"github.com/veylan/guildpost/internal/lobby/storage"
	"github.com/veylan/guildpost/internal/lobby/timer"
)

// Loader reconstructs lobby actors for every persisted active session.
type Loader struct {
	Store     storage.Store
	Presenter render.Presenter
	Registry  *registry.Registry
	Timing    timer.Config
	// Now is the wall clock; defaults to time.Now. Remaining timer durations
	// are recomputed against it, never against the original creation time.
	Now func() time.Time
}

// Run executes recovery once. Sessions whose schedule already elapsed are
// destroyed without registering an actor; every other active session comes
// back as a Reconstructed actor with its roster and a freshly armed timer
// chain. It returns the number of lobbies brought back.
func (l *Loader) Run(ctx context.Context) (int, error) {
	now := l.Now
	if now == nil {
		now = time.Now
	}

	records, err := l.Store.LoadActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active sessions: %w", err)
	}

	recovered := 0
	for _, record := range records {
		if record.Scheduled != nil && record.Scheduled.Before(now()) {
			if err := l.Store.MarkInactive(ctx, record.ID); err != nil {
				return recovered, fmt.Errorf("mark elapsed session %s inactive: %w", record.ID, err)
			}
			continue
		}

		session, err := l.reconstruct(ctx, record)
		if err != nil {
			// A session that cannot be rebuilt is destroyed rather than left
			// half-alive; the remaining sessions still recover.
			log.Printf("recovery: lobby %s: %v", record.ID, err)
			if markErr := l.Store.MarkInactive(ctx, record.ID); markErr != nil {
				log.Printf("recovery: mark lobby %s inactive: %v", record.ID, markErr)
			}
			continue
		}

		act := actor.New(session, actor.Deps{
			Store:       l.Store,
			Presenter:   l.Presenter,
			Timing:      l.Timing,
			OnTerminate: l.Registry.Deregister,
		})
		// Registration precedes the event loop so no external event can
		// arrive before the lobby is routable.
		if err := l.Registry.Register(session.ID, act.Mailbox()); err != nil {
			return recovered, fmt.Errorf("register recovered session %s: %w", session.ID, err)
		}
		act.Start(ctx)
		act.InstallTimer()
		recovered++
	}
	return recovered, nil
}

func (l *Loader) reconstruct(ctx context.Context, record storage.SessionRecord) (*domain.Session, error) {
	content, err := domain.ContentByKey(record.ContentKey)
	if err != nil {
		return nil, fmt.Errorf("content lookup: %w", err)
	}
	roster, err := l.Store.LoadRoster(ctx, record.ID)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}

	return &domain.Session{
		ID:        record.ID,
		GuildID:   record.GuildID,
		ChannelID: record.ChannelID,
		MessageID: record.MessageID,
		MasterID:  record.MasterID,
		State:     domain.StateReconstructed,
		Category:  content.Category,
		Content:   &content,
		Schedule:  record.Scheduled,
		CreatedAt: record.CreatedAt,
		Active:    true,
		Roster:    roster,
	}, nil
}
