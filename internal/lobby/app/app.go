// Package app wires the lobby core together: storage, registry, router,
// recovery, and the formation entry points the presentation layer calls.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veylan/guildpost/internal/lobby/actor"
	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/recovery"
	"github.com/veylan/guildpost/internal/lobby/registry"
	"github.com/veylan/guildpost/internal/lobby/render"
	"github.com/veylan/guildpost/internal/lobby/router"
	"github.com/veylan/guildpost/internal/lobby/storage"
	"github.com/veylan/guildpost/internal/lobby/timer"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer = otel.Tracer("guildpost.lobby")

// ErrUnknownLobby indicates a command against a lobby that is not live.
var ErrUnknownLobby = errors.New("unknown lobby")

// Service is the process-wide lobby coordinator.
type Service struct {
	store     storage.Store
	presenter render.Presenter
	registry  *registry.Registry
	router    *router.Router
	timing    timer.Config
	now       func() time.Time
}

// Options tune service behavior; zero values select defaults.
type Options struct {
	Timing timer.Config
	// Now overrides the wall clock, for tests.
	Now func() time.Time
}

// New assembles a lobby service around its collaborators.
func New(store storage.Store, presenter render.Presenter, opts Options) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if presenter == nil {
		return nil, fmt.Errorf("presenter is required")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	reg := registry.New()
	return &Service{
		store:     store,
		presenter: presenter,
		registry:  reg,
		router:    router.New(reg),
		timing:    opts.Timing,
		now:       now,
	}, nil
}

// Recover rebuilds actors for persisted active sessions. Call once, before
// dispatching any interactions.
func (s *Service) Recover(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "lobby.recover")
	defer span.End()

	loader := &recovery.Loader{
		Store:     s.store,
		Presenter: s.presenter,
		Registry:  s.registry,
		Timing:    s.timing,
		Now:       s.now,
	}
	recovered, err := loader.Run(ctx)
	span.SetAttributes(attribute.Int("lobby.recovered", recovered))
	return recovered, err
}

// BeginFormation creates a lobby session, registers its actor, and renders
// the content-selection prompt. It returns the new lobby id.
func (s *Service) BeginFormation(ctx context.Context, input domain.CreateSessionInput) (string, error) {
	ctx, span := tracer.Start(ctx, "lobby.begin_formation",
		trace.WithAttributes(attribute.String("guild.id", input.GuildID)))
	defer span.End()

	session, err := domain.CreateSession(input, s.now, nil)
	if err != nil {
		return "", err
	}

	// The initial view is built before the actor owns the session so no
	// event can race the read.
	view := render.BuildView(&session)

	act := actor.New(&session, actor.Deps{
		Store:       s.store,
		Presenter:   s.presenter,
		Timing:      s.timing,
		OnTerminate: s.registry.Deregister,
	})
	if err := s.registry.Register(session.ID, act.Mailbox()); err != nil {
		return "", fmt.Errorf("register lobby: %w", err)
	}
	act.Start(ctx)

	if err := s.presenter.Render(ctx, view); err != nil {
		return session.ID, fmt.Errorf("render initial view: %w", err)
	}
	return session.ID, nil
}

// HandleInteraction routes one raw component interaction to its lobby.
func (s *Service) HandleInteraction(interaction router.Interaction) error {
	return s.router.Dispatch(interaction)
}

// RequestReschedule validates a new schedule and hands it to the lobby.
// Validation happens here so the caller gets a synchronous rejection; the
// actor still owns the state change.
func (s *Service) RequestReschedule(lobbyID, guildID string, at time.Time) error {
	if err := domain.ValidateSchedule(at.UTC(), s.now().UTC()); err != nil {
		return err
	}
	return s.send(lobbyID, domain.Event{
		Type:     domain.EventScheduleChanged,
		GuildID:  guildID,
		Schedule: at.UTC(),
	})
}

// RequestClose asks the lobby to destroy itself.
func (s *Service) RequestClose(lobbyID, guildID string) error {
	return s.send(lobbyID, domain.Event{Type: domain.EventClose, GuildID: guildID})
}

// ActiveLobbies reports how many lobbies are currently live.
func (s *Service) ActiveLobbies() int {
	return s.registry.Len()
}

// Shutdown stops every live actor. Pending events already queued are still
// processed; new sends fail as stale.
func (s *Service) Shutdown() {
	for _, mailbox := range s.registry.Drain() {
		mailbox.Close()
	}
}

func (s *Service) send(lobbyID string, event domain.Event) error {
	if !domain.ValidID(lobbyID) {
		return fmt.Errorf("%w: bad id %q", ErrUnknownLobby, lobbyID)
	}
	mailbox, err := s.registry.Lookup(lobbyID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownLobby, lobbyID)
	}
	if err := mailbox.Send(event); err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownLobby, lobbyID)
	}
	return nil
}
