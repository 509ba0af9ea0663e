// Package storage defines persistence contracts for lobby session state.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/veylan/guildpost/internal/lobby/domain"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a uniqueness-constrained record already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// SessionRecord is the persisted snapshot of one published lobby.
type SessionRecord struct {
	ID         string
	GuildID    string
	ChannelID  string
	MessageID  string
	MasterID   string
	ContentKey string
	CreatedAt  time.Time
	Scheduled  *time.Time
	Active     bool
}

// Store persists lobby sessions, their rosters, and the guild characters the
// candidate queries draw from. Implementations must distinguish "not found"
// from other failures via ErrNotFound.
type Store interface {
	// SaveSession inserts the snapshot of a newly published lobby.
	SaveSession(ctx context.Context, record SessionRecord) error
	// LoadActiveSessions returns every session still marked active.
	LoadActiveSessions(ctx context.Context) ([]SessionRecord, error)
	// MarkInactive flips a session's active flag off. Idempotent.
	MarkInactive(ctx context.Context, lobbyID string) error
	// UpdateSchedule replaces a session's scheduled time (nil clears it).
	UpdateSchedule(ctx context.Context, lobbyID string, scheduled *time.Time) error

	// AddRosterMember records one confirmed participant.
	AddRosterMember(ctx context.Context, lobbyID string, character domain.Character) error
	// RemoveRosterMember deletes one confirmed participant by character name.
	RemoveRosterMember(ctx context.Context, lobbyID string, characterName string) error
	// LoadRoster returns a lobby's confirmed participants in join order.
	LoadRoster(ctx context.Context, lobbyID string) ([]domain.Character, error)

	// ListEligibleCandidates returns guild characters meeting the minimum
	// item level whose owners are not in the excluded set, strongest first.
	ListEligibleCandidates(ctx context.Context, guildID string, minItemLevel int, excludedOwners []string) ([]domain.Character, error)
	// GetCharacter returns one guild character by name.
	GetCharacter(ctx context.Context, guildID string, characterName string) (domain.Character, error)
}
