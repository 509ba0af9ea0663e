package domain

import (
	"fmt"
	"strings"
	"time"
)

// WorkflowState describes the formation stage of a lobby session.
type WorkflowState string

const (
	// StateContentSelection is the initial stage, waiting for a content category.
	StateContentSelection WorkflowState = "CONTENT_SELECTION"
	// StateFirstPrompt waits for a specific activity inside the chosen category.
	StateFirstPrompt WorkflowState = "FIRST_PROMPT"
	// StateCollectingPlayers is the roster-editing stage before publication.
	StateCollectingPlayers WorkflowState = "COLLECTING_PLAYERS"
	// StatePrivateFinalized is a published lobby without open join controls.
	StatePrivateFinalized WorkflowState = "PRIVATE_FINALIZED"
	// StatePublicFinalized is a published lobby accepting join requests.
	StatePublicFinalized WorkflowState = "PUBLIC_FINALIZED"
	// StateReconstructed is the post-recovery equivalent of a finalized lobby.
	StateReconstructed WorkflowState = "RECONSTRUCTED"
)

// Finalized reports whether the formation sub-workflow has completed. A
// finalized session still accepts join/leave/reschedule events until it is
// closed or expires.
func (s WorkflowState) Finalized() bool {
	switch s {
	case StatePrivateFinalized, StatePublicFinalized, StateReconstructed:
		return true
	default:
		return false
	}
}

// Schedule window bounds, measured from the wall clock at validation time.
const (
	// MinScheduleLead is the shortest allowed distance to a scheduled time.
	MinScheduleLead = 15 * time.Minute
	// ScheduleHorizon is the farthest allowed distance to a scheduled time.
	ScheduleHorizon = 14 * 24 * time.Hour
)

// ValidateSchedule rejects schedules inside the minimum lead or beyond the
// horizon.
func ValidateSchedule(schedule time.Time, now time.Time) error {
	if !schedule.After(now.Add(MinScheduleLead)) {
		return fmt.Errorf("%w: must be more than %s from now", ErrScheduleTooSoon, MinScheduleLead)
	}
	if !schedule.Before(now.Add(ScheduleHorizon)) {
		return fmt.Errorf("%w: must be within %s", ErrScheduleTooFar, ScheduleHorizon)
	}
	return nil
}

// Character is one registered guild character eligible to fill a roster slot.
// OwnerID identifies the guild member who plays the character; membership
// checks key on the owner, not the character name.
type Character struct {
	Name      string
	OwnerID   string
	Class     string
	ItemLevel int
}

// Session is the mutable state of one lobby. It is owned exclusively by the
// lobby's actor; nothing outside that actor may mutate it.
type Session struct {
	ID        string
	GuildID   string
	ChannelID string
	MessageID string
	MasterID  string
	State     WorkflowState
	Category  ContentCategory
	Content   *ContentInfo
	Schedule  *time.Time
	CreatedAt time.Time
	Active    bool

	// Candidates are guild characters eligible to be added, recomputed after
	// every roster change. Roster holds confirmed participants in join order.
	Candidates []Character
	Roster     []Character
}

// CreateSessionInput carries the metadata needed to begin lobby formation.
// MessageID names the anchor message the presentation layer already created
// for this lobby.
type CreateSessionInput struct {
	GuildID   string
	ChannelID string
	MessageID string
	MasterID  string
	Schedule  *time.Time
}

// CreateSession begins a new formation workflow with a generated identifier.
// The optional schedule is validated against the allowed window.
func CreateSession(input CreateSessionInput, now func() time.Time, idGenerator func() (string, error)) (Session, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = NewID
	}

	input.GuildID = strings.TrimSpace(input.GuildID)
	if input.GuildID == "" {
		return Session{}, fmt.Errorf("guild id is required")
	}
	input.ChannelID = strings.TrimSpace(input.ChannelID)
	if input.ChannelID == "" {
		return Session{}, fmt.Errorf("channel id is required")
	}
	input.MessageID = strings.TrimSpace(input.MessageID)
	if input.MessageID == "" {
		return Session{}, fmt.Errorf("anchor message id is required")
	}
	input.MasterID = strings.TrimSpace(input.MasterID)
	if input.MasterID == "" {
		return Session{}, fmt.Errorf("master id is required")
	}

	createdAt := now().UTC()
	if input.Schedule != nil {
		scheduled := input.Schedule.UTC()
		if err := ValidateSchedule(scheduled, createdAt); err != nil {
			return Session{}, err
		}
		input.Schedule = &scheduled
	}

	sessionID, err := idGenerator()
	if err != nil {
		return Session{}, fmt.Errorf("generate lobby id: %w", err)
	}

	return Session{
		ID:        sessionID,
		GuildID:   input.GuildID,
		ChannelID: input.ChannelID,
		MessageID: input.MessageID,
		MasterID:  input.MasterID,
		State:     StateContentSelection,
		Schedule:  input.Schedule,
		CreatedAt: createdAt,
		Active:    true,
	}, nil
}

// Capacity returns the roster limit derived from the selected content, or
// zero before content selection completes.
func (s *Session) Capacity() int {
	if s.Content == nil {
		return 0
	}
	return s.Content.PartySize
}

// Full reports whether the active roster reached capacity.
func (s *Session) Full() bool {
	return s.Content != nil && len(s.Roster) >= s.Content.PartySize
}

// HasParticipant reports whether the owner already holds a roster slot.
func (s *Session) HasParticipant(ownerID string) bool {
	for _, member := range s.Roster {
		if member.OwnerID == ownerID {
			return true
		}
	}
	return false
}

// AddToRoster appends a character to the next free slot. Full lobbies and
// duplicate owners are rejected with sentinel errors.
func (s *Session) AddToRoster(character Character) error {
	if s.Content == nil {
		return ErrNoContentSelected
	}
	if s.Full() {
		return ErrLobbyFull
	}
	if s.HasParticipant(character.OwnerID) {
		return ErrAlreadyJoined
	}
	s.Roster = append(s.Roster, character)
	return nil
}

// RemoveFromRosterAt frees the slot at index, shifting later entries forward
// so join order stays stable.
func (s *Session) RemoveFromRosterAt(index int) (Character, error) {
	if index < 0 || index >= len(s.Roster) {
		return Character{}, ErrNotParticipant
	}
	removed := s.Roster[index]
	s.Roster = append(s.Roster[:index], s.Roster[index+1:]...)
	return removed, nil
}

// RemoveParticipant frees the slot held by the owner.
func (s *Session) RemoveParticipant(ownerID string) (Character, error) {
	for i, member := range s.Roster {
		if member.OwnerID == ownerID {
			return s.RemoveFromRosterAt(i)
		}
	}
	return Character{}, ErrNotParticipant
}

// CheckGuild verifies a guild-scoped request targets this lobby's guild. An
// empty guild id means the request carries no scope and passes.
func (s *Session) CheckGuild(guildID string) error {
	if guildID != "" && guildID != s.GuildID {
		return ErrWrongGuild
	}
	return nil
}

// RosterOwners returns the owner ids of every confirmed participant in slot
// order.
func (s *Session) RosterOwners() []string {
	owners := make([]string, 0, len(s.Roster))
	for _, member := range s.Roster {
		owners = append(owners, member.OwnerID)
	}
	return owners
}
