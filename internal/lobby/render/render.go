// Package render defines the platform-neutral view and notification types the
// lobby core hands to the presentation collaborator. The collaborator owns
// chat-platform specifics: message ids, component styling, localization.
package render

import (
	"context"
	"fmt"
	"time"

	"github.com/veylan/guildpost/internal/lobby/domain"
)

// Action is one interactive control the presentation layer should offer.
// Actions map one-to-one onto custom-id suffixes understood by the router.
type Action string

const (
	// ActionSelectCategory offers the content-category buttons.
	ActionSelectCategory Action = "select-category"
	// ActionSelectContent offers the activity picker for the chosen category.
	ActionSelectContent Action = "select-content"
	// ActionAddPlayer offers the candidate select menu.
	ActionAddPlayer Action = "add-player"
	// ActionRemovePlayer offers the active-roster select menu.
	ActionRemovePlayer Action = "remove-player"
	// ActionPostLobby offers the private publication button.
	ActionPostLobby Action = "post-lobby"
	// ActionOpenLobby offers the public publication button.
	ActionOpenLobby Action = "open-lobby"
	// ActionCloseLobby offers the close button.
	ActionCloseLobby Action = "close-lobby"
	// ActionJoin offers the open join button on a public lobby.
	ActionJoin Action = "join"
	// ActionLeave offers the leave button on a public lobby.
	ActionLeave Action = "leave"
)

// RosterSlot is one of the capacity-many slots in a rendered roster summary.
type RosterSlot struct {
	Filled        bool
	CharacterName string
	Class         string
	ItemLevel     int
	OwnerID       string
}

// View is one render request for a lobby's anchor surface.
type View struct {
	LobbyID     string
	GuildID     string
	ChannelID   string
	MessageID   string
	Title       string
	Description string
	Scheduled   *time.Time
	Roster      []RosterSlot
	Candidates  []domain.Character
	// ContentOptions lists the selectable activities during the first prompt.
	ContentOptions []domain.ContentInfo
	Actions        []Action

	// Info carries a non-fatal, user-facing outcome of the last event, such
	// as a full-lobby or duplicate-join rejection. Empty when the event
	// applied cleanly.
	Info string
}

// NoticeType identifies a direct notification to roster members.
type NoticeType string

const (
	// NoticeReminder tells participants the activity starts soon.
	NoticeReminder NoticeType = "REMINDER"
	// NoticeRescheduled tells participants the schedule changed.
	NoticeRescheduled NoticeType = "RESCHEDULED"
)

// Notice is one direct notification to the active roster.
type Notice struct {
	Type        NoticeType
	LobbyID     string
	GuildID     string
	ContentName string
	Scheduled   time.Time
}

// Presenter is the presentation collaborator. Implementations must be safe
// for concurrent use; distinct lobby actors call them independently.
type Presenter interface {
	// Render draws or updates the lobby's anchor surface.
	Render(ctx context.Context, view View) error
	// Notify delivers a direct notice to each listed guild member.
	Notify(ctx context.Context, ownerIDs []string, notice Notice) error
}

// BuildView projects the session into a render request. Info is left empty;
// the actor fills it when an event was rejected with a user-facing reason.
func BuildView(s *domain.Session) View {
	view := View{
		LobbyID:   s.ID,
		GuildID:   s.GuildID,
		ChannelID: s.ChannelID,
		MessageID: s.MessageID,
		Scheduled: s.Schedule,
	}

	switch {
	case s.Content != nil:
		view.Title = fmt.Sprintf("%s: %s (Tier %d)", s.Category.Display(), s.Content.Name, s.Content.Tier)
		view.Description = fmt.Sprintf("Minimum item level %d", s.Content.MinItemLevel)
		view.Roster = rosterSlots(s)
	case s.Category != "":
		view.Title = fmt.Sprintf("Select the %s", s.Category.Display())
		view.Description = "Pick a specific activity."
	default:
		view.Title = "New lobby"
		view.Description = "Select the content."
	}

	switch s.State {
	case domain.StateContentSelection:
		view.Actions = []Action{ActionSelectCategory}
	case domain.StateFirstPrompt:
		view.ContentOptions = domain.ContentsByCategory(s.Category)
		view.Actions = []Action{ActionSelectContent}
	case domain.StateCollectingPlayers:
		view.Candidates = append([]domain.Character(nil), s.Candidates...)
		view.Actions = []Action{ActionAddPlayer, ActionRemovePlayer, ActionPostLobby, ActionOpenLobby, ActionCloseLobby}
	case domain.StatePrivateFinalized:
		view.Actions = nil
	case domain.StatePublicFinalized, domain.StateReconstructed:
		view.Actions = []Action{ActionJoin, ActionLeave}
	}

	if !s.Active {
		view.Actions = nil
	}
	return view
}

func rosterSlots(s *domain.Session) []RosterSlot {
	slots := make([]RosterSlot, s.Capacity())
	for i, member := range s.Roster {
		if i >= len(slots) {
			break
		}
		slots[i] = RosterSlot{
			Filled:        true,
			CharacterName: member.Name,
			Class:         member.Class,
			ItemLevel:     member.ItemLevel,
			OwnerID:       member.OwnerID,
		}
	}
	return slots
}
