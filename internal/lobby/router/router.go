// Package router translates raw interaction payloads into lobby events and
// dispatches them through the registry.
//
// Custom ids carry a fixed-width lobby identifier prefix followed by an
// event-kind suffix. The router decodes the suffix exactly once; nothing past
// this boundary parses strings again.
package router

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/registry"
)

var (
	// ErrUnparsable indicates a custom id too short or malformed to carry a
	// lobby identifier.
	ErrUnparsable = errors.New("unparsable custom id")
	// ErrUntrackedEvent indicates a suffix this subsystem does not own.
	// Untracked interactions are expected traffic, not failures.
	ErrUntrackedEvent = errors.New("untracked event")
	// ErrInvalidPayload indicates a tracked suffix with a missing or
	// malformed selection value.
	ErrInvalidPayload = errors.New("invalid interaction payload")
	// ErrStaleLobby indicates the lobby is no longer live in this process.
	ErrStaleLobby = errors.New("stale lobby")
)

// Interaction is one raw component interaction from the presentation layer.
type Interaction struct {
	CustomID string
	UserID   string
	GuildID  string
	Values   []string
}

// Router decodes interactions and forwards them to the owning actor.
type Router struct {
	registry *registry.Registry
}

// New returns a router dispatching through reg.
func New(reg *registry.Registry) *Router {
	return &Router{registry: reg}
}

// Decode extracts the lobby identifier and event from an interaction without
// dispatching it.
func Decode(interaction Interaction) (string, domain.Event, error) {
	if len(interaction.CustomID) < domain.IDLength {
		return "", domain.Event{}, fmt.Errorf("%w: %q", ErrUnparsable, interaction.CustomID)
	}
	lobbyID := interaction.CustomID[:domain.IDLength]
	suffix := interaction.CustomID[domain.IDLength:]
	if !domain.ValidID(lobbyID) {
		return "", domain.Event{}, fmt.Errorf("%w: bad lobby id prefix", ErrUnparsable)
	}

	event, err := decodeSuffix(suffix, interaction)
	if err != nil {
		return "", domain.Event{}, err
	}
	return lobbyID, event, nil
}

func decodeSuffix(suffix string, interaction Interaction) (domain.Event, error) {
	switch suffix {
	case string(domain.CategoryGuardianRaid), string(domain.CategoryAbyssDungeon), string(domain.CategoryAbyssRaid):
		return domain.Event{Type: domain.EventContentChosen, Category: domain.ContentCategory(suffix)}, nil
	case "content-info":
		value, err := firstValue(interaction, suffix)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.Event{Type: domain.EventContentInfoChosen, ContentKey: value}, nil
	case "add":
		index, err := firstIndex(interaction, suffix)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.Event{Type: domain.EventPlayerAddRequested, CandidateIndex: index, UserID: interaction.UserID}, nil
	case "remove":
		index, err := firstIndex(interaction, suffix)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.Event{Type: domain.EventPlayerRemoveRequested, SlotIndex: index, UserID: interaction.UserID}, nil
	case "post-lobby":
		return domain.Event{Type: domain.EventPublishPrivate, UserID: interaction.UserID}, nil
	case "open-lobby":
		return domain.Event{Type: domain.EventPublishPublic, UserID: interaction.UserID}, nil
	case "close-lobby":
		return domain.Event{Type: domain.EventClose, UserID: interaction.UserID, GuildID: interaction.GuildID}, nil
	case "lobby-join":
		value, err := firstValue(interaction, suffix)
		if err != nil {
			return domain.Event{}, err
		}
		return domain.Event{Type: domain.EventExternalJoin, UserID: interaction.UserID, CharacterName: value}, nil
	case "lobby-leave":
		return domain.Event{Type: domain.EventExternalLeave, UserID: interaction.UserID}, nil
	default:
		return domain.Event{}, fmt.Errorf("%w: suffix %q", ErrUntrackedEvent, suffix)
	}
}

// Dispatch decodes an interaction and sends the event to the owning lobby.
// A deregistered lobby or closed mailbox reports ErrStaleLobby; the send
// itself never blocks.
func (r *Router) Dispatch(interaction Interaction) error {
	lobbyID, event, err := Decode(interaction)
	if err != nil {
		return err
	}

	mailbox, err := r.registry.Lookup(lobbyID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrStaleLobby, lobbyID)
		}
		return err
	}
	if err := mailbox.Send(event); err != nil {
		return fmt.Errorf("%w: %s", ErrStaleLobby, lobbyID)
	}
	return nil
}

func firstValue(interaction Interaction, suffix string) (string, error) {
	if len(interaction.Values) == 0 || interaction.Values[0] == "" {
		return "", fmt.Errorf("%w: %s requires a selection value", ErrInvalidPayload, suffix)
	}
	return interaction.Values[0], nil
}

func firstIndex(interaction Interaction, suffix string) (int, error) {
	value, err := firstValue(interaction, suffix)
	if err != nil {
		return 0, err
	}
	index, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s index %q", ErrInvalidPayload, suffix, value)
	}
	return index, nil
}
