package domain

import "time"

// EventType identifies the kind of an event delivered to a lobby actor.
type EventType string

const (
	// EventContentChosen selects a content category during formation.
	EventContentChosen EventType = "CONTENT_CHOSEN"
	// EventContentInfoChosen selects a specific activity inside the category.
	EventContentInfoChosen EventType = "CONTENT_INFO_CHOSEN"
	// EventPlayerAddRequested moves a candidate into the active roster.
	EventPlayerAddRequested EventType = "PLAYER_ADD_REQUESTED"
	// EventPlayerRemoveRequested frees an active roster slot.
	EventPlayerRemoveRequested EventType = "PLAYER_REMOVE_REQUESTED"
	// EventPublishPrivate finalizes the lobby without open join controls.
	EventPublishPrivate EventType = "PUBLISH_PRIVATE"
	// EventPublishPublic finalizes the lobby with open join controls.
	EventPublishPublic EventType = "PUBLISH_PUBLIC"
	// EventClose destroys the lobby on request.
	EventClose EventType = "CLOSE"
	// EventExternalJoin is a join request against a published lobby.
	EventExternalJoin EventType = "EXTERNAL_JOIN"
	// EventExternalLeave is a leave request against a published lobby.
	EventExternalLeave EventType = "EXTERNAL_LEAVE"
	// EventScheduleChanged replaces the scheduled time.
	EventScheduleChanged EventType = "SCHEDULE_CHANGED"
	// EventReminderDue fires when the reminder lead elapses.
	EventReminderDue EventType = "REMINDER_DUE"
	// EventExpireDue fires when the expiry grace elapses.
	EventExpireDue EventType = "EXPIRE_DUE"
)

// Event is one tagged message for a lobby actor. The router decodes raw
// interactions into events exactly once; nothing downstream re-parses
// strings. Only the fields relevant to the type are set.
type Event struct {
	Type EventType

	// Category is set for EventContentChosen.
	Category ContentCategory
	// ContentKey is set for EventContentInfoChosen.
	ContentKey string
	// CandidateIndex is set for EventPlayerAddRequested.
	CandidateIndex int
	// SlotIndex is set for EventPlayerRemoveRequested.
	SlotIndex int
	// UserID identifies the interacting guild member where relevant.
	UserID string
	// CharacterName is set for EventExternalJoin.
	CharacterName string
	// GuildID scopes EventClose and EventScheduleChanged requests.
	GuildID string
	// Schedule is set for EventScheduleChanged.
	Schedule time.Time
}
