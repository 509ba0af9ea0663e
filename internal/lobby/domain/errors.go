package domain

import "errors"

var (
	// ErrLobbyFull indicates the active roster already reached capacity.
	ErrLobbyFull = errors.New("lobby is full")
	// ErrAlreadyJoined indicates the participant is already on the active roster.
	ErrAlreadyJoined = errors.New("participant already in lobby")
	// ErrNotParticipant indicates the participant is not on the active roster.
	ErrNotParticipant = errors.New("not a lobby participant")
	// ErrUnknownContent indicates an unrecognized content selection.
	ErrUnknownContent = errors.New("unknown content")
	// ErrScheduleTooSoon indicates a schedule inside the minimum lead window.
	ErrScheduleTooSoon = errors.New("schedule is too soon")
	// ErrScheduleTooFar indicates a schedule beyond the scheduling horizon.
	ErrScheduleTooFar = errors.New("schedule is too far out")
	// ErrWrongGuild indicates a request scoped to a guild the lobby does not belong to.
	ErrWrongGuild = errors.New("lobby does not belong to this guild")
	// ErrNoContentSelected indicates a roster operation before content selection completed.
	ErrNoContentSelected = errors.New("no content selected")
)
