package domain

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
}

func testCreateInput() CreateSessionInput {
	return CreateSessionInput{
		GuildID:   "guild-1",
		ChannelID: "channel-1",
		MessageID: "message-1",
		MasterID:  "master-1",
	}
}

func TestCreateSession(t *testing.T) {
	t.Parallel()

	session, err := CreateSession(testCreateInput(), fixedNow, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if !ValidID(session.ID) {
		t.Fatalf("session id %q is not a valid lobby id", session.ID)
	}
	if session.State != StateContentSelection {
		t.Fatalf("state = %q, want %q", session.State, StateContentSelection)
	}
	if !session.Active {
		t.Fatal("expected new session to be active")
	}
	if !session.CreatedAt.Equal(fixedNow()) {
		t.Fatalf("created at = %v, want %v", session.CreatedAt, fixedNow())
	}
	if session.Schedule != nil {
		t.Fatalf("schedule = %v, want nil", session.Schedule)
	}
}

func TestCreateSessionRequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateSessionInput)
	}{
		{name: "missing guild", mutate: func(in *CreateSessionInput) { in.GuildID = " " }},
		{name: "missing channel", mutate: func(in *CreateSessionInput) { in.ChannelID = "" }},
		{name: "missing message", mutate: func(in *CreateSessionInput) { in.MessageID = "" }},
		{name: "missing master", mutate: func(in *CreateSessionInput) { in.MasterID = "" }},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			input := testCreateInput()
			tc.mutate(&input)
			if _, err := CreateSession(input, fixedNow, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCreateSessionValidatesSchedule(t *testing.T) {
	t.Parallel()

	tooSoon := fixedNow().Add(10 * time.Minute)
	input := testCreateInput()
	input.Schedule = &tooSoon
	if _, err := CreateSession(input, fixedNow, nil); !errors.Is(err, ErrScheduleTooSoon) {
		t.Fatalf("expected ErrScheduleTooSoon, got %v", err)
	}

	valid := fixedNow().Add(time.Hour)
	input.Schedule = &valid
	session, err := CreateSession(input, fixedNow, nil)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Schedule == nil || !session.Schedule.Equal(valid) {
		t.Fatalf("schedule = %v, want %v", session.Schedule, valid)
	}
}

func TestValidateScheduleWindow(t *testing.T) {
	t.Parallel()

	now := fixedNow()
	tests := []struct {
		name     string
		schedule time.Time
		wantErr  error
	}{
		{name: "inside lead", schedule: now.Add(MinScheduleLead), wantErr: ErrScheduleTooSoon},
		{name: "in the past", schedule: now.Add(-time.Hour), wantErr: ErrScheduleTooSoon},
		{name: "just past the lead", schedule: now.Add(MinScheduleLead + time.Second), wantErr: nil},
		{name: "tomorrow", schedule: now.Add(24 * time.Hour), wantErr: nil},
		{name: "at the horizon", schedule: now.Add(ScheduleHorizon), wantErr: ErrScheduleTooFar},
		{name: "beyond the horizon", schedule: now.Add(ScheduleHorizon + time.Hour), wantErr: ErrScheduleTooFar},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateSchedule(tc.schedule, now)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("validate schedule: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestRosterCapacityAndDuplicates(t *testing.T) {
	t.Parallel()

	content, err := ContentByKey("vertus")
	if err != nil {
		t.Fatalf("content by key: %v", err)
	}
	session := Session{Content: &content}

	if session.Capacity() != 4 {
		t.Fatalf("capacity = %d, want 4", session.Capacity())
	}

	for i := 0; i < 4; i++ {
		member := Character{
			Name:      string(rune('a' + i)),
			OwnerID:   string(rune('A' + i)),
			Class:     "Berserker",
			ItemLevel: 450,
		}
		if err := session.AddToRoster(member); err != nil {
			t.Fatalf("add member %d: %v", i, err)
		}
	}
	if !session.Full() {
		t.Fatal("expected roster to be full")
	}

	err = session.AddToRoster(Character{Name: "extra", OwnerID: "Z"})
	if !errors.Is(err, ErrLobbyFull) {
		t.Fatalf("expected ErrLobbyFull, got %v", err)
	}

	if _, err := session.RemoveFromRosterAt(0); err != nil {
		t.Fatalf("remove slot 0: %v", err)
	}
	err = session.AddToRoster(Character{Name: "alt", OwnerID: "B"})
	if !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined for duplicate owner, got %v", err)
	}
}

func TestAddToRosterWithoutContent(t *testing.T) {
	t.Parallel()

	session := Session{}
	err := session.AddToRoster(Character{Name: "a", OwnerID: "A"})
	if !errors.Is(err, ErrNoContentSelected) {
		t.Fatalf("expected ErrNoContentSelected, got %v", err)
	}
}

func TestRemoveFromRosterKeepsJoinOrder(t *testing.T) {
	t.Parallel()

	content, err := ContentByKey("argos-phase-1")
	if err != nil {
		t.Fatalf("content by key: %v", err)
	}
	session := Session{Content: &content}
	for _, name := range []string{"first", "second", "third"} {
		if err := session.AddToRoster(Character{Name: name, OwnerID: "owner-" + name}); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	removed, err := session.RemoveFromRosterAt(1)
	if err != nil {
		t.Fatalf("remove slot 1: %v", err)
	}
	if removed.Name != "second" {
		t.Fatalf("removed = %q, want %q", removed.Name, "second")
	}
	if len(session.Roster) != 2 || session.Roster[0].Name != "first" || session.Roster[1].Name != "third" {
		t.Fatalf("roster after removal = %+v", session.Roster)
	}

	if _, err := session.RemoveFromRosterAt(5); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant for bad index, got %v", err)
	}
	if _, err := session.RemoveParticipant("nobody"); !errors.Is(err, ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant for unknown owner, got %v", err)
	}
}

func TestCheckGuild(t *testing.T) {
	t.Parallel()

	session := Session{GuildID: "guild-1"}
	if err := session.CheckGuild("guild-1"); err != nil {
		t.Fatalf("own guild: %v", err)
	}
	if err := session.CheckGuild(""); err != nil {
		t.Fatalf("unscoped request: %v", err)
	}
	if err := session.CheckGuild("guild-2"); !errors.Is(err, ErrWrongGuild) {
		t.Fatalf("foreign guild = %v, want ErrWrongGuild", err)
	}
}

func TestWorkflowStateFinalized(t *testing.T) {
	t.Parallel()

	finalized := []WorkflowState{StatePrivateFinalized, StatePublicFinalized, StateReconstructed}
	for _, state := range finalized {
		if !state.Finalized() {
			t.Fatalf("state %q should be finalized", state)
		}
	}
	forming := []WorkflowState{StateContentSelection, StateFirstPrompt, StateCollectingPlayers}
	for _, state := range forming {
		if state.Finalized() {
			t.Fatalf("state %q should not be finalized", state)
		}
	}
}
