package recovery

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/registry"
	"github.com/veylan/guildpost/internal/lobby/render"
	"github.com/veylan/guildpost/internal/lobby/storage"
	"github.com/veylan/guildpost/internal/lobby/timer"
)

type fakeStore struct {
	mu       sync.Mutex
	records  []storage.SessionRecord
	rosters  map[string][]domain.Character
	inactive []string
}

func (f *fakeStore) SaveSession(context.Context, storage.SessionRecord) error { return nil }

func (f *fakeStore) LoadActiveSessions(context.Context) ([]storage.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.SessionRecord(nil), f.records...), nil
}

func (f *fakeStore) MarkInactive(_ context.Context, lobbyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inactive = append(f.inactive, lobbyID)
	return nil
}

func (f *fakeStore) UpdateSchedule(context.Context, string, *time.Time) error { return nil }

func (f *fakeStore) AddRosterMember(context.Context, string, domain.Character) error { return nil }

func (f *fakeStore) RemoveRosterMember(context.Context, string, string) error { return nil }

func (f *fakeStore) LoadRoster(_ context.Context, lobbyID string) ([]domain.Character, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Character(nil), f.rosters[lobbyID]...), nil
}

func (f *fakeStore) ListEligibleCandidates(context.Context, string, int, []string) ([]domain.Character, error) {
	return nil, nil
}

func (f *fakeStore) GetCharacter(context.Context, string, string) (domain.Character, error) {
	return domain.Character{}, storage.ErrNotFound
}

func (f *fakeStore) markedInactive() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inactive...)
}

type fakePresenter struct {
	mu      sync.Mutex
	views   int
	notices []render.Notice
}

func (f *fakePresenter) Render(context.Context, render.View) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views++
	return nil
}

func (f *fakePresenter) Notify(_ context.Context, _ []string, notice render.Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, notice)
	return nil
}

func mustID(t *testing.T) string {
	t.Helper()
	id, err := domain.NewID()
	if err != nil {
		t.Fatalf("new id: %v", err)
	}
	return id
}

func TestRunReconstructsFutureSessions(t *testing.T) {
	t.Parallel()

	// Timer chains run against the wall clock, so the schedule sits in the
	// real future to keep them pending for the whole test.
	now := time.Now().UTC()
	lobbyID := mustID(t)
	scheduled := now.Add(30 * time.Minute)

	store := &fakeStore{
		records: []storage.SessionRecord{{
			ID:         lobbyID,
			GuildID:    "guild-1",
			ChannelID:  "channel-1",
			MessageID:  "message-1",
			MasterID:   "master-1",
			ContentKey: "vertus",
			CreatedAt:  now.Add(-time.Hour),
			Scheduled:  &scheduled,
			Active:     true,
		}},
		rosters: map[string][]domain.Character{
			lobbyID: {
				{Name: "Artemis", OwnerID: "owner-1", Class: "Bard", ItemLevel: 500},
				{Name: "Borealis", OwnerID: "owner-2", Class: "Gunlancer", ItemLevel: 470},
			},
		},
	}
	reg := registry.New()
	loader := &Loader{
		Store:     store,
		Presenter: &fakePresenter{},
		Registry:  reg,
		Timing:    timer.Config{ReminderLead: time.Minute, ExpiryGrace: time.Minute},
		Now:       func() time.Time { return now },
	}

	recovered, err := loader.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}

	mailbox, err := reg.Lookup(lobbyID)
	if err != nil {
		t.Fatalf("recovered lobby not registered: %v", err)
	}
	// The recovered actor accepts events.
	if err := mailbox.Send(domain.Event{Type: domain.EventExternalLeave, UserID: "owner-1"}); err != nil {
		t.Fatalf("send to recovered lobby: %v", err)
	}
	if marked := store.markedInactive(); len(marked) != 0 {
		t.Fatalf("marked inactive = %v, want none", marked)
	}
}

func TestRunDestroysElapsedSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	lobbyID := mustID(t)
	elapsed := now.Add(-time.Hour)

	store := &fakeStore{
		records: []storage.SessionRecord{{
			ID:         lobbyID,
			GuildID:    "guild-1",
			ContentKey: "vertus",
			Scheduled:  &elapsed,
			Active:     true,
		}},
		rosters: map[string][]domain.Character{},
	}
	reg := registry.New()
	loader := &Loader{
		Store:     store,
		Presenter: &fakePresenter{},
		Registry:  reg,
		Now:       func() time.Time { return now },
	}

	recovered, err := loader.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("recovered = %d, want 0", recovered)
	}
	if _, err := reg.Lookup(lobbyID); err == nil {
		t.Fatal("elapsed lobby must not be registered")
	}
	marked := store.markedInactive()
	if len(marked) != 1 || marked[0] != lobbyID {
		t.Fatalf("marked inactive = %v, want [%s]", marked, lobbyID)
	}
}

func TestRunDestroysUnreconstructableSessions(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 10, 18, 0, 0, 0, time.UTC)
	lobbyID := mustID(t)

	store := &fakeStore{
		records: []storage.SessionRecord{{
			ID:         lobbyID,
			GuildID:    "guild-1",
			ContentKey: "content-that-no-longer-exists",
			Active:     true,
		}},
		rosters: map[string][]domain.Character{},
	}
	reg := registry.New()
	loader := &Loader{
		Store:     store,
		Presenter: &fakePresenter{},
		Registry:  reg,
		Now:       func() time.Time { return now },
	}

	recovered, err := loader.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("recovered = %d, want 0", recovered)
	}
	marked := store.markedInactive()
	if len(marked) != 1 || marked[0] != lobbyID {
		t.Fatalf("marked inactive = %v, want [%s]", marked, lobbyID)
	}
}

func TestRunRecoversRemainderWhenOneSessionIsBroken(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	brokenID := mustID(t)
	healthyID := mustID(t)
	scheduled := now.Add(time.Hour)

	store := &fakeStore{
		records: []storage.SessionRecord{
			{ID: brokenID, GuildID: "guild-1", ContentKey: "no-such-content", Active: true},
			{ID: healthyID, GuildID: "guild-1", ContentKey: "argos-phase-1", Scheduled: &scheduled, Active: true},
		},
		rosters: map[string][]domain.Character{},
	}
	reg := registry.New()
	loader := &Loader{
		Store:     store,
		Presenter: &fakePresenter{},
		Registry:  reg,
		Timing:    timer.Config{ReminderLead: time.Minute, ExpiryGrace: time.Minute},
		Now:       func() time.Time { return now },
	}

	recovered, err := loader.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("recovered = %d, want 1", recovered)
	}
	if _, err := reg.Lookup(healthyID); err != nil {
		t.Fatalf("healthy lobby not registered: %v", err)
	}
}

func TestRunInWindowScheduleFiresReminderImmediately(t *testing.T) {
	t.Parallel()

	lobbyID := mustID(t)
	// Scheduled 2 minutes out with a 10 minute lead: the reminder instant is
	// already past, so recovery delivers it right away.
	scheduled := time.Now().Add(2 * time.Minute).UTC()

	presenter := &fakePresenter{}
	store := &fakeStore{
		records: []storage.SessionRecord{{
			ID:         lobbyID,
			GuildID:    "guild-1",
			ContentKey: "vertus",
			Scheduled:  &scheduled,
			Active:     true,
		}},
		rosters: map[string][]domain.Character{
			lobbyID: {{Name: "Artemis", OwnerID: "owner-1", ItemLevel: 500}},
		},
	}
	reg := registry.New()
	loader := &Loader{
		Store:     store,
		Presenter: presenter,
		Registry:  reg,
		Timing:    timer.Config{ReminderLead: 10 * time.Minute, ExpiryGrace: 10 * time.Minute},
	}

	if _, err := loader.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		presenter.mu.Lock()
		notices := len(presenter.notices)
		presenter.mu.Unlock()
		if notices > 0 {
			presenter.mu.Lock()
			noticeType := presenter.notices[0].Type
			presenter.mu.Unlock()
			if noticeType != render.NoticeReminder {
				t.Fatalf("notice = %q, want reminder", noticeType)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for the immediate reminder")
}
