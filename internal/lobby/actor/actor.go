// Package actor serializes all mutation of one lobby session. The actor's
// mailbox is the only entry point to the session's mutable fields; events are
// processed strictly in arrival order, one at a time.
package actor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/veylan/guildpost/internal/lobby/domain"
	"github.com/veylan/guildpost/internal/lobby/render"
	"github.com/veylan/guildpost/internal/lobby/storage"
	"github.com/veylan/guildpost/internal/lobby/timer"
)

// Deps are the collaborators one actor needs.
type Deps struct {
	Store     storage.Store
	Presenter render.Presenter
	Timing    timer.Config
	// OnTerminate runs after the terminal transition, before the mailbox
	// closes. The runtime uses it to deregister the lobby.
	OnTerminate func(lobbyID string)
}

// Actor owns one session and processes its event stream.
type Actor struct {
	session *domain.Session
	mailbox *Mailbox
	chain   *timer.Controller
	deps    Deps
}

// New wraps a session in an actor. The session must not be touched by the
// caller after Start.
func New(session *domain.Session, deps Deps) *Actor {
	return &Actor{
		session: session,
		mailbox: NewMailbox(),
		chain:   timer.New(),
		deps:    deps,
	}
}

// Mailbox returns the actor's inbound event endpoint.
func (a *Actor) Mailbox() *Mailbox {
	return a.mailbox
}

// InstallTimer starts the reminder/expiry chain for the current schedule.
// The runtime calls it during recovery; live sessions install their own
// chains while processing publish/reschedule events.
func (a *Actor) InstallTimer() {
	if a.session.Schedule == nil {
		return
	}
	a.chain.Install(*a.session.Schedule, a.deps.Timing, a.mailbox.Send)
}

// Start launches the actor's event loop.
func (a *Actor) Start(ctx context.Context) {
	go a.run(ctx)
}

func (a *Actor) run(ctx context.Context) {
	// The chain must never outlive the loop, whichever way the loop ends.
	defer a.chain.Cancel()
	for {
		event, ok := a.mailbox.Receive()
		if !ok {
			return
		}
		if done := a.process(ctx, event); done {
			return
		}
	}
}

// process applies one event. It reports true after the terminal transition.
// Failures are scoped to this session: a panic while handling one event is
// logged and the loop continues.
func (a *Actor) process(ctx context.Context, event domain.Event) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("lobby %s: panic processing %s: %v", a.session.ID, event.Type, r)
		}
	}()

	switch event.Type {
	case domain.EventContentChosen:
		a.handleContentChosen(ctx, event)
	case domain.EventContentInfoChosen:
		a.handleContentInfoChosen(ctx, event)
	case domain.EventPlayerAddRequested:
		a.handlePlayerAdd(ctx, event)
	case domain.EventPlayerRemoveRequested:
		a.handlePlayerRemove(ctx, event)
	case domain.EventPublishPrivate:
		a.handlePublish(ctx, domain.StatePrivateFinalized)
	case domain.EventPublishPublic:
		a.handlePublish(ctx, domain.StatePublicFinalized)
	case domain.EventExternalJoin:
		a.handleExternalJoin(ctx, event)
	case domain.EventExternalLeave:
		a.handleExternalLeave(ctx, event)
	case domain.EventScheduleChanged:
		a.handleScheduleChanged(ctx, event)
	case domain.EventReminderDue:
		a.handleReminderDue(ctx)
	case domain.EventClose:
		return a.handleClose(ctx, event)
	case domain.EventExpireDue:
		return a.handleExpire(ctx)
	default:
		log.Printf("lobby %s: ignoring unknown event %q", a.session.ID, event.Type)
	}
	return false
}

func (a *Actor) handleContentChosen(ctx context.Context, event domain.Event) {
	if a.session.State != domain.StateContentSelection {
		a.logSkip(event.Type)
		return
	}
	a.session.Category = event.Category
	a.session.State = domain.StateFirstPrompt
	a.renderState(ctx, "")
}

func (a *Actor) handleContentInfoChosen(ctx context.Context, event domain.Event) {
	if a.session.State != domain.StateFirstPrompt {
		a.logSkip(event.Type)
		return
	}
	info, err := domain.ContentByKey(event.ContentKey)
	if err != nil {
		a.renderState(ctx, "That activity is not available.")
		return
	}
	if info.Category != a.session.Category {
		a.renderState(ctx, "That activity is not available.")
		return
	}
	a.session.Content = &info
	a.session.State = domain.StateCollectingPlayers

	userInfo := ""
	if err := a.refreshCandidates(ctx); err != nil {
		log.Printf("lobby %s: list candidates: %v", a.session.ID, err)
		userInfo = "Couldn't load eligible characters."
	}
	a.renderState(ctx, userInfo)
}

func (a *Actor) handlePlayerAdd(ctx context.Context, event domain.Event) {
	if a.session.State != domain.StateCollectingPlayers {
		a.logSkip(event.Type)
		return
	}
	if event.CandidateIndex < 0 || event.CandidateIndex >= len(a.session.Candidates) {
		a.renderState(ctx, "That selection is no longer available.")
		return
	}
	candidate := a.session.Candidates[event.CandidateIndex]

	userInfo := ""
	switch err := a.session.AddToRoster(candidate); {
	case errors.Is(err, domain.ErrLobbyFull):
		userInfo = "Lobby is already full."
	case errors.Is(err, domain.ErrAlreadyJoined):
		userInfo = fmt.Sprintf("%s's owner is already in the lobby.", candidate.Name)
	case err != nil:
		userInfo = "Couldn't add that character."
	}
	if err := a.refreshCandidates(ctx); err != nil {
		log.Printf("lobby %s: list candidates: %v", a.session.ID, err)
	}
	a.renderState(ctx, userInfo)
}

func (a *Actor) handlePlayerRemove(ctx context.Context, event domain.Event) {
	if a.session.State != domain.StateCollectingPlayers {
		a.logSkip(event.Type)
		return
	}
	userInfo := ""
	if _, err := a.session.RemoveFromRosterAt(event.SlotIndex); err != nil {
		userInfo = "That slot is already empty."
	}
	if err := a.refreshCandidates(ctx); err != nil {
		log.Printf("lobby %s: list candidates: %v", a.session.ID, err)
	}
	a.renderState(ctx, userInfo)
}

// handlePublish freezes the candidate list, persists the session, and arms
// the timer chain. The store write happens before any in-memory state
// advances, so a persistence failure leaves the lobby collecting players and
// the user free to retry.
func (a *Actor) handlePublish(ctx context.Context, next domain.WorkflowState) {
	if a.session.State != domain.StateCollectingPlayers {
		a.logSkip(domain.EventPublishPrivate)
		return
	}

	if err := a.deps.Store.SaveSession(ctx, a.snapshotRecord()); err != nil {
		log.Printf("lobby %s: save session: %v", a.session.ID, err)
		a.renderState(ctx, "Couldn't publish the lobby. Try again.")
		return
	}
	for _, member := range a.session.Roster {
		err := a.deps.Store.AddRosterMember(ctx, a.session.ID, member)
		if err != nil && !errors.Is(err, storage.ErrAlreadyExists) {
			log.Printf("lobby %s: persist roster member %s: %v", a.session.ID, member.Name, err)
		}
	}

	a.session.State = next
	a.session.Candidates = nil
	a.InstallTimer()
	a.renderState(ctx, "")
}

func (a *Actor) handleExternalJoin(ctx context.Context, event domain.Event) {
	if !a.session.State.Finalized() {
		a.logSkip(event.Type)
		return
	}
	if a.session.Full() {
		a.renderState(ctx, "Lobby is already full. Wait for someone else to leave.")
		return
	}
	if a.session.HasParticipant(event.UserID) {
		a.renderState(ctx, "You are already in the lobby.")
		return
	}

	character, err := a.deps.Store.GetCharacter(ctx, a.session.GuildID, event.CharacterName)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.renderState(ctx, "No such character is registered in this guild.")
		return
	case err != nil:
		log.Printf("lobby %s: get character %q: %v", a.session.ID, event.CharacterName, err)
		a.renderState(ctx, "Couldn't look up that character. Try again.")
		return
	}
	if character.OwnerID != event.UserID {
		a.renderState(ctx, "You can only join with your own character.")
		return
	}
	if character.ItemLevel < a.session.Content.MinItemLevel {
		a.renderState(ctx, fmt.Sprintf("%s is below the required item level %d.", character.Name, a.session.Content.MinItemLevel))
		return
	}

	if err := a.deps.Store.AddRosterMember(ctx, a.session.ID, character); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			a.renderState(ctx, "That character is already in the lobby.")
			return
		}
		log.Printf("lobby %s: persist join: %v", a.session.ID, err)
		a.renderState(ctx, "Couldn't save your join. Try again.")
		return
	}
	if err := a.session.AddToRoster(character); err != nil {
		// The persist succeeded but the in-memory add was rejected; undo the
		// row so storage matches memory again.
		log.Printf("lobby %s: roster add after persist: %v", a.session.ID, err)
		if undoErr := a.deps.Store.RemoveRosterMember(ctx, a.session.ID, character.Name); undoErr != nil {
			log.Printf("lobby %s: undo roster persist: %v", a.session.ID, undoErr)
		}
		a.renderState(ctx, "Couldn't add your character.")
		return
	}
	a.renderState(ctx, "")
}

func (a *Actor) handleExternalLeave(ctx context.Context, event domain.Event) {
	if !a.session.State.Finalized() {
		a.logSkip(event.Type)
		return
	}
	var member domain.Character
	found := false
	for _, candidate := range a.session.Roster {
		if candidate.OwnerID == event.UserID {
			member = candidate
			found = true
			break
		}
	}
	if !found {
		a.renderState(ctx, "You are not in the lobby.")
		return
	}

	err := a.deps.Store.RemoveRosterMember(ctx, a.session.ID, member.Name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		log.Printf("lobby %s: persist leave: %v", a.session.ID, err)
		a.renderState(ctx, "Couldn't save your leave. Try again.")
		return
	}
	if _, err := a.session.RemoveParticipant(event.UserID); err != nil {
		a.renderState(ctx, "You are not in the lobby.")
		return
	}
	a.renderState(ctx, "")
}

func (a *Actor) handleScheduleChanged(ctx context.Context, event domain.Event) {
	if !a.session.State.Finalized() {
		a.logSkip(event.Type)
		return
	}
	if err := a.session.CheckGuild(event.GuildID); err != nil {
		log.Printf("lobby %s: reschedule from guild %s: %v", a.session.ID, event.GuildID, err)
		return
	}

	scheduled := event.Schedule.UTC()
	if err := a.deps.Store.UpdateSchedule(ctx, a.session.ID, &scheduled); err != nil {
		log.Printf("lobby %s: persist schedule: %v", a.session.ID, err)
		a.renderState(ctx, "Couldn't save the new time. Try again.")
		return
	}

	a.session.Schedule = &scheduled
	// Replace semantics: the old chain must die before the new one arms,
	// otherwise a stale reminder can still fire.
	a.chain.Cancel()
	a.InstallTimer()
	a.renderState(ctx, "")
	a.notifyRoster(ctx, render.NoticeRescheduled)
}

func (a *Actor) handleReminderDue(ctx context.Context) {
	if !a.session.State.Finalized() || a.session.Schedule == nil {
		return
	}
	a.notifyRoster(ctx, render.NoticeReminder)
}

func (a *Actor) handleClose(ctx context.Context, event domain.Event) bool {
	if err := a.session.CheckGuild(event.GuildID); err != nil {
		log.Printf("lobby %s: close from guild %s: %v", a.session.ID, event.GuildID, err)
		return false
	}
	if err := a.deps.Store.MarkInactive(ctx, a.session.ID); err != nil {
		log.Printf("lobby %s: mark inactive: %v", a.session.ID, err)
	}
	a.terminate(ctx, "Lobby is closed.")
	return true
}

func (a *Actor) handleExpire(ctx context.Context) bool {
	if err := a.deps.Store.MarkInactive(ctx, a.session.ID); err != nil {
		log.Printf("lobby %s: mark inactive: %v", a.session.ID, err)
	}
	a.terminate(ctx, "")
	return true
}

// terminate runs the destroyed transition: the session goes read-only, the
// timer chain dies, the lobby deregisters, and the mailbox stops accepting
// events. Late sends surface as stale-lobby errors at the router.
func (a *Actor) terminate(ctx context.Context, userInfo string) {
	a.session.Active = false
	a.chain.Cancel()
	if userInfo != "" {
		a.renderState(ctx, userInfo)
	}
	if a.deps.OnTerminate != nil {
		a.deps.OnTerminate(a.session.ID)
	}
	a.mailbox.Close()
}

func (a *Actor) refreshCandidates(ctx context.Context) error {
	if a.session.Content == nil {
		return nil
	}
	candidates, err := a.deps.Store.ListEligibleCandidates(
		ctx,
		a.session.GuildID,
		a.session.Content.MinItemLevel,
		a.session.RosterOwners(),
	)
	if err != nil {
		a.session.Candidates = nil
		return err
	}
	a.session.Candidates = candidates
	return nil
}

func (a *Actor) renderState(ctx context.Context, userInfo string) {
	view := render.BuildView(a.session)
	view.Info = userInfo
	if err := a.deps.Presenter.Render(ctx, view); err != nil {
		log.Printf("lobby %s: render: %v", a.session.ID, err)
	}
}

func (a *Actor) notifyRoster(ctx context.Context, noticeType render.NoticeType) {
	owners := a.session.RosterOwners()
	if len(owners) == 0 || a.session.Schedule == nil || a.session.Content == nil {
		return
	}
	notice := render.Notice{
		Type:        noticeType,
		LobbyID:     a.session.ID,
		GuildID:     a.session.GuildID,
		ContentName: a.session.Content.Name,
		Scheduled:   *a.session.Schedule,
	}
	if err := a.deps.Presenter.Notify(ctx, owners, notice); err != nil {
		log.Printf("lobby %s: notify roster: %v", a.session.ID, err)
	}
}

func (a *Actor) snapshotRecord() storage.SessionRecord {
	record := storage.SessionRecord{
		ID:        a.session.ID,
		GuildID:   a.session.GuildID,
		ChannelID: a.session.ChannelID,
		MessageID: a.session.MessageID,
		MasterID:  a.session.MasterID,
		CreatedAt: a.session.CreatedAt,
		Scheduled: a.session.Schedule,
		Active:    true,
	}
	if a.session.Content != nil {
		record.ContentKey = a.session.Content.Key
	}
	return record
}

func (a *Actor) logSkip(eventType domain.EventType) {
	log.Printf("lobby %s: event %s not valid in state %s", a.session.ID, eventType, a.session.State)
}
