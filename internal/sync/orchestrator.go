// Package sync implements the incremental synchronization engine: it turns
// "your mailbox changed" notifications into bounded history fetches against
// the mail provider, maps brand-new messages onto the user's board and fans
// the result out to live connections.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log"

	authrepo "mailboard-backend/internal/auth/repository"
	maildomain "mailboard-backend/internal/mail/domain"
	"mailboard-backend/internal/mail/mapper"
	mailrepo "mailboard-backend/internal/mail/repository"
	"mailboard-backend/internal/realtime"

	"golang.org/x/oauth2"
)

// ErrUnknownUser marks a notification for a mailbox that never completed
// watch setup. It is fatal for the event, not the process: the queue message
// is acknowledged and dropped.
var ErrUnknownUser = errors.New("no sync state for mailbox")

// Deliverer is the fan-out side consumed by the orchestrator.
type Deliverer interface {
	Deliver(userID string, event realtime.Event)
}

// PushSender is the optional device-push leg of fan-out (FCM).
type PushSender interface {
	SendNewMail(ctx context.Context, userID string, emails []*maildomain.Email)
}

// Orchestrator drives one sync pass per notification. Passes for the same
// user are serialized through the shared UserLocks; the stored cursor is only
// advanced after every message in the batch has been persisted.
type Orchestrator struct {
	syncStates mailrepo.SyncStateRepository
	emails     mailrepo.EmailRepository
	columns    mailrepo.KanbanColumnRepository
	users      authrepo.UserRepository
	provider   maildomain.MailProvider
	deliverer  Deliverer
	push       PushSender // may be nil
	locks      *UserLocks
}

// NewOrchestrator wires the sync engine.
func NewOrchestrator(
	syncStates mailrepo.SyncStateRepository,
	emails mailrepo.EmailRepository,
	columns mailrepo.KanbanColumnRepository,
	users authrepo.UserRepository,
	provider maildomain.MailProvider,
	deliverer Deliverer,
	locks *UserLocks,
) *Orchestrator {
	return &Orchestrator{
		syncStates: syncStates,
		emails:     emails,
		columns:    columns,
		users:      users,
		provider:   provider,
		deliverer:  deliverer,
		locks:      locks,
	}
}

// SetPushSender wires the optional FCM leg after creation.
func (o *Orchestrator) SetPushSender(p PushSender) {
	o.push = p
}

// HandleNotification processes one change notification. A nil return means
// the notification is fully handled (including silent drops of stale or
// duplicate ones) and may be acknowledged. ErrUnknownUser is permanent.
// Any other error is transient: the caller must not acknowledge, and the
// cursor has not moved.
func (o *Orchestrator) HandleNotification(ctx context.Context, emailAddress string, newHistoryID maildomain.HistoryID) error {
	state, err := o.syncStates.GetByEmailAddress(emailAddress)
	if err != nil {
		return fmt.Errorf("load sync state for %s: %w", emailAddress, err)
	}
	if state == nil {
		log.Printf("[Sync] No sync state for %s, dropping notification", emailAddress)
		return ErrUnknownUser
	}

	// All passes for this user are totally ordered from here on.
	lock := o.locks.Get(state.UserID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a pass that just finished may have advanced
	// the cursor past this notification.
	state, err = o.syncStates.GetByUserID(state.UserID)
	if err != nil {
		return fmt.Errorf("reload sync state: %w", err)
	}
	if state == nil {
		return ErrUnknownUser
	}

	// Idempotency guard: at-least-once delivery and out-of-order arrival
	// both surface as a non-increasing history id.
	if newHistoryID.Cmp(state.LatestHistoryID) <= 0 {
		log.Printf("[Sync] Stale notification for %s (historyId %s <= %s), skipping",
			emailAddress, newHistoryID, state.LatestHistoryID)
		return nil
	}

	newEmails, err := o.ingestRange(ctx, state, newHistoryID)
	if err != nil {
		// Cursor untouched: the next (or redelivered) notification re-derives
		// the same range and the existence check turns the done part into
		// cheap no-ops.
		return err
	}

	moved, err := o.syncStates.Advance(state.UserID, newHistoryID)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	if !moved {
		// Possible only if another writer got in despite the lock; the
		// conditional UPDATE kept the cursor monotonic either way.
		log.Printf("[Sync] Cursor for %s already at or beyond %s", emailAddress, newHistoryID)
	}

	if len(newEmails) > 0 {
		log.Printf("[Sync] Ingested %d new emails for %s (cursor -> %s)", len(newEmails), emailAddress, newHistoryID)
		for _, email := range newEmails {
			o.deliverer.Deliver(state.UserID, realtime.Event{Type: realtime.EventNewEmail, Payload: email})
		}
		if o.push != nil {
			o.push.SendNewMail(ctx, state.UserID, newEmails)
		}
	}
	return nil
}

// ingestRange fetches the history range (latest, new] and persists every
// message added in it that is not already stored. Partial failure aborts the
// whole batch before the cursor moves.
func (o *Orchestrator) ingestRange(ctx context.Context, state *maildomain.SyncState, newHistoryID maildomain.HistoryID) ([]*maildomain.Email, error) {
	user, err := o.users.FindByID(state.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil || user.AccessToken == "" {
		return nil, fmt.Errorf("user %s has no provider credential", state.UserID)
	}
	onRefresh := o.makeTokenUpdateCallback(user.ID)

	records, err := o.provider.GetHistory(ctx, user.AccessToken, user.RefreshToken, state.LatestHistoryID, onRefresh)
	if err != nil {
		return nil, fmt.Errorf("fetch history since %s: %w", state.LatestHistoryID, err)
	}

	rules, err := o.columns.GetColumnsByUserID(state.UserID)
	if err != nil {
		return nil, fmt.Errorf("load column rules: %w", err)
	}

	var newEmails []*maildomain.Email
	seen := make(map[string]struct{})
	for _, record := range records {
		// Records beyond the notified id belong to a later notification;
		// processing stops at the half-open range boundary.
		if record.ID != nil && maildomain.HistoryIDFromBig(record.ID).Cmp(newHistoryID) > 0 {
			continue
		}
		for _, messageID := range record.AddedMessageIDs {
			if _, dup := seen[messageID]; dup {
				continue
			}
			seen[messageID] = struct{}{}

			email, err := o.ingestMessage(ctx, user.ID, user.AccessToken, user.RefreshToken, messageID, rules, onRefresh)
			if err != nil {
				return nil, err
			}
			if email != nil {
				newEmails = append(newEmails, email)
			}
		}
	}
	return newEmails, nil
}

// ingestMessage stores one provider message. Returns (nil, nil) when the
// message was already ingested: existing items are never touched, so a
// status set by the mapper or by a manual move survives every re-sync.
func (o *Orchestrator) ingestMessage(ctx context.Context, userID, accessToken, refreshToken, messageID string, rules []*maildomain.KanbanColumn, onRefresh maildomain.TokenUpdateFunc) (*maildomain.Email, error) {
	exists, err := o.emails.Exists(userID, messageID)
	if err != nil {
		return nil, fmt.Errorf("check message %s: %w", messageID, err)
	}
	if exists {
		return nil, nil
	}

	email, err := o.provider.GetMessage(ctx, accessToken, refreshToken, messageID, onRefresh)
	if err != nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, err)
	}

	email.UserID = userID
	email.ProviderMessageID = messageID
	email.Status = mapper.Map(rules, email.Labels, email.MailboxID)

	if err := o.emails.Create(email); err != nil {
		if errors.Is(err, mailrepo.ErrDuplicateEmail) {
			// Lost a race against another writer; the unique index kept the
			// store consistent.
			return nil, nil
		}
		return nil, fmt.Errorf("persist message %s: %w", messageID, err)
	}
	return email, nil
}

func (o *Orchestrator) makeTokenUpdateCallback(userID string) maildomain.TokenUpdateFunc {
	return func(token *oauth2.Token) error {
		user, err := o.users.FindByID(userID)
		if err != nil {
			return err
		}
		if user == nil {
			return nil
		}
		user.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			user.RefreshToken = token.RefreshToken
		}
		user.TokenExpiry = token.Expiry
		return o.users.Update(user)
	}
}
