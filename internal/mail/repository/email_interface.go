package repository

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

// EmailRepository defines the interface for the local mail item store
type EmailRepository interface {
	// Create inserts a new email. Returns ErrDuplicateEmail when the
	// (provider message id, user id) pair already exists.
	Create(email *maildomain.Email) error

	// Exists reports whether an email was already ingested for this user.
	Exists(userID, providerMessageID string) (bool, error)

	GetByID(userID, id string) (*maildomain.Email, error)
	GetByProviderMessageID(userID, providerMessageID string) (*maildomain.Email, error)
	ListByStatus(userID, status string, limit, offset int) ([]*maildomain.Email, int, error)

	// UpdateStatus overwrites the workflow status. Only explicit user moves
	// and the snooze sweeper go through status writes; ingestion never does.
	UpdateStatus(userID, emailID, status string) error

	// Snooze parks the email in the snoozed status until the deadline.
	Snooze(userID, emailID string, until time.Time) error

	// ListExpiredSnoozes returns emails still snoozed past their deadline.
	ListExpiredSnoozes(now time.Time) ([]*maildomain.Email, error)

	// ExpireSnooze is a compare-and-set: it transitions the email out of the
	// snoozed status only if it is still snoozed with a deadline at or before
	// now, and reports whether this call performed the transition.
	ExpireSnooze(emailID, targetStatus string, now time.Time) (bool, error)

	MarkRead(userID, emailID string, read bool) error
}
