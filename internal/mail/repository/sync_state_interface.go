package repository

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

// SyncStateRepository defines the interface for the per-user history cursor
type SyncStateRepository interface {
	GetByEmailAddress(emailAddress string) (*maildomain.SyncState, error)
	GetByUserID(userID string) (*maildomain.SyncState, error)

	// Seed stores the cursor returned by a watch registration, but only when
	// the user has no cursor yet; an existing cursor is never overwritten.
	// The watch expiration is refreshed either way.
	Seed(userID, emailAddress string, historyID maildomain.HistoryID, expiration time.Time) error

	// Advance moves the cursor forward. The UPDATE is conditional on the
	// stored value still being below newHistoryID, so the cursor can never
	// go backwards even if serialization is breached. Reports whether the
	// cursor actually moved.
	Advance(userID string, newHistoryID maildomain.HistoryID) (bool, error)

	ClearWatch(userID string) error
	ListExpiringWatches(before time.Time) ([]*maildomain.SyncState, error)
}
