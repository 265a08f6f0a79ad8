package usecase

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

// EmailUsecase is the board-facing application service: watch lifecycle,
// board reads, manual moves, snoozing and column management.
type EmailUsecase interface {
	// StartWatch registers (or renews) the provider watch for the user and
	// seeds the history cursor if the user has none yet. Safe to call on
	// every login.
	StartWatch(userID string) (*maildomain.WatchResult, error)
	StopWatch(userID string) error

	GetEmailsByStatus(userID, status string, limit, offset int) ([]*maildomain.Email, int, error)
	GetEmailByID(userID, emailID string) (*maildomain.Email, error)
	GetAllMailboxes(userID string) ([]*maildomain.Mailbox, error)

	// MoveEmail is a user-initiated drag between columns. The provider's
	// labels are updated first; the local status only changes after the
	// provider accepted the move.
	MoveEmail(userID, emailID, targetColumnID, sourceColumnID string) error

	SnoozeEmail(userID, emailID string, until time.Time) error
	// UnsnoozeEmail wakes the email immediately and returns the column it
	// landed in.
	UnsnoozeEmail(userID, emailID string) (string, error)

	MarkEmailRead(userID, emailID string, read bool) error

	GetKanbanColumns(userID string) ([]*maildomain.KanbanColumn, error)
	CreateKanbanColumn(userID string, column *maildomain.KanbanColumn) error
	UpdateKanbanColumn(userID string, column *maildomain.KanbanColumn) error
	DeleteKanbanColumn(userID, columnID string) error
	UpdateKanbanColumnOrders(userID string, orders map[string]int) error
}
