package repository

import maildomain "mailboard-backend/internal/mail/domain"

// KanbanColumnRepository defines the interface for board column rules
type KanbanColumnRepository interface {
	// GetColumnsByUserID returns the user's columns in display order. This is
	// the rule set the workflow mapper runs against.
	GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error)
	GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error)
	CreateColumn(column *maildomain.KanbanColumn) error
	UpdateColumn(column *maildomain.KanbanColumn) error
	DeleteColumn(userID, columnID string) error
	UpdateColumnOrders(userID string, orders map[string]int) error
}
