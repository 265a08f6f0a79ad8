package dto

import (
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

type EmailsResponse struct {
	Emails []*maildomain.Email `json:"emails"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
	Total  int                 `json:"total"`
}

type MailboxesResponse struct {
	Mailboxes []*maildomain.Mailbox `json:"mailboxes"`
}

type MoveEmailRequest struct {
	TargetColumnID string `json:"target_column_id" binding:"required"`
	SourceColumnID string `json:"source_column_id"`
}

type SnoozeRequest struct {
	Until time.Time `json:"until" binding:"required"`
}

type MarkReadRequest struct {
	Read bool `json:"read"`
}

type ColumnRequest struct {
	ColumnID       string   `json:"column_id" binding:"required"`
	Name           string   `json:"name" binding:"required"`
	Order          int      `json:"order"`
	GmailLabelID   string   `json:"gmail_label_id"`
	RemoveLabelIDs []string `json:"remove_label_ids"`
}

type ColumnOrdersRequest struct {
	Orders map[string]int `json:"orders" binding:"required"`
}

type WatchResponse struct {
	HistoryID  string    `json:"history_id"`
	Expiration time.Time `json:"expiration"`
}
