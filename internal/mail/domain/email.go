package domain

import (
	"context"
	"math/big"
	"time"

	"golang.org/x/oauth2"
)

// TokenUpdateFunc is invoked whenever the provider's oauth token source
// refreshes the access token, so the new token can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// Email is a mail item ingested from the provider, placed on the user's
// board. (ProviderMessageID, UserID) is unique: re-ingestion is a no-op.
// Status is written exactly once at ingestion time by the workflow mapper
// and afterwards only by an explicit user move or the snooze sweeper.
type Email struct {
	ID                string      `json:"id" gorm:"primaryKey"`
	UserID            string      `json:"user_id" gorm:"index;uniqueIndex:idx_provider_msg_user;not null"`
	ProviderMessageID string      `json:"provider_message_id" gorm:"uniqueIndex:idx_provider_msg_user;not null"`
	Subject           string      `json:"subject"`
	From              string      `json:"from"`
	FromName          string      `json:"from_name"`
	To                StringArray `json:"to" gorm:"type:text"`
	Preview           string      `json:"preview" gorm:"type:text"`
	Body              string      `json:"body" gorm:"type:text"`
	IsHTML            bool        `json:"is_html"`
	ReceivedAt        time.Time   `json:"received_at"`
	IsRead            bool        `json:"is_read"`
	Labels            StringArray `json:"labels" gorm:"type:text"`
	Status            string      `json:"status" gorm:"index;not null"`
	SnoozedUntil      *time.Time  `json:"snoozed_until,omitempty"`
	MailboxID         string      `json:"mailbox_id"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// HasLabel reports whether the provider label set contains the given id.
func (e *Email) HasLabel(labelID string) bool {
	for _, l := range e.Labels {
		if l == labelID {
			return true
		}
	}
	return false
}

// Mailbox is a provider folder/label, exposed read-only to clients.
type Mailbox struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Attachment metadata carried on an ingested email.
type Attachment struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	MimeType  string `json:"mime_type"`
	ContentID string `json:"content_id,omitempty"`
}

// WatchResult is the provider's answer to a watch registration.
type WatchResult struct {
	HistoryID  HistoryID
	Expiration time.Time
}

// HistoryRecord is one entry of the provider's change log. Only message
// additions matter to the sync engine; label changes are ignored.
type HistoryRecord struct {
	ID              *big.Int
	AddedMessageIDs []string
}

// MailProvider is the external mail service the ingestion adapter talks to.
type MailProvider interface {
	Watch(ctx context.Context, accessToken, refreshToken, topicName string, onTokenRefresh TokenUpdateFunc) (*WatchResult, error)
	StopWatch(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) error
	// GetHistory returns change-log records strictly after sinceHistoryID.
	GetHistory(ctx context.Context, accessToken, refreshToken string, sinceHistoryID HistoryID, onTokenRefresh TokenUpdateFunc) ([]HistoryRecord, error)
	GetMessage(ctx context.Context, accessToken, refreshToken, messageID string, onTokenRefresh TokenUpdateFunc) (*Email, error)
	GetMailboxes(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) ([]*Mailbox, error)
	ModifyMessageLabels(ctx context.Context, accessToken, refreshToken, messageID string, addLabelIDs, removeLabelIDs []string, onTokenRefresh TokenUpdateFunc) error
}
