package domain

import "time"

// SyncState is the per-user cursor into the provider's change log. It is
// seeded once by the watch registration and only ever advanced by the sync
// orchestrator after a fully successful batch.
type SyncState struct {
	UserID          string     `json:"user_id" gorm:"primaryKey"`
	EmailAddress    string     `json:"email_address" gorm:"uniqueIndex;not null"`
	LatestHistoryID HistoryID  `json:"latest_history_id" gorm:"type:numeric"`
	WatchExpiration *time.Time `json:"watch_expiration,omitempty"` // Gmail watches expire after ~7 days
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
