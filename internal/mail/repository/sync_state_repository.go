package repository

import (
	"errors"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"gorm.io/gorm"
)

type syncStateRepository struct {
	db *gorm.DB
}

// NewSyncStateRepository creates a new instance of syncStateRepository
func NewSyncStateRepository(db *gorm.DB) SyncStateRepository {
	return &syncStateRepository{db: db}
}

func (r *syncStateRepository) GetByEmailAddress(emailAddress string) (*maildomain.SyncState, error) {
	var state maildomain.SyncState
	err := r.db.Where("email_address = ?", emailAddress).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

func (r *syncStateRepository) GetByUserID(userID string) (*maildomain.SyncState, error) {
	var state maildomain.SyncState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &state, nil
}

// Seed only creates the cursor when the user has none. A re-registered watch
// must not rewind an existing cursor, so an existing row only gets its watch
// expiration refreshed.
func (r *syncStateRepository) Seed(userID, emailAddress string, historyID maildomain.HistoryID, expiration time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing maildomain.SyncState
		err := tx.Where("user_id = ?", userID).First(&existing).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			state := maildomain.SyncState{
				UserID:          userID,
				EmailAddress:    emailAddress,
				LatestHistoryID: historyID,
				WatchExpiration: &expiration,
				CreatedAt:       time.Now(),
				UpdatedAt:       time.Now(),
			}
			return tx.Create(&state).Error
		}

		return tx.Model(&maildomain.SyncState{}).
			Where("user_id = ?", userID).
			Updates(map[string]interface{}{
				"email_address":    emailAddress,
				"watch_expiration": expiration,
				"updated_at":       time.Now(),
			}).Error
	})
}

func (r *syncStateRepository) Advance(userID string, newHistoryID maildomain.HistoryID) (bool, error) {
	res := r.db.Model(&maildomain.SyncState{}).
		Where("user_id = ? AND latest_history_id < ?", userID, newHistoryID.String()).
		Updates(map[string]interface{}{
			"latest_history_id": newHistoryID,
			"updated_at":        time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *syncStateRepository) ClearWatch(userID string) error {
	return r.db.Model(&maildomain.SyncState{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"watch_expiration": nil,
			"updated_at":       time.Now(),
		}).Error
}

func (r *syncStateRepository) ListExpiringWatches(before time.Time) ([]*maildomain.SyncState, error) {
	var states []*maildomain.SyncState
	err := r.db.Where("watch_expiration IS NOT NULL AND watch_expiration <= ?", before).Find(&states).Error
	if err != nil {
		return nil, err
	}
	return states, nil
}
