package repository

import (
	"errors"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateEmail is returned when an email with the same
// (provider message id, user id) pair was already ingested.
var ErrDuplicateEmail = errors.New("email already ingested")

type emailRepository struct {
	db *gorm.DB
}

// NewEmailRepository creates a new instance of emailRepository
func NewEmailRepository(db *gorm.DB) EmailRepository {
	return &emailRepository{db: db}
}

func (r *emailRepository) Create(email *maildomain.Email) error {
	if email.ID == "" {
		email.ID = uuid.New().String()
	}
	email.CreatedAt = time.Now()
	email.UpdatedAt = time.Now()

	err := r.db.Create(email).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *emailRepository) Exists(userID, providerMessageID string) (bool, error) {
	var count int64
	err := r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND provider_message_id = ?", userID, providerMessageID).
		Count(&count).Error
	return count > 0, err
}

func (r *emailRepository) GetByID(userID, id string) (*maildomain.Email, error) {
	var email maildomain.Email
	err := r.db.Where("user_id = ? AND id = ?", userID, id).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) GetByProviderMessageID(userID, providerMessageID string) (*maildomain.Email, error) {
	var email maildomain.Email
	err := r.db.Where("user_id = ? AND provider_message_id = ?", userID, providerMessageID).First(&email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

func (r *emailRepository) ListByStatus(userID, status string, limit, offset int) ([]*maildomain.Email, int, error) {
	query := r.db.Model(&maildomain.Email{}).Where("user_id = ? AND status = ?", userID, status)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var emails []*maildomain.Email
	err := query.Order("received_at DESC").Limit(limit).Offset(offset).Find(&emails).Error
	if err != nil {
		return nil, 0, err
	}
	return emails, int(total), nil
}

func (r *emailRepository) UpdateStatus(userID, emailID, status string) error {
	return r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND id = ?", userID, emailID).
		Updates(map[string]interface{}{
			"status":        status,
			"snoozed_until": nil,
			"updated_at":    time.Now(),
		}).Error
}

func (r *emailRepository) Snooze(userID, emailID string, until time.Time) error {
	return r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND id = ?", userID, emailID).
		Updates(map[string]interface{}{
			"status":        maildomain.SnoozedColumnID,
			"snoozed_until": until,
			"updated_at":    time.Now(),
		}).Error
}

func (r *emailRepository) ListExpiredSnoozes(now time.Time) ([]*maildomain.Email, error) {
	var emails []*maildomain.Email
	err := r.db.Where("status = ? AND snoozed_until IS NOT NULL AND snoozed_until <= ?",
		maildomain.SnoozedColumnID, now).Find(&emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// ExpireSnooze uses a single conditional UPDATE so a concurrent user move on
// the same email cannot be overwritten: if the row is no longer snoozed, the
// update matches nothing and the sweep is a no-op for it.
func (r *emailRepository) ExpireSnooze(emailID, targetStatus string, now time.Time) (bool, error) {
	res := r.db.Model(&maildomain.Email{}).
		Where("id = ? AND status = ? AND snoozed_until IS NOT NULL AND snoozed_until <= ?",
			emailID, maildomain.SnoozedColumnID, now).
		Updates(map[string]interface{}{
			"status":        targetStatus,
			"snoozed_until": nil,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *emailRepository) MarkRead(userID, emailID string, read bool) error {
	return r.db.Model(&maildomain.Email{}).
		Where("user_id = ? AND id = ?", userID, emailID).
		Updates(map[string]interface{}{
			"is_read":    read,
			"updated_at": time.Now(),
		}).Error
}
