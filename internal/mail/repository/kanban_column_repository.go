package repository

import (
	"errors"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// kanbanColumnRepository implements KanbanColumnRepository interface
type kanbanColumnRepository struct {
	db *gorm.DB
}

// NewKanbanColumnRepository creates a new instance of kanbanColumnRepository
func NewKanbanColumnRepository(db *gorm.DB) KanbanColumnRepository {
	return &kanbanColumnRepository{db: db}
}

func (r *kanbanColumnRepository) GetColumnsByUserID(userID string) ([]*maildomain.KanbanColumn, error) {
	var columns []*maildomain.KanbanColumn
	err := r.db.Where("user_id = ?", userID).Order("display_order ASC").Find(&columns).Error
	if err != nil {
		return nil, err
	}

	for _, col := range columns {
		if col.RemoveLabelIDs == nil {
			col.RemoveLabelIDs = maildomain.StringArray{}
		}
	}
	return columns, nil
}

func (r *kanbanColumnRepository) GetColumnByID(userID, columnID string) (*maildomain.KanbanColumn, error) {
	var column maildomain.KanbanColumn
	err := r.db.Where("user_id = ? AND column_id = ?", userID, columnID).First(&column).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &column, nil
}

func (r *kanbanColumnRepository) CreateColumn(column *maildomain.KanbanColumn) error {
	if column.ID == "" {
		column.ID = uuid.New().String()
	}
	column.CreatedAt = time.Now()
	column.UpdatedAt = time.Now()

	if column.RemoveLabelIDs == nil {
		column.RemoveLabelIDs = maildomain.StringArray{}
	}
	return r.db.Create(column).Error
}

func (r *kanbanColumnRepository) UpdateColumn(column *maildomain.KanbanColumn) error {
	column.UpdatedAt = time.Now()

	if column.RemoveLabelIDs == nil {
		column.RemoveLabelIDs = maildomain.StringArray{}
	}
	return r.db.Save(column).Error
}

func (r *kanbanColumnRepository) DeleteColumn(userID, columnID string) error {
	return r.db.Where("user_id = ? AND column_id = ?", userID, columnID).Delete(&maildomain.KanbanColumn{}).Error
}

func (r *kanbanColumnRepository) UpdateColumnOrders(userID string, orders map[string]int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		for columnID, orderVal := range orders {
			err := tx.Model(&maildomain.KanbanColumn{}).
				Where("user_id = ? AND column_id = ?", userID, columnID).
				Update("display_order", orderVal).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
