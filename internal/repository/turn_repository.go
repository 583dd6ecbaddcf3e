package repository

import (
	"errors"

	"alienx-go/internal/model"

	"gorm.io/gorm"
)

// TurnRepository 定义了问答交互归档记录的持久化操作。
type TurnRepository interface {
	Create(record *model.TurnRecord) error
	FindBySession(sessionID string, limit int) ([]model.TurnRecord, error)
}

type turnRepository struct {
	db *gorm.DB
}

// NewTurnRepository 创建一个新的 TurnRepository 实例。
func NewTurnRepository(db *gorm.DB) TurnRepository {
	return &turnRepository{db: db}
}

// Create 写入一条归档记录。事件重复投递（EventID 冲突）视为成功。
func (r *turnRepository) Create(record *model.TurnRecord) error {
	err := r.db.Create(record).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil
	}
	return err
}

// FindBySession 按时间倒序返回某会话的归档记录。
func (r *turnRepository) FindBySession(sessionID string, limit int) ([]model.TurnRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var records []model.TurnRecord
	err := r.db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
