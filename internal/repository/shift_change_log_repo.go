package repository

import (
	"context"

	"gorm.io/gorm"

	"shift-market/backend/internal/model"
)

// ShiftChangeLogRepository 班次归属变更日志数据访问接口
type ShiftChangeLogRepository interface {
	Create(ctx context.Context, log *model.ShiftChangeLog) error
	ListByRequest(ctx context.Context, requestID string) ([]model.ShiftChangeLog, error)
}

type shiftChangeLogRepo struct {
	db *gorm.DB
}

// NewShiftChangeLogRepo 创建 ShiftChangeLogRepository 实例
func NewShiftChangeLogRepo(db *gorm.DB) ShiftChangeLogRepository {
	return &shiftChangeLogRepo{db: db}
}

func (r *shiftChangeLogRepo) Create(ctx context.Context, log *model.ShiftChangeLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *shiftChangeLogRepo) ListByRequest(ctx context.Context, requestID string) ([]model.ShiftChangeLog, error) {
	var logs []model.ShiftChangeLog
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
