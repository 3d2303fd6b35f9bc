package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type TrackTaskLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, stepID *uuid.UUID, data map[string]interface{}) error
	ListByTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TrackTaskLog, error)
}

type trackTaskLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackTaskLogRepo(db *gorm.DB, baseLog *logger.Logger) TrackTaskLogRepo {
	return &trackTaskLogRepo{db: db, log: baseLog.With("repo", "TrackTaskLogRepo")}
}

func (r *trackTaskLogRepo) Append(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, stepID *uuid.UUID, data map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	entry := &types.TrackTaskLog{
		ID:     uuid.New(),
		TaskID: taskID,
		StepID: stepID,
		Data:   data,
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

func (r *trackTaskLogRepo) ListByTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TrackTaskLog, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TrackTaskLog
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
