package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type ResumeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, resume *types.Resume) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Resume, error)
	ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Resume, error)
	SetActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, active bool) error
}

type resumeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewResumeRepo(db *gorm.DB, baseLog *logger.Logger) ResumeRepo {
	return &resumeRepo{db: db, log: baseLog.With("repo", "ResumeRepo")}
}

func (r *resumeRepo) Create(ctx context.Context, tx *gorm.DB, resume *types.Resume) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(resume).Error
}

func (r *resumeRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Resume, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var resume types.Resume
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&resume).Error
	if err != nil {
		return nil, err
	}
	if resume.ID == uuid.Nil {
		return nil, nil
	}
	return &resume, nil
}

func (r *resumeRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]*types.Resume, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Resume
	err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *resumeRepo) SetActive(ctx context.Context, tx *gorm.DB, id uuid.UUID, active bool) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Resume{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "updated_at": time.Now()}).Error
}
