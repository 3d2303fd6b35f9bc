package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type MatchRepo interface {
	Create(ctx context.Context, tx *gorm.DB, match *types.VacancyResumeMatch) error
	ExistsPair(ctx context.Context, tx *gorm.DB, vacancyID, resumeID uuid.UUID) (bool, error)
	ListByVacancy(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID) ([]*types.VacancyResumeMatch, error)
}

type matchRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatchRepo(db *gorm.DB, baseLog *logger.Logger) MatchRepo {
	return &matchRepo{db: db, log: baseLog.With("repo", "MatchRepo")}
}

func (r *matchRepo) Create(ctx context.Context, tx *gorm.DB, match *types.VacancyResumeMatch) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(match).Error
}

func (r *matchRepo) ExistsPair(ctx context.Context, tx *gorm.DB, vacancyID, resumeID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.VacancyResumeMatch{}).
		Where("vacancy_id = ? AND resume_id = ?", vacancyID, resumeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *matchRepo) ListByVacancy(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID) ([]*types.VacancyResumeMatch, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.VacancyResumeMatch
	err := transaction.WithContext(ctx).
		Where("vacancy_id = ?", vacancyID).
		Order("score DESC, created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
