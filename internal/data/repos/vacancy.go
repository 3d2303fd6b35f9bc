package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type VacancyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, vacancy *types.Vacancy) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vacancy, error)

	// ListUnchecked claims vacancies that have never been duplicate-checked.
	ListUnchecked(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Vacancy, error)

	// ListDuplicateCandidates returns canonical vacancies of the same
	// specialist type and grade created within the window preceding v,
	// oldest first.
	ListDuplicateCandidates(ctx context.Context, tx *gorm.DB, v *types.Vacancy, window time.Duration) ([]*types.Vacancy, error)

	// ListForMatching claims canonical, successfully checked vacancies that
	// have not yet been matched against resumes.
	ListForMatching(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Vacancy, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type vacancyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVacancyRepo(db *gorm.DB, baseLog *logger.Logger) VacancyRepo {
	return &vacancyRepo{db: db, log: baseLog.With("repo", "VacancyRepo")}
}

func (r *vacancyRepo) Create(ctx context.Context, tx *gorm.DB, vacancy *types.Vacancy) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if vacancy.ID == uuid.Nil {
		vacancy.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(vacancy).Error
}

func (r *vacancyRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Vacancy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var vacancy types.Vacancy
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&vacancy).Error
	if err != nil {
		return nil, err
	}
	if vacancy.ID == uuid.Nil {
		return nil, nil
	}
	return &vacancy, nil
}

func (r *vacancyRepo) ListUnchecked(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Vacancy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Vacancy
	err := transaction.WithContext(ctx).
		Where("duplicate_checked_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vacancyRepo) ListDuplicateCandidates(ctx context.Context, tx *gorm.DB, v *types.Vacancy, window time.Duration) ([]*types.Vacancy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	windowStart := v.CreatedAt.Add(-window)
	var out []*types.Vacancy
	err := transaction.WithContext(ctx).
		Where("duplicate_checked_at IS NOT NULL").
		Where("duplicate_check_success = ?", true).
		Where("original_vacancy_id IS NULL").
		Where("specialist_type = ? AND grade = ?", v.SpecialistType, v.Grade).
		Where("created_at >= ? AND created_at < ?", windowStart, v.CreatedAt).
		Where("id <> ?", v.ID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vacancyRepo) ListForMatching(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Vacancy, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Vacancy
	err := transaction.WithContext(ctx).
		Where("duplicate_check_success = ?", true).
		Where("processed_at IS NULL").
		Where("original_vacancy_id IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vacancyRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.Vacancy{}).
		Where("id = ?", id).
		Updates(updates).Error
}
