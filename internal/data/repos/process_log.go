package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type MatchProcessLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID, resumeID *uuid.UUID, data map[string]interface{}) error
}

type matchProcessLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMatchProcessLogRepo(db *gorm.DB, baseLog *logger.Logger) MatchProcessLogRepo {
	return &matchProcessLogRepo{db: db, log: baseLog.With("repo", "MatchProcessLogRepo")}
}

func (r *matchProcessLogRepo) Append(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID, resumeID *uuid.UUID, data map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	entry := &types.MatchProcessLog{
		ID:        uuid.New(),
		VacancyID: vacancyID,
		ResumeID:  resumeID,
		Data:      data,
	}
	return transaction.WithContext(ctx).Create(entry).Error
}

type DuplicateCheckLogRepo interface {
	Append(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID, originalVacancyID *uuid.UUID, data map[string]interface{}) error
}

type duplicateCheckLogRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDuplicateCheckLogRepo(db *gorm.DB, baseLog *logger.Logger) DuplicateCheckLogRepo {
	return &duplicateCheckLogRepo{db: db, log: baseLog.With("repo", "DuplicateCheckLogRepo")}
}

func (r *duplicateCheckLogRepo) Append(ctx context.Context, tx *gorm.DB, vacancyID uuid.UUID, originalVacancyID *uuid.UUID, data map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	entry := &types.DuplicateCheckLog{
		ID:                uuid.New(),
		VacancyID:         vacancyID,
		OriginalVacancyID: originalVacancyID,
		Data:              data,
	}
	return transaction.WithContext(ctx).Create(entry).Error
}
