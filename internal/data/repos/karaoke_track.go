package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type KaraokeTrackRepo interface {
	Create(ctx context.Context, tx *gorm.DB, track *types.KaraokeTrack) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KaraokeTrack, error)
}

type karaokeTrackRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewKaraokeTrackRepo(db *gorm.DB, baseLog *logger.Logger) KaraokeTrackRepo {
	return &karaokeTrackRepo{db: db, log: baseLog.With("repo", "KaraokeTrackRepo")}
}

func (r *karaokeTrackRepo) Create(ctx context.Context, tx *gorm.DB, track *types.KaraokeTrack) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if track.ID == uuid.Nil {
		track.ID = uuid.New()
	}
	return transaction.WithContext(ctx).Create(track).Error
}

func (r *karaokeTrackRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.KaraokeTrack, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var track types.KaraokeTrack
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&track).Error
	if err != nil {
		return nil, err
	}
	if track.ID == uuid.Nil {
		return nil, nil
	}
	return &track, nil
}
