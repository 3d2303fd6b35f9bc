package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type TrackTaskRepo interface {
	Create(ctx context.Context, tx *gorm.DB, task *types.TrackTask) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackTask, error)

	// ListByStatusLackingStep is the unlocked claim query for init workers:
	// tasks in the given status that have no step of the given kind yet.
	ListByStatusLackingStep(ctx context.Context, tx *gorm.DB, status, stepKind string, limit int) ([]*types.TrackTask, error)

	// ListForAssembly claims tasks ready for track creation.
	ListForAssembly(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TrackTask, error)

	// LockByIDWithStatus re-reads a task under FOR UPDATE and re-checks the
	// status precondition. Returns (nil, nil) when the row has moved on.
	LockByIDWithStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) (*types.TrackTask, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type trackTaskRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackTaskRepo(db *gorm.DB, baseLog *logger.Logger) TrackTaskRepo {
	return &trackTaskRepo{db: db, log: baseLog.With("repo", "TrackTaskRepo")}
}

func (r *trackTaskRepo) Create(ctx context.Context, tx *gorm.DB, task *types.TrackTask) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = types.TaskStatusCreated
	}
	return transaction.WithContext(ctx).Create(task).Error
}

func (r *trackTaskRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var task types.TrackTask
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == uuid.Nil {
		return nil, nil
	}
	return &task, nil
}

func (r *trackTaskRepo) ListByStatusLackingStep(ctx context.Context, tx *gorm.DB, status, stepKind string, limit int) ([]*types.TrackTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TrackTask
	err := transaction.WithContext(ctx).
		Where("status = ?", status).
		Where(`NOT EXISTS (
			SELECT 1 FROM track_creating_task_steps s
			WHERE s.task_id = track_creating_tasks.id AND s.step = ?
		)`, stepKind).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trackTaskRepo) ListForAssembly(ctx context.Context, tx *gorm.DB, limit int) ([]*types.TrackTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TrackTask
	err := transaction.WithContext(ctx).
		Where("status = ? AND result_track_id IS NULL", types.TaskStatusSubtitlesCompleted).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trackTaskRepo) LockByIDWithStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) (*types.TrackTask, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var task types.TrackTask
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status = ?", id, status).
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == uuid.Nil {
		return nil, nil
	}
	return &task, nil
}

func (r *trackTaskRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.TrackTask{}).
		Where("id = ?", id).
		Updates(updates).Error
}
