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

// StepClaim describes the unlocked batch-claim filter of one worker. The
// filters of different workers are disjoint by construction (status set plus
// payload-key presence), so workers never contend on the same row.
type StepClaim struct {
	Kind        string
	Statuses    []string
	MaxAttempts int

	// HasDataKey / LacksDataKey filter on presence of a payload key.
	HasDataKey   string
	LacksDataKey string

	// SubmittedKey names a payload key holding an RFC3339 timestamp that
	// must be older than SubmittedBefore (poll workers only).
	SubmittedKey    string
	SubmittedBefore time.Time

	Limit int
}

type TrackTaskStepRepo interface {
	Create(ctx context.Context, tx *gorm.DB, step *types.TrackTaskStep) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackTaskStep, error)

	// ListClaimable runs the unlocked claim query in deterministic order.
	ListClaimable(ctx context.Context, tx *gorm.DB, claim StepClaim) ([]*types.TrackTaskStep, error)

	// LockByIDInStatuses re-reads a step under FOR UPDATE, re-checking that
	// its status is still one of the expected set. Returns (nil, nil) when
	// the row has been advanced by another process.
	LockByIDInStatuses(ctx context.Context, tx *gorm.DB, id uuid.UUID, statuses []string) (*types.TrackTaskStep, error)

	// GetByTaskAndKind returns the step of a kind for a task in the given
	// statuses, or (nil, nil).
	GetByTaskAndKind(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, kind string, statuses []string) (*types.TrackTaskStep, error)

	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	ListByTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TrackTaskStep, error)
}

type trackTaskStepRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTrackTaskStepRepo(db *gorm.DB, baseLog *logger.Logger) TrackTaskStepRepo {
	return &trackTaskStepRepo{db: db, log: baseLog.With("repo", "TrackTaskStepRepo")}
}

func (r *trackTaskStepRepo) Create(ctx context.Context, tx *gorm.DB, step *types.TrackTaskStep) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	if step.Status == "" {
		step.Status = types.StepStatusInit
	}
	if step.Data == nil {
		step.Data = map[string]interface{}{}
	}
	return transaction.WithContext(ctx).Create(step).Error
}

func (r *trackTaskStepRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.TrackTaskStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var step types.TrackTaskStep
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == uuid.Nil {
		return nil, nil
	}
	return &step, nil
}

func (r *trackTaskStepRepo) ListClaimable(ctx context.Context, tx *gorm.DB, claim StepClaim) ([]*types.TrackTaskStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("step = ?", claim.Kind).
		Where("status IN ?", claim.Statuses).
		Where("attempts < ?", claim.MaxAttempts)
	if claim.HasDataKey != "" {
		q = q.Where("data->>'"+claim.HasDataKey+"' IS NOT NULL")
	}
	if claim.LacksDataKey != "" {
		q = q.Where("data->>'"+claim.LacksDataKey+"' IS NULL")
	}
	if claim.SubmittedKey != "" {
		q = q.Where("data->>'"+claim.SubmittedKey+"' < ?", claim.SubmittedBefore.UTC().Format(time.RFC3339))
	}
	var out []*types.TrackTaskStep
	err := q.Order("created_at ASC, id ASC").
		Limit(claim.Limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *trackTaskStepRepo) LockByIDInStatuses(ctx context.Context, tx *gorm.DB, id uuid.UUID, statuses []string) (*types.TrackTaskStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var step types.TrackTaskStep
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND status IN ?", id, statuses).
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == uuid.Nil {
		return nil, nil
	}
	return &step, nil
}

func (r *trackTaskStepRepo) GetByTaskAndKind(ctx context.Context, tx *gorm.DB, taskID uuid.UUID, kind string, statuses []string) (*types.TrackTaskStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).
		Where("task_id = ? AND step = ?", taskID, kind)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var step types.TrackTaskStep
	err := q.Order("created_at DESC").
		Limit(1).
		Find(&step).Error
	if err != nil {
		return nil, err
	}
	if step.ID == uuid.Nil {
		return nil, nil
	}
	return &step, nil
}

func (r *trackTaskStepRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	return transaction.WithContext(ctx).
		Model(&types.TrackTaskStep{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *trackTaskStepRepo) ListByTask(ctx context.Context, tx *gorm.DB, taskID uuid.UUID) ([]*types.TrackTaskStep, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.TrackTaskStep
	err := transaction.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
