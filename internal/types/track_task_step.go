package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TrackTaskStep is one retryable unit of work against an external provider.
// A task has at most one non-terminal step per kind.
type TrackTaskStep struct {
	ID          uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID      uuid.UUID         `gorm:"type:uuid;not null;index" json:"task_id"`
	Task        *TrackTask        `gorm:"foreignKey:TaskID" json:"-"`
	Step        string            `gorm:"column:step;not null;index" json:"step"`     // split|transcript|subtitles
	Status      string            `gorm:"column:status;not null;index" json:"status"` // init|in_process|completed|failed|final_failed
	Attempts    int               `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Data        datatypes.JSONMap `gorm:"type:jsonb;column:data" json:"data"`
	ProcessedAt *time.Time        `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrackTaskStep) TableName() string { return "track_creating_task_steps" }
