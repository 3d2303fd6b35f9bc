package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// TrackTaskLog is an append-only audit record. Never updated after write.
type TrackTaskLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TaskID    uuid.UUID         `gorm:"type:uuid;not null;index" json:"task_id"`
	StepID    *uuid.UUID        `gorm:"type:uuid;index" json:"step_id,omitempty"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt time.Time         `gorm:"not null;default:now();index" json:"created_at"`
}

func (TrackTaskLog) TableName() string { return "track_creating_task_logs" }
