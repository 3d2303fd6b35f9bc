package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type TrackTask struct {
	ID               uuid.UUID                        `gorm:"type:uuid;primaryKey" json:"id"`
	BaseTrackFile    string                           `gorm:"column:base_track_file;not null" json:"base_track_file"`
	LangCode         string                           `gorm:"column:lang_code;size:10;not null" json:"lang_code"`
	Status           string                           `gorm:"column:status;not null;index" json:"status"` // created|in_split_process|split_completed|in_transcript_process|transcript_completed|in_subtitles_process|subtitles_completed|completed|failed
	VocalFile        *string                          `gorm:"column:vocal_file" json:"vocal_file,omitempty"`
	InstrumentalFile *string                          `gorm:"column:instrumental_file" json:"instrumental_file,omitempty"`
	Words            datatypes.JSONSlice[Word]        `gorm:"type:jsonb;column:words" json:"words,omitempty"`
	Subtitles        datatypes.JSONSlice[SubtitleCue] `gorm:"type:jsonb;column:subtitles" json:"subtitles,omitempty"`
	ResultTrackID    *uuid.UUID                       `gorm:"type:uuid;column:result_track_id" json:"result_track_id,omitempty"`
	CreatedAt        time.Time                        `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time                        `gorm:"not null;default:now()" json:"updated_at"`
}

func (TrackTask) TableName() string { return "track_creating_tasks" }
