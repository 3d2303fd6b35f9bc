package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// KaraokeTrack is the finished artifact, created exactly once per task.
type KaraokeTrack struct {
	ID               uuid.UUID                           `gorm:"type:uuid;primaryKey" json:"id"`
	BaseTrackFile    string                              `gorm:"column:base_track_file;not null" json:"base_track_file"`
	VocalFile        string                              `gorm:"column:vocal_file;not null" json:"vocal_file"`
	InstrumentalFile string                              `gorm:"column:instrumental_file;not null" json:"instrumental_file"`
	LangCode         string                              `gorm:"column:lang_code;size:10;not null" json:"lang_code"`
	Transcript       datatypes.JSONSlice[TranscriptLine] `gorm:"type:jsonb;column:transcript" json:"transcript"`
	CreatedAt        time.Time                           `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt        time.Time                           `gorm:"not null;default:now()" json:"updated_at"`
}

func (KaraokeTrack) TableName() string { return "karaoke_tracks" }
