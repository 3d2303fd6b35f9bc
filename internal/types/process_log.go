package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MatchProcessLog is an append-only record of one matcher decision.
type MatchProcessLog struct {
	ID        uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	VacancyID uuid.UUID         `gorm:"type:uuid;not null;index" json:"vacancy_id"`
	ResumeID  *uuid.UUID        `gorm:"type:uuid;index" json:"resume_id,omitempty"`
	Data      datatypes.JSONMap `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt time.Time         `gorm:"not null;default:now();index" json:"created_at"`
}

func (MatchProcessLog) TableName() string { return "job_matcher_match_logs" }

// DuplicateCheckLog is an append-only record of one duplicate-check decision.
type DuplicateCheckLog struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	VacancyID         uuid.UUID         `gorm:"type:uuid;not null;index" json:"vacancy_id"`
	OriginalVacancyID *uuid.UUID        `gorm:"type:uuid" json:"original_vacancy_id,omitempty"`
	Data              datatypes.JSONMap `gorm:"type:jsonb;column:data" json:"data"`
	CreatedAt         time.Time         `gorm:"not null;default:now();index" json:"created_at"`
}

func (DuplicateCheckLog) TableName() string { return "job_matcher_duplicate_check_logs" }
