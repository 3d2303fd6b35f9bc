package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchComment struct {
	Text  string `json:"text"`
	Score int    `json:"score"` // 1..10
}

// VacancyResumeMatch records one scored (vacancy, resume) comparison.
type VacancyResumeMatch struct {
	ID            uuid.UUID                         `gorm:"type:uuid;primaryKey" json:"id"`
	VacancyID     uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex:idx_match_vacancy_resume" json:"vacancy_id"`
	ResumeID      uuid.UUID                         `gorm:"type:uuid;not null;uniqueIndex:idx_match_vacancy_resume" json:"resume_id"`
	Score         int                               `gorm:"column:score;not null" json:"score"` // 1..10
	IsRecommended bool                              `gorm:"column:is_recommended;not null;default:false" json:"is_recommended"`
	Comments      datatypes.JSONSlice[MatchComment] `gorm:"type:jsonb;column:comments" json:"comments"`
	CreatedAt     time.Time                         `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt     time.Time                         `gorm:"not null;default:now()" json:"updated_at"`
}

func (VacancyResumeMatch) TableName() string { return "job_matcher_matches" }
