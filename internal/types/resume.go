package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResumeTechnology struct {
	Name  string `json:"name"`
	Level int    `json:"level"` // 1..10
}

type ResumeSkill struct {
	Name  string `json:"name"`
	Level int    `json:"level"` // 1..10
}

type Resume struct {
	ID             uuid.UUID                             `gorm:"type:uuid;primaryKey" json:"id"`
	Text           string                                `gorm:"type:text;not null" json:"text"`
	Employee       *string                               `gorm:"column:employee" json:"employee,omitempty"`
	SpecialistType string                                `gorm:"column:specialist_type;not null;index" json:"specialist_type"`
	Grade          string                                `gorm:"column:grade;not null" json:"grade"`
	Experience     int                                   `gorm:"column:experience;not null;default:0" json:"experience"`
	Salary         datatypes.JSONType[*Salary]           `gorm:"type:jsonb;column:salary" json:"salary"`
	Technologies   datatypes.JSONSlice[ResumeTechnology] `gorm:"type:jsonb;column:technologies" json:"technologies"`
	Skills         datatypes.JSONSlice[ResumeSkill]      `gorm:"type:jsonb;column:skills" json:"skills"`
	IsActive       bool                                  `gorm:"column:is_active;not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time                             `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time                             `gorm:"not null;default:now()" json:"updated_at"`
}

func (Resume) TableName() string { return "job_matcher_resumes" }
