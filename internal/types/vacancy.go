package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Salary struct {
	SalaryFrom  *int   `json:"salary_from,omitempty"`
	SalaryTo    *int   `json:"salary_to,omitempty"`
	Currency    string `json:"currency"`
	TaxIncluded bool   `json:"tax_included"`
}

type Technology struct {
	Name     string `json:"name"`
	Level    int    `json:"level"` // 1..10
	Required bool   `json:"required,omitempty"`
}

type Skill struct {
	Name     string `json:"name"`
	Level    int    `json:"level"` // 1..10
	Required bool   `json:"required,omitempty"`
}

type Vacancy struct {
	ID                 uuid.UUID                       `gorm:"type:uuid;primaryKey" json:"id"`
	SourceType         string                          `gorm:"column:source_type;not null" json:"source_type"` // tg|manual
	SourceID           *string                         `gorm:"column:source_id" json:"source_id,omitempty"`
	Text               string                          `gorm:"type:text;not null" json:"text"`
	Company            *string                         `gorm:"column:company" json:"company,omitempty"`
	JobTitle           *string                         `gorm:"column:job_title" json:"job_title,omitempty"`
	SpecialistType     string                          `gorm:"column:specialist_type;not null;index" json:"specialist_type"`
	WorkFormat         string                          `gorm:"column:work_format;not null" json:"work_format"`
	Grade              string                          `gorm:"column:grade;not null;index" json:"grade"`
	ExperienceRequired int                             `gorm:"column:experience_required;not null;default:0" json:"experience_required"`
	Salary             datatypes.JSONType[*Salary]     `gorm:"type:jsonb;column:salary" json:"salary"`
	Technologies       datatypes.JSONSlice[Technology] `gorm:"type:jsonb;column:technologies" json:"technologies"`
	Skills             datatypes.JSONSlice[Skill]      `gorm:"type:jsonb;column:skills" json:"skills"`

	// Duplicate detection outcome. A non-null OriginalVacancyID marks this
	// row as a duplicate of an earlier canonical vacancy.
	DuplicateCheckedAt    *time.Time `gorm:"column:duplicate_checked_at;index" json:"duplicate_checked_at,omitempty"`
	DuplicateCheckSuccess *bool      `gorm:"column:duplicate_check_success" json:"duplicate_check_success,omitempty"`
	OriginalVacancyID     *uuid.UUID `gorm:"type:uuid;column:original_vacancy_id" json:"original_vacancy_id,omitempty"`

	// ProcessedAt doubles as the "matching done" flag.
	ProcessedAt *time.Time `gorm:"column:processed_at;index" json:"processed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Vacancy) TableName() string { return "job_matcher_vacancies" }
