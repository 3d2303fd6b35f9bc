package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aikhq/aik-backend/internal/clients/openai"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/types"
)

type VacancyData struct {
	Company            *string            `json:"company"`
	JobTitle           *string            `json:"job_title"`
	SpecialistType     string             `json:"specialist_type"`
	WorkFormat         string             `json:"work_format"`
	Grade              string             `json:"grade"`
	ExperienceRequired int                `json:"experience_required"`
	Salary             *types.Salary      `json:"salary"`
	Technologies       []types.Technology `json:"technologies"`
	Skills             []types.Skill      `json:"skills"`
}

type VacancyExtraction struct {
	IsVacancy bool                   `json:"is_vacancy"`
	Vacancy   *VacancyData           `json:"vacancy"`
	Metainfo  map[string]interface{} `json:"metainfo,omitempty"`
}

type ResumeData struct {
	Employee       *string                  `json:"employee"`
	SpecialistType string                   `json:"specialist_type"`
	Grade          string                   `json:"grade"`
	Experience     int                      `json:"experience"`
	Salary         *types.Salary            `json:"salary"`
	Technologies   []types.ResumeTechnology `json:"technologies"`
	Skills         []types.ResumeSkill      `json:"skills"`
}

type ResumeExtraction struct {
	IsResume bool                   `json:"is_resume"`
	Resume   *ResumeData            `json:"resume"`
	Metainfo map[string]interface{} `json:"metainfo,omitempty"`
}

type MatchResult struct {
	Score    int                    `json:"score"` // 1..10
	Comments []types.MatchComment   `json:"comments"`
	Metainfo map[string]interface{} `json:"metainfo,omitempty"`
}

type DuplicateResult struct {
	ProbabilityScore int                    `json:"probability_score"` // 1..10
	Metainfo         map[string]interface{} `json:"metainfo,omitempty"`
}

// LLMService structures free text and scores vacancy/resume pairs.
type LLMService interface {
	ExtractVacancy(ctx context.Context, text string) (*VacancyExtraction, error)
	ExtractResume(ctx context.Context, text string) (*ResumeExtraction, error)
	MatchVacancyAndResume(ctx context.Context, vacancyText, resumeText string) (*MatchResult, error)
	CheckVacancyDuplicate(ctx context.Context, textA, textB string) (*DuplicateResult, error)
}

type openaiLLMService struct {
	log *logger.Logger
	ai  openai.Client
}

func NewOpenAILLMService(log *logger.Logger, ai openai.Client) LLMService {
	return &openaiLLMService{
		log: log.With("service", "OpenAILLMService"),
		ai:  ai,
	}
}

const (
	extractVacancySystem = "You analyze IT job postings. Decide whether the text is a job vacancy and, if so, extract its structured attributes. Use lowercase enum values exactly as defined in the schema."
	extractResumeSystem  = "You analyze IT resumes. Decide whether the text is a resume and, if so, extract its structured attributes. Use lowercase enum values exactly as defined in the schema."
	matchSystem          = "You compare an IT job vacancy with a candidate resume. Score overall fit from 1 (no fit) to 10 (perfect fit) and explain the score with short scored comments."
	duplicateSystem      = "You compare two IT job vacancy texts. Score the probability that they describe the same position from 1 (clearly different) to 10 (clearly the same)."
)

func (s *openaiLLMService) ExtractVacancy(ctx context.Context, text string) (*VacancyExtraction, error) {
	var out VacancyExtraction
	usage, err := s.generate(ctx, extractVacancySystem, text, "vacancy_extraction", vacancyExtractionSchema(), &out)
	if err != nil {
		return nil, err
	}
	out.Metainfo = usageMetainfo(usage)
	if out.IsVacancy && out.Vacancy == nil {
		return nil, apperr.Validation("vacancy_extraction_invalid", "is_vacancy set without vacancy payload")
	}
	return &out, nil
}

func (s *openaiLLMService) ExtractResume(ctx context.Context, text string) (*ResumeExtraction, error) {
	var out ResumeExtraction
	usage, err := s.generate(ctx, extractResumeSystem, text, "resume_extraction", resumeExtractionSchema(), &out)
	if err != nil {
		return nil, err
	}
	out.Metainfo = usageMetainfo(usage)
	if out.IsResume && out.Resume == nil {
		return nil, apperr.Validation("resume_extraction_invalid", "is_resume set without resume payload")
	}
	return &out, nil
}

func (s *openaiLLMService) MatchVacancyAndResume(ctx context.Context, vacancyText, resumeText string) (*MatchResult, error) {
	user := fmt.Sprintf("VACANCY:\n%s\n\nRESUME:\n%s", vacancyText, resumeText)
	var out MatchResult
	usage, err := s.generate(ctx, matchSystem, user, "vacancy_resume_match", matchSchema(), &out)
	if err != nil {
		return nil, err
	}
	if out.Score < 1 || out.Score > 10 {
		return nil, apperr.Validation("match_score_out_of_range", fmt.Sprintf("score %d outside 1..10", out.Score))
	}
	out.Metainfo = usageMetainfo(usage)
	return &out, nil
}

func (s *openaiLLMService) CheckVacancyDuplicate(ctx context.Context, textA, textB string) (*DuplicateResult, error) {
	user := fmt.Sprintf("VACANCY A:\n%s\n\nVACANCY B:\n%s", textA, textB)
	var out DuplicateResult
	usage, err := s.generate(ctx, duplicateSystem, user, "vacancy_duplicate_check", duplicateSchema(), &out)
	if err != nil {
		return nil, err
	}
	if out.ProbabilityScore < 1 || out.ProbabilityScore > 10 {
		return nil, apperr.Validation("duplicate_score_out_of_range", fmt.Sprintf("score %d outside 1..10", out.ProbabilityScore))
	}
	out.Metainfo = usageMetainfo(usage)
	return &out, nil
}

func (s *openaiLLMService) generate(ctx context.Context, system, user, schemaName string, schema map[string]any, out interface{}) (*openai.Usage, error) {
	obj, usage, err := s.ai.GenerateJSON(ctx, system, user, schemaName, schema)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProvider, "llm_request_failed", err)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "llm_response_invalid", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "llm_response_invalid", err)
	}
	return usage, nil
}

func usageMetainfo(usage *openai.Usage) map[string]interface{} {
	if usage == nil {
		return nil
	}
	return map[string]interface{}{
		"model":         usage.Model,
		"input_tokens":  usage.InputTokens,
		"output_tokens": usage.OutputTokens,
	}
}

// --- JSON schemas ---

func enumSchema(values ...string) map[string]any {
	vals := make([]any, 0, len(values))
	for _, v := range values {
		vals = append(vals, v)
	}
	return map[string]any{"type": "string", "enum": vals}
}

func specialistTypeSchema() map[string]any {
	return enumSchema(
		types.SpecialistFrontend, types.SpecialistBackend, types.SpecialistFullstack,
		types.SpecialistAnalyst, types.SpecialistDevops, types.SpecialistQA,
		types.SpecialistAutomaticQA, types.SpecialistDesigner, types.SpecialistOther,
	)
}

func gradeSchema() map[string]any {
	return enumSchema(types.GradeJunior, types.GradeMiddle, types.GradeSenior, types.GradePrinciple, types.GradeLead)
}

func salarySchema() map[string]any {
	return map[string]any{
		"type": []any{"object", "null"},
		"properties": map[string]any{
			"salary_from":  map[string]any{"type": []any{"integer", "null"}},
			"salary_to":    map[string]any{"type": []any{"integer", "null"}},
			"currency":     map[string]any{"type": "string"},
			"tax_included": map[string]any{"type": "boolean"},
		},
		"required":             []any{"salary_from", "salary_to", "currency", "tax_included"},
		"additionalProperties": false,
	}
}

func skillListSchema(withRequired bool) map[string]any {
	props := map[string]any{
		"name":  map[string]any{"type": "string"},
		"level": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
	}
	required := []any{"name", "level"}
	if withRequired {
		props["required"] = map[string]any{"type": "boolean"}
		required = append(required, "required")
	}
	return map[string]any{
		"type": "array",
		"items": map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		},
	}
}

func vacancyExtractionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_vacancy": map[string]any{"type": "boolean"},
			"vacancy": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"company":             map[string]any{"type": []any{"string", "null"}},
					"job_title":           map[string]any{"type": []any{"string", "null"}},
					"specialist_type":     specialistTypeSchema(),
					"work_format":         enumSchema(types.WorkFormatOffice, types.WorkFormatRemote, types.WorkFormatHybrid),
					"grade":               gradeSchema(),
					"experience_required": map[string]any{"type": "integer"},
					"salary":              salarySchema(),
					"technologies":        skillListSchema(true),
					"skills":              skillListSchema(true),
				},
				"required": []any{
					"company", "job_title", "specialist_type", "work_format",
					"grade", "experience_required", "salary", "technologies", "skills",
				},
				"additionalProperties": false,
			},
		},
		"required":             []any{"is_vacancy", "vacancy"},
		"additionalProperties": false,
	}
}

func resumeExtractionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_resume": map[string]any{"type": "boolean"},
			"resume": map[string]any{
				"type": []any{"object", "null"},
				"properties": map[string]any{
					"employee":        map[string]any{"type": []any{"string", "null"}},
					"specialist_type": specialistTypeSchema(),
					"grade":           gradeSchema(),
					"experience":      map[string]any{"type": "integer"},
					"salary":          salarySchema(),
					"technologies":    skillListSchema(false),
					"skills":          skillListSchema(false),
				},
				"required": []any{
					"employee", "specialist_type", "grade", "experience",
					"salary", "technologies", "skills",
				},
				"additionalProperties": false,
			},
		},
		"required":             []any{"is_resume", "resume"},
		"additionalProperties": false,
	}
}

func matchSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
			"comments": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"text":  map[string]any{"type": "string"},
						"score": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
					},
					"required":             []any{"text", "score"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"score", "comments"},
		"additionalProperties": false,
	}
}

func duplicateSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"probability_score": map[string]any{"type": "integer", "minimum": 1, "maximum": 10},
		},
		"required":             []any{"probability_score"},
		"additionalProperties": false,
	}
}

// dummyLLMService is a deterministic stand-in for development environments
// without an OpenAI key (JOB_MATCHER_LLM=dummy).
type dummyLLMService struct{}

func NewDummyLLMService() LLMService { return dummyLLMService{} }

func (dummyLLMService) ExtractVacancy(ctx context.Context, text string) (*VacancyExtraction, error) {
	if strings.TrimSpace(text) == "" {
		return &VacancyExtraction{IsVacancy: false}, nil
	}
	return &VacancyExtraction{
		IsVacancy: true,
		Vacancy: &VacancyData{
			SpecialistType:     types.SpecialistBackend,
			WorkFormat:         types.WorkFormatRemote,
			Grade:              types.GradeMiddle,
			ExperienceRequired: 3,
		},
	}, nil
}

func (dummyLLMService) ExtractResume(ctx context.Context, text string) (*ResumeExtraction, error) {
	if strings.TrimSpace(text) == "" {
		return &ResumeExtraction{IsResume: false}, nil
	}
	return &ResumeExtraction{
		IsResume: true,
		Resume: &ResumeData{
			SpecialistType: types.SpecialistBackend,
			Grade:          types.GradeMiddle,
			Experience:     3,
		},
	}, nil
}

func (dummyLLMService) MatchVacancyAndResume(ctx context.Context, vacancyText, resumeText string) (*MatchResult, error) {
	return &MatchResult{
		Score:    5,
		Comments: []types.MatchComment{{Text: "dummy comparison", Score: 5}},
	}, nil
}

func (dummyLLMService) CheckVacancyDuplicate(ctx context.Context, textA, textB string) (*DuplicateResult, error) {
	score := 1
	if strings.TrimSpace(textA) == strings.TrimSpace(textB) {
		score = 10
	}
	return &DuplicateResult{ProbabilityScore: score}, nil
}
