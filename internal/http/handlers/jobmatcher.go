package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/http/response"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

type JobMatcherHandler struct {
	log       *logger.Logger
	vacancies repos.VacancyRepo
	resumes   repos.ResumeRepo
	matches   repos.MatchRepo
	llm       services.LLMService
}

func NewJobMatcherHandler(log *logger.Logger, vacancies repos.VacancyRepo, resumes repos.ResumeRepo,
	matches repos.MatchRepo, llm services.LLMService) *JobMatcherHandler {
	return &JobMatcherHandler{
		log:       log.With("handler", "JobMatcherHandler"),
		vacancies: vacancies,
		resumes:   resumes,
		matches:   matches,
		llm:       llm,
	}
}

type createVacancyRequest struct {
	Text       string  `json:"text" binding:"required"`
	SourceType string  `json:"source_type"`
	SourceID   *string `json:"source_id"`
}

func (h *JobMatcherHandler) CreateVacancy(c *gin.Context) {
	var req createVacancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.SourceType == "" {
		req.SourceType = types.SourceTypeManual
	}

	extraction, err := h.llm.ExtractVacancy(c.Request.Context(), req.Text)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if !extraction.IsVacancy {
		response.RespondError(c, http.StatusUnprocessableEntity, "not_a_vacancy",
			fmt.Errorf("text does not describe a job vacancy"))
		return
	}

	v := extraction.Vacancy
	vacancy := &types.Vacancy{
		SourceType:         req.SourceType,
		SourceID:           req.SourceID,
		Text:               req.Text,
		Company:            v.Company,
		JobTitle:           v.JobTitle,
		SpecialistType:     v.SpecialistType,
		WorkFormat:         v.WorkFormat,
		Grade:              v.Grade,
		ExperienceRequired: v.ExperienceRequired,
		Salary:             datatypes.NewJSONType(v.Salary),
		Technologies:       datatypes.JSONSlice[types.Technology](v.Technologies),
		Skills:             datatypes.JSONSlice[types.Skill](v.Skills),
	}
	if err := h.vacancies.Create(c.Request.Context(), nil, vacancy); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "vacancy_create_failed", err)
		return
	}
	h.log.Info("vacancy created", "vacancy_id", vacancy.ID, "specialist_type", vacancy.SpecialistType)
	response.RespondCreated(c, vacancy)
}

type createResumeRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *JobMatcherHandler) CreateResume(c *gin.Context) {
	var req createResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}

	extraction, err := h.llm.ExtractResume(c.Request.Context(), req.Text)
	if err != nil {
		response.RespondAppError(c, err)
		return
	}
	if !extraction.IsResume {
		response.RespondError(c, http.StatusUnprocessableEntity, "not_a_resume",
			fmt.Errorf("text does not describe a resume"))
		return
	}

	r := extraction.Resume
	resume := &types.Resume{
		Text:           req.Text,
		Employee:       r.Employee,
		SpecialistType: r.SpecialistType,
		Grade:          r.Grade,
		Experience:     r.Experience,
		Salary:         datatypes.NewJSONType(r.Salary),
		Technologies:   datatypes.JSONSlice[types.ResumeTechnology](r.Technologies),
		Skills:         datatypes.JSONSlice[types.ResumeSkill](r.Skills),
		IsActive:       true,
	}
	if err := h.resumes.Create(c.Request.Context(), nil, resume); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "resume_create_failed", err)
		return
	}
	h.log.Info("resume created", "resume_id", resume.ID, "specialist_type", resume.SpecialistType)
	response.RespondCreated(c, resume)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

func (h *JobMatcherHandler) SetResumeActive(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_resume_id", err)
		return
	}
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	resume, err := h.resumes.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "resume_load_failed", err)
		return
	}
	if resume == nil {
		response.RespondError(c, http.StatusNotFound, "resume_not_found", fmt.Errorf("resume %s not found", id))
		return
	}
	if err := h.resumes.SetActive(c.Request.Context(), nil, id, *req.Active); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "resume_update_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"id": id, "is_active": *req.Active})
}

func (h *JobMatcherHandler) ListMatches(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_vacancy_id", err)
		return
	}
	vacancy, err := h.vacancies.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "vacancy_load_failed", err)
		return
	}
	if vacancy == nil {
		response.RespondError(c, http.StatusNotFound, "vacancy_not_found", fmt.Errorf("vacancy %s not found", id))
		return
	}
	matches, err := h.matches.ListByVacancy(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "matches_load_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"vacancy": vacancy, "matches": matches})
}
