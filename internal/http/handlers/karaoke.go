package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/http/response"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/platform/s3"
	"github.com/aikhq/aik-backend/internal/types"
)

type KaraokeHandler struct {
	log    *logger.Logger
	tasks  repos.TrackTaskRepo
	steps  repos.TrackTaskStepRepo
	tracks repos.KaraokeTrackRepo
	store  s3.Store

	presignTTL time.Duration
}

func NewKaraokeHandler(log *logger.Logger, tasks repos.TrackTaskRepo, steps repos.TrackTaskStepRepo,
	tracks repos.KaraokeTrackRepo, store s3.Store, presignTTL time.Duration) *KaraokeHandler {
	return &KaraokeHandler{
		log:        log.With("handler", "KaraokeHandler"),
		tasks:      tasks,
		steps:      steps,
		tracks:     tracks,
		store:      store,
		presignTTL: presignTTL,
	}
}

// CreateTask accepts a multipart audio upload and opens a pipeline task.
func (h *KaraokeHandler) CreateTask(c *gin.Context) {
	langCode := c.PostForm("lang_code")
	if langCode == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_lang_code", fmt.Errorf("lang_code form field required"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_file", err)
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_file", err)
		return
	}

	taskID := uuid.New()
	key := fmt.Sprintf("jobs/%s/original%s", taskID, path.Ext(fileHeader.Filename))
	if _, err := h.store.Upload(c.Request.Context(), content, key, fileHeader.Header.Get("Content-Type")); err != nil {
		response.RespondAppError(c, err)
		return
	}

	task := &types.TrackTask{
		ID:            taskID,
		BaseTrackFile: key,
		LangCode:      langCode,
		Status:        types.TaskStatusCreated,
	}
	if err := h.tasks.Create(c.Request.Context(), nil, task); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "task_create_failed", err)
		return
	}
	h.log.Info("track task created", "task_id", task.ID, "lang_code", langCode, "file", fileHeader.Filename)
	response.RespondCreated(c, task)
}

type stepSummary struct {
	ID          uuid.UUID  `json:"id"`
	Step        string     `json:"step"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (h *KaraokeHandler) GetTask(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_task_id", err)
		return
	}
	task, err := h.tasks.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "task_load_failed", err)
		return
	}
	if task == nil {
		response.RespondError(c, http.StatusNotFound, "task_not_found", fmt.Errorf("task %s not found", id))
		return
	}
	steps, err := h.steps.ListByTask(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "steps_load_failed", err)
		return
	}
	summaries := make([]stepSummary, 0, len(steps))
	for _, s := range steps {
		summaries = append(summaries, stepSummary{
			ID:          s.ID,
			Step:        s.Step,
			Status:      s.Status,
			Attempts:    s.Attempts,
			ProcessedAt: s.ProcessedAt,
			CreatedAt:   s.CreatedAt,
		})
	}
	response.RespondOK(c, gin.H{"task": task, "steps": summaries})
}

// GetTrack exchanges the stored object keys for presigned GET URLs.
func (h *KaraokeHandler) GetTrack(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "bad_track_id", err)
		return
	}
	track, err := h.tracks.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "track_load_failed", err)
		return
	}
	if track == nil {
		response.RespondError(c, http.StatusNotFound, "track_not_found", fmt.Errorf("track %s not found", id))
		return
	}

	urls := gin.H{}
	for name, key := range map[string]string{
		"base_track_url":   track.BaseTrackFile,
		"vocal_url":        track.VocalFile,
		"instrumental_url": track.InstrumentalFile,
	} {
		u, err := h.store.PresignGet(c.Request.Context(), key, h.presignTTL)
		if err != nil {
			response.RespondAppError(c, err)
			return
		}
		urls[name] = u
	}
	response.RespondOK(c, gin.H{"track": track, "urls": urls})
}
