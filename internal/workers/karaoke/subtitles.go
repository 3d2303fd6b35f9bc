package karaoke

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/clients/assemblyai"
	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

// InitSubtitlesWorker seeds the subtitles step with the transcript id of
// the completed transcript step. Submit and poll are fused into a single
// fetch, so the step carries everything it needs from the start.
type InitSubtitlesWorker struct{ Deps *Deps }

func (w *InitSubtitlesWorker) Name() string            { return "karaoke.init_subtitles" }
func (w *InitSubtitlesWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *InitSubtitlesWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	return d.initStep(ctx,
		types.TaskStatusTranscriptCompleted, types.TaskStatusInSubtitlesProcess, types.StepKindSubtitles,
		func(ctx context.Context, tx *gorm.DB, task *types.TrackTask) (map[string]interface{}, error) {
			prev, err := d.Steps.GetByTaskAndKind(ctx, tx, task.ID, types.StepKindTranscript,
				[]string{types.StepStatusCompleted})
			if err != nil {
				return nil, err
			}
			if prev == nil {
				return nil, fmt.Errorf("task %s has no completed transcript step", task.ID)
			}
			transcriptID := dataString(prev.Data, keyTranscriptID)
			if transcriptID == "" {
				return nil, fmt.Errorf("transcript step %s carries no transcript id", prev.ID)
			}
			return map[string]interface{}{keyTranscriptID: transcriptID}, nil
		})
}

// FetchSubtitlesWorker pulls the VTT export, parses it, and persists the
// cue list on the task.
type FetchSubtitlesWorker struct{ Deps *Deps }

func (w *FetchSubtitlesWorker) Name() string            { return "karaoke.fetch_subtitles" }
func (w *FetchSubtitlesWorker) Interval() time.Duration { return w.Deps.Tick }

var fetchSubtitlesStatuses = []string{types.StepStatusInit, types.StepStatusInProcess, types.StepStatusFailed}

func (w *FetchSubtitlesWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	steps, err := d.Steps.ListClaimable(ctx, nil, repos.StepClaim{
		Kind:        types.StepKindSubtitles,
		Statuses:    fetchSubtitlesStatuses,
		MaxAttempts: d.MaxAttempts,
		HasDataKey:  keyTranscriptID,
		Limit:       d.BatchSize,
	})
	if err != nil {
		return err
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, step); err != nil {
			if herr := d.handleStepError(ctx, step.ID, fetchSubtitlesStatuses, err); herr != nil {
				d.Log.Error("subtitles fetch failure handling failed", "step_id", step.ID, "error", herr)
			}
		}
	}
	return nil
}

func (w *FetchSubtitlesWorker) processOne(ctx context.Context, step *types.TrackTaskStep) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	transcriptID := dataString(step.Data, keyTranscriptID)
	subs, err := d.ASR.GetSubtitles(ctx, transcriptID, assemblyai.SubtitleFormatVTT, d.CharsPerCaption)
	if err != nil {
		return err
	}
	cues, err := services.ParseVTT(d.Log, subs.VTT)
	if err != nil {
		return err
	}

	err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := d.Steps.LockByIDInStatuses(ctx, tx, step.ID, fetchSubtitlesStatuses)
		if err != nil {
			return err
		}
		if locked == nil {
			return nil
		}
		task, err := d.Tasks.LockByIDWithStatus(ctx, tx, locked.TaskID, types.TaskStatusInSubtitlesProcess)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}

		now := time.Now()
		data := mergeData(locked.Data, map[string]interface{}{
			"subtitles_api_context": apiContext(subs.APIContext.StatusCode, subs.APIContext.Body),
			"cue_count":             len(cues),
		})
		if err := d.Steps.UpdateFields(ctx, tx, locked.ID, map[string]interface{}{
			"status":       types.StepStatusCompleted,
			"data":         data,
			"processed_at": now,
		}); err != nil {
			return err
		}
		if err := d.Tasks.UpdateFields(ctx, tx, task.ID, map[string]interface{}{
			"status":    types.TaskStatusSubtitlesCompleted,
			"subtitles": datatypes.JSONSlice[types.SubtitleCue](cues),
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, task.ID, &locked.ID, map[string]interface{}{
			"event":     "subtitles_completed",
			"cue_count": len(cues),
		})
	})
	if err != nil {
		return apperr.Storage("subtitles_persist_failed", err)
	}
	d.publish(ctx, step.TaskID, types.StepKindSubtitles, types.TaskStatusInSubtitlesProcess, types.TaskStatusSubtitlesCompleted)
	return nil
}
