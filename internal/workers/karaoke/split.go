package karaoke

import (
	"context"
	"fmt"
	"path"
	"time"

	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/clients/lalal"
	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/types"
)

// InitSplitWorker opens the pipeline: every created task gets a split step.
type InitSplitWorker struct{ Deps *Deps }

func (w *InitSplitWorker) Name() string            { return "karaoke.init_split" }
func (w *InitSplitWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *InitSplitWorker) RunOnce(ctx context.Context) error {
	return w.Deps.initStep(ctx,
		types.TaskStatusCreated, types.TaskStatusInSplitProcess, types.StepKindSplit, nil)
}

// SubmitSplitWorker uploads the base track to the splitter and queues the
// split.
type SubmitSplitWorker struct{ Deps *Deps }

func (w *SubmitSplitWorker) Name() string            { return "karaoke.submit_split" }
func (w *SubmitSplitWorker) Interval() time.Duration { return w.Deps.Tick }

var submitSplitStatuses = []string{types.StepStatusInit, types.StepStatusFailed}

func (w *SubmitSplitWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	steps, err := d.Steps.ListClaimable(ctx, nil, repos.StepClaim{
		Kind:         types.StepKindSplit,
		Statuses:     submitSplitStatuses,
		MaxAttempts:  d.MaxAttempts,
		LacksDataKey: keyProviderFileID,
		Limit:        d.BatchSize,
	})
	if err != nil {
		return err
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, step); err != nil {
			if herr := d.handleStepError(ctx, step.ID, submitSplitStatuses, err); herr != nil {
				d.Log.Error("split submit failure handling failed", "step_id", step.ID, "error", herr)
			}
		}
	}
	return nil
}

func (w *SubmitSplitWorker) processOne(ctx context.Context, step *types.TrackTaskStep) error {
	d := w.Deps

	// Shutdown stops the claim loop between items; an item already in
	// flight, provider call included, runs to completion.
	ctx = context.WithoutCancel(ctx)

	task, err := d.Tasks.GetByID(ctx, nil, step.TaskID)
	if err != nil {
		return apperr.Storage("task_load_failed", err)
	}
	if task == nil {
		return apperr.Validation("task_missing", fmt.Sprintf("task %s not found for split step", step.TaskID))
	}

	// External I/O happens before the lock is taken.
	content, err := d.Store.Download(ctx, task.BaseTrackFile)
	if err != nil {
		return err
	}
	upload, err := d.Splitter.Upload(ctx, content, path.Base(task.BaseTrackFile))
	if err != nil {
		return err
	}
	split, err := d.Splitter.StartSplit(ctx, upload.FileID)
	if err != nil {
		return err
	}

	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := d.Steps.LockByIDInStatuses(ctx, tx, step.ID, submitSplitStatuses)
		if err != nil {
			return err
		}
		if locked == nil || dataString(locked.Data, keyProviderFileID) != "" {
			return nil // claimed by another process meanwhile
		}
		data := mergeData(locked.Data, map[string]interface{}{
			keyProviderFileID:   upload.FileID,
			keyProviderTaskID:   split.TaskID,
			keySubmittedAt:      time.Now().UTC().Format(time.RFC3339),
			"upload_api_context": apiContext(upload.APIContext.StatusCode, upload.APIContext.Body),
			"split_api_context":  apiContext(split.APIContext.StatusCode, split.APIContext.Body),
		})
		if err := d.Steps.UpdateFields(ctx, tx, locked.ID, map[string]interface{}{
			"status": types.StepStatusInProcess,
			"data":   data,
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, locked.TaskID, &locked.ID, map[string]interface{}{
			"event":            "split_submitted",
			"provider_file_id": upload.FileID,
			"provider_task_id": split.TaskID,
		})
	})
}

// PollSplitWorker checks queued splits and lands finished stems in the
// object store.
type PollSplitWorker struct{ Deps *Deps }

func (w *PollSplitWorker) Name() string            { return "karaoke.poll_split" }
func (w *PollSplitWorker) Interval() time.Duration { return w.Deps.Tick }

var pollSplitStatuses = []string{types.StepStatusInProcess, types.StepStatusFailed}

func (w *PollSplitWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	steps, err := d.Steps.ListClaimable(ctx, nil, repos.StepClaim{
		Kind:            types.StepKindSplit,
		Statuses:        pollSplitStatuses,
		MaxAttempts:     d.MaxAttempts,
		HasDataKey:      keyProviderFileID,
		SubmittedKey:    keySubmittedAt,
		SubmittedBefore: time.Now().Add(-d.SplitPollThreshold),
		Limit:           d.BatchSize,
	})
	if err != nil {
		return err
	}
	for _, step := range steps {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, step); err != nil {
			if herr := d.handleStepError(ctx, step.ID, pollSplitStatuses, err); herr != nil {
				d.Log.Error("split poll failure handling failed", "step_id", step.ID, "error", herr)
			}
		}
	}
	return nil
}

func (w *PollSplitWorker) processOne(ctx context.Context, step *types.TrackTaskStep) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	fileID := dataString(step.Data, keyProviderFileID)
	check, err := d.Splitter.Check(ctx, fileID)
	if err != nil {
		return err
	}

	switch check.State {
	case lalal.StateProgress:
		d.Log.Debug("split still in progress", "task_id", step.TaskID, "progress", check.Progress)
		return apperr.NotReady("split_in_progress", fmt.Sprintf("split at %d%%", check.Progress))
	case lalal.StateError:
		return apperr.ProviderFailure("split_failed", check.ErrorMessage,
			&apperr.ProviderContext{StatusCode: check.APIContext.StatusCode, Body: check.APIContext.Body})
	case lalal.StateSuccess:
		// fall through
	default:
		return apperr.ProviderFailure("split_state_unknown", check.State,
			&apperr.ProviderContext{StatusCode: check.APIContext.StatusCode, Body: check.APIContext.Body})
	}

	vKey, err := d.Store.UploadFromURL(ctx, check.VocalURL, vocalKey(step.TaskID))
	if err != nil {
		return err
	}
	iKey, err := d.Store.UploadFromURL(ctx, check.InstrumentalURL, instrumentalKey(step.TaskID))
	if err != nil {
		return err
	}

	err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := d.Steps.LockByIDInStatuses(ctx, tx, step.ID, pollSplitStatuses)
		if err != nil {
			return err
		}
		if locked == nil {
			return nil
		}
		task, err := d.Tasks.LockByIDWithStatus(ctx, tx, locked.TaskID, types.TaskStatusInSplitProcess)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}

		now := time.Now()
		data := mergeData(locked.Data, map[string]interface{}{
			"check_api_context": apiContext(check.APIContext.StatusCode, check.APIContext.Body),
			"duration":          check.Duration,
		})
		if err := d.Steps.UpdateFields(ctx, tx, locked.ID, map[string]interface{}{
			"status":       types.StepStatusCompleted,
			"data":         data,
			"processed_at": now,
		}); err != nil {
			return err
		}
		if err := d.Tasks.UpdateFields(ctx, tx, task.ID, map[string]interface{}{
			"status":            types.TaskStatusSplitCompleted,
			"vocal_file":        vKey,
			"instrumental_file": iKey,
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, task.ID, &locked.ID, map[string]interface{}{
			"event":             "split_completed",
			"vocal_file":        vKey,
			"instrumental_file": iKey,
			"duration":          check.Duration,
		})
	})
	if err != nil {
		return apperr.Storage("split_persist_failed", err)
	}
	d.publish(ctx, step.TaskID, types.StepKindSplit, types.TaskStatusInSplitProcess, types.TaskStatusSplitCompleted)
	return nil
}
