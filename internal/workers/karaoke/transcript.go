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
	"github.com/aikhq/aik-backend/internal/types"
)

// InitTranscriptWorker moves split-completed tasks into the transcript
// phase.
type InitTranscriptWorker struct{ Deps *Deps }

func (w *InitTranscriptWorker) Name() string            { return "karaoke.init_transcript" }
func (w *InitTranscriptWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *InitTranscriptWorker) RunOnce(ctx context.Context) error {
	return w.Deps.initStep(ctx,
		types.TaskStatusSplitCompleted, types.TaskStatusInTranscriptProcess, types.StepKindTranscript, nil)
}

// SubmitTranscriptWorker sends the vocal stem to the ASR provider.
type SubmitTranscriptWorker struct{ Deps *Deps }

func (w *SubmitTranscriptWorker) Name() string            { return "karaoke.submit_transcript" }
func (w *SubmitTranscriptWorker) Interval() time.Duration { return w.Deps.Tick }

var submitTranscriptStatuses = []string{types.StepStatusInit, types.StepStatusFailed}

func (w *SubmitTranscriptWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	steps, err := d.Steps.ListClaimable(ctx, nil, repos.StepClaim{
		Kind:         types.StepKindTranscript,
		Statuses:     submitTranscriptStatuses,
		MaxAttempts:  d.MaxAttempts,
		LacksDataKey: keyTranscriptID,
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
			if herr := d.handleStepError(ctx, step.ID, submitTranscriptStatuses, err); herr != nil {
				d.Log.Error("transcript submit failure handling failed", "step_id", step.ID, "error", herr)
			}
		}
	}
	return nil
}

func (w *SubmitTranscriptWorker) processOne(ctx context.Context, step *types.TrackTaskStep) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	task, err := d.Tasks.GetByID(ctx, nil, step.TaskID)
	if err != nil {
		return apperr.Storage("task_load_failed", err)
	}
	if task == nil {
		return apperr.Validation("task_missing", fmt.Sprintf("task %s not found for transcript step", step.TaskID))
	}
	if task.VocalFile == nil || *task.VocalFile == "" {
		return apperr.Validation("vocal_file_missing", "task has no vocal stem to transcribe")
	}

	audioURL, err := d.Store.PresignGet(ctx, *task.VocalFile, d.PresignTTL)
	if err != nil {
		return err
	}
	submit, err := d.ASR.Submit(ctx, audioURL, task.LangCode)
	if err != nil {
		return err
	}

	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := d.Steps.LockByIDInStatuses(ctx, tx, step.ID, submitTranscriptStatuses)
		if err != nil {
			return err
		}
		if locked == nil || dataString(locked.Data, keyTranscriptID) != "" {
			return nil
		}
		data := mergeData(locked.Data, map[string]interface{}{
			keyTranscriptID:      submit.TranscriptID,
			keySubmittedAt:       time.Now().UTC().Format(time.RFC3339),
			"submit_api_context": apiContext(submit.APIContext.StatusCode, submit.APIContext.Body),
		})
		if err := d.Steps.UpdateFields(ctx, tx, locked.ID, map[string]interface{}{
			"status": types.StepStatusInProcess,
			"data":   data,
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, locked.TaskID, &locked.ID, map[string]interface{}{
			"event":         "transcript_submitted",
			"transcript_id": submit.TranscriptID,
		})
	})
}

// PollTranscriptWorker collects finished transcripts and persists the word
// stream on the task.
type PollTranscriptWorker struct{ Deps *Deps }

func (w *PollTranscriptWorker) Name() string            { return "karaoke.poll_transcript" }
func (w *PollTranscriptWorker) Interval() time.Duration { return w.Deps.Tick }

var pollTranscriptStatuses = []string{types.StepStatusInProcess, types.StepStatusFailed}

func (w *PollTranscriptWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	steps, err := d.Steps.ListClaimable(ctx, nil, repos.StepClaim{
		Kind:            types.StepKindTranscript,
		Statuses:        pollTranscriptStatuses,
		MaxAttempts:     d.MaxAttempts,
		HasDataKey:      keyTranscriptID,
		SubmittedKey:    keySubmittedAt,
		SubmittedBefore: time.Now().Add(-d.TranscriptPollThreshold),
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
			if herr := d.handleStepError(ctx, step.ID, pollTranscriptStatuses, err); herr != nil {
				d.Log.Error("transcript poll failure handling failed", "step_id", step.ID, "error", herr)
			}
		}
	}
	return nil
}

func (w *PollTranscriptWorker) processOne(ctx context.Context, step *types.TrackTaskStep) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	transcriptID := dataString(step.Data, keyTranscriptID)
	tr, err := d.ASR.Get(ctx, transcriptID)
	if err != nil {
		return err
	}

	switch tr.Status {
	case assemblyai.StatusQueued, assemblyai.StatusProcessing:
		return apperr.NotReady("transcript_in_progress", "transcript "+tr.Status)
	case assemblyai.StatusError:
		return apperr.ProviderFailure("transcript_failed", tr.Error,
			&apperr.ProviderContext{StatusCode: tr.APIContext.StatusCode, Body: tr.APIContext.Body})
	case assemblyai.StatusCompleted:
		// fall through
	default:
		return apperr.ProviderFailure("transcript_state_unknown", tr.Status,
			&apperr.ProviderContext{StatusCode: tr.APIContext.StatusCode, Body: tr.APIContext.Body})
	}

	words := convertWords(tr.Words)

	err = d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := d.Steps.LockByIDInStatuses(ctx, tx, step.ID, pollTranscriptStatuses)
		if err != nil {
			return err
		}
		if locked == nil {
			return nil
		}
		task, err := d.Tasks.LockByIDWithStatus(ctx, tx, locked.TaskID, types.TaskStatusInTranscriptProcess)
		if err != nil {
			return err
		}
		if task == nil {
			return nil
		}

		now := time.Now()
		data := mergeData(locked.Data, map[string]interface{}{
			"poll_api_context": apiContext(tr.APIContext.StatusCode, tr.APIContext.Body),
			"word_count":       len(words),
		})
		if err := d.Steps.UpdateFields(ctx, tx, locked.ID, map[string]interface{}{
			"status":       types.StepStatusCompleted,
			"data":         data,
			"processed_at": now,
		}); err != nil {
			return err
		}
		if err := d.Tasks.UpdateFields(ctx, tx, task.ID, map[string]interface{}{
			"status": types.TaskStatusTranscriptCompleted,
			"words":  datatypes.JSONSlice[types.Word](words),
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, task.ID, &locked.ID, map[string]interface{}{
			"event":      "transcript_completed",
			"word_count": len(words),
		})
	})
	if err != nil {
		return apperr.Storage("transcript_persist_failed", err)
	}
	d.publish(ctx, step.TaskID, types.StepKindTranscript, types.TaskStatusInTranscriptProcess, types.TaskStatusTranscriptCompleted)
	return nil
}

func convertWords(in []assemblyai.Word) []types.Word {
	out := make([]types.Word, 0, len(in))
	for _, w := range in {
		out = append(out, types.Word{
			Text:       w.Text,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
			Speaker:    w.Speaker,
		})
	}
	return out
}
