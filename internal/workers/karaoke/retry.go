package karaoke

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/types"
)

// handleStepError applies the retry policy for a step whose external work
// raised cause. A not-ready outcome leaves the row untouched so the next
// tick revisits it.
func (d *Deps) handleStepError(ctx context.Context, stepID uuid.UUID, lockStatuses []string, cause error) error {
	if apperr.IsNotReady(cause) {
		return nil
	}
	return d.failStep(ctx, stepID, lockStatuses, cause)
}

func (d *Deps) failStep(ctx context.Context, stepID uuid.UUID, lockStatuses []string, cause error) error {
	// The failure record commits even when shutdown arrives mid-item.
	ctx = context.WithoutCancel(ctx)

	kind := apperr.KindOf(cause)

	var (
		final    bool
		taskID   uuid.UUID
		stepKind string
	)
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		step, err := d.Steps.LockByIDInStatuses(ctx, tx, stepID, lockStatuses)
		if err != nil {
			return err
		}
		if step == nil {
			return nil
		}
		taskID = step.TaskID
		stepKind = step.Step

		// Every failure kind, terminal included, counts as one attempt;
		// only the attempt cap moves a step to final_failed.
		attempts := step.Attempts + 1
		final = attempts >= d.MaxAttempts

		status := types.StepStatusFailed
		event := "step_failed"
		if final {
			status = types.StepStatusFinalFailed
			event = "step_final_failed"
		}

		entry := map[string]interface{}{
			"event":      event,
			"step":       step.Step,
			"attempts":   attempts,
			"error_kind": string(kind),
			"error":      cause.Error(),
		}
		if ae, ok := apperr.As(cause); ok && ae.Provider != nil {
			entry["provider_status_code"] = ae.Provider.StatusCode
			entry["provider_body"] = ae.Provider.Body
		}

		if err := d.Steps.UpdateFields(ctx, tx, step.ID, map[string]interface{}{
			"attempts": attempts,
			"status":   status,
		}); err != nil {
			return err
		}
		if final {
			if err := d.Tasks.UpdateFields(ctx, tx, step.TaskID, map[string]interface{}{
				"status": types.TaskStatusFailed,
			}); err != nil {
				return err
			}
		}
		return d.Logs.Append(ctx, tx, step.TaskID, &step.ID, entry)
	})
	if err != nil {
		return err
	}

	if final && taskID != uuid.Nil {
		d.publish(ctx, taskID, stepKind, "", types.TaskStatusFailed)
		line := fmt.Sprintf("task %s: %s step permanently failed", taskID, stepKind)
		if nerr := d.Notifier.SendErrorNotification(ctx, cause, line); nerr != nil {
			d.Log.Warn("error notification failed", "task_id", taskID, "error", nerr)
		}
	}
	return nil
}
