package karaoke

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/clients/assemblyai"
	"github.com/aikhq/aik-backend/internal/clients/lalal"
	"github.com/aikhq/aik-backend/internal/clients/redis"
	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/platform/logger"
	"github.com/aikhq/aik-backend/internal/platform/s3"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

// Step payload keys. The claim filters of submit and poll workers key off
// presence of these, so the same name must be written and queried.
const (
	keyProviderFileID = "provider_file_id"
	keyProviderTaskID = "provider_task_id"
	keySubmittedAt    = "submitted_at"
	keyTranscriptID   = "transcript_id"
)

// Deps is the shared dependency set of all karaoke pipeline workers.
type Deps struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Tasks  repos.TrackTaskRepo
	Steps  repos.TrackTaskStepRepo
	Logs   repos.TrackTaskLogRepo
	Tracks repos.KaraokeTrackRepo

	Store    s3.Store
	Splitter lalal.Client
	ASR      assemblyai.Client

	Transcript *services.TranscriptService
	Notifier   services.Notifier
	Bus        redis.EventBus

	MaxAttempts             int
	BatchSize               int
	Tick                    time.Duration
	SplitPollThreshold      time.Duration
	TranscriptPollThreshold time.Duration
	CharsPerCaption         int
	PresignTTL              time.Duration
}

func (d *Deps) publish(ctx context.Context, taskID uuid.UUID, stepKind, from, to string) {
	if d.Bus == nil {
		return
	}
	ev := redis.PipelineEvent{TaskID: taskID.String(), StepKind: stepKind, From: from, To: to}
	if err := d.Bus.Publish(ctx, ev); err != nil {
		d.Log.Warn("pipeline event publish failed", "task_id", taskID, "error", err)
	}
}

func mergeData(base datatypes.JSONMap, delta map[string]interface{}) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}

func apiContext(statusCode int, body string) map[string]interface{} {
	return map[string]interface{}{"status_code": statusCode, "body": body}
}

func dataString(data datatypes.JSONMap, key string) string {
	if data == nil {
		return ""
	}
	s, _ := data[key].(string)
	return s
}

func vocalKey(taskID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/vocal.m4a", taskID)
}

func instrumentalKey(taskID uuid.UUID) string {
	return fmt.Sprintf("jobs/%s/instrumental.m4a", taskID)
}

// initStep is the shared body of the three init workers: claim tasks in
// fromStatus that lack a step of kind, then per task create the step and
// advance the task under one transaction.
func (d *Deps) initStep(ctx context.Context, fromStatus, toStatus, kind string,
	seed func(ctx context.Context, tx *gorm.DB, task *types.TrackTask) (map[string]interface{}, error)) error {

	tasks, err := d.Tasks.ListByStatusLackingStep(ctx, nil, fromStatus, kind, d.BatchSize)
	if err != nil {
		return err
	}
	for _, candidate := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		taskID := candidate.ID
		err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			task, err := d.Tasks.LockByIDWithStatus(ctx, tx, taskID, fromStatus)
			if err != nil {
				return err
			}
			if task == nil {
				return nil // advanced by another process
			}
			existing, err := d.Steps.GetByTaskAndKind(ctx, tx, taskID, kind, nil)
			if err != nil {
				return err
			}
			if existing != nil {
				return nil
			}

			data := map[string]interface{}{}
			if seed != nil {
				data, err = seed(ctx, tx, task)
				if err != nil {
					return err
				}
			}
			step := &types.TrackTaskStep{
				TaskID: taskID,
				Step:   kind,
				Status: types.StepStatusInit,
				Data:   data,
			}
			if err := d.Steps.Create(ctx, tx, step); err != nil {
				return err
			}
			if err := d.Tasks.UpdateFields(ctx, tx, taskID, map[string]interface{}{
				"status": toStatus,
			}); err != nil {
				return err
			}
			return d.Logs.Append(ctx, tx, taskID, &step.ID, map[string]interface{}{
				"event": "step_initialized",
				"step":  kind,
			})
		})
		if err != nil {
			d.Log.Warn("step init failed", "task_id", taskID, "step", kind, "error", err)
			continue
		}
		d.publish(ctx, taskID, kind, fromStatus, toStatus)
	}
	return nil
}
