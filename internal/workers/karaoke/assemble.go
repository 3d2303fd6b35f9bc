package karaoke

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/types"
)

// AssembleWorker closes the pipeline: fuses words with subtitle cues and
// creates the finished track. There is no external provider involved, so
// assembly has no step row; a failure is logged and the task is retried on
// the next tick.
type AssembleWorker struct{ Deps *Deps }

func (w *AssembleWorker) Name() string            { return "karaoke.assemble" }
func (w *AssembleWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *AssembleWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	tasks, err := d.Tasks.ListForAssembly(ctx, nil, d.BatchSize)
	if err != nil {
		return err
	}
	for _, task := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, task); err != nil {
			d.Log.Error("track assembly failed", "task_id", task.ID, "error", err)
			line := fmt.Sprintf("task %s: track assembly failed", task.ID)
			if nerr := d.Notifier.SendErrorNotification(ctx, err, line); nerr != nil {
				d.Log.Warn("error notification failed", "task_id", task.ID, "error", nerr)
			}
		}
	}
	return nil
}

func (w *AssembleWorker) processOne(ctx context.Context, candidate *types.TrackTask) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	lines, stats := d.Transcript.Fuse(candidate.Words, candidate.Subtitles)
	if issues := d.Transcript.ValidateTiming(lines); len(issues) > 0 {
		d.Log.Warn("fused transcript has timing issues", "task_id", candidate.ID, "issues", issues)
	}

	var trackID string
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := d.Tasks.LockByIDWithStatus(ctx, tx, candidate.ID, types.TaskStatusSubtitlesCompleted)
		if err != nil {
			return err
		}
		if task == nil || task.ResultTrackID != nil {
			return nil
		}
		if task.VocalFile == nil || task.InstrumentalFile == nil {
			return fmt.Errorf("task %s reached assembly without stems", task.ID)
		}

		track := &types.KaraokeTrack{
			BaseTrackFile:    task.BaseTrackFile,
			VocalFile:        *task.VocalFile,
			InstrumentalFile: *task.InstrumentalFile,
			LangCode:         task.LangCode,
			Transcript:       datatypes.JSONSlice[types.TranscriptLine](lines),
		}
		if err := d.Tracks.Create(ctx, tx, track); err != nil {
			return err
		}
		trackID = track.ID.String()

		if err := d.Tasks.UpdateFields(ctx, tx, task.ID, map[string]interface{}{
			"status":          types.TaskStatusCompleted,
			"result_track_id": track.ID,
		}); err != nil {
			return err
		}
		return d.Logs.Append(ctx, tx, task.ID, nil, map[string]interface{}{
			"event":               "track_assembled",
			"track_id":            track.ID.String(),
			"line_count":          len(lines),
			"total_words":         stats.TotalWords,
			"matched_words":       stats.MatchedWords,
			"coverage_percentage": stats.CoveragePercentage,
			"unmatched_words":     stats.UnmatchedWords,
			"unmatched_examples":  stats.UnmatchedExamples,
		})
	})
	if err != nil {
		return err
	}
	if trackID != "" {
		d.publish(ctx, candidate.ID, "", types.TaskStatusSubtitlesCompleted, types.TaskStatusCompleted)
		d.Log.Info("track assembled",
			"task_id", candidate.ID,
			"track_id", trackID,
			"coverage_percentage", stats.CoveragePercentage,
		)
	}
	return nil
}
