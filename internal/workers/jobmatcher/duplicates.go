package jobmatcher

import (
	"context"
	"time"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/types"
)

// CheckDuplicatesWorker resolves each new vacancy against recent canonical
// vacancies of the same specialist type and grade. A provider failure marks
// the vacancy as unsuccessfully checked and is not retried, which caps
// provider spend per vacancy.
type CheckDuplicatesWorker struct{ Deps *Deps }

func (w *CheckDuplicatesWorker) Name() string            { return "jobmatcher.check_duplicates" }
func (w *CheckDuplicatesWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *CheckDuplicatesWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	vacancies, err := d.Vacancies.ListUnchecked(ctx, nil, d.BatchSize)
	if err != nil {
		return err
	}
	for _, v := range vacancies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, v); err != nil {
			d.Log.Error("duplicate check failed", "vacancy_id", v.ID, "error", err)
		}
	}
	return nil
}

func (w *CheckDuplicatesWorker) processOne(ctx context.Context, v *types.Vacancy) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	candidates, err := d.Vacancies.ListDuplicateCandidates(ctx, nil, v, d.DuplicateWindow)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, candidate := range candidates {
		result, err := d.LLM.CheckVacancyDuplicate(ctx, v.Text, candidate.Text)
		if err != nil {
			// Not retried: the vacancy is resolved as unsuccessfully checked.
			if uerr := d.Vacancies.UpdateFields(ctx, nil, v.ID, map[string]interface{}{
				"duplicate_checked_at":    now,
				"duplicate_check_success": false,
			}); uerr != nil {
				return uerr
			}
			return d.DupLogs.Append(ctx, nil, v.ID, nil, map[string]interface{}{
				"event":        "duplicate_check_failed",
				"candidate_id": candidate.ID.String(),
				"error_kind":   string(apperr.KindOf(err)),
				"error":        err.Error(),
			})
		}

		if lerr := d.DupLogs.Append(ctx, nil, v.ID, nil, map[string]interface{}{
			"event":        "duplicate_candidate_scored",
			"candidate_id": candidate.ID.String(),
			"score":        result.ProbabilityScore,
			"metainfo":     result.Metainfo,
		}); lerr != nil {
			return lerr
		}

		if result.ProbabilityScore >= d.DuplicateThreshold {
			if uerr := d.Vacancies.UpdateFields(ctx, nil, v.ID, map[string]interface{}{
				"duplicate_checked_at":    now,
				"duplicate_check_success": true,
				"original_vacancy_id":     candidate.ID,
			}); uerr != nil {
				return uerr
			}
			if lerr := d.DupLogs.Append(ctx, nil, v.ID, &candidate.ID, map[string]interface{}{
				"event": "duplicate_found",
				"score": result.ProbabilityScore,
			}); lerr != nil {
				return lerr
			}
			d.Log.Info("vacancy marked as duplicate",
				"vacancy_id", v.ID, "original_vacancy_id", candidate.ID, "score", result.ProbabilityScore)
			return nil
		}
	}

	// No candidate matched: the vacancy becomes canonical.
	if uerr := d.Vacancies.UpdateFields(ctx, nil, v.ID, map[string]interface{}{
		"duplicate_checked_at":    now,
		"duplicate_check_success": true,
	}); uerr != nil {
		return uerr
	}
	return d.DupLogs.Append(ctx, nil, v.ID, nil, map[string]interface{}{
		"event":      "no_duplicate_found",
		"candidates": len(candidates),
	})
}
