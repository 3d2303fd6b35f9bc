package jobmatcher

import (
	"context"
	"fmt"
	"html"
	"time"

	"gorm.io/datatypes"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

// MatchWorker scores canonical vacancies against every active resume. The
// (vacancy, resume) unique index plus the exists-check make a crashed run
// resumable without duplicate scoring.
type MatchWorker struct{ Deps *Deps }

func (w *MatchWorker) Name() string            { return "jobmatcher.match" }
func (w *MatchWorker) Interval() time.Duration { return w.Deps.Tick }

func (w *MatchWorker) RunOnce(ctx context.Context) error {
	d := w.Deps
	vacancies, err := d.Vacancies.ListForMatching(ctx, nil, d.BatchSize)
	if err != nil {
		return err
	}
	for _, v := range vacancies {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := w.processOne(ctx, v); err != nil {
			// processed_at stays null, so the vacancy is re-claimed next tick;
			// already-persisted pairs are skipped then.
			d.Log.Error("vacancy matching failed", "vacancy_id", v.ID, "error", err)
		}
	}
	return nil
}

func (w *MatchWorker) processOne(ctx context.Context, v *types.Vacancy) error {
	d := w.Deps

	// In-flight items run to completion on shutdown.
	ctx = context.WithoutCancel(ctx)

	resumes, err := d.Resumes.ListActive(ctx, nil)
	if err != nil {
		return err
	}

	for _, r := range resumes {
		exists, err := d.Matches.ExistsPair(ctx, nil, v.ID, r.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		result, err := w.score(ctx, v, r)
		if err != nil {
			if lerr := d.MatchLogs.Append(ctx, nil, v.ID, &r.ID, map[string]interface{}{
				"event":      "match_failed",
				"error_kind": string(apperr.KindOf(err)),
				"error":      err.Error(),
			}); lerr != nil {
				d.Log.Warn("match log append failed", "vacancy_id", v.ID, "error", lerr)
			}
			return err
		}

		match := &types.VacancyResumeMatch{
			VacancyID:     v.ID,
			ResumeID:      r.ID,
			Score:         result.Score,
			IsRecommended: result.Score >= d.RecommendThreshold,
			Comments:      datatypes.JSONSlice[types.MatchComment](result.Comments),
		}
		if err := d.Matches.Create(ctx, nil, match); err != nil {
			return err
		}
		if lerr := d.MatchLogs.Append(ctx, nil, v.ID, &r.ID, map[string]interface{}{
			"event":          "match_scored",
			"score":          result.Score,
			"is_recommended": match.IsRecommended,
			"metainfo":       result.Metainfo,
		}); lerr != nil {
			return lerr
		}

		if match.IsRecommended {
			if nerr := d.Notifier.SendNotification(ctx, recommendationMessage(v, r, result.Score)); nerr != nil {
				d.Log.Warn("recommendation notification failed",
					"vacancy_id", v.ID, "resume_id", r.ID, "error", nerr)
			}
		}
	}

	return d.Vacancies.UpdateFields(ctx, nil, v.ID, map[string]interface{}{
		"processed_at": time.Now(),
	})
}

func (w *MatchWorker) score(ctx context.Context, v *types.Vacancy, r *types.Resume) (*services.MatchResult, error) {
	if r.SpecialistType != v.SpecialistType {
		// Mismatched kinds are never sent to the provider.
		return &services.MatchResult{
			Score:    1,
			Comments: []types.MatchComment{{Text: "kind mismatch", Score: 1}},
		}, nil
	}
	return w.Deps.LLM.MatchVacancyAndResume(ctx, v.Text, r.Text)
}

func recommendationMessage(v *types.Vacancy, r *types.Resume, score int) string {
	employee := "unknown"
	if r.Employee != nil && *r.Employee != "" {
		employee = *r.Employee
	}
	title := "unknown position"
	if v.JobTitle != nil && *v.JobTitle != "" {
		title = *v.JobTitle
	}
	company := "unknown company"
	if v.Company != nil && *v.Company != "" {
		company = *v.Company
	}
	return fmt.Sprintf("<b>Recommended match</b>\n\nCandidate: %s (%s %s)\nVacancy: %s at %s\nScore: %d/10",
		html.EscapeString(employee),
		html.EscapeString(r.Grade),
		html.EscapeString(r.SpecialistType),
		html.EscapeString(title),
		html.EscapeString(company),
		score,
	)
}
