package jobmatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aikhq/aik-backend/internal/data/repos"
	"github.com/aikhq/aik-backend/internal/data/repos/testutil"
	"github.com/aikhq/aik-backend/internal/pkg/apperr"
	"github.com/aikhq/aik-backend/internal/services"
	"github.com/aikhq/aik-backend/internal/types"
)

type stubLLM struct {
	mu         sync.Mutex
	matchCalls int
	dupCalls   int

	matchScore int
	matchErr   error
	dupScore   int
	dupErr     error
}

func (s *stubLLM) ExtractVacancy(ctx context.Context, text string) (*services.VacancyExtraction, error) {
	return nil, apperr.Validation("not_implemented", "extraction is not under test")
}

func (s *stubLLM) ExtractResume(ctx context.Context, text string) (*services.ResumeExtraction, error) {
	return nil, apperr.Validation("not_implemented", "extraction is not under test")
}

func (s *stubLLM) MatchVacancyAndResume(ctx context.Context, vacancyText, resumeText string) (*services.MatchResult, error) {
	s.mu.Lock()
	s.matchCalls++
	s.mu.Unlock()
	if s.matchErr != nil {
		return nil, s.matchErr
	}
	return &services.MatchResult{
		Score:    s.matchScore,
		Comments: []types.MatchComment{{Text: "stub comparison", Score: s.matchScore}},
	}, nil
}

func (s *stubLLM) CheckVacancyDuplicate(ctx context.Context, textA, textB string) (*services.DuplicateResult, error) {
	s.mu.Lock()
	s.dupCalls++
	s.mu.Unlock()
	if s.dupErr != nil {
		return nil, s.dupErr
	}
	return &services.DuplicateResult{ProbabilityScore: s.dupScore}, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) SendNotification(ctx context.Context, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) SendErrorNotification(ctx context.Context, cause error, contextLine string) error {
	return n.SendNotification(ctx, contextLine)
}

type matcherHarness struct {
	deps     *Deps
	llm      *stubLLM
	notifier *recordingNotifier
}

func newMatcherHarness(t *testing.T, gdb *gorm.DB) *matcherHarness {
	t.Helper()
	log := testutil.Logger(t)

	// Worker writes commit, so start each test from clean tables.
	for _, table := range []string{
		"job_matcher_match_logs", "job_matcher_duplicate_check_logs",
		"job_matcher_matches", "job_matcher_resumes", "job_matcher_vacancies",
	} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("clean %s: %v", table, err)
		}
	}

	h := &matcherHarness{llm: &stubLLM{}, notifier: &recordingNotifier{}}
	h.deps = &Deps{
		Log:       log,
		DB:        gdb,
		Vacancies: repos.NewVacancyRepo(gdb, log),
		Resumes:   repos.NewResumeRepo(gdb, log),
		Matches:   repos.NewMatchRepo(gdb, log),
		MatchLogs: repos.NewMatchProcessLogRepo(gdb, log),
		DupLogs:   repos.NewDuplicateCheckLogRepo(gdb, log),

		LLM:      h.llm,
		Notifier: h.notifier,

		BatchSize:          20,
		Tick:               time.Second,
		DuplicateWindow:    2 * time.Hour,
		DuplicateThreshold: 7,
		RecommendThreshold: 7,
	}
	return h
}

func (h *matcherHarness) newVacancy(t *testing.T, createdAt time.Time, specialist, grade string) *types.Vacancy {
	t.Helper()
	v := &types.Vacancy{
		ID:             uuid.New(),
		SourceType:     types.SourceTypeManual,
		Text:           "golang developer wanted",
		SpecialistType: specialist,
		Grade:          grade,
		WorkFormat:     types.WorkFormatRemote,
		CreatedAt:      createdAt,
	}
	if err := h.deps.Vacancies.Create(context.Background(), nil, v); err != nil {
		t.Fatalf("create vacancy: %v", err)
	}
	return v
}

func (h *matcherHarness) markCanonical(t *testing.T, v *types.Vacancy) {
	t.Helper()
	if err := h.deps.Vacancies.UpdateFields(context.Background(), nil, v.ID, map[string]interface{}{
		"duplicate_checked_at":    time.Now(),
		"duplicate_check_success": true,
	}); err != nil {
		t.Fatalf("mark canonical: %v", err)
	}
}

func (h *matcherHarness) newResume(t *testing.T, specialist, grade string) *types.Resume {
	t.Helper()
	r := &types.Resume{
		Text:           "seasoned engineer",
		SpecialistType: specialist,
		Grade:          grade,
		IsActive:       true,
	}
	if err := h.deps.Resumes.Create(context.Background(), nil, r); err != nil {
		t.Fatalf("create resume: %v", err)
	}
	return r
}

func (h *matcherHarness) reloadVacancy(t *testing.T, v *types.Vacancy) *types.Vacancy {
	t.Helper()
	got, err := h.deps.Vacancies.GetByID(context.Background(), nil, v.ID)
	if err != nil || got == nil {
		t.Fatalf("reload vacancy: %v (%v)", err, got)
	}
	return got
}

func TestCheckDuplicatesMarksDuplicate(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)
	h.llm.dupScore = 8

	original := h.newVacancy(t, time.Now().Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, original)
	fresh := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)

	w := &CheckDuplicatesWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got := h.reloadVacancy(t, fresh)
	if got.DuplicateCheckedAt == nil || got.DuplicateCheckSuccess == nil || !*got.DuplicateCheckSuccess {
		t.Fatalf("expected successful check, got %+v", got)
	}
	if got.OriginalVacancyID == nil || *got.OriginalVacancyID != original.ID {
		t.Fatalf("expected original %s, got %v", original.ID, got.OriginalVacancyID)
	}
}

func TestCheckDuplicatesBelowThresholdBecomesCanonical(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)
	h.llm.dupScore = 3

	original := h.newVacancy(t, time.Now().Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, original)
	fresh := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)

	w := &CheckDuplicatesWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got := h.reloadVacancy(t, fresh)
	if got.OriginalVacancyID != nil {
		t.Fatalf("score below threshold must not link an original: %v", got.OriginalVacancyID)
	}
	if got.DuplicateCheckSuccess == nil || !*got.DuplicateCheckSuccess {
		t.Fatal("expected the vacancy to become canonical")
	}
}

func TestCheckDuplicatesProviderFailureIsNotRetried(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)
	h.llm.dupErr = apperr.ProviderFailure("llm_failed", "model unavailable", nil)

	original := h.newVacancy(t, time.Now().Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, original)
	fresh := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)

	w := &CheckDuplicatesWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got := h.reloadVacancy(t, fresh)
	if got.DuplicateCheckedAt == nil || got.DuplicateCheckSuccess == nil || *got.DuplicateCheckSuccess {
		t.Fatalf("expected failed check to be recorded, got %+v", got)
	}

	// resolved vacancies are not claimed again
	before := h.llm.dupCalls
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if h.llm.dupCalls != before {
		t.Fatal("failed check must not be retried")
	}
}

func TestMatchRecommendsAndNotifies(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)
	h.llm.matchScore = 8

	v := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, v)
	r := h.newResume(t, types.SpecialistBackend, types.GradeMiddle)

	w := &MatchWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	matches, err := h.deps.Matches.ListByVacancy(context.Background(), nil, v.ID)
	if err != nil {
		t.Fatalf("ListByVacancy: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.ResumeID != r.ID || m.Score != 8 || !m.IsRecommended {
		t.Fatalf("unexpected match: %+v", m)
	}
	if len(h.notifier.messages) != 1 {
		t.Fatalf("expected 1 recommendation notification, got %d", len(h.notifier.messages))
	}
	if got := h.reloadVacancy(t, v); got.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
}

func TestMatchSpecialistMismatchSkipsProvider(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)

	v := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, v)
	h.newResume(t, types.SpecialistFrontend, types.GradeMiddle)

	w := &MatchWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if h.llm.matchCalls != 0 {
		t.Fatal("mismatched kinds must not reach the provider")
	}
	matches, err := h.deps.Matches.ListByVacancy(context.Background(), nil, v.ID)
	if err != nil {
		t.Fatalf("ListByVacancy: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 fabricated match, got %d", len(matches))
	}
	m := matches[0]
	if m.Score != 1 || m.IsRecommended {
		t.Fatalf("expected score 1 and no recommendation, got %+v", m)
	}
	if len(m.Comments) != 1 || m.Comments[0].Text != "kind mismatch" {
		t.Fatalf("expected kind mismatch comment, got %+v", m.Comments)
	}
	if len(h.notifier.messages) != 0 {
		t.Fatalf("no notification expected, got %v", h.notifier.messages)
	}
	if got := h.reloadVacancy(t, v); got.ProcessedAt == nil {
		t.Fatal("expected processed_at to be set")
	}
}

func TestMatchProviderFailureLeavesVacancyClaimable(t *testing.T) {
	gdb := testutil.DB(t)
	h := newMatcherHarness(t, gdb)
	h.llm.matchErr = apperr.ProviderFailure("llm_failed", "model unavailable", nil)

	v := h.newVacancy(t, time.Now(), types.SpecialistBackend, types.GradeMiddle)
	h.markCanonical(t, v)
	h.newResume(t, types.SpecialistBackend, types.GradeMiddle)

	w := &MatchWorker{Deps: h.deps}
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if got := h.reloadVacancy(t, v); got.ProcessedAt != nil {
		t.Fatal("failed matching must leave processed_at null")
	}

	// next tick succeeds and finishes the vacancy
	h.llm.matchErr = nil
	h.llm.matchScore = 5
	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	got := h.reloadVacancy(t, v)
	if got.ProcessedAt == nil {
		t.Fatal("expected processed_at after successful retry")
	}
	matches, err := h.deps.Matches.ListByVacancy(context.Background(), nil, v.ID)
	if err != nil {
		t.Fatalf("ListByVacancy: %v", err)
	}
	if len(matches) != 1 || matches[0].Score != 5 || matches[0].IsRecommended {
		t.Fatalf("unexpected matches after retry: %+v", matches)
	}
}
