package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aikhq/aik-backend/internal/data/repos/testutil"
	"github.com/aikhq/aik-backend/internal/types"
)

func newTestVacancy(createdAt time.Time, specialist, grade string) *types.Vacancy {
	return &types.Vacancy{
		ID:             uuid.New(),
		SourceType:     types.SourceTypeManual,
		Text:           "backend engineer wanted",
		SpecialistType: specialist,
		Grade:          grade,
		WorkFormat:     types.WorkFormatRemote,
		CreatedAt:      createdAt,
	}
}

func TestVacancyListDuplicateCandidates(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewVacancyRepo(gdb, log)
	now := time.Now()
	checked := now.Add(-time.Hour)
	yes := true
	no := false

	subject := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)

	inWindow := newTestVacancy(now.Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	inWindow.DuplicateCheckedAt = &checked
	inWindow.DuplicateCheckSuccess = &yes

	tooOld := newTestVacancy(now.Add(-3*time.Hour), types.SpecialistBackend, types.GradeMiddle)
	tooOld.DuplicateCheckedAt = &checked
	tooOld.DuplicateCheckSuccess = &yes

	wrongGrade := newTestVacancy(now.Add(-time.Hour), types.SpecialistBackend, types.GradeSenior)
	wrongGrade.DuplicateCheckedAt = &checked
	wrongGrade.DuplicateCheckSuccess = &yes

	failedCheck := newTestVacancy(now.Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	failedCheck.DuplicateCheckedAt = &checked
	failedCheck.DuplicateCheckSuccess = &no

	alreadyDuplicate := newTestVacancy(now.Add(-time.Hour), types.SpecialistBackend, types.GradeMiddle)
	alreadyDuplicate.DuplicateCheckedAt = &checked
	alreadyDuplicate.DuplicateCheckSuccess = &yes
	alreadyDuplicate.OriginalVacancyID = &inWindow.ID

	for _, v := range []*types.Vacancy{subject, inWindow, tooOld, wrongGrade, failedCheck, alreadyDuplicate} {
		if err := repo.Create(ctx, tx, v); err != nil {
			t.Fatalf("create vacancy: %v", err)
		}
	}

	got, err := repo.ListDuplicateCandidates(ctx, tx, subject, 2*time.Hour)
	if err != nil {
		t.Fatalf("ListDuplicateCandidates: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ID != inWindow.ID {
		t.Fatalf("wrong candidate: %s", got[0].ID)
	}
}

func TestVacancyListForMatching(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)
	ctx := context.Background()

	repo := NewVacancyRepo(gdb, log)
	now := time.Now()
	checked := now.Add(-time.Minute)
	yes := true
	no := false

	ready := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)
	ready.DuplicateCheckedAt = &checked
	ready.DuplicateCheckSuccess = &yes

	unchecked := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)

	checkFailed := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)
	checkFailed.DuplicateCheckedAt = &checked
	checkFailed.DuplicateCheckSuccess = &no

	duplicate := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)
	duplicate.DuplicateCheckedAt = &checked
	duplicate.DuplicateCheckSuccess = &yes
	duplicate.OriginalVacancyID = &ready.ID

	processed := newTestVacancy(now, types.SpecialistBackend, types.GradeMiddle)
	processed.DuplicateCheckedAt = &checked
	processed.DuplicateCheckSuccess = &yes
	processed.ProcessedAt = &checked

	for _, v := range []*types.Vacancy{ready, unchecked, checkFailed, duplicate, processed} {
		if err := repo.Create(ctx, tx, v); err != nil {
			t.Fatalf("create vacancy: %v", err)
		}
	}

	got, err := repo.ListForMatching(ctx, tx, 10)
	if err != nil {
		t.Fatalf("ListForMatching: %v", err)
	}
	if len(got) != 1 || got[0].ID != ready.ID {
		t.Fatalf("expected only the canonical checked vacancy, got %d rows", len(got))
	}
}

func TestMatchExistsPairUniqueness(t *testing.T) {
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	log := testutil.Logger(t)
	ctx := context.Background()

	vacancies := NewVacancyRepo(gdb, log)
	resumes := NewResumeRepo(gdb, log)
	matches := NewMatchRepo(gdb, log)

	v := newTestVacancy(time.Now(), types.SpecialistBackend, types.GradeMiddle)
	if err := vacancies.Create(ctx, tx, v); err != nil {
		t.Fatalf("create vacancy: %v", err)
	}
	r := &types.Resume{Text: "resume", SpecialistType: types.SpecialistBackend, Grade: types.GradeMiddle, IsActive: true}
	if err := resumes.Create(ctx, tx, r); err != nil {
		t.Fatalf("create resume: %v", err)
	}

	exists, err := matches.ExistsPair(ctx, tx, v.ID, r.ID)
	if err != nil {
		t.Fatalf("ExistsPair: %v", err)
	}
	if exists {
		t.Fatal("pair must not exist yet")
	}

	if err := matches.Create(ctx, tx, &types.VacancyResumeMatch{VacancyID: v.ID, ResumeID: r.ID, Score: 5}); err != nil {
		t.Fatalf("create match: %v", err)
	}
	exists, err = matches.ExistsPair(ctx, tx, v.ID, r.ID)
	if err != nil {
		t.Fatalf("ExistsPair: %v", err)
	}
	if !exists {
		t.Fatal("pair must exist after insert")
	}

	// unique index rejects a second row for the same pair
	if err := matches.Create(ctx, tx, &types.VacancyResumeMatch{VacancyID: v.ID, ResumeID: r.ID, Score: 7}); err == nil {
		t.Fatal("expected unique violation for duplicate pair")
	}
}
