package services

import (
	"context"
	"testing"
)

func TestDummyLLMExtraction(t *testing.T) {
	ctx := context.Background()
	llm := NewDummyLLMService()

	v, err := llm.ExtractVacancy(ctx, "  ")
	if err != nil {
		t.Fatalf("ExtractVacancy: %v", err)
	}
	if v.IsVacancy {
		t.Fatal("blank text must not classify as a vacancy")
	}

	v, err = llm.ExtractVacancy(ctx, "we need a go developer")
	if err != nil {
		t.Fatalf("ExtractVacancy: %v", err)
	}
	if !v.IsVacancy || v.Vacancy == nil {
		t.Fatalf("expected a vacancy extraction, got %+v", v)
	}
	if v.Vacancy.SpecialistType == "" || v.Vacancy.Grade == "" {
		t.Fatalf("dummy extraction must fill required fields: %+v", v.Vacancy)
	}

	r, err := llm.ExtractResume(ctx, "")
	if err != nil {
		t.Fatalf("ExtractResume: %v", err)
	}
	if r.IsResume {
		t.Fatal("blank text must not classify as a resume")
	}
	r, err = llm.ExtractResume(ctx, "ten years of go")
	if err != nil {
		t.Fatalf("ExtractResume: %v", err)
	}
	if !r.IsResume || r.Resume == nil {
		t.Fatalf("expected a resume extraction, got %+v", r)
	}
}

func TestDummyLLMMatchAndDuplicate(t *testing.T) {
	ctx := context.Background()
	llm := NewDummyLLMService()

	m, err := llm.MatchVacancyAndResume(ctx, "vacancy", "resume")
	if err != nil {
		t.Fatalf("MatchVacancyAndResume: %v", err)
	}
	if m.Score != 5 || len(m.Comments) != 1 {
		t.Fatalf("unexpected dummy match: %+v", m)
	}

	d, err := llm.CheckVacancyDuplicate(ctx, "same text ", " same text")
	if err != nil {
		t.Fatalf("CheckVacancyDuplicate: %v", err)
	}
	if d.ProbabilityScore != 10 {
		t.Fatalf("identical texts must score 10, got %d", d.ProbabilityScore)
	}
	d, err = llm.CheckVacancyDuplicate(ctx, "text a", "text b")
	if err != nil {
		t.Fatalf("CheckVacancyDuplicate: %v", err)
	}
	if d.ProbabilityScore != 1 {
		t.Fatalf("distinct texts must score 1, got %d", d.ProbabilityScore)
	}
}
