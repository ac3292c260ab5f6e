package recovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
)

func newTestService(workers int) *Service {
	return NewService(NewScorer(newMockResolver(), 0), workers, zerolog.Nop())
}

func TestScoreSubject(t *testing.T) {
	svc := newTestService(1)
	result, err := svc.ScoreSubject(context.Background(), SubjectInput{
		Subject:     "levothyroxine",
		GroundTruth: []string{"hypothyroidism", "type 2 diabetes"},
		Methods: map[string][]string{
			"llm_a": {"hypothyroidism"},
			"llm_b": {"hypothyroidism", "type 2 diabetes"},
		},
	})
	if err != nil {
		t.Fatalf("ScoreSubject: %v", err)
	}
	if result.Subject != "levothyroxine" || len(result.Methods) != 2 {
		t.Fatalf("result = %+v", result)
	}
	if result.Methods["llm_a"].CodeRecoveryPct != 50.0 {
		t.Errorf("llm_a = %+v", result.Methods["llm_a"])
	}
	if result.Methods["llm_b"].CodeRecoveryPct != 100.0 {
		t.Errorf("llm_b = %+v", result.Methods["llm_b"])
	}
}

func TestScoreSubjectRequiresName(t *testing.T) {
	svc := newTestService(1)
	if _, err := svc.ScoreSubject(context.Background(), SubjectInput{}); err == nil {
		t.Error("expected error for missing subject")
	}
}

func TestScoreBatchPreservesOrder(t *testing.T) {
	svc := newTestService(3)

	subjects := make([]SubjectInput, 10)
	for i := range subjects {
		subjects[i] = SubjectInput{
			Subject:     fmt.Sprintf("drug-%02d", i),
			GroundTruth: []string{"hypertension"},
			Methods:     map[string][]string{"m": {"hypertension"}},
		}
	}

	results, err := svc.ScoreBatch(context.Background(), subjects)
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(results) != len(subjects) {
		t.Fatalf("got %d results, want %d", len(results), len(subjects))
	}
	for i, r := range results {
		if r.Subject != subjects[i].Subject {
			t.Errorf("result[%d].Subject = %q, want %q", i, r.Subject, subjects[i].Subject)
		}
		if r.Methods["m"].CodeRecoveryPct != 100.0 {
			t.Errorf("result[%d] = %+v", i, r.Methods["m"])
		}
	}
}

func TestScoreBatchAbortsOnError(t *testing.T) {
	svc := newTestService(2)
	subjects := []SubjectInput{
		{Subject: "ok", GroundTruth: []string{"hypertension"}, Methods: map[string][]string{"m": nil}},
		{Subject: ""}, // invalid
	}
	if _, err := svc.ScoreBatch(context.Background(), subjects); err == nil {
		t.Error("expected batch to surface the subject error")
	}
}
