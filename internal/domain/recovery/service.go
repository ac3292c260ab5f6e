package recovery

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SubjectInput is one scoring unit: a subject (typically a drug), its
// ground-truth indication list, and one extracted indication list per
// extraction method.
type SubjectInput struct {
	Subject     string              `json:"subject"`
	GroundTruth []string            `json:"ground_truth"`
	Methods     map[string][]string `json:"methods"`
}

// SubjectResult is the per-method recovery outcome for one subject.
type SubjectResult struct {
	Subject string             `json:"subject"`
	Methods map[string]*Result `json:"methods"`
}

// Service scores subjects against the shared read-only ontology store.
// Subjects are independent, so batches fan out across workers.
type Service struct {
	scorer  *Scorer
	workers int
	log     zerolog.Logger
}

// NewService creates a recovery service. workers <= 0 selects 4.
func NewService(scorer *Scorer, workers int, logger zerolog.Logger) *Service {
	if workers <= 0 {
		workers = 4
	}
	return &Service{scorer: scorer, workers: workers, log: logger}
}

// ScoreSubject scores every extraction method of one subject against its
// ground truth.
func (s *Service) ScoreSubject(ctx context.Context, in SubjectInput) (*SubjectResult, error) {
	if in.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}
	out := &SubjectResult{Subject: in.Subject, Methods: make(map[string]*Result, len(in.Methods))}

	// Deterministic method order keeps logs and cache warm-up stable.
	methods := make([]string, 0, len(in.Methods))
	for m := range in.Methods {
		methods = append(methods, m)
	}
	sort.Strings(methods)

	for _, method := range methods {
		result, err := s.scorer.Score(ctx, in.GroundTruth, in.Methods[method])
		if err != nil {
			return nil, fmt.Errorf("score %s/%s: %w", in.Subject, method, err)
		}
		out.Methods[method] = result
	}
	return out, nil
}

// ScoreBatch scores many subjects in parallel. Results are returned in input
// order; the first error aborts the batch.
func (s *Service) ScoreBatch(ctx context.Context, subjects []SubjectInput) ([]SubjectResult, error) {
	runID := uuid.NewString()
	s.log.Info().
		Str("run_id", runID).
		Int("subjects", len(subjects)).
		Int("workers", s.workers).
		Msg("recovery scoring run started")

	results := make([]SubjectResult, len(subjects))
	errs := make([]error, len(subjects))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := s.ScoreSubject(ctx, subjects[i])
				if err != nil {
					errs[i] = err
					continue
				}
				results[i] = *res
			}
		}()
	}
	for i := range subjects {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	s.log.Info().Str("run_id", runID).Msg("recovery scoring run complete")
	return results, nil
}
