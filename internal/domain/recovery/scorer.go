package recovery

import (
	"context"
	"strings"

	"github.com/ontomap/ontomap/internal/domain/resolve"
)

// Result holds code- and chapter-level recovery for one ground-truth /
// extracted pair. Percentages are always in [0, 100]; an empty ground-truth
// set is defined as 0.0 recovery so aggregate statistics never see NaN.
type Result struct {
	CodeRecoveryPct     float64 `json:"code_recovery_pct"`
	ChapterRecoveryPct  float64 `json:"chapter_recovery_pct"`
	GroundTruthCodes    int     `json:"ground_truth_codes"`
	ExtractedCodes      int     `json:"extracted_codes"`
	MatchedCodes        int     `json:"matched_codes"`
	GroundTruthChapters int     `json:"ground_truth_chapters"`
	MatchedChapters     int     `json:"matched_chapters"`
}

// TermResolver is the slice of the resolve service the scorer needs.
type TermResolver interface {
	ResolveTerm(ctx context.Context, term string, limit int) ([]resolve.ResolvedMapping, error)
}

// Scorer computes recovery rates by pushing every indication string through
// the resolver+mapper and comparing the resulting code sets.
type Scorer struct {
	resolver TermResolver
	limit    int // candidates per term
}

// NewScorer creates a scorer. limit <= 0 selects the resolver default.
func NewScorer(resolver TermResolver, limit int) *Scorer {
	if limit <= 0 {
		limit = resolve.DefaultLimit
	}
	return &Scorer{resolver: resolver, limit: limit}
}

// Score maps both term lists to code sets and returns code- and
// chapter-level recovery of the ground truth by the extraction.
func (s *Scorer) Score(ctx context.Context, groundTruth, extracted []string) (*Result, error) {
	truthCodes, err := s.codeSet(ctx, groundTruth)
	if err != nil {
		return nil, err
	}
	extractedCodes, err := s.codeSet(ctx, extracted)
	if err != nil {
		return nil, err
	}

	truthChapters := chapterSet(truthCodes)
	extractedChapters := chapterSet(extractedCodes)

	codePct, codeMatched := recoveryPct(truthCodes, extractedCodes)
	chapterPct, chapterMatched := recoveryPct(truthChapters, extractedChapters)

	return &Result{
		CodeRecoveryPct:     codePct,
		ChapterRecoveryPct:  chapterPct,
		GroundTruthCodes:    len(truthCodes),
		ExtractedCodes:      len(extractedCodes),
		MatchedCodes:        codeMatched,
		GroundTruthChapters: len(truthChapters),
		MatchedChapters:     chapterMatched,
	}, nil
}

// codeSet resolves every term and unions the resulting codes. Terms with no
// mapping contribute nothing.
func (s *Scorer) codeSet(ctx context.Context, terms []string) (map[string]bool, error) {
	codes := make(map[string]bool)
	for _, term := range terms {
		mappings, err := s.resolver.ResolveTerm(ctx, term, s.limit)
		if err != nil {
			return nil, err
		}
		for _, m := range mappings {
			codes[m.Code] = true
		}
	}
	return codes, nil
}

func chapterSet(codes map[string]bool) map[string]bool {
	chapters := make(map[string]bool, len(codes))
	for code := range codes {
		if ch := Chapter(code); ch != "" {
			chapters[ch] = true
		}
	}
	return chapters
}

// recoveryPct returns |truth ∩ extracted| / |truth| * 100 and the
// intersection size. Empty truth is 0.0 by policy.
func recoveryPct(truth, extracted map[string]bool) (float64, int) {
	if len(truth) == 0 {
		return 0.0, 0
	}
	matched := 0
	for code := range truth {
		if extracted[code] {
			matched++
		}
	}
	return float64(matched) / float64(len(truth)) * 100.0, matched
}

// Chapter derives the classification chapter from a code: the letter-prefixed
// block before the dot, capped at three characters ("E03.9" -> "E03").
func Chapter(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if i := strings.IndexByte(code, '.'); i >= 0 {
		code = code[:i]
	}
	if len(code) > 3 {
		code = code[:3]
	}
	return code
}
