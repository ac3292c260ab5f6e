package resolve

import (
	"context"
	"sort"

	"github.com/ontomap/ontomap/internal/domain/ontology"
)

// DefaultLimit caps candidate lists when the caller does not ask for a size.
const DefaultLimit = 5

// minFuzzyLength guards the fallback path: very short normalized terms
// produce too many accidental substring hits to be useful.
const minFuzzyLength = 4

// Resolver looks up free-text terms against the term index and returns
// ranked candidate concepts. A term with no match yields an empty list,
// never an error.
type Resolver struct {
	store ontology.Store
	floor float64
}

// NewResolver creates a resolver over store. floor is the similarity cutoff
// for the fuzzy fallback path; values <= 0 select the default 0.7.
func NewResolver(store ontology.Store, floor float64) *Resolver {
	if floor <= 0 {
		floor = 0.7
	}
	return &Resolver{store: store, floor: floor}
}

// Resolve returns up to k candidate concepts for term, best first.
func (r *Resolver) Resolve(ctx context.Context, term string, k int) ([]Candidate, error) {
	if k <= 0 {
		k = DefaultLimit
	}
	normalized := Normalize(term)
	if normalized == "" {
		return nil, nil
	}

	matches, err := r.store.LookupTerm(ctx, normalized)
	if err != nil {
		return nil, err
	}
	var candidates []Candidate
	for _, m := range matches {
		candidates = append(candidates, Candidate{
			ConceptID:     m.ConceptID,
			PreferredName: m.PreferredName,
			Score:         1.0,
			MatchType:     MatchExact,
			HasCode:       m.HasCode,
		})
	}

	if len(candidates) == 0 && len(normalized) >= minFuzzyLength {
		candidates, err = r.fuzzy(ctx, normalized)
		if err != nil {
			return nil, err
		}
	}

	rankCandidates(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

// fuzzy scans term keys for substring overlap in either direction and scores
// each hit by the length ratio min/max of the two strings.
func (r *Resolver) fuzzy(ctx context.Context, normalized string) ([]Candidate, error) {
	keys, err := r.store.ScanTermKeys(ctx, normalized)
	if err != nil {
		return nil, err
	}

	best := make(map[string]Candidate)
	for _, key := range keys {
		score := lengthRatio(normalized, key)
		if score < r.floor {
			continue
		}
		matches, err := r.store.LookupTerm(ctx, key)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			cur, ok := best[m.ConceptID]
			if ok && cur.Score >= score {
				continue
			}
			best[m.ConceptID] = Candidate{
				ConceptID:     m.ConceptID,
				PreferredName: m.PreferredName,
				Score:         score,
				MatchType:     MatchFuzzy,
				HasCode:       m.HasCode,
			}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	return candidates, nil
}

func lengthRatio(a, b string) float64 {
	la, lb := len(a), len(b)
	if la == 0 || lb == 0 {
		return 0
	}
	if la > lb {
		la, lb = lb, la
	}
	return float64(la) / float64(lb)
}

// rankCandidates orders by score, then prefers candidates that already carry
// a direct code (they save a hierarchy traversal), then concept id for
// determinism.
func rankCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.HasCode != b.HasCode {
			return a.HasCode
		}
		return a.ConceptID < b.ConceptID
	})
}
