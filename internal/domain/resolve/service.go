package resolve

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Service composes the resolver and the hierarchical mapper into the single
// entry point external extraction drivers use: free-text term in, zero or
// more ResolvedMapping records out.
type Service struct {
	resolver *Resolver
	mapper   *Mapper
	cache    Cache // nil disables caching
	decay    float64
	log      zerolog.Logger
}

// NewService creates a resolve service. decay <= 0 selects the default 0.9
// multiplicative per-level confidence decay.
func NewService(resolver *Resolver, mapper *Mapper, cache Cache, decay float64, logger zerolog.Logger) *Service {
	if decay <= 0 {
		decay = 0.9
	}
	return &Service{resolver: resolver, mapper: mapper, cache: cache, decay: decay, log: logger}
}

// ResolveTerm maps a free-text indication to classification codes. Candidates
// that reach no mapped concept contribute nothing; a term with no mapping at
// all yields an empty list, never an error.
func (s *Service) ResolveTerm(ctx context.Context, term string, limit int) ([]ResolvedMapping, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	normalized := Normalize(term)
	if normalized == "" {
		return nil, nil
	}

	key := fmt.Sprintf("%d:%s", limit, normalized)
	if s.cache != nil {
		if mappings, ok := s.cache.Get(ctx, key); ok {
			return withSourceTerm(mappings, term), nil
		}
	}

	candidates, err := s.resolver.Resolve(ctx, term, limit)
	if err != nil {
		return nil, err
	}

	var mappings []ResolvedMapping
	for _, cand := range candidates {
		result, err := s.mapper.Map(ctx, cand.ConceptID)
		if err != nil {
			return nil, err
		}
		if result == nil {
			continue
		}
		confidence := cand.Score * math.Pow(s.decay, float64(result.Depth))
		for _, code := range result.Codes {
			mappings = append(mappings, ResolvedMapping{
				SourceTerm:    term,
				ConceptID:     cand.ConceptID,
				PreferredName: cand.PreferredName,
				CodeSource:    code.Source,
				Code:          code.Code,
				MappingMethod: result.Method,
				Confidence:    confidence,
				Depth:         result.Depth,
			})
		}
	}

	if s.cache != nil {
		s.cache.Set(ctx, key, mappings)
	}
	return mappings, nil
}

// ResolveBatch resolves a list of terms. Misses appear as empty entries so
// callers can distinguish "asked, no mapping" from "not asked".
func (s *Service) ResolveBatch(ctx context.Context, terms []string, limit int) (map[string][]ResolvedMapping, error) {
	out := make(map[string][]ResolvedMapping, len(terms))
	for _, term := range terms {
		mappings, err := s.ResolveTerm(ctx, term, limit)
		if err != nil {
			return nil, err
		}
		if mappings == nil {
			mappings = []ResolvedMapping{}
		}
		out[term] = mappings
	}
	return out, nil
}

// MapConcept runs the hierarchical mapper for a single concept id. Returns
// nil when no mapped ancestor is reachable.
func (s *Service) MapConcept(ctx context.Context, conceptID string) (*CodeResult, error) {
	if conceptID == "" {
		return nil, fmt.Errorf("concept id is required")
	}
	return s.mapper.Map(ctx, conceptID)
}

// withSourceTerm restamps cached mappings with the caller's original spelling
// (different raw strings can normalize to the same cache key).
func withSourceTerm(mappings []ResolvedMapping, term string) []ResolvedMapping {
	out := make([]ResolvedMapping, len(mappings))
	for i, m := range mappings {
		m.SourceTerm = term
		out[i] = m
	}
	return out
}
