package resolve

import "github.com/ontomap/ontomap/internal/domain/ontology"

// Match types reported by the resolver.
const (
	MatchExact = "exact"
	MatchFuzzy = "fuzzy"
)

// Candidate is one ranked concept candidate for a free-text term.
type Candidate struct {
	ConceptID     string  `json:"concept_id"`
	PreferredName string  `json:"preferred_name"`
	Score         float64 `json:"score"`
	MatchType     string  `json:"match_type"`
	HasCode       bool    `json:"has_code"`
}

// CodeResult is the hierarchical mapper's output for one concept: the
// winning concept (the concept itself, or its nearest mapped ancestor) and
// every classification code attached to it. Callers treat Codes as a set.
type CodeResult struct {
	ConceptID string                 `json:"concept_id"`
	Method    string                 `json:"mapping_method"` // "direct" or "parent_L<depth>"
	Depth     int                    `json:"depth"`
	Codes     []ontology.CodeMapping `json:"codes"`
}

// ResolvedMapping is the full resolver+mapper output for one source term and
// one (concept, code) pair.
type ResolvedMapping struct {
	SourceTerm    string  `json:"source_term"`
	ConceptID     string  `json:"concept_id"`
	PreferredName string  `json:"preferred_name"`
	CodeSource    string  `json:"code_source"`
	Code          string  `json:"code"`
	MappingMethod string  `json:"mapping_method"`
	Confidence    float64 `json:"confidence"`
	Depth         int     `json:"depth"`
}
