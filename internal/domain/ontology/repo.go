package ontology

import "context"

// Store is the read-side query interface over a built ontology index. It is
// implemented both by the in-memory Index and by the Postgres-backed store,
// so the resolver and mapper run unchanged against either. Implementations
// are read-only after construction and safe for concurrent use.
//
// Lookup misses are empty results, never errors (an error means the store
// itself failed).
type Store interface {
	// LookupTerm returns every concept the normalized term string maps to.
	LookupTerm(ctx context.Context, normalized string) ([]TermMatch, error)

	// ScanTermKeys returns the distinct normalized term keys that overlap
	// needle as a substring in either direction. Used only by the fuzzy
	// fallback path.
	ScanTermKeys(ctx context.Context, needle string) ([]string, error)

	// GetConcept returns the concept with the given id, or nil when absent.
	GetConcept(ctx context.Context, id string) (*Concept, error)

	// Parents returns the parent concept ids of the given concept.
	Parents(ctx context.Context, id string) ([]string, error)

	// CodesFor returns all classification codes attached to the concept,
	// ordered by code source for determinism.
	CodesFor(ctx context.Context, id string) ([]CodeMapping, error)

	// HasData reports whether the store holds a built index.
	HasData(ctx context.Context) (bool, error)
}
