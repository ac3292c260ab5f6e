package ontology

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Service ties the index builder to the persistent store: one-time (or
// on-demand) builds feed the cache that later runs load instead of re-parsing
// the multi-gigabyte source files.
type Service struct {
	builder *Builder
	store   *PGStore
	log     zerolog.Logger
}

// NewService creates an ontology service. store may be nil for in-memory-only
// runs (tests, one-shot CLI scoring).
func NewService(builder *Builder, store *PGStore, logger zerolog.Logger) *Service {
	return &Service{builder: builder, store: store, log: logger}
}

// BuildIndex parses the source files into an in-memory index.
func (s *Service) BuildIndex(ctx context.Context) (*Index, *BuildStats, error) {
	return s.builder.Build(ctx)
}

// BuildAndPersist builds the index and replaces the persistent cache with it.
func (s *Service) BuildAndPersist(ctx context.Context) (*BuildStats, error) {
	if s.store == nil {
		return nil, fmt.Errorf("no persistent store configured")
	}
	ix, stats, err := s.builder.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, ix); err != nil {
		return nil, err
	}
	s.log.Info().
		Int("concepts", stats.Concepts).
		Int("term_keys", stats.TermKeys).
		Int("edges", stats.Edges).
		Msg("index persisted")
	return stats, nil
}

// StoreReady reports whether the persistent cache holds a built index.
func (s *Service) StoreReady(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	return s.store.HasData(ctx)
}
