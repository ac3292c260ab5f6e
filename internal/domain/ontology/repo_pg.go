package ontology

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists a built index into the four-table Postgres schema and
// serves the Store query interface from it. The tables are a pure cache:
// Save replaces their contents wholesale.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore creates a Postgres-backed store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// Save replaces the stored index with the contents of ix. The four tables are
// truncated and bulk-loaded in a single transaction, so readers never observe
// a half-written cache.
func (s *PGStore) Save(ctx context.Context, ix *Index) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE concepts, code_mappings, terms, hierarchy`); err != nil {
		return fmt.Errorf("truncate ontology tables: %w", err)
	}

	concepts := ix.Concepts()
	conceptRows := make([][]interface{}, 0, len(concepts))
	var codeRows [][]interface{}
	for _, c := range concepts {
		conceptRows = append(conceptRows, []interface{}{
			c.ID, c.PreferredName, strings.Join(c.SemanticTypes, ","), c.HasCode(),
		})
		sources := make([]string, 0, len(c.Codes))
		for src := range c.Codes {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		for _, src := range sources {
			codeRows = append(codeRows, []interface{}{c.ID, src, c.Codes[src]})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"concepts"},
		[]string{"id", "preferred_name", "semantic_types", "has_code"},
		pgx.CopyFromRows(conceptRows)); err != nil {
		return fmt.Errorf("copy concepts: %w", err)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"code_mappings"},
		[]string{"concept_id", "code_source", "code"},
		pgx.CopyFromRows(codeRows)); err != nil {
		return fmt.Errorf("copy code mappings: %w", err)
	}

	var termRows [][]interface{}
	for key, entries := range ix.Terms() {
		for _, e := range entries {
			termRows = append(termRows, []interface{}{key, e.ConceptID, e.Original, e.Preferred})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"terms"},
		[]string{"normalized_text", "concept_id", "original_text", "is_preferred"},
		pgx.CopyFromRows(termRows)); err != nil {
		return fmt.Errorf("copy terms: %w", err)
	}

	var edgeRows [][]interface{}
	for child, parents := range ix.ParentEdges() {
		for _, p := range parents {
			edgeRows = append(edgeRows, []interface{}{child, p})
		}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"hierarchy"},
		[]string{"child_id", "parent_id"},
		pgx.CopyFromRows(edgeRows)); err != nil {
		return fmt.Errorf("copy hierarchy: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LookupTerm implements Store.
func (s *PGStore) LookupTerm(ctx context.Context, normalized string) ([]TermMatch, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.concept_id, c.preferred_name, c.has_code
		 FROM terms t
		 JOIN concepts c ON c.id = t.concept_id
		 WHERE t.normalized_text = $1
		 ORDER BY t.concept_id`, normalized)
	if err != nil {
		return nil, fmt.Errorf("lookup term: %w", err)
	}
	defer rows.Close()

	var matches []TermMatch
	for rows.Next() {
		var m TermMatch
		if err := rows.Scan(&m.ConceptID, &m.PreferredName, &m.HasCode); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// ScanTermKeys implements Store. Substring overlap in either direction is
// evaluated in SQL so the fallback path never pulls the full key set over
// the wire.
func (s *PGStore) ScanTermKeys(ctx context.Context, needle string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT normalized_text
		 FROM terms
		 WHERE position($1 in normalized_text) > 0
		    OR position(normalized_text in $1) > 0
		 ORDER BY normalized_text`, needle)
	if err != nil {
		return nil, fmt.Errorf("scan term keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// GetConcept implements Store. Returns nil when the concept is absent.
func (s *PGStore) GetConcept(ctx context.Context, id string) (*Concept, error) {
	var c Concept
	var types string
	err := s.pool.QueryRow(ctx,
		`SELECT id, preferred_name, semantic_types FROM concepts WHERE id = $1`, id).
		Scan(&c.ID, &c.PreferredName, &types)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get concept: %w", err)
	}
	if types != "" {
		c.SemanticTypes = strings.Split(types, ",")
	}

	codes, err := s.CodesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, cm := range codes {
		if c.Codes == nil {
			c.Codes = make(map[string]string)
		}
		c.Codes[cm.Source] = cm.Code
	}
	return &c, nil
}

// Parents implements Store.
func (s *PGStore) Parents(ctx context.Context, id string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT parent_id FROM hierarchy WHERE child_id = $1 ORDER BY parent_id`, id)
	if err != nil {
		return nil, fmt.Errorf("parents: %w", err)
	}
	defer rows.Close()

	var parents []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		parents = append(parents, p)
	}
	return parents, rows.Err()
}

// CodesFor implements Store.
func (s *PGStore) CodesFor(ctx context.Context, id string) ([]CodeMapping, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT code_source, code FROM code_mappings WHERE concept_id = $1 ORDER BY code_source, code`, id)
	if err != nil {
		return nil, fmt.Errorf("codes for concept: %w", err)
	}
	defer rows.Close()

	var codes []CodeMapping
	for rows.Next() {
		var cm CodeMapping
		if err := rows.Scan(&cm.Source, &cm.Code); err != nil {
			return nil, err
		}
		codes = append(codes, cm)
	}
	return codes, rows.Err()
}

// HasData implements Store.
func (s *PGStore) HasData(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM concepts)`).Scan(&exists); err != nil {
		return false, fmt.Errorf("has data: %w", err)
	}
	return exists, nil
}
