package ontology

import (
	"context"
	"sort"
	"strings"
)

// Index is the in-memory form of the three built indexes: concept metadata,
// normalized term -> concepts, and child -> parent hierarchy edges. It is
// immutable after Build returns and implements Store directly, so small
// deployments can resolve terms without a database round trip.
type Index struct {
	concepts map[string]*Concept
	terms    map[string][]TermEntry
	parents  map[string][]string
}

// NewIndex creates an empty index. Exposed for tests; production code obtains
// an Index from Builder.Build.
func NewIndex() *Index {
	return &Index{
		concepts: make(map[string]*Concept),
		terms:    make(map[string][]TermEntry),
		parents:  make(map[string][]string),
	}
}

// ConceptCount returns the number of filtered concepts in the index.
func (ix *Index) ConceptCount() int { return len(ix.concepts) }

// TermCount returns the number of distinct normalized term keys.
func (ix *Index) TermCount() int { return len(ix.terms) }

// EdgeCount returns the number of child->parent hierarchy edges.
func (ix *Index) EdgeCount() int {
	n := 0
	for _, ps := range ix.parents {
		n += len(ps)
	}
	return n
}

// Concepts returns all concepts sorted by id. Used by the persistent store's
// bulk save.
func (ix *Index) Concepts() []*Concept {
	out := make([]*Concept, 0, len(ix.concepts))
	for _, c := range ix.concepts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Terms returns the term index as (normalized key, entries) pairs sorted by
// key. Used by the persistent store's bulk save.
func (ix *Index) Terms() map[string][]TermEntry { return ix.terms }

// ParentEdges returns the hierarchy as child -> parents. Used by the
// persistent store's bulk save.
func (ix *Index) ParentEdges() map[string][]string { return ix.parents }

// ---- Store implementation ----

// LookupTerm implements Store.
func (ix *Index) LookupTerm(_ context.Context, normalized string) ([]TermMatch, error) {
	entries := ix.terms[normalized]
	if len(entries) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(entries))
	var matches []TermMatch
	for _, e := range entries {
		if seen[e.ConceptID] {
			continue
		}
		seen[e.ConceptID] = true
		c := ix.concepts[e.ConceptID]
		if c == nil {
			continue
		}
		matches = append(matches, TermMatch{
			ConceptID:     c.ID,
			PreferredName: c.PreferredName,
			HasCode:       c.HasCode(),
		})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ConceptID < matches[j].ConceptID })
	return matches, nil
}

// ScanTermKeys implements Store.
func (ix *Index) ScanTermKeys(_ context.Context, needle string) ([]string, error) {
	var keys []string
	for k := range ix.terms {
		if strings.Contains(k, needle) || strings.Contains(needle, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// GetConcept implements Store.
func (ix *Index) GetConcept(_ context.Context, id string) (*Concept, error) {
	return ix.concepts[id], nil
}

// Parents implements Store.
func (ix *Index) Parents(_ context.Context, id string) ([]string, error) {
	return ix.parents[id], nil
}

// CodesFor implements Store.
func (ix *Index) CodesFor(_ context.Context, id string) ([]CodeMapping, error) {
	c := ix.concepts[id]
	if c == nil || len(c.Codes) == 0 {
		return nil, nil
	}
	out := make([]CodeMapping, 0, len(c.Codes))
	for src, code := range c.Codes {
		out = append(out, CodeMapping{Source: src, Code: code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

// HasData implements Store.
func (ix *Index) HasData(_ context.Context) (bool, error) {
	return len(ix.concepts) > 0, nil
}
