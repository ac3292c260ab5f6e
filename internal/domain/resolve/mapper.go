package resolve

import (
	"context"
	"fmt"

	"github.com/ontomap/ontomap/internal/domain/ontology"
)

// Mapper finds the classification codes for a concept: its direct codes if it
// has any, otherwise the codes of the nearest mapped ancestor within
// maxDepth, found by breadth-first traversal over parent edges. The hierarchy
// is not guaranteed acyclic, so the walk keeps a visited set; it therefore
// touches each concept at most once and always terminates.
type Mapper struct {
	store    ontology.Store
	maxDepth int
}

// NewMapper creates a mapper. maxDepth < 0 selects the default of 3;
// maxDepth of 0 restricts the mapper to direct mappings.
func NewMapper(store ontology.Store, maxDepth int) *Mapper {
	if maxDepth < 0 {
		maxDepth = 3
	}
	return &Mapper{store: store, maxDepth: maxDepth}
}

type frontierNode struct {
	id    string
	depth int
}

// Map returns the code result for conceptID, or nil when no mapped concept is
// reachable within maxDepth. A nil result is a valid "no mapping", not an
// error.
func (m *Mapper) Map(ctx context.Context, conceptID string) (*CodeResult, error) {
	visited := make(map[string]bool)
	queue := []frontierNode{{id: conceptID, depth: 0}}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		if visited[node.id] {
			continue
		}
		visited[node.id] = true

		codes, err := m.store.CodesFor(ctx, node.id)
		if err != nil {
			return nil, err
		}
		if len(codes) > 0 {
			method := "direct"
			if node.depth > 0 {
				method = fmt.Sprintf("parent_L%d", node.depth)
			}
			return &CodeResult{
				ConceptID: node.id,
				Method:    method,
				Depth:     node.depth,
				Codes:     codes,
			}, nil
		}

		if node.depth+1 > m.maxDepth {
			continue
		}
		parents, err := m.store.Parents(ctx, node.id)
		if err != nil {
			return nil, err
		}
		for _, p := range parents {
			if !visited[p] {
				queue = append(queue, frontierNode{id: p, depth: node.depth + 1})
			}
		}
	}
	return nil, nil
}
