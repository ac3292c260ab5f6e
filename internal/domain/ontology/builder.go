package ontology

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BuildConfig controls one index build.
type BuildConfig struct {
	ConceptFile      string
	SemanticTypeFile string
	RelationFile     string

	Language      string   // keep only term rows in this language
	SemanticTypes []string // TUI allow-list; concepts with no overlap are dropped
	CodeSources   []string // vocabularies whose codes become code mappings

	Workers   int // parallel chunk workers
	ChunkSize int // lines per chunk
}

// FileStats counts rows consumed from a single source file.
type FileStats struct {
	Rows    int64 `json:"rows"`
	Skipped int64 `json:"skipped"`
}

// BuildStats summarizes one index build.
type BuildStats struct {
	SemanticTypeRows FileStats     `json:"semantic_type_rows"`
	ConceptRows      FileStats     `json:"concept_rows"`
	RelationRows     FileStats     `json:"relation_rows"`
	Concepts         int           `json:"concepts"`
	TermKeys         int           `json:"term_keys"`
	Edges            int           `json:"edges"`
	Elapsed          time.Duration `json:"elapsed"`
}

// Builder constructs the three in-memory indexes from the ontology source
// files. Rows are partitioned into contiguous chunks processed by independent
// workers; each worker fills a private partial index and a single-threaded
// merge combines them, so the parse phase needs no locks.
type Builder struct {
	cfg BuildConfig
	log zerolog.Logger
}

// NewBuilder creates a Builder. Zero Workers/ChunkSize get usable defaults.
func NewBuilder(cfg BuildConfig, logger zerolog.Logger) *Builder {
	if cfg.Workers < 1 {
		cfg.Workers = 4
	}
	if cfg.ChunkSize < 1 {
		cfg.ChunkSize = 50000
	}
	if cfg.Language == "" {
		cfg.Language = "ENG"
	}
	return &Builder{cfg: cfg, log: logger}
}

// Build runs the three passes and returns the merged index. A missing or
// unreadable source file is fatal; malformed rows are skipped and counted.
func (b *Builder) Build(ctx context.Context) (*Index, *BuildStats, error) {
	start := time.Now()
	stats := &BuildStats{}

	allowedTypes := make(map[string]bool, len(b.cfg.SemanticTypes))
	for _, t := range b.cfg.SemanticTypes {
		allowedTypes[t] = true
	}
	allowedSources := make(map[string]bool, len(b.cfg.CodeSources))
	for _, s := range b.cfg.CodeSources {
		allowedSources[s] = true
	}

	// Pass 1: concept id -> semantic types, filtered to the allow-list.
	typePartials, rows, skipped, err := runChunks(b.cfg.SemanticTypeFile, b.cfg.Workers, b.cfg.ChunkSize,
		func(lines []string) (map[string][]string, int64) {
			return parseTypeChunk(lines, allowedTypes)
		})
	if err != nil {
		return nil, nil, err
	}
	stats.SemanticTypeRows = FileStats{Rows: rows, Skipped: skipped}
	conceptTypes := mergeTypePartials(typePartials)
	b.log.Info().
		Int64("rows", rows).
		Int64("skipped", skipped).
		Int("concepts_typed", len(conceptTypes)).
		Msg("semantic type pass complete")

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Pass 2: concepts, terms, code mappings.
	conceptPartials, rows, skipped, err := runChunks(b.cfg.ConceptFile, b.cfg.Workers, b.cfg.ChunkSize,
		func(lines []string) (*partialIndex, int64) {
			return b.parseConceptChunk(lines, conceptTypes, allowedSources)
		})
	if err != nil {
		return nil, nil, err
	}
	stats.ConceptRows = FileStats{Rows: rows, Skipped: skipped}
	ix := mergeConceptPartials(conceptPartials, conceptTypes)
	b.log.Info().
		Int64("rows", rows).
		Int64("skipped", skipped).
		Int("concepts", ix.ConceptCount()).
		Int("term_keys", ix.TermCount()).
		Msg("concept pass complete")

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	// Pass 3: hierarchy edges. Both endpoints must have survived pass 2;
	// the merged concept set is shared read-only with the workers.
	edgePartials, rows, skipped, err := runChunks(b.cfg.RelationFile, b.cfg.Workers, b.cfg.ChunkSize,
		func(lines []string) (map[string]map[string]bool, int64) {
			return parseRelationChunk(lines, ix.concepts)
		})
	if err != nil {
		return nil, nil, err
	}
	stats.RelationRows = FileStats{Rows: rows, Skipped: skipped}
	mergeEdgePartials(ix, edgePartials)

	stats.Concepts = ix.ConceptCount()
	stats.TermKeys = ix.TermCount()
	stats.Edges = ix.EdgeCount()
	stats.Elapsed = time.Since(start)
	b.log.Info().
		Int("concepts", stats.Concepts).
		Int("term_keys", stats.TermKeys).
		Int("edges", stats.Edges).
		Dur("elapsed", stats.Elapsed).
		Msg("index build complete")

	return ix, stats, nil
}

// ---- chunked fan-out ----

type chunk struct {
	idx   int
	lines []string
}

// runChunks streams path into contiguous line chunks, hands each chunk to a
// worker running parse, and returns the partial results in chunk order. The
// returned skipped count is the sum over all chunks.
func runChunks[T any](path string, workers, chunkSize int, parse func([]string) (T, int64)) ([]T, int64, int64, error) {
	r, err := OpenSource(path)
	if err != nil {
		return nil, 0, 0, err
	}
	defer r.Close()

	type result struct {
		idx     int
		val     T
		skipped int64
	}

	chunks := make(chan chunk, workers)
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range chunks {
				v, sk := parse(c.lines)
				results <- result{idx: c.idx, val: v, skipped: sk}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var rows int64
	var readErr error
	go func() {
		defer close(chunks)
		idx := 0
		lines := make([]string, 0, chunkSize)
		for r.Scan() {
			rows++
			lines = append(lines, r.Text())
			if len(lines) == chunkSize {
				chunks <- chunk{idx: idx, lines: lines}
				idx++
				lines = make([]string, 0, chunkSize)
			}
		}
		if len(lines) > 0 {
			chunks <- chunk{idx: idx, lines: lines}
		}
		readErr = r.Err()
	}()

	var collected []result
	var skipped int64
	for res := range results {
		collected = append(collected, res)
		skipped += res.skipped
	}
	if readErr != nil {
		return nil, rows, skipped, fmt.Errorf("read %s: %w", path, readErr)
	}

	sort.Slice(collected, func(i, j int) bool { return collected[i].idx < collected[j].idx })
	out := make([]T, len(collected))
	for i, res := range collected {
		out[i] = res.val
	}
	return out, rows, skipped, nil
}

// ---- pass 1 ----

func parseTypeChunk(lines []string, allowed map[string]bool) (map[string][]string, int64) {
	part := make(map[string][]string)
	var skipped int64
	for _, line := range lines {
		row, ok := parseSemanticTypeRow(line)
		if !ok {
			skipped++
			continue
		}
		if !allowed[row.TUI] {
			continue
		}
		part[row.CUI] = append(part[row.CUI], row.TUI)
	}
	return part, skipped
}

func mergeTypePartials(partials []map[string][]string) map[string][]string {
	merged := make(map[string][]string)
	for _, part := range partials {
		for cui, tuis := range part {
			merged[cui] = append(merged[cui], tuis...)
		}
	}
	// Dedupe and order the TUI sets deterministically.
	for cui, tuis := range merged {
		sort.Strings(tuis)
		out := tuis[:0]
		for i, t := range tuis {
			if i == 0 || t != tuis[i-1] {
				out = append(out, t)
			}
		}
		merged[cui] = out
	}
	return merged
}

// ---- pass 2 ----

// partialIndex is one worker's private slice of the concept/term indexes.
type partialIndex struct {
	concepts map[string]*Concept
	// terms: normalized key -> concept id -> entry, deduped per chunk.
	terms map[string]map[string]TermEntry
}

func (b *Builder) parseConceptChunk(lines []string, conceptTypes map[string][]string, allowedSources map[string]bool) (*partialIndex, int64) {
	part := &partialIndex{
		concepts: make(map[string]*Concept),
		terms:    make(map[string]map[string]TermEntry),
	}
	var skipped int64
	for _, line := range lines {
		row, ok := parseConceptRow(line)
		if !ok {
			skipped++
			continue
		}
		if row.Language != b.cfg.Language || suppressed(row.Suppress) {
			continue
		}
		// Concepts outside the semantic-type allow-list are excluded entirely.
		if len(conceptTypes[row.CUI]) == 0 {
			continue
		}

		c := part.concepts[row.CUI]
		if c == nil {
			c = &Concept{ID: row.CUI}
			part.concepts[row.CUI] = c
		}

		// First preferred row wins; later rows never overwrite.
		if c.PreferredName == "" && row.TermStatus == "P" && row.IsPref == "Y" {
			c.PreferredName = row.Text
		}

		if allowedSources[row.SourceVocab] && row.Code != "" && row.Code != "NOCODE" {
			if c.Codes == nil {
				c.Codes = make(map[string]string)
			}
			c.Codes[row.SourceVocab] = row.Code
		}

		key := NormalizeTerm(row.Text)
		if key == "" {
			continue
		}
		byConcept := part.terms[key]
		if byConcept == nil {
			byConcept = make(map[string]TermEntry)
			part.terms[key] = byConcept
		}
		entry, seen := byConcept[row.CUI]
		if !seen {
			entry = TermEntry{ConceptID: row.CUI, Original: row.Text}
		}
		if row.TermStatus == "P" && row.IsPref == "Y" {
			entry.Preferred = true
		}
		byConcept[row.CUI] = entry
	}
	return part, skipped
}

// mergeConceptPartials combines worker outputs in ascending chunk order.
// Term and code sets are unions (commutative); the only order-sensitive rule
// is "first preferred name wins", which chunk ordering makes deterministic.
func mergeConceptPartials(partials []*partialIndex, conceptTypes map[string][]string) *Index {
	ix := NewIndex()
	for _, part := range partials {
		for cui, pc := range part.concepts {
			c := ix.concepts[cui]
			if c == nil {
				c = &Concept{ID: cui, SemanticTypes: conceptTypes[cui]}
				ix.concepts[cui] = c
			}
			if c.PreferredName == "" && pc.PreferredName != "" {
				c.PreferredName = pc.PreferredName
			}
			// Code values for a (concept, source) pair agree across the
			// source file, so last writer wins is safe.
			for src, code := range pc.Codes {
				if c.Codes == nil {
					c.Codes = make(map[string]string)
				}
				c.Codes[src] = code
			}
		}
		for key, byConcept := range part.terms {
			ids := make([]string, 0, len(byConcept))
			for id := range byConcept {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				entry := byConcept[id]
				if existing := findTerm(ix.terms[key], id); existing >= 0 {
					if entry.Preferred {
						ix.terms[key][existing].Preferred = true
					}
					continue
				}
				ix.terms[key] = append(ix.terms[key], entry)
			}
		}
	}
	return ix
}

func findTerm(entries []TermEntry, conceptID string) int {
	for i, e := range entries {
		if e.ConceptID == conceptID {
			return i
		}
	}
	return -1
}

// ---- pass 3 ----

func parseRelationChunk(lines []string, concepts map[string]*Concept) (map[string]map[string]bool, int64) {
	part := make(map[string]map[string]bool)
	var skipped int64
	for _, line := range lines {
		row, ok := parseRelationRow(line)
		if !ok {
			skipped++
			continue
		}
		if row.Rel != "PAR" || suppressed(row.Suppress) {
			continue
		}
		// Edges referencing excluded concepts are dropped.
		if concepts[row.CUI1] == nil || concepts[row.CUI2] == nil {
			continue
		}
		parents := part[row.CUI1]
		if parents == nil {
			parents = make(map[string]bool)
			part[row.CUI1] = parents
		}
		parents[row.CUI2] = true
	}
	return part, skipped
}

func mergeEdgePartials(ix *Index, partials []map[string]map[string]bool) {
	sets := make(map[string]map[string]bool)
	for _, part := range partials {
		for child, parents := range part {
			set := sets[child]
			if set == nil {
				set = make(map[string]bool)
				sets[child] = set
			}
			for p := range parents {
				set[p] = true
			}
		}
	}
	for child, set := range sets {
		parents := make([]string, 0, len(set))
		for p := range set {
			parents = append(parents, p)
		}
		sort.Strings(parents)
		ix.parents[child] = parents
	}
}
