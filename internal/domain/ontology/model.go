package ontology

// Concept is a single node in the ontology: one medical idea identified by a
// stable concept unique identifier (CUI).
type Concept struct {
	ID            string            `json:"id"`
	PreferredName string            `json:"preferred_name"`
	SemanticTypes []string          `json:"semantic_types"`
	Codes         map[string]string `json:"codes,omitempty"` // code source -> code
}

// HasCode reports whether the concept carries at least one classification code.
func (c *Concept) HasCode() bool {
	return len(c.Codes) > 0
}

// CodeMapping is one (source, code) pair attached to a concept.
type CodeMapping struct {
	Source string `json:"source"`
	Code   string `json:"code"`
}

// TermEntry records one synonym string attached to a concept. The normalized
// form is the index key; the original text is kept for display.
type TermEntry struct {
	ConceptID string `json:"concept_id"`
	Original  string `json:"original"`
	Preferred bool   `json:"preferred"`
}

// TermMatch is a term-index hit joined with the concept metadata the resolver
// ranks on.
type TermMatch struct {
	ConceptID     string `json:"concept_id"`
	PreferredName string `json:"preferred_name"`
	HasCode       bool   `json:"has_code"`
}

// ConceptRow is one parsed record from the concept/term source file
// (MRCONSO layout). Only the consumed fields are retained.
type ConceptRow struct {
	CUI         string
	Language    string
	TermStatus  string // "P" marks the preferred term of the concept
	IsPref      string // "Y" marks the preferred atom
	SourceVocab string // code source name, e.g. ICD10CM
	Code        string
	Text        string
	Suppress    string
}

// SemanticTypeRow is one parsed record from the semantic-type source file
// (MRSTY layout).
type SemanticTypeRow struct {
	CUI string
	TUI string
}

// RelationRow is one parsed record from the relationship source file
// (MRREL layout). A REL of "PAR" means CUI2 is a parent of CUI1.
type RelationRow struct {
	CUI1     string
	Rel      string
	CUI2     string
	Suppress string
}
