package ontology

import (
	"strings"

	"golang.org/x/text/cases"
)

var foldCaser = cases.Fold()

// NormalizeTerm produces the canonical lookup key for a term string:
// Unicode case folding, trimming, and collapsing of internal whitespace.
// The same function is applied at index-build time and at query time so the
// two sides can never disagree. Idempotent.
func NormalizeTerm(s string) string {
	s = foldCaser.String(s)
	return strings.Join(strings.Fields(s), " ")
}
