package resolve

import (
	"strings"

	"github.com/ontomap/ontomap/internal/domain/ontology"
)

// Boilerplate wrappers that extraction output routinely adds around the
// actual condition ("treatment of hypertension", "insulin therapy").
var (
	leadingBoilerplate = []string{
		"treatment of ",
		"treatment for ",
		"therapy for ",
		"management of ",
		"used for ",
		"indicated for ",
	}
	trailingBoilerplate = []string{
		" therapy",
		" treatment",
	}
)

// Normalize canonicalizes a free-text indication string: the shared term
// normalization (case folding, whitespace collapse) plus boilerplate
// stripping. Stripping repeats until stable, so Normalize is idempotent.
func Normalize(s string) string {
	s = ontology.NormalizeTerm(s)
	for {
		stripped := s
		for _, prefix := range leadingBoilerplate {
			stripped = strings.TrimPrefix(stripped, prefix)
		}
		for _, suffix := range trailingBoilerplate {
			stripped = strings.TrimSuffix(stripped, suffix)
		}
		stripped = strings.TrimSpace(stripped)
		if stripped == s {
			return s
		}
		s = stripped
	}
}
