package ontology

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
)

// MRCONSO field positions. Fields beyond the consumed ones are ignored.
const (
	consoFieldCUI      = 0
	consoFieldLanguage = 1
	consoFieldStatus   = 2
	consoFieldIsPref   = 6
	consoFieldSource   = 11
	consoFieldCode     = 13
	consoFieldText     = 14
	consoFieldSuppress = 16
	consoMinFields     = 17
)

// MRSTY field positions.
const (
	styFieldCUI  = 0
	styFieldTUI  = 1
	styMinFields = 2
)

// MRREL field positions.
const (
	relFieldCUI1     = 0
	relFieldRel      = 3
	relFieldCUI2     = 6
	relFieldSuppress = 14
	relMinFields     = 15
)

// maxLineBytes bounds a single source line. Ontology dumps keep rows well
// under this, but the default Scanner limit (64K) is too tight for some
// definition-bearing rows.
const maxLineBytes = 1 << 20

// SourceReader streams lines from a pipe-delimited ontology source file.
// Files ending in .gz are decompressed transparently.
type SourceReader struct {
	path    string
	file    *os.File
	gz      *pgzip.Reader
	scanner *bufio.Scanner
}

// OpenSource opens a source file for line-at-a-time reading. A missing or
// unreadable file is a fatal setup error for the caller.
func OpenSource(path string) (*SourceReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ontology source %s: %w", path, err)
	}

	r := &SourceReader{path: path, file: f}
	var src io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("open gzip source %s: %w", path, err)
		}
		r.gz = gz
		src = gz
	}

	sc := bufio.NewScanner(src)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	r.scanner = sc
	return r, nil
}

// Scan advances to the next line.
func (r *SourceReader) Scan() bool { return r.scanner.Scan() }

// Text returns the current line.
func (r *SourceReader) Text() string { return r.scanner.Text() }

// Err returns the first error encountered while scanning.
func (r *SourceReader) Err() error { return r.scanner.Err() }

// Close releases the underlying file and decompressor.
func (r *SourceReader) Close() error {
	if r.gz != nil {
		r.gz.Close()
	}
	return r.file.Close()
}

// parseConceptRow extracts the consumed MRCONSO fields from a raw line.
// Returns false for rows with too few fields; those are counted by the
// builder, never fatal.
func parseConceptRow(line string) (ConceptRow, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < consoMinFields {
		return ConceptRow{}, false
	}
	return ConceptRow{
		CUI:         fields[consoFieldCUI],
		Language:    fields[consoFieldLanguage],
		TermStatus:  fields[consoFieldStatus],
		IsPref:      fields[consoFieldIsPref],
		SourceVocab: fields[consoFieldSource],
		Code:        fields[consoFieldCode],
		Text:        fields[consoFieldText],
		Suppress:    fields[consoFieldSuppress],
	}, true
}

func parseSemanticTypeRow(line string) (SemanticTypeRow, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < styMinFields {
		return SemanticTypeRow{}, false
	}
	return SemanticTypeRow{
		CUI: fields[styFieldCUI],
		TUI: fields[styFieldTUI],
	}, true
}

func parseRelationRow(line string) (RelationRow, bool) {
	fields := strings.Split(line, "|")
	if len(fields) < relMinFields {
		return RelationRow{}, false
	}
	return RelationRow{
		CUI1:     fields[relFieldCUI1],
		Rel:      fields[relFieldRel],
		CUI2:     fields[relFieldCUI2],
		Suppress: fields[relFieldSuppress],
	}, true
}

// suppressed reports whether a record's suppression flag excludes it.
// "O", "E" and "Y" are the suppressible flags; "N" and empty keep the row.
func suppressed(flag string) bool {
	switch flag {
	case "O", "E", "Y":
		return true
	}
	return false
}
