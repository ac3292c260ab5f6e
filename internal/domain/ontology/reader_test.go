package ontology

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
)

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeGzipLines(t *testing.T, path string, lines []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	gz := pgzip.NewWriter(f)
	if _, err := gz.Write([]byte(strings.Join(lines, "\n") + "\n")); err != nil {
		t.Fatalf("write gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip: %v", err)
	}
}

func TestOpenSourceMissingFileIsFatal(t *testing.T) {
	if _, err := OpenSource(filepath.Join(t.TempDir(), "nope.rrf")); err == nil {
		t.Fatal("expected error for missing source file")
	}
}

func TestOpenSourceReadsPlainAndGzip(t *testing.T) {
	dir := t.TempDir()
	lines := []string{"a|b|c", "d|e|f"}

	plain := filepath.Join(dir, "plain.rrf")
	writeLines(t, plain, lines)
	gzipped := filepath.Join(dir, "gzipped.rrf.gz")
	writeGzipLines(t, gzipped, lines)

	for _, path := range []string{plain, gzipped} {
		r, err := OpenSource(path)
		if err != nil {
			t.Fatalf("OpenSource(%s): %v", path, err)
		}
		var got []string
		for r.Scan() {
			got = append(got, r.Text())
		}
		if err := r.Err(); err != nil {
			t.Fatalf("scan %s: %v", path, err)
		}
		r.Close()
		if len(got) != 2 || got[0] != "a|b|c" || got[1] != "d|e|f" {
			t.Errorf("read %s = %v", path, got)
		}
	}
}

func TestParseConceptRow(t *testing.T) {
	line := "C0020676|ENG|P|L001|PF|S001|Y|A001|||C1234|ICD10CM|PT|E03.9|Hypothyroidism|0|N|"
	row, ok := parseConceptRow(line)
	if !ok {
		t.Fatal("parseConceptRow returned not ok")
	}
	if row.CUI != "C0020676" || row.Language != "ENG" || row.TermStatus != "P" ||
		row.IsPref != "Y" || row.SourceVocab != "ICD10CM" || row.Code != "E03.9" ||
		row.Text != "Hypothyroidism" || row.Suppress != "N" {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestParseConceptRowTooFewFields(t *testing.T) {
	if _, ok := parseConceptRow("C0020676|ENG|P"); ok {
		t.Error("expected short row to be rejected")
	}
}

func TestParseSemanticTypeRow(t *testing.T) {
	row, ok := parseSemanticTypeRow("C0020676|T047|B2.2.1.2.1|Disease or Syndrome|AT17683839|3840|")
	if !ok {
		t.Fatal("parseSemanticTypeRow returned not ok")
	}
	if row.CUI != "C0020676" || row.TUI != "T047" {
		t.Errorf("unexpected row: %+v", row)
	}
	if _, ok := parseSemanticTypeRow("C0020676"); ok {
		t.Error("expected short row to be rejected")
	}
}

func TestParseRelationRow(t *testing.T) {
	row, ok := parseRelationRow("C9999999|A1|AUI|PAR|A2|AUI|C0020676|isa|R1||MTH|MTH|||N|")
	if !ok {
		t.Fatal("parseRelationRow returned not ok")
	}
	if row.CUI1 != "C9999999" || row.Rel != "PAR" || row.CUI2 != "C0020676" || row.Suppress != "N" {
		t.Errorf("unexpected row: %+v", row)
	}
	if _, ok := parseRelationRow("C9999999|A1|AUI|PAR"); ok {
		t.Error("expected short row to be rejected")
	}
}

func TestSuppressedFlags(t *testing.T) {
	for _, flag := range []string{"O", "E", "Y"} {
		if !suppressed(flag) {
			t.Errorf("suppressed(%q) = false, want true", flag)
		}
	}
	for _, flag := range []string{"N", ""} {
		if suppressed(flag) {
			t.Errorf("suppressed(%q) = true, want false", flag)
		}
	}
}
