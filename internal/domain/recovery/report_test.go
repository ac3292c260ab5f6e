package recovery

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func sampleResults() []SubjectResult {
	return []SubjectResult{
		{
			Subject: "levothyroxine",
			Methods: map[string]*Result{
				"llm_a": {CodeRecoveryPct: 50.0, ChapterRecoveryPct: 50.0, MatchedCodes: 1, GroundTruthCodes: 2},
				"llm_b": {CodeRecoveryPct: 100.0, ChapterRecoveryPct: 100.0, MatchedCodes: 2, GroundTruthCodes: 2},
			},
		},
		{
			// Missing llm_b: its cells stay blank, not zero.
			Subject: "metformin",
			Methods: map[string]*Result{
				"llm_a": {CodeRecoveryPct: 0.0, ChapterRecoveryPct: 100.0, MatchedCodes: 0, GroundTruthCodes: 1},
			},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleResults()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	wantHeader := []string{
		"subject",
		"llm_a_code_recovery_pct", "llm_a_chapter_recovery_pct", "llm_a_matched_codes", "llm_a_ground_truth_codes",
		"llm_b_code_recovery_pct", "llm_b_chapter_recovery_pct", "llm_b_matched_codes", "llm_b_ground_truth_codes",
	}
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Errorf("header = %v", rows[0])
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	want1 := []string{"levothyroxine", "50.00", "50.00", "1", "2", "100.00", "100.00", "2", "2"}
	if !reflect.DeepEqual(rows[1], want1) {
		t.Errorf("row 1 = %v, want %v", rows[1], want1)
	}
	want2 := []string{"metformin", "0.00", "100.00", "0", "1", "", "", "", ""}
	if !reflect.DeepEqual(rows[2], want2) {
		t.Errorf("row 2 = %v, want %v", rows[2], want2)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0][0] != "subject" {
		t.Errorf("rows = %v, want header only", rows)
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recovery.xlsx")
	if err := WriteXLSX(path, sampleResults()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Recovery")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[0][0] != "subject" || rows[1][0] != "levothyroxine" || rows[2][0] != "metformin" {
		t.Errorf("subject column = %q, %q, %q", rows[0][0], rows[1][0], rows[2][0])
	}
	if rows[1][1] != "50.00" || rows[1][5] != "100.00" {
		t.Errorf("levothyroxine row = %v", rows[1])
	}
}
