package recovery

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// methodColumns returns the union of method names across all results, sorted,
// so every report has a stable column layout even when some subjects lack a
// method.
func methodColumns(results []SubjectResult) []string {
	seen := make(map[string]bool)
	for _, r := range results {
		for m := range r.Methods {
			seen[m] = true
		}
	}
	methods := make([]string, 0, len(seen))
	for m := range seen {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func reportHeader(methods []string) []string {
	header := []string{"subject"}
	for _, m := range methods {
		header = append(header,
			m+"_code_recovery_pct",
			m+"_chapter_recovery_pct",
			m+"_matched_codes",
			m+"_ground_truth_codes",
		)
	}
	return header
}

func reportRow(r SubjectResult, methods []string) []string {
	row := []string{r.Subject}
	for _, m := range methods {
		res := r.Methods[m]
		if res == nil {
			row = append(row, "", "", "", "")
			continue
		}
		row = append(row,
			strconv.FormatFloat(res.CodeRecoveryPct, 'f', 2, 64),
			strconv.FormatFloat(res.ChapterRecoveryPct, 'f', 2, 64),
			strconv.Itoa(res.MatchedCodes),
			strconv.Itoa(res.GroundTruthCodes),
		)
	}
	return row
}

// WriteCSV writes one row per subject with per-method code- and chapter-level
// recovery percentages.
func WriteCSV(w io.Writer, results []SubjectResult) error {
	methods := methodColumns(results)
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader(methods)); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}
	for _, r := range results {
		if err := cw.Write(reportRow(r, methods)); err != nil {
			return fmt.Errorf("write report row %s: %w", r.Subject, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the same report as a workbook for consumers who annotate
// results by hand.
func WriteXLSX(path string, results []SubjectResult) error {
	methods := methodColumns(results)

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Recovery"
	f.SetSheetName("Sheet1", sheet)

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		cells := make([]interface{}, len(values))
		for i, v := range values {
			cells[i] = v
		}
		return f.SetSheetRow(sheet, cell, &cells)
	}

	if err := writeRow(1, reportHeader(methods)); err != nil {
		return fmt.Errorf("write xlsx header: %w", err)
	}
	for i, r := range results {
		if err := writeRow(i+2, reportRow(r, methods)); err != nil {
			return fmt.Errorf("write xlsx row %s: %w", r.Subject, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save xlsx report: %w", err)
	}
	return nil
}
