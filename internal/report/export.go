package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/faultmaven/faultmaven-smoke/internal/models"
)

const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusSkipped = "skipped"

	resultsSheet = "Results"
	summarySheet = "Summary"
)

// Document is the exported form of a run.
type Document struct {
	RunID      string    `json:"run_id"`
	APIURL     string    `json:"api_url"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Total      int       `json:"total"`
	Passed     int       `json:"passed"`
	Failed     int       `json:"failed"`
	Success    bool      `json:"success"`
	Results    []Entry   `json:"results"`
}

type Entry struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func (r *Reporter) Document(runID, apiURL string) Document {
	doc := Document{
		RunID:      runID,
		APIURL:     apiURL,
		StartedAt:  r.start,
		DurationMS: r.Elapsed().Milliseconds(),
		Total:      r.Total(),
		Passed:     r.Passed(),
		Success:    r.Success(),
		Results:    make([]Entry, 0, len(r.results)),
	}
	doc.Failed = doc.Total - doc.Passed
	for _, res := range r.results {
		doc.Results = append(doc.Results, newEntry(res))
	}
	return doc
}

func newEntry(res models.TestResult) Entry {
	status := StatusFail
	switch {
	case res.Passed:
		status = StatusPass
	case res.Skipped:
		status = StatusSkipped
	}
	return Entry{
		Name:       res.Name,
		Status:     status,
		Message:    res.Message,
		DurationMS: res.Duration.Milliseconds(),
	}
}

// Export writes doc to path. The format follows the file extension.
func Export(path string, doc Document) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return exportJSON(path, doc)
	case ".xlsx":
		return exportXLSX(path, doc)
	default:
		return fmt.Errorf("unsupported report format %q", filepath.Ext(path))
	}
}

func exportJSON(path string, doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func exportXLSX(path string, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return fmt.Errorf("failed to create results sheet: %w", err)
	}

	rows := [][]any{{"Test", "Status", "Details", "Duration (ms)"}}
	for _, e := range doc.Results {
		rows = append(rows, []any{e.Name, e.Status, e.Message, e.DurationMS})
	}
	if err := writeRows(f, resultsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := [][]any{
		{"Run ID", doc.RunID},
		{"API URL", doc.APIURL},
		{"Started", doc.StartedAt.Format(time.RFC3339)},
		{"Duration (ms)", doc.DurationMS},
		{"Total", doc.Total},
		{"Passed", doc.Passed},
		{"Failed", doc.Failed},
		{"Success", doc.Success},
	}
	if err := writeRows(f, summarySheet, summary); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
