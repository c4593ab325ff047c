// Package surveytest builds survey exports for tests.
package surveytest

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
)

// Row is one response. Month is written to the 年月 column when any row
// sets it.
type Row struct {
	Timestamp string
	Team      string
	Month     string
	Answers   map[string]string
}

// TSV renders rows as a survey export. Answer columns are sorted by name.
// Cells with line breaks, tabs or quotes are quoted the way form exports do.
func TSV(rows ...Row) []byte {
	withMonth := false
	set := make(map[string]bool)
	for _, r := range rows {
		if r.Month != "" {
			withMonth = true
		}
		for k := range r.Answers {
			set[k] = true
		}
	}
	extra := make([]string, 0, len(set))
	for k := range set {
		extra = append(extra, k)
	}
	sort.Strings(extra)

	header := []string{survey.TimestampColumn, survey.TeamColumn}
	if withMonth {
		header = append(header, survey.MonthColumn)
	}
	header = append(header, extra...)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = '\t'
	records := [][]string{header}
	for _, r := range rows {
		fields := []string{r.Timestamp, r.Team}
		if withMonth {
			fields = append(fields, r.Month)
		}
		for _, k := range extra {
			fields = append(fields, r.Answers[k])
		}
		records = append(records, fields)
	}
	// WriteAll only fails on the underlying writer, which is a buffer.
	_ = w.WriteAll(records)
	return buf.Bytes()
}

// WriteFile stores data under a fresh temp dir and returns its path.
func WriteFile(t testing.TB, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.tsv")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing survey fixture: %v", err)
	}
	return path
}

// Dataset parses rows into a dataset, failing the test on error.
func Dataset(t testing.TB, rows ...Row) *ingest.Dataset {
	t.Helper()
	ds, err := ingest.Parse("fixture.tsv", TSV(rows...))
	if err != nil {
		t.Fatalf("parsing fixture: %v", err)
	}
	return ds
}

// Upstream returns the upstream process, failing never.
func Upstream() survey.Process {
	p, _ := survey.Lookup(survey.Upstream)
	return p
}

// Development returns the development process.
func Development() survey.Process {
	p, _ := survey.Lookup(survey.Development)
	return p
}
