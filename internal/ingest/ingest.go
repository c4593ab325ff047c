// Package ingest reads the survey export into typed response rows.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/araddon/dateparse"

	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseError reports why a survey file could not be loaded.
type ParseError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parsing ")
	b.WriteString(e.Path)
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Response is one respondent's answers for one month. Only non-empty cells
// are kept, so a missing answer, an empty cell and a cell cut off by a
// short row all look the same.
type Response struct {
	Line      int
	Timestamp time.Time
	Team      string
	Month     string
	answers   map[string]string
}

// Answer returns the raw cell for a column.
func (r Response) Answer(column string) (string, bool) {
	v, ok := r.answers[column]
	return v, ok
}

// Dataset is the loaded survey table. It is read-only after Load.
type Dataset struct {
	path    string
	header  []string
	columns map[string]bool
	rows    []Response
}

// Load reads a tab-separated survey export.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "reading file", Err: err}
	}
	return Parse(path, data)
}

// Parse decodes survey bytes. path is only used in error messages.
func Parse(path string, data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, &ParseError{Path: path, Reason: "file is not valid UTF-8"}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = '\t'
	reader.LazyQuotes = true
	// Short rows are padded with missing cells below.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Path: path, Line: 1, Reason: "missing header row"}
		}
		return nil, &ParseError{Path: path, Line: 1, Reason: "reading header", Err: err}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	ds := &Dataset{
		path:    path,
		header:  header,
		columns: make(map[string]bool, len(header)),
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		ds.columns[h] = true
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	for _, required := range []string{survey.TimestampColumn, survey.TeamColumn} {
		if !ds.columns[required] {
			return nil, &ParseError{Path: path, Line: 1, Reason: fmt.Sprintf("missing required column %q", required)}
		}
	}
	_, hasMonth := index[survey.MonthColumn]

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			line := 0
			if errors.As(err, &csvErr) {
				line = csvErr.StartLine
			}
			return nil, &ParseError{Path: path, Line: line, Reason: "malformed row", Err: err}
		}
		line, _ := reader.FieldPos(0)
		if isBlank(record) {
			continue
		}
		if len(record) > len(header) {
			return nil, &ParseError{Path: path, Line: line,
				Reason: fmt.Sprintf("malformed row: %d fields, header has %d", len(record), len(header))}
		}

		resp := Response{Line: line, answers: make(map[string]string, len(record))}
		for h, i := range index {
			if i < len(record) && record[i] != "" {
				resp.answers[h] = record[i]
			}
		}

		resp.Team = strings.TrimSpace(resp.answers[survey.TeamColumn])
		month := ""
		if hasMonth {
			month = strings.TrimSpace(resp.answers[survey.MonthColumn])
		}

		// A blank timestamp is allowed when 年月 names the month; the
		// timestamp is then left zero.
		rawTS := strings.TrimSpace(resp.answers[survey.TimestampColumn])
		if rawTS != "" || month == "" {
			ts, err := dateparse.ParseLocal(rawTS)
			if err != nil {
				return nil, &ParseError{Path: path, Line: line, Reason: fmt.Sprintf("invalid timestamp %q", rawTS), Err: err}
			}
			resp.Timestamp = ts
		}

		resp.Month = month
		if resp.Month == "" {
			resp.Month = MonthLabel(resp.Timestamp)
		}
		ds.rows = append(ds.rows, resp)
	}

	return ds, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// MonthLabel formats a timestamp as the survey month label, e.g. "2025年5月".
func MonthLabel(t time.Time) string {
	return fmt.Sprintf("%d年%d月", t.Year(), int(t.Month()))
}

// MonthOrder converts a month label to a sortable integer (202505).
// Labels that do not parse return 0.
func MonthOrder(label string) int {
	var y, m int
	if _, err := fmt.Sscanf(label, "%d年%d月", &y, &m); err != nil {
		return 0
	}
	return y*100 + m
}

// SortMonths orders month labels chronologically, falling back to string
// order for labels that do not parse.
func SortMonths(months []string) {
	sort.SliceStable(months, func(i, j int) bool {
		a, b := MonthOrder(months[i]), MonthOrder(months[j])
		if a != b {
			return a < b
		}
		return months[i] < months[j]
	})
}

// Path returns the file the dataset was read from.
func (d *Dataset) Path() string { return d.path }

// Len returns the number of responses.
func (d *Dataset) Len() int { return len(d.rows) }

// Rows returns a copy of the response list.
func (d *Dataset) Rows() []Response {
	return append([]Response(nil), d.rows...)
}

// Header returns a copy of the header row.
func (d *Dataset) Header() []string {
	return append([]string(nil), d.header...)
}

// HasColumn reports whether the export contains a column.
func (d *Dataset) HasColumn(name string) bool {
	return d.columns[name]
}

// Months returns the distinct month labels in chronological order.
func (d *Dataset) Months() []string {
	seen := make(map[string]bool)
	var months []string
	for _, r := range d.rows {
		if !seen[r.Month] {
			seen[r.Month] = true
			months = append(months, r.Month)
		}
	}
	SortMonths(months)
	return months
}

// Teams returns the distinct team values in order of first appearance.
func (d *Dataset) Teams() []string {
	seen := make(map[string]bool)
	var teams []string
	for _, r := range d.rows {
		if !seen[r.Team] {
			seen[r.Team] = true
			teams = append(teams, r.Team)
		}
	}
	return teams
}

// Where returns the responses matching team and month. Empty arguments
// match everything.
func (d *Dataset) Where(team, month string) []Response {
	var out []Response
	for _, r := range d.rows {
		if team != "" && r.Team != team {
			continue
		}
		if month != "" && r.Month != month {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Values returns the non-missing cells of a column for the given responses.
func Values(rows []Response, column string) []string {
	var out []string
	for _, r := range rows {
		if v, ok := r.Answer(column); ok {
			out = append(out, v)
		}
	}
	return out
}
