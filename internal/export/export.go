// Package export writes aggregate series and tallies as CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

// Result lists the files written by an export.
type Result struct {
	Dir   string
	Files []string
}

// Exporter writes processed survey data under a directory.
type Exporter struct {
	dir    string
	logger *zap.Logger
}

// NewExporter creates an exporter for dir.
func NewExporter(dir string, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{dir: dir, logger: logger}
}

// FileName is the export name of one series, e.g.
// "development_frequency_GitHub_Copilot.csv".
func FileName(tableKey, subject string) string {
	r := strings.NewReplacer("/", "_", " ", "_")
	return tableKey + "_" + r.Replace(subject) + ".csv"
}

// Export writes every series of every table and the challenge and training
// tallies. Missing tallies are skipped.
func (e *Exporter) Export(p *aggregate.Processed) (*Result, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export directory: %w", err)
	}
	res := &Result{Dir: e.dir}

	for _, t := range p.Tables() {
		for _, s := range t.All() {
			name := FileName(t.Key(), s.Name)
			if err := e.writeSeries(name, s); err != nil {
				return res, err
			}
			res.Files = append(res.Files, name)
		}
	}

	for _, proc := range survey.Processes() {
		if c, ok := p.Challenges(proc.Kind); ok {
			name := string(proc.Kind) + "_challenges.csv"
			if err := e.writeCounts(name, c); err != nil {
				return res, err
			}
			res.Files = append(res.Files, name)
		}
	}
	if c, ok := p.Training(); ok {
		if err := e.writeCounts("training_needs.csv", c); err != nil {
			return res, err
		}
		res.Files = append(res.Files, "training_needs.csv")
	}

	e.logger.Info("exported processed data",
		zap.String("dir", e.dir),
		zap.Int("files", len(res.Files)))
	return res, nil
}

func (e *Exporter) writeSeries(name string, s aggregate.Series) error {
	records := [][]string{{survey.MonthColumn, survey.TeamColumn, s.Column}}
	for _, k := range s.Keys() {
		p, _ := s.Point(k)
		records = append(records, []string{k.Month, k.Team, strconv.FormatFloat(p.Mean, 'f', -1, 64)})
	}
	return e.write(name, records)
}

func (e *Exporter) writeCounts(name string, c tally.Counts) error {
	records := [][]string{{"item", "count"}}
	for _, it := range c.Items() {
		records = append(records, []string{it.Token, strconv.Itoa(it.Count)})
	}
	return e.write(name, records)
}

func (e *Exporter) write(name string, records [][]string) error {
	path := filepath.Join(e.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	e.logger.Debug("wrote export file", zap.String("path", path), zap.Int("rows", len(records)-1))
	return nil
}
