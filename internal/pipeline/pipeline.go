package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/config"
	"github.com/dev-omotenashi/ai-usage-survey/internal/database"
	"github.com/dev-omotenashi/ai-usage-survey/internal/export"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

// Step names.
const (
	StepLoad      = "Load"
	StepAggregate = "Aggregate"
	StepExport    = "Export"
	StepRecord    = "Record"
	StepReport    = "Report"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Skipped bool
	Err     error
}

// Result holds the results of a pipeline run.
type Result struct {
	RunID  string
	Steps  []StepResult
	Report *report.Report
}

// Failed reports whether any step returned an error.
func (r *Result) Failed() bool {
	for _, s := range r.Steps {
		if s.Err != nil {
			return true
		}
	}
	return false
}

// Pipeline runs Load → Aggregate → Export → Record → Report over the
// configured survey export.
type Pipeline struct {
	cfg    *config.Config
	db     *database.DB
	logger *zap.Logger
}

// New creates a new pipeline. db may be nil, which skips the Record step.
func New(cfg *config.Config, db *database.DB, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, db: db, logger: logger}
}

// Period returns the comparison period configured in cfg.
func Period(cfg *config.Config) headline.Period {
	return headline.Period{
		Months:  append([]string(nil), cfg.Periods.Months...),
		Earlier: cfg.Periods.Baseline,
		Later:   cfg.Periods.Latest,
	}
}

type state struct {
	ds     *ingest.Dataset
	proc   *aggregate.Processed
	files  int
	report *report.Report
}

// Run executes the full pipeline. Load and Aggregate failures stop the
// run; later steps keep going and the run is recorded as failed.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}
	st := &state{}

	step := p.runLoad(st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		p.recordFailure(r, 0)
		return r
	}
	r.Steps = append(r.Steps, p.runAggregate(st))

	if err := ctx.Err(); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: StepExport, Err: err})
		p.recordFailure(r, st.ds.Len())
		return r
	}
	r.Steps = append(r.Steps, p.runExport(st))

	step = p.runRecord(st, r)
	r.Steps = append(r.Steps, step)

	step = p.runReport(st)
	r.Steps = append(r.Steps, step)
	r.Report = st.report

	if r.RunID != "" && step.Err != nil {
		if err := p.db.FinishRun(r.RunID, database.StatusFailed, st.files); err != nil {
			p.logger.Warn("marking run failed", zap.String("run", r.RunID), zap.Error(err))
		}
	}
	return r
}

// Export runs Load, Aggregate and Export only.
func (p *Pipeline) Export(ctx context.Context) *Result {
	return p.partial(ctx, p.runExport)
}

// Report runs Load, Aggregate and Report only.
func (p *Pipeline) Report(ctx context.Context) *Result {
	return p.partial(ctx, p.runReport)
}

func (p *Pipeline) partial(ctx context.Context, last func(*state) StepResult) *Result {
	r := &Result{}
	st := &state{}
	step := p.runLoad(st)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	r.Steps = append(r.Steps, p.runAggregate(st))
	if err := ctx.Err(); err != nil {
		r.Steps = append(r.Steps, StepResult{Name: "Cancelled", Err: err})
		return r
	}
	r.Steps = append(r.Steps, last(st))
	r.Report = st.report
	return r
}

// DryRun shows what would be done without writing anything.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}
	st := &state{}

	step := p.runLoad(st)
	step.Summary = "[dry-run] " + step.Summary
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}
	st.proc = aggregate.Build(st.ds, p.cfg.Periods.Months)

	series := 0
	for _, t := range st.proc.Tables() {
		series += t.Len()
	}
	r.Steps = append(r.Steps, StepResult{
		Name:    StepAggregate,
		Summary: fmt.Sprintf("[dry-run] %d series across %d tables", series, len(st.proc.Tables())),
	})

	if p.cfg.Output.ExportDir == "" {
		r.Steps = append(r.Steps, StepResult{Name: StepExport, Skipped: true, Summary: "[dry-run] export_dir is empty"})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    StepExport,
			Summary: fmt.Sprintf("[dry-run] Would write %d series files to %s", series, p.cfg.Output.ExportDir),
		})
	}

	if p.db == nil {
		r.Steps = append(r.Steps, StepResult{Name: StepRecord, Skipped: true, Summary: "[dry-run] no database"})
	} else {
		summary := "[dry-run] Would record the first run"
		if last, _ := p.db.GetLastSuccessfulRun(); last != nil {
			summary = fmt.Sprintf("[dry-run] Would record a new run (last successful: %s)", last.ID)
		}
		r.Steps = append(r.Steps, StepResult{Name: StepRecord, Summary: summary})
	}

	if p.cfg.Output.ReportPath == "" {
		r.Steps = append(r.Steps, StepResult{Name: StepReport, Skipped: true, Summary: "[dry-run] report_path is empty"})
	} else {
		r.Steps = append(r.Steps, StepResult{
			Name:    StepReport,
			Summary: fmt.Sprintf("[dry-run] Would write report to %s", p.cfg.Output.ReportPath),
		})
	}
	return r
}

func (p *Pipeline) runLoad(st *state) StepResult {
	p.logger.Info("step 1/5: loading survey export", zap.String("path", p.cfg.Data.Path))
	ds, err := ingest.Load(p.cfg.Data.Path)
	if err != nil {
		return StepResult{Name: StepLoad, Err: err}
	}
	st.ds = ds
	return StepResult{
		Name:    StepLoad,
		Summary: fmt.Sprintf("Loaded %d responses over %d months", ds.Len(), len(ds.Months())),
	}
}

func (p *Pipeline) runAggregate(st *state) StepResult {
	p.logger.Info("step 2/5: aggregating scores")
	st.proc = aggregate.Build(st.ds, p.cfg.Periods.Months)
	series := 0
	for _, t := range st.proc.Tables() {
		series += t.Len()
	}
	s := aggregate.Summarize(st.ds)
	return StepResult{
		Name: StepAggregate,
		Summary: fmt.Sprintf("Aggregated %d series (%s %d, %s %d)", series,
			survey.DirectorTeam, s.ByTeam[survey.DirectorTeam],
			survey.EngineeringTeam, s.ByTeam[survey.EngineeringTeam]),
	}
}

func (p *Pipeline) runExport(st *state) StepResult {
	dir := p.cfg.Output.ExportDir
	if dir == "" {
		return StepResult{Name: StepExport, Skipped: true, Summary: "export_dir is empty"}
	}
	p.logger.Info("step 3/5: exporting CSV files", zap.String("dir", dir))
	res, err := export.NewExporter(dir, p.logger).Export(st.proc)
	if res != nil {
		st.files = len(res.Files)
	}
	if err != nil {
		return StepResult{Name: StepExport, Err: err}
	}
	return StepResult{Name: StepExport, Summary: fmt.Sprintf("Wrote %d files to %s", st.files, dir)}
}

// runRecord stores the run with its aggregates and tallies. Errors from
// earlier steps mark the run failed.
func (p *Pipeline) runRecord(st *state, r *Result) StepResult {
	if p.db == nil {
		return StepResult{Name: StepRecord, Skipped: true, Summary: "no database"}
	}
	p.logger.Info("step 4/5: recording run")

	runID, err := p.db.InsertRun(p.cfg.Data.Path, st.ds.Len(), p.cfg.Periods.Months)
	if err != nil {
		return StepResult{Name: StepRecord, Err: err}
	}
	r.RunID = runID

	aggs := AggregateRows(st.proc)
	counts := CountRows(st.proc)
	if err := p.db.InsertAggregates(runID, aggs); err != nil {
		p.finish(runID, database.StatusFailed, st.files)
		return StepResult{Name: StepRecord, Err: err}
	}
	if err := p.db.InsertCounts(runID, counts); err != nil {
		p.finish(runID, database.StatusFailed, st.files)
		return StepResult{Name: StepRecord, Err: err}
	}

	status := database.StatusOK
	if r.Failed() {
		status = database.StatusFailed
	}
	if err := p.db.FinishRun(runID, status, st.files); err != nil {
		return StepResult{Name: StepRecord, Err: err}
	}
	return StepResult{
		Name:    StepRecord,
		Summary: fmt.Sprintf("Recorded run %s: %d aggregates, %d counts", runID, len(aggs), len(counts)),
	}
}

func (p *Pipeline) runReport(st *state) StepResult {
	path := p.cfg.Output.ReportPath
	st.report = report.NewBuilder(Period(p.cfg), p.logger).Build(st.ds, st.proc)
	if path == "" {
		return StepResult{Name: StepReport, Skipped: true, Summary: "report_path is empty"}
	}
	p.logger.Info("step 5/5: writing report", zap.String("path", path))
	if err := report.Write(path, st.report); err != nil {
		return StepResult{Name: StepReport, Err: err}
	}

	var failed []string
	for _, id := range report.SectionIDs() {
		if st.report.Err(id) != nil {
			failed = append(failed, report.SectionTitle(id))
		}
	}
	summary := "Report written to " + path
	if len(failed) > 0 {
		summary += fmt.Sprintf(" (%d sections failed: %s)", len(failed), strings.Join(failed, ", "))
	}
	return StepResult{Name: StepReport, Summary: summary}
}

// recordFailure stores a failed run when the pipeline stops early.
func (p *Pipeline) recordFailure(r *Result, responses int) {
	if p.db == nil {
		return
	}
	runID, err := p.db.InsertRun(p.cfg.Data.Path, responses, p.cfg.Periods.Months)
	if err != nil {
		p.logger.Warn("recording failed run", zap.Error(err))
		return
	}
	r.RunID = runID
	p.finish(runID, database.StatusFailed, 0)
}

func (p *Pipeline) finish(runID, status string, files int) {
	if err := p.db.FinishRun(runID, status, files); err != nil {
		p.logger.Warn("finishing run", zap.String("run", runID), zap.Error(err))
	}
}

// AggregateRows flattens every table into storable rows.
func AggregateRows(proc *aggregate.Processed) []database.AggregateRow {
	var rows []database.AggregateRow
	for _, t := range proc.Tables() {
		for _, s := range t.All() {
			for _, k := range s.Keys() {
				pt, _ := s.Point(k)
				rows = append(rows, database.AggregateRow{
					TableKey: t.Key(),
					Subject:  s.Name,
					Month:    k.Month,
					Team:     k.Team,
					Mean:     pt.Mean,
					N:        pt.N,
				})
			}
		}
	}
	return rows
}

// CountRows flattens the challenge and training tallies. Overall series
// match the export file names without extension; each designated month
// adds the same series suffixed with its label, e.g.
// upstream_challenges_2025年6月. Months without answers add no rows.
func CountRows(proc *aggregate.Processed) []database.CountRow {
	var rows []database.CountRow
	add := func(series string, items []tally.Item) {
		for i, it := range items {
			rows = append(rows, database.CountRow{Series: series, Item: it.Token, Count: it.Count, Rank: i + 1})
		}
	}
	for _, k := range survey.Processes() {
		series := string(k.Kind) + "_challenges"
		if c, ok := proc.Challenges(k.Kind); ok {
			add(series, c.Items())
		}
		for _, month := range proc.Months() {
			if c, ok := proc.MonthlyChallenges(month, k.Kind); ok {
				add(series+"_"+month, c.Items())
			}
		}
	}
	if c, ok := proc.Training(); ok {
		add("training_needs", c.Items())
	}
	for _, month := range proc.Months() {
		if c, ok := proc.MonthlyTraining(month); ok {
			add("training_needs_"+month, c.Items())
		}
	}
	return rows
}
