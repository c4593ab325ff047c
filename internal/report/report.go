// Package report assembles the four dashboard sections from a processed
// survey and renders them as markdown. The HTML and terminal dashboards
// read the same model.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

// NoData is shown in place of a headline with no qualifying subject.
const NoData = "データなし"

// Section identifiers, in display order.
const (
	SectionOverview = "overview"
	SectionUsage    = "usage"
	SectionTime     = "time"
	SectionFeedback = "feedback"
)

// Limits of the lists shown in each section.
const (
	TopChallenges = 10
	TopWords      = 30
	MaxExamples   = 5
	MaxExcerpts   = 5
)

// SectionIDs lists the sections in display order.
func SectionIDs() []string {
	return []string{SectionOverview, SectionUsage, SectionTime, SectionFeedback}
}

// SectionTitle returns the heading of a section.
func SectionTitle(id string) string {
	switch id {
	case SectionOverview:
		return "概要"
	case SectionUsage:
		return "利用頻度・生産性分析"
	case SectionTime:
		return "時間・労力削減効果"
	case SectionFeedback:
		return "課題とフィードバック"
	}
	return id
}

// Card is one headline figure.
type Card struct {
	Label string
	Value string
	Delta string
}

// TrendPoint is a monthly mean.
type TrendPoint struct {
	Month string
	Value float64
}

// Trend is the monthly line of one tool or task for the process team.
type Trend struct {
	Name   string
	Points []TrendPoint
}

// Overview is the response summary.
type Overview struct {
	Total       int
	Director    int
	Engineering int
	Months      []string
	Monthly     []aggregate.TeamCount
	Processes   []survey.Process
}

// Usage is the frequency and contribution analysis of one process.
type Usage struct {
	Process           survey.Process
	Metrics           headline.ToolMetrics
	Cards             []Card
	Frequency         []headline.Value
	FrequencyTrend    []Trend
	ContributionTrend []Trend
	Combined          []headline.Value
	Crosstabs         []*aggregate.Crosstab
}

// Crosstab returns the crosstab of a tool, or nil.
func (u Usage) Crosstab(tool string) *aggregate.Crosstab {
	for _, ct := range u.Crosstabs {
		if ct.Tool == tool {
			return ct
		}
	}
	return nil
}

// TimeSaving is the time reduction analysis of one process.
type TimeSaving struct {
	Process  survey.Process
	Metrics  headline.TimeMetrics
	Cards    []Card
	Averages []headline.Value
	Trend    []Trend
	Examples []aggregate.Example
}

// Feedback is the challenge tally and free-text feedback.
type Feedback struct {
	Challenges map[survey.ProcessKind][]tally.Item
	Training   []tally.Item
	Monthly    []MonthlyFeedback
	Words      []tally.Item
	Excerpts   []string
}

// MonthlyFeedback is the challenge and training tally of one designated
// month. A process without a challenge question has no entry.
type MonthlyFeedback struct {
	Month      string
	Challenges map[survey.ProcessKind][]tally.Item
	Training   []tally.Item
}

// TopMonthly is how many items a monthly summary lists.
const TopMonthly = 3

// Summarize joins the first n items as "token (count)". It returns an
// empty string when there are no items.
func Summarize(items []tally.Item, n int) string {
	if n > 0 && len(items) > n {
		items = items[:n]
	}
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", it.Token, it.Count)
	}
	return strings.Join(parts, " · ")
}

// Report is the full dashboard model. A section whose builder failed has
// a nil value and its error set; the other sections are unaffected.
type Report struct {
	Source    string
	Generated time.Time
	Period    headline.Period

	Overview    *Overview
	OverviewErr error
	Usage       []Usage
	UsageErr    error
	Time        []TimeSaving
	TimeErr     error
	Feedback    *Feedback
	FeedbackErr error
}

// Err returns the error of a section.
func (r *Report) Err(id string) error {
	switch id {
	case SectionOverview:
		return r.OverviewErr
	case SectionUsage:
		return r.UsageErr
	case SectionTime:
		return r.TimeErr
	case SectionFeedback:
		return r.FeedbackErr
	}
	return fmt.Errorf("unknown section %q", id)
}

// Builder builds reports for a fixed comparison period.
type Builder struct {
	period headline.Period
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates a builder for period.
func NewBuilder(period headline.Period, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{period: period, logger: logger, now: time.Now}
}

// Build assembles every section.
func (b *Builder) Build(ds *ingest.Dataset, p *aggregate.Processed) *Report {
	r := &Report{Source: ds.Path(), Generated: b.now(), Period: b.period}

	r.OverviewErr = b.guard(SectionOverview, func() error {
		r.Overview = buildOverview(ds)
		return nil
	})
	r.UsageErr = b.guard(SectionUsage, func() error {
		r.Usage = b.buildUsage(ds, p)
		return nil
	})
	r.TimeErr = b.guard(SectionTime, func() error {
		r.Time = b.buildTime(ds, p)
		return nil
	})
	r.FeedbackErr = b.guard(SectionFeedback, func() error {
		r.Feedback = buildFeedback(ds, p)
		return nil
	})
	return r
}

// guard runs a section builder and turns a panic into an error.
func (b *Builder) guard(id string, fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("building %s section: %v", id, rec)
		}
		if err != nil {
			b.logger.Error("report section failed", zap.String("section", id), zap.Error(err))
		}
	}()
	return fn()
}

func buildOverview(ds *ingest.Dataset) *Overview {
	s := aggregate.Summarize(ds)
	return &Overview{
		Total:       s.Total,
		Director:    s.ByTeam[survey.DirectorTeam],
		Engineering: s.ByTeam[survey.EngineeringTeam],
		Months:      s.Months,
		Monthly:     s.Monthly,
		Processes:   survey.Processes(),
	}
}

func (b *Builder) buildUsage(ds *ingest.Dataset, p *aggregate.Processed) []Usage {
	var out []Usage
	for _, proc := range survey.Processes() {
		freq := p.Table(scale.Frequency, proc.Kind)
		contrib := p.Table(scale.Contribution, proc.Kind)
		m := headline.Tools(freq, contrib, proc.Team, b.period)

		u := Usage{
			Process:           proc,
			Metrics:           m,
			Cards:             b.toolCards(proc, m),
			Frequency:         headline.Snapshot(freq, proc.Team, proc.Tools),
			FrequencyTrend:    trends(freq, proc.Team, proc.Tools),
			ContributionTrend: trends(contrib, proc.Team, proc.Tools),
			Combined:          headline.Combined(freq, contrib, proc.Team, b.period.Months, proc.Tools),
		}
		for _, tool := range proc.Tools {
			if ct := aggregate.NewCrosstab(ds, proc, tool); ct != nil {
				u.Crosstabs = append(u.Crosstabs, ct)
			}
		}
		out = append(out, u)
	}
	return out
}

func (b *Builder) buildTime(ds *ingest.Dataset, p *aggregate.Processed) []TimeSaving {
	var out []TimeSaving
	for _, proc := range survey.Processes() {
		t := p.Table(scale.TimeReduction, proc.Kind)
		m := headline.TimeReduction(t, proc.Team, b.period)
		out = append(out, TimeSaving{
			Process:  proc,
			Metrics:  m,
			Cards:    b.timeCards(proc, m),
			Averages: headline.TaskAverages(t),
			Trend:    trends(t, proc.Team, proc.Tasks),
			Examples: aggregate.Examples(ds, proc, MaxExamples),
		})
	}
	return out
}

func buildFeedback(ds *ingest.Dataset, p *aggregate.Processed) *Feedback {
	f := &Feedback{Challenges: make(map[survey.ProcessKind][]tally.Item)}
	for _, proc := range survey.Processes() {
		if c, ok := p.Challenges(proc.Kind); ok {
			f.Challenges[proc.Kind] = c.Top(TopChallenges)
		}
	}
	if c, ok := p.Training(); ok {
		f.Training = c.Items()
	}
	for _, month := range p.Months() {
		m := MonthlyFeedback{Month: month, Challenges: make(map[survey.ProcessKind][]tally.Item)}
		for _, proc := range survey.Processes() {
			if c, ok := p.MonthlyChallenges(month, proc.Kind); ok {
				m.Challenges[proc.Kind] = c.Top(TopChallenges)
			}
		}
		if c, ok := p.MonthlyTraining(month); ok {
			m.Training = c.Items()
		}
		f.Monthly = append(f.Monthly, m)
	}
	f.Words = tally.Words(p.Feedback()).Top(TopWords)
	f.Excerpts = aggregate.Excerpts(ds, survey.OpenFeedbackColumn(), MaxExcerpts)
	return f
}

// trends returns the team's monthly lines in catalogue order. Subjects
// without data for the team are skipped.
func trends(t aggregate.Table, team string, names []string) []Trend {
	var out []Trend
	for _, n := range names {
		s, ok := t.Series(n)
		if !ok {
			continue
		}
		values := s.Monthly(team)
		if len(values) == 0 {
			continue
		}
		months := make([]string, 0, len(values))
		for m := range values {
			months = append(months, m)
		}
		ingest.SortMonths(months)
		tr := Trend{Name: n}
		for _, m := range months {
			tr.Points = append(tr.Points, TrendPoint{Month: m, Value: values[m]})
		}
		out = append(out, tr)
	}
	return out
}

// PeriodLabel renders the comparison as e.g. "5月→7月".
func PeriodLabel(p headline.Period) string {
	return shortMonth(p.Earlier) + "→" + shortMonth(p.Later)
}

func shortMonth(label string) string {
	if i := strings.Index(label, "年"); i >= 0 {
		return label[i+len("年"):]
	}
	return label
}

func (b *Builder) toolCards(proc survey.Process, m headline.ToolMetrics) []Card {
	cards := []Card{
		pickCard("🏆 "+proc.Label+"最高利用ツール", m.MostUsed, survey.DisplayName, "平均%.1f点"),
		pickCard("⭐ "+proc.Label+"最高貢献ツール", m.BestContribution, survey.DisplayName, "平均%.1f点"),
		pickCard("🎯 "+proc.Label+"総合評価最高", m.BestCombined, survey.DisplayName, "総合%.1f点"),
	}
	c := Card{Label: "📈 " + PeriodLabel(b.period) + " 最高改善", Value: NoData}
	if m.MostImproved != nil {
		c.Value = survey.DisplayName(m.MostImproved.Name)
		c.Delta = fmt.Sprintf("+%.1fpt", m.MostImproved.Delta)
	}
	return append(cards, c)
}

const cardNameWidth = 30

func (b *Builder) timeCards(proc survey.Process, m headline.TimeMetrics) []Card {
	short := func(s string) string { return Truncate(s, cardNameWidth) }
	cards := []Card{
		pickCard("🏆 "+proc.Label+"最高削減効果", m.BestTask, short, "%.1f%%削減"),
	}

	c := Card{Label: "📈 " + PeriodLabel(b.period) + " 最高改善", Value: NoData}
	if m.MostImproved != nil {
		c.Value = short(m.MostImproved.Name)
		c.Delta = fmt.Sprintf("+%.1fpt改善", m.MostImproved.Delta)
	}
	cards = append(cards, c)

	c = Card{Label: "📊 " + proc.Label + "平均削減効果", Value: NoData}
	if m.Average != nil {
		c.Value = fmt.Sprintf("%.1f%%", *m.Average)
		c.Delta = "全作業平均"
	}
	cards = append(cards, c)

	c = Card{Label: "✅ 効果的作業割合", Value: NoData}
	if r := m.EffectiveRatio(); r != nil {
		c.Value = fmt.Sprintf("%.0f%%", *r)
		c.Delta = fmt.Sprintf("%d/%d作業", m.Effective, m.Total)
	}
	return append(cards, c)
}

func pickCard(label string, p *headline.Pick, name func(string) string, delta string) Card {
	if p == nil {
		return Card{Label: label, Value: NoData}
	}
	return Card{Label: label, Value: name(p.Name), Delta: fmt.Sprintf(delta, p.Score)}
}

// Write renders r as markdown to path, creating parent directories.
func Write(path string, r *Report) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(r.Markdown()), 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
