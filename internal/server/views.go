package server

import (
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/chart"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

const labelWidth = 30

type overview struct {
	*report.Overview
	First        string
	Last         string
	MonthlyChart template.HTML
}

func overviewView(rep *report.Report) *overview {
	if rep.Overview == nil {
		return nil
	}
	bars := make([]chart.Bar, len(rep.Overview.Monthly))
	for i, c := range rep.Overview.Monthly {
		bars[i] = chart.Bar{Label: c.Month + " " + c.Team, Value: float64(c.Count)}
	}
	v := &overview{
		Overview:     rep.Overview,
		MonthlyChart: chart.HBar(bars, chart.Options{Format: "%.0f"}),
	}
	if n := len(rep.Overview.Months); n > 0 {
		v.First, v.Last = rep.Overview.Months[0], rep.Overview.Months[n-1]
	}
	return v
}

type toolOption struct {
	Name     string
	Label    string
	Selected bool
}

type usageView struct {
	Process           survey.Process
	Cards             []report.Card
	FrequencyHeatmap  template.HTML
	FrequencyNote     string
	FrequencyTrend    template.HTML
	ContributionNote  string
	ContributionTrend template.HTML
	CombinedNote      string
	CombinedHeatmap   template.HTML
	Param             string
	Tools             []toolOption
	Selected          string
	Crosstab          *aggregate.Crosstab
	CrosstabHeatmap   template.HTML
}

func newUsageView(u report.Usage, selected string) usageView {
	lo, hi := scale.Bounds(scale.Frequency)
	v := usageView{
		Process:           u.Process,
		Cards:             u.Cards,
		FrequencyHeatmap:  valueHeatmap(u.Process.DisplayLabel(), u.Frequency, "%.1f", lo, hi),
		FrequencyNote:     scaleNote(u.Process, scale.Frequency),
		FrequencyTrend:    trendChart(u.FrequencyTrend, survey.DisplayName, chart.Options{Format: "%.1f", Min: chart.Bound(lo), Max: chart.Bound(hi)}),
		ContributionNote:  scaleNote(u.Process, scale.Contribution),
		ContributionTrend: trendChart(u.ContributionTrend, survey.DisplayName, chart.Options{Format: "%.1f", Min: chart.Bound(0), Max: chart.Bound(5)}),
		CombinedNote:      combinedNote,
		CombinedHeatmap:   valueHeatmap(u.Process.DisplayLabel(), u.Combined, "%.2f", 0, 25),
		Param:             string(u.Process.Kind) + "_tool",
	}

	if !contains(u.Process.Tools, selected) && len(u.Process.Tools) > 0 {
		selected = u.Process.Tools[0]
	}
	v.Selected = selected
	for _, t := range u.Process.Tools {
		v.Tools = append(v.Tools, toolOption{Name: t, Label: survey.DisplayName(t), Selected: t == selected})
	}
	if ct := u.Crosstab(selected); ct != nil {
		v.Crosstab = ct
		cells := make([][]float64, len(ct.Cells))
		for i, row := range ct.Cells {
			cells[i] = make([]float64, len(row))
			for j, n := range row {
				cells[i][j] = float64(n)
			}
		}
		v.CrosstabHeatmap = chart.Heatmap(ct.Rows, ct.Columns, cells, chart.Options{Format: "%.0f"})
	}
	return v
}

type example struct {
	Index   int
	Preview string
	Text    string
}

type timeView struct {
	Process  survey.Process
	Cards    []report.Card
	HasData  bool
	Averages template.HTML
	Trend    template.HTML
	Title    string
	Examples []example
}

func newTimeView(t report.TimeSaving, p headline.Period) timeView {
	short := func(s string) string { return report.Truncate(s, labelWidth) }
	bars := make([]chart.Bar, len(t.Averages))
	for i, a := range t.Averages {
		bars[i] = chart.Bar{Label: short(a.Name), Value: a.Score}
	}
	lo, hi := scale.Bounds(scale.TimeReduction)
	v := timeView{
		Process:  t.Process,
		Cards:    t.Cards,
		HasData:  len(t.Averages) > 0,
		Averages: chart.HBar(bars, chart.Options{Format: "%.1f%%", Min: chart.Bound(lo), Max: chart.Bound(hi)}),
		Trend:    trendChart(t.Trend, short, chart.Options{Format: "%.0f", Min: chart.Bound(lo), Max: chart.Bound(hi)}),
		Title:    fmt.Sprintf("時間削減効果の推移（%s・%s〜%s）", t.Process.Label, shortMonth(p.Earlier), shortMonth(p.Later)),
	}
	for i, ex := range t.Examples {
		v.Examples = append(v.Examples, example{Index: i + 1, Preview: ex.Preview, Text: ex.Text})
	}
	return v
}

type challengeView struct {
	Process survey.Process
	Asked   bool
	Chart   template.HTML
}

type word struct {
	Token string
	Count int
	Size  int
}

type monthlyRow struct {
	Month string
	Cells []string
}

type feedbackView struct {
	Challenges    []challengeView
	Training      template.HTML
	MonthlyHeader []string
	Monthly       []monthlyRow
	Words         []word
	Excerpts      []string
}

func newFeedbackView(f *report.Feedback) *feedbackView {
	if f == nil {
		return nil
	}
	v := &feedbackView{Excerpts: f.Excerpts}
	for _, p := range survey.Processes() {
		items, ok := f.Challenges[p.Kind]
		v.Challenges = append(v.Challenges, challengeView{Process: p, Asked: ok, Chart: countChart(items)})
	}
	v.Training = countChart(f.Training)

	if len(f.Monthly) > 0 {
		for _, p := range survey.Processes() {
			v.MonthlyHeader = append(v.MonthlyHeader, p.Label)
		}
		v.MonthlyHeader = append(v.MonthlyHeader, "トレーニング")
	}
	for _, m := range f.Monthly {
		row := monthlyRow{Month: m.Month}
		for _, p := range survey.Processes() {
			row.Cells = append(row.Cells, report.Summarize(m.Challenges[p.Kind], report.TopMonthly))
		}
		row.Cells = append(row.Cells, report.Summarize(m.Training, report.TopMonthly))
		v.Monthly = append(v.Monthly, row)
	}

	maxCount := 1
	for _, w := range f.Words {
		if w.Count > maxCount {
			maxCount = w.Count
		}
	}
	for _, w := range f.Words {
		v.Words = append(v.Words, word{Token: w.Token, Count: w.Count, Size: 12 + 24*w.Count/maxCount})
	}
	sort.SliceStable(v.Words, func(i, j int) bool { return v.Words[i].Token < v.Words[j].Token })
	return v
}

func countChart(items []tally.Item) template.HTML {
	bars := make([]chart.Bar, len(items))
	for i, it := range items {
		bars[i] = chart.Bar{Label: report.Truncate(it.Token, labelWidth), Value: float64(it.Count)}
	}
	return chart.HBar(bars, chart.Options{Format: "%.0f"})
}

func valueHeatmap(row string, values []headline.Value, format string, lo, hi float64) template.HTML {
	cols := make([]string, len(values))
	cells := [][]float64{make([]float64, len(values))}
	for i, v := range values {
		cols[i] = survey.DisplayName(v.Name)
		cells[0][i] = v.Score
	}
	return chart.Heatmap([]string{row}, cols, cells, chart.Options{Format: format, Min: chart.Bound(lo), Max: chart.Bound(hi)})
}

func trendChart(trends []report.Trend, name func(string) string, opts chart.Options) template.HTML {
	seen := make(map[string]bool)
	var months []string
	lines := make([]chart.Line, len(trends))
	for i, t := range trends {
		lines[i].Name = name(t.Name)
		for _, p := range t.Points {
			lines[i].Points = append(lines[i].Points, chart.Point{X: p.Month, Y: p.Value})
			if !seen[p.Month] {
				seen[p.Month] = true
				months = append(months, p.Month)
			}
		}
	}
	ingest.SortMonths(months)
	return chart.Lines(months, lines, opts)
}

const combinedNote = `**計算方法:** 比較期間の各ツールの利用頻度平均と貢献度平均を掛け合わせたスコア。

**意味:** 高いスコアは「頻繁に使われており、かつ生産性向上に貢献している」ツールであることを示します。`

// scaleNote explains a question and its answer scores in markdown.
func scaleNote(p survey.Process, f scale.Family) string {
	levels := scale.Levels(f)
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].Value > levels[j].Value })

	var b strings.Builder
	fmt.Fprintf(&b, "**アンケート質問:** 「%s」\n\n**回答選択肢とスコア:**\n\n", p.Question(f))
	for _, l := range levels {
		fmt.Fprintf(&b, "- %s (%g点)\n", l.Answer, l.Value)
	}
	fmt.Fprintf(&b, "\n**計算方法:** 各月の%sの回答者の平均スコア。", p.Team)
	return b.String()
}

func shortMonth(label string) string {
	if i := strings.Index(label, "年"); i >= 0 {
		return label[i+len("年"):]
	}
	return label
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
