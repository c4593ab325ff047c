package report

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

// Title is the heading of the rendered report.
const Title = "AI活用状況分析レポート"

// Truncate shortens s to at most width display cells, appending "...".
// Wide characters count as two cells.
func Truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

// Markdown renders the whole report.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", Title)
	fmt.Fprintf(&b, "- 対象データ: `%s`\n", r.Source)
	fmt.Fprintf(&b, "- 比較期間: %s\n", PeriodLabel(r.Period))
	fmt.Fprintf(&b, "- 生成日時: %s\n", r.Generated.Format("2006-01-02 15:04"))
	for _, id := range SectionIDs() {
		b.WriteString("\n")
		b.WriteString(r.SectionMarkdown(id))
	}
	return b.String()
}

// SectionMarkdown renders one section, or an error block when it failed.
func (r *Report) SectionMarkdown(id string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", SectionTitle(id))
	if err := r.Err(id); err != nil {
		fmt.Fprintf(&b, "> ⚠️ このセクションを表示できませんでした: %s\n", err)
		return b.String()
	}
	switch id {
	case SectionOverview:
		writeOverview(&b, r.Overview)
	case SectionUsage:
		for _, u := range r.Usage {
			writeUsage(&b, u)
		}
	case SectionTime:
		for _, t := range r.Time {
			writeTime(&b, t)
		}
	case SectionFeedback:
		writeFeedback(&b, r.Feedback)
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	for i := range header {
		header[i] = cell(header[i])
	}
	fmt.Fprintf(b, "| %s |\n", strings.Join(header, " | "))
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, row := range rows {
		for i := range row {
			row[i] = cell(row[i])
		}
		fmt.Fprintf(b, "| %s |\n", strings.Join(row, " | "))
	}
	b.WriteString("\n")
}

func writeCards(b *strings.Builder, cards []Card) {
	rows := make([][]string, len(cards))
	for i, c := range cards {
		rows[i] = []string{c.Label, c.Value, c.Delta}
	}
	writeTable(b, []string{"指標", "値", "補足"}, rows)
}

func writeOverview(b *strings.Builder, o *Overview) {
	b.WriteString("### 回答数サマリー\n\n")
	writeTable(b, []string{"総回答数", "エンジニアリング", "ディレクター", "調査期間"}, [][]string{{
		fmt.Sprint(o.Total), fmt.Sprint(o.Engineering), fmt.Sprint(o.Director),
		fmt.Sprintf("%dヶ月", len(o.Months)),
	}})
	if len(o.Months) > 0 {
		fmt.Fprintf(b, "調査期間: %s 〜 %s\n\n", o.Months[0], o.Months[len(o.Months)-1])
	}

	b.WriteString("### 対象ツール・作業\n\n")
	for _, p := range o.Processes {
		fmt.Fprintf(b, "#### %s\n\n", p.DisplayLabel())
		fmt.Fprintf(b, "**対象ツール:** %s\n\n", strings.Join(p.Tools, "、"))
		fmt.Fprintf(b, "**対象作業:** %s\n\n", strings.Join(p.Tasks, "、"))
	}

	b.WriteString("### 月別回答数の推移\n\n")
	if len(o.Monthly) == 0 {
		b.WriteString("回答がありません。\n\n")
		return
	}
	rows := make([][]string, len(o.Monthly))
	for i, c := range o.Monthly {
		rows[i] = []string{c.Month, c.Team, fmt.Sprint(c.Count)}
	}
	writeTable(b, []string{"年月", "チーム", "回答数"}, rows)
}

func writeScores(b *strings.Builder, header string, values []headline.Value, format string, name func(string) string) {
	rows := make([][]string, len(values))
	for i, v := range values {
		rows[i] = []string{name(v.Name), fmt.Sprintf(format, v.Score)}
	}
	writeTable(b, []string{header, "スコア"}, rows)
}

func writeTrend(b *strings.Builder, trends []Trend, name func(string) string, format string) {
	if len(trends) == 0 {
		b.WriteString("データがありません。\n\n")
		return
	}
	seen := make(map[string]bool)
	var months []string
	for _, t := range trends {
		for _, p := range t.Points {
			if !seen[p.Month] {
				seen[p.Month] = true
				months = append(months, p.Month)
			}
		}
	}
	ingest.SortMonths(months)

	header := append([]string{""}, months...)
	rows := make([][]string, len(trends))
	for i, t := range trends {
		values := make(map[string]float64, len(t.Points))
		for _, p := range t.Points {
			values[p.Month] = p.Value
		}
		row := []string{name(t.Name)}
		for _, m := range months {
			if v, ok := values[m]; ok {
				row = append(row, fmt.Sprintf(format, v))
			} else {
				row = append(row, "-")
			}
		}
		rows[i] = row
	}
	writeTable(b, header, rows)
}

func writeCrosstab(b *strings.Builder, ct *aggregate.Crosstab) {
	fmt.Fprintf(b, "**%sの利用頻度×生産性貢献度クロス集計**\n\n", survey.DisplayName(ct.Tool))
	header := append([]string{"利用頻度＼貢献度"}, ct.Columns...)
	header = append(header, aggregate.TotalLabel)
	rows := make([][]string, 0, len(ct.Rows)+1)
	for i, r := range ct.Rows {
		row := []string{r}
		for _, n := range ct.Cells[i] {
			row = append(row, fmt.Sprint(n))
		}
		rows = append(rows, append(row, fmt.Sprint(ct.RowTotals[i])))
	}
	total := []string{aggregate.TotalLabel}
	for _, n := range ct.ColTotals {
		total = append(total, fmt.Sprint(n))
	}
	rows = append(rows, append(total, fmt.Sprint(ct.Total)))
	writeTable(b, header, rows)
}

func writeUsage(b *strings.Builder, u Usage) {
	fmt.Fprintf(b, "### %s\n\n", u.Process.DisplayLabel())
	writeCards(b, u.Cards)

	b.WriteString("#### AIツール利用頻度\n\n")
	writeScores(b, "AIツール", u.Frequency, "%.1f", survey.DisplayName)

	b.WriteString("#### 利用頻度の推移\n\n")
	writeTrend(b, u.FrequencyTrend, survey.DisplayName, "%.2f")

	b.WriteString("#### 生産性への貢献度の推移\n\n")
	writeTrend(b, u.ContributionTrend, survey.DisplayName, "%.2f")

	b.WriteString("#### 利用頻度×生産性貢献度\n\n")
	writeScores(b, "AIツール", u.Combined, "%.2f", survey.DisplayName)

	b.WriteString("#### ツール別クロス集計表\n\n")
	if len(u.Crosstabs) == 0 {
		b.WriteString("クロス集計に十分なデータがありません。\n\n")
		return
	}
	for _, ct := range u.Crosstabs {
		writeCrosstab(b, ct)
	}
}

const taskNameWidth = 60

func writeTime(b *strings.Builder, t TimeSaving) {
	fmt.Fprintf(b, "### %sでの削減効果\n\n", t.Process.Label)
	writeCards(b, t.Cards)

	short := func(s string) string { return Truncate(s, taskNameWidth) }
	fmt.Fprintf(b, "#### 作業別時間削減率（%s・平均値）\n\n", t.Process.Label)
	if len(t.Averages) == 0 {
		b.WriteString("データがありません。\n\n")
	} else {
		writeScores(b, "作業内容", t.Averages, "%.1f%%", short)
	}

	b.WriteString("#### 時間削減効果の推移\n\n")
	writeTrend(b, t.Trend, short, "%.1f")

	b.WriteString("#### 具体的な削減効果事例\n\n")
	if len(t.Examples) == 0 {
		b.WriteString("具体的な事例が記載されていません。\n\n")
		return
	}
	for i, ex := range t.Examples {
		fmt.Fprintf(b, "%d. %s\n", i+1, ex.Preview)
	}
	b.WriteString("\n")
}

func writeCounts(b *strings.Builder, header string, items []tally.Item) {
	if len(items) == 0 {
		b.WriteString("回答がありません。\n\n")
		return
	}
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{it.Token, fmt.Sprint(it.Count)}
	}
	writeTable(b, []string{header, "回答数"}, rows)
}

func writeFeedback(b *strings.Builder, f *Feedback) {
	for _, p := range survey.Processes() {
		fmt.Fprintf(b, "### %sでの課題\n\n", p.Label)
		items, ok := f.Challenges[p.Kind]
		if !ok {
			b.WriteString("課題の設問がありません。\n\n")
			continue
		}
		writeCounts(b, "課題", items)
	}

	b.WriteString("### トレーニング・情報共有のニーズ\n\n")
	writeCounts(b, "項目", f.Training)

	if len(f.Monthly) > 0 {
		writeMonthly(b, f.Monthly)
	}

	b.WriteString("### フィードバック・意見の頻出語\n\n")
	if len(f.Words) == 0 {
		b.WriteString("頻出語を集計するための十分なテキストがありません。\n\n")
	} else {
		words := make([]string, len(f.Words))
		for i, w := range f.Words {
			words[i] = fmt.Sprintf("%s (%d)", w.Token, w.Count)
		}
		b.WriteString(strings.Join(words, " · ") + "\n\n")
	}

	b.WriteString("### 具体的なフィードバック（抜粋）\n\n")
	if len(f.Excerpts) == 0 {
		b.WriteString("フィードバックがありません。\n")
		return
	}
	for i, e := range f.Excerpts {
		fmt.Fprintf(b, "**フィードバック %d**\n\n> %s\n\n", i+1, tally.Normalize(e))
	}
}

func writeMonthly(b *strings.Builder, monthly []MonthlyFeedback) {
	b.WriteString("### 月別の課題とニーズ\n\n")
	header := []string{"月"}
	for _, p := range survey.Processes() {
		header = append(header, p.Label)
	}
	header = append(header, "トレーニング")
	rows := make([][]string, len(monthly))
	for i, m := range monthly {
		row := []string{m.Month}
		for _, p := range survey.Processes() {
			row = append(row, orDash(Summarize(m.Challenges[p.Kind], TopMonthly)))
		}
		rows[i] = append(row, orDash(Summarize(m.Training, TopMonthly)))
	}
	writeTable(b, header, rows)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
