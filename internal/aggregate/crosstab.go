package aggregate

import (
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
)

// TotalLabel heads the margin row and column of a crosstab.
const TotalLabel = "合計"

// Crosstab counts respondents by frequency answer (rows) and contribution
// answer (columns) for one tool. Only answer levels that occur are listed,
// in ordinal order. Answers outside the scales are left out.
type Crosstab struct {
	Tool      string
	Rows      []string
	Columns   []string
	Cells     [][]int
	RowTotals []int
	ColTotals []int
	Total     int
}

// NewCrosstab builds the crosstab of a tool for the process team. It returns
// nil when a column is missing or no respondent answered both questions.
func NewCrosstab(ds *ingest.Dataset, proc survey.Process, tool string) *Crosstab {
	freqCol := proc.Column(scale.Frequency, tool)
	contribCol := proc.Column(scale.Contribution, tool)
	if !ds.HasColumn(freqCol) || !ds.HasColumn(contribCol) {
		return nil
	}

	type pair struct{ freq, contrib string }
	counts := make(map[pair]int)
	seenFreq := make(map[string]bool)
	seenContrib := make(map[string]bool)
	for _, r := range ds.Where(proc.Team, "") {
		f, ok := r.Answer(freqCol)
		if !ok {
			continue
		}
		c, ok := r.Answer(contribCol)
		if !ok {
			continue
		}
		counts[pair{f, c}]++
		seenFreq[f] = true
		seenContrib[c] = true
	}
	if len(counts) == 0 {
		return nil
	}

	ct := &Crosstab{Tool: tool}
	for _, l := range scale.Levels(scale.Frequency) {
		if seenFreq[l.Answer] {
			ct.Rows = append(ct.Rows, l.Answer)
		}
	}
	for _, l := range scale.Levels(scale.Contribution) {
		if seenContrib[l.Answer] {
			ct.Columns = append(ct.Columns, l.Answer)
		}
	}

	ct.Cells = make([][]int, len(ct.Rows))
	ct.RowTotals = make([]int, len(ct.Rows))
	ct.ColTotals = make([]int, len(ct.Columns))
	for i, f := range ct.Rows {
		ct.Cells[i] = make([]int, len(ct.Columns))
		for j, c := range ct.Columns {
			n := counts[pair{f, c}]
			ct.Cells[i][j] = n
			ct.RowTotals[i] += n
			ct.ColTotals[j] += n
			ct.Total += n
		}
	}
	return ct
}
