package aggregate

import (
	"sort"
	"strings"

	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/tally"
)

type tableID struct {
	family scale.Family
	kind   survey.ProcessKind
}

// Processed is everything derived from one dataset. It is built once and
// only read afterwards; accessors hand out copies.
type Processed struct {
	months            []string
	tables            map[tableID]Table
	challenges        map[survey.ProcessKind]tally.Counts
	monthlyChallenges map[string]map[survey.ProcessKind]tally.Counts
	training          *tally.Counts
	monthlyTraining   map[string]tally.Counts
	feedback          []string
}

// Build aggregates a dataset. months are the designated comparison months
// used for the monthly challenge and training tallies.
func Build(ds *ingest.Dataset, months []string) *Processed {
	p := &Processed{
		months:            append([]string(nil), months...),
		tables:            make(map[tableID]Table),
		challenges:        make(map[survey.ProcessKind]tally.Counts),
		monthlyChallenges: make(map[string]map[survey.ProcessKind]tally.Counts),
		monthlyTraining:   make(map[string]tally.Counts),
	}

	processes := survey.Processes()
	for _, proc := range processes {
		for _, f := range scale.Families() {
			p.tables[tableID{f, proc.Kind}] = Aggregate(ds, f, proc)
		}
	}

	rows := ds.Rows()
	for _, proc := range processes {
		if !ds.HasColumn(proc.ChallengeColumn) {
			continue
		}
		p.challenges[proc.Kind] = tally.Count(ingest.Values(rows, proc.ChallengeColumn))
	}
	for _, month := range months {
		byKind := make(map[survey.ProcessKind]tally.Counts)
		for _, proc := range processes {
			if !ds.HasColumn(proc.ChallengeColumn) {
				continue
			}
			byKind[proc.Kind] = tally.Count(ingest.Values(ds.Where(proc.Team, month), proc.ChallengeColumn))
		}
		p.monthlyChallenges[month] = byKind
	}

	if col := survey.TrainingColumn(); ds.HasColumn(col) {
		c := tally.Count(ingest.Values(rows, col))
		p.training = &c
		for _, month := range months {
			p.monthlyTraining[month] = tally.Count(ingest.Values(ds.Where("", month), col))
		}
	}

	for _, col := range survey.FeedbackColumns() {
		if ds.HasColumn(col) {
			p.feedback = append(p.feedback, ingest.Values(rows, col)...)
		}
	}
	return p
}

// Months returns the designated comparison months.
func (p *Processed) Months() []string {
	return append([]string(nil), p.months...)
}

// Table returns the aggregate table of a family and process.
func (p *Processed) Table(f scale.Family, kind survey.ProcessKind) Table {
	return p.tables[tableID{f, kind}]
}

// Tables returns every table, upstream first, in family order.
func (p *Processed) Tables() []Table {
	var out []Table
	for _, proc := range survey.Processes() {
		for _, f := range scale.Families() {
			out = append(out, p.tables[tableID{f, proc.Kind}])
		}
	}
	return out
}

// Challenges returns the overall challenge tally of a process. ok is false
// when the export has no challenge column for it.
func (p *Processed) Challenges(kind survey.ProcessKind) (tally.Counts, bool) {
	c, ok := p.challenges[kind]
	return c, ok
}

// MonthlyChallenges returns the challenge tally of the process team for a
// designated month.
func (p *Processed) MonthlyChallenges(month string, kind survey.ProcessKind) (tally.Counts, bool) {
	c, ok := p.monthlyChallenges[month][kind]
	return c, ok
}

// Training returns the overall training-needs tally.
func (p *Processed) Training() (tally.Counts, bool) {
	if p.training == nil {
		return tally.Counts{}, false
	}
	return *p.training, true
}

// MonthlyTraining returns the training-needs tally of a designated month.
func (p *Processed) MonthlyTraining(month string) (tally.Counts, bool) {
	c, ok := p.monthlyTraining[month]
	return c, ok
}

// Feedback returns every free-text answer of the feedback questions.
func (p *Processed) Feedback() []string {
	return append([]string(nil), p.feedback...)
}

// TeamCount is the number of responses of a team in a month.
type TeamCount struct {
	Month string
	Team  string
	Count int
}

// Summary describes the dataset as a whole.
type Summary struct {
	Total   int
	ByTeam  map[string]int
	Months  []string
	Monthly []TeamCount
}

// First returns the earliest month, or "" for an empty dataset.
func (s Summary) First() string {
	if len(s.Months) == 0 {
		return ""
	}
	return s.Months[0]
}

// Last returns the latest month, or "".
func (s Summary) Last() string {
	if len(s.Months) == 0 {
		return ""
	}
	return s.Months[len(s.Months)-1]
}

// Summarize counts responses overall, per team and per (month, team).
func Summarize(ds *ingest.Dataset) Summary {
	s := Summary{Total: ds.Len(), ByTeam: make(map[string]int), Months: ds.Months()}
	counts := make(map[Key]int)
	for _, r := range ds.Rows() {
		s.ByTeam[r.Team]++
		counts[Key{Month: r.Month, Team: r.Team}]++
	}
	keys := make([]Key, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sortKeys(keys)
	for _, k := range keys {
		s.Monthly = append(s.Monthly, TeamCount{Month: k.Month, Team: k.Team, Count: counts[k]})
	}
	return s
}

// Example is a free-text answer prepared for display.
type Example struct {
	Text    string
	Preview string
}

const previewRunes = 100

// Examples returns up to limit non-blank example answers from the process
// team, newline-normalised. limit <= 0 returns all of them.
func Examples(ds *ingest.Dataset, proc survey.Process, limit int) []Example {
	if !ds.HasColumn(proc.ExampleColumn) {
		return nil
	}
	var out []Example
	for _, v := range ingest.Values(ds.Where(proc.Team, ""), proc.ExampleColumn) {
		if strings.TrimSpace(v) == "" {
			continue
		}
		text := tally.Normalize(v)
		out = append(out, Example{Text: text, Preview: tally.Preview(text, previewRunes)})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Excerpts returns up to limit answers of a free-text column.
func Excerpts(ds *ingest.Dataset, column string, limit int) []string {
	if !ds.HasColumn(column) {
		return nil
	}
	vals := ingest.Values(ds.Rows(), column)
	if limit > 0 && len(vals) > limit {
		vals = vals[:limit]
	}
	return vals
}

// TeamsOf returns the sorted team names present in the summary.
func (s Summary) TeamsOf() []string {
	teams := make([]string, 0, len(s.ByTeam))
	for t := range s.ByTeam {
		teams = append(teams, t)
	}
	sort.Strings(teams)
	return teams
}
