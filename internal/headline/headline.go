// Package headline derives the headline figures shown above each dashboard
// section. Everything here is a pure function of aggregate tables and is
// recomputed on every render.
package headline

import (
	"sort"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
)

// Period names the months used for period-over-period comparisons.
type Period struct {
	Months  []string
	Earlier string
	Later   string
}

// Pick is the winning tool or task of a ranking and its score.
type Pick struct {
	Name  string
	Score float64
}

// Improvement is the change of a subject's score between two months.
type Improvement struct {
	Name  string
	From  float64
	To    float64
	Delta float64
}

// Value is a named score in catalogue order.
type Value struct {
	Name  string
	Score float64
}

// ToolMetrics are the headline cards of the usage section. A nil field
// means no tool qualified.
type ToolMetrics struct {
	MostUsed         *Pick
	BestContribution *Pick
	BestCombined     *Pick
	MostImproved     *Improvement
}

// TimeMetrics are the headline cards of the time reduction section.
type TimeMetrics struct {
	BestTask     *Pick
	MostImproved *Improvement
	// Average is the mean over every (month, team, task) value. nil when
	// the team has no time reduction data.
	Average   *float64
	Effective int
	Total     int
}

// EffectiveRatio is the percentage of tasks with a positive average, or
// nil when there are no tasks.
func (m TimeMetrics) EffectiveRatio() *float64 {
	if m.Total == 0 {
		return nil
	}
	r := float64(m.Effective) / float64(m.Total) * 100
	return &r
}

// monthly returns a team's monthly means in chronological order.
func monthly(s aggregate.Series, team string) ([]string, map[string]float64) {
	values := s.Monthly(team)
	months := make([]string, 0, len(values))
	for m := range values {
		months = append(months, m)
	}
	ingest.SortMonths(months)
	return months, values
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// overall is the mean of a team's monthly means.
func overall(s aggregate.Series, team string) (float64, bool) {
	months, values := monthly(s, team)
	if len(months) == 0 {
		return 0, false
	}
	xs := make([]float64, len(months))
	for i, m := range months {
		xs[i] = values[m]
	}
	return mean(xs), true
}

type ranked struct {
	names  []string
	scores map[string]float64
}

func overallByName(t aggregate.Table, team string) ranked {
	r := ranked{scores: make(map[string]float64)}
	for _, s := range t.All() {
		if v, ok := overall(s, team); ok {
			r.names = append(r.names, s.Name)
			r.scores[s.Name] = v
		}
	}
	return r
}

// best returns the highest score; the first name wins ties.
func (r ranked) best() *Pick {
	var p *Pick
	for _, n := range r.names {
		if v := r.scores[n]; p == nil || v > p.Score {
			p = &Pick{Name: n, Score: v}
		}
	}
	return p
}

// improvement finds the largest strictly positive change between the two
// period months. requirePositiveStart skips subjects whose earlier score
// is not above zero.
func improvement(t aggregate.Table, team string, p Period, requirePositiveStart bool) *Improvement {
	var best *Improvement
	for _, s := range t.All() {
		values := s.Monthly(team)
		from, ok := values[p.Earlier]
		if !ok {
			continue
		}
		to, ok := values[p.Later]
		if !ok {
			continue
		}
		if requirePositiveStart && from <= 0 {
			continue
		}
		delta := to - from
		if delta <= 0 {
			continue
		}
		if best == nil || delta > best.Delta {
			best = &Improvement{Name: s.Name, From: from, To: to, Delta: delta}
		}
	}
	return best
}

// Tools computes the usage cards of one team from its frequency and
// contribution tables.
func Tools(freq, contrib aggregate.Table, team string, p Period) ToolMetrics {
	f := overallByName(freq, team)
	c := overallByName(contrib, team)

	m := ToolMetrics{
		MostUsed:         f.best(),
		BestContribution: c.best(),
		MostImproved:     improvement(freq, team, p, true),
	}

	combined := ranked{scores: make(map[string]float64)}
	for _, name := range f.names {
		fv := f.scores[name]
		cv, ok := c.scores[name]
		if !ok || fv <= 0 || cv <= 0 {
			continue
		}
		combined.names = append(combined.names, name)
		combined.scores[name] = fv * cv
	}
	m.BestCombined = combined.best()
	return m
}

// TimeReduction computes the time reduction cards of one team.
func TimeReduction(t aggregate.Table, team string, p Period) TimeMetrics {
	r := overallByName(t, team)
	m := TimeMetrics{
		BestTask:     r.best(),
		MostImproved: improvement(t, team, p, false),
		Total:        len(r.names),
	}

	var all []float64
	for _, s := range t.All() {
		months, values := monthly(s, team)
		for _, mo := range months {
			all = append(all, values[mo])
		}
	}
	if len(all) > 0 {
		avg := mean(all)
		m.Average = &avg
	}
	for _, n := range r.names {
		if r.scores[n] > 0 {
			m.Effective++
		}
	}
	return m
}

// Snapshot returns one value per name: the team's mean of monthly means,
// or 0 when the subject has no data.
func Snapshot(t aggregate.Table, team string, names []string) []Value {
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = Value{Name: n}
		if s, ok := t.Series(n); ok {
			if v, ok := overall(s, team); ok {
				out[i].Score = v
			}
		}
	}
	return out
}

// Combined multiplies each tool's mean frequency by its mean contribution
// over the given months. Tools missing either side score 0.
func Combined(freq, contrib aggregate.Table, team string, months []string, names []string) []Value {
	out := make([]Value, len(names))
	for i, n := range names {
		out[i] = Value{Name: n}
		fv, fok := meanOver(freq, n, team, months)
		cv, cok := meanOver(contrib, n, team, months)
		if fok && cok {
			out[i].Score = fv * cv
		}
	}
	return out
}

func meanOver(t aggregate.Table, name, team string, months []string) (float64, bool) {
	s, ok := t.Series(name)
	if !ok {
		return 0, false
	}
	values := s.Monthly(team)
	var xs []float64
	for _, m := range months {
		if v, ok := values[m]; ok {
			xs = append(xs, v)
		}
	}
	if len(xs) == 0 {
		return 0, false
	}
	return mean(xs), true
}

// TaskAverages returns each task's mean over all of its groups regardless
// of team, lowest first. Tasks without data are left out.
func TaskAverages(t aggregate.Table) []Value {
	var out []Value
	for _, s := range t.All() {
		keys := s.Keys()
		if len(keys) == 0 {
			continue
		}
		xs := make([]float64, len(keys))
		for i, k := range keys {
			p, _ := s.Point(k)
			xs[i] = p.Mean
		}
		out = append(out, Value{Name: s.Name, Score: mean(xs)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score < out[j].Score })
	return out
}
