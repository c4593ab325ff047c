// Package aggregate turns loaded responses into per-tool monthly score series
// and the other summaries the dashboards read.
package aggregate

import (
	"sort"

	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
)

// Key identifies one (month, team) group.
type Key struct {
	Month string
	Team  string
}

// Point is the mean mapped score of a group and how many answers it covers.
type Point struct {
	Mean float64
	N    int
}

// Series holds the group means of one tool or task. Groups without any
// scored answer are absent.
type Series struct {
	Name   string
	Column string
	points map[Key]Point
}

// Point returns the group mean for a key.
func (s Series) Point(k Key) (Point, bool) {
	p, ok := s.points[k]
	return p, ok
}

// Len returns the number of groups with data.
func (s Series) Len() int { return len(s.points) }

// Keys returns the groups sorted by month, then team.
func (s Series) Keys() []Key {
	keys := make([]Key, 0, len(s.points))
	for k := range s.points {
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys
}

// Monthly returns the means for one team keyed by month.
func (s Series) Monthly(team string) map[string]float64 {
	out := make(map[string]float64)
	for k, p := range s.points {
		if k.Team == team {
			out[k.Month] = p.Mean
		}
	}
	return out
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := ingest.MonthOrder(keys[i].Month), ingest.MonthOrder(keys[j].Month)
		if a != b {
			return a < b
		}
		if keys[i].Month != keys[j].Month {
			return keys[i].Month < keys[j].Month
		}
		return keys[i].Team < keys[j].Team
	})
}

// Table is the set of series for one family of one process, in catalogue
// order. Subjects whose column is missing from the export are not present.
type Table struct {
	Family  scale.Family
	Process survey.ProcessKind
	series  []Series
	index   map[string]int
}

// Series looks up the series of a tool or task.
func (t Table) Series(name string) (Series, bool) {
	i, ok := t.index[name]
	if !ok {
		return Series{}, false
	}
	return t.series[i], true
}

// Names returns the subjects that have a column, in catalogue order.
func (t Table) Names() []string {
	names := make([]string, len(t.series))
	for i, s := range t.series {
		names[i] = s.Name
	}
	return names
}

// All returns every series in catalogue order.
func (t Table) All() []Series {
	return append([]Series(nil), t.series...)
}

// Len returns the number of series.
func (t Table) Len() int { return len(t.series) }

// Key is the export name of the table, e.g. "upstream_frequency".
func (t Table) Key() string {
	return TableKey(t.Family, t.Process)
}

// TableKey names the table of a family and process.
func TableKey(f scale.Family, kind survey.ProcessKind) string {
	return string(kind) + "_" + f.String()
}

// Aggregate computes the (month, team) means of every subject the process
// asks about for a family.
func Aggregate(ds *ingest.Dataset, f scale.Family, p survey.Process) Table {
	t := Table{Family: f, Process: p.Kind, index: make(map[string]int)}
	rows := ds.Rows()

	for _, subject := range p.Subjects(f) {
		column := p.Column(f, subject)
		if !ds.HasColumn(column) {
			continue
		}
		t.index[subject] = len(t.series)
		t.series = append(t.series, Series{
			Name:   subject,
			Column: column,
			points: groupMeans(rows, f, column),
		})
	}
	return t
}

func groupMeans(rows []ingest.Response, f scale.Family, column string) map[Key]Point {
	type acc struct {
		sum float64
		n   int
	}
	sums := make(map[Key]*acc)
	for _, r := range rows {
		raw, ok := r.Answer(column)
		if !ok {
			continue
		}
		v, ok := scale.Map(f, raw)
		if !ok {
			continue
		}
		k := Key{Month: r.Month, Team: r.Team}
		a := sums[k]
		if a == nil {
			a = &acc{}
			sums[k] = a
		}
		a.sum += v
		a.n++
	}

	points := make(map[Key]Point, len(sums))
	for k, a := range sums {
		points[k] = Point{Mean: a.sum / float64(a.n), N: a.n}
	}
	return points
}
