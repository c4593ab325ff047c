// Package scale maps the survey's ordinal answers to numeric scores.
package scale

import "fmt"

// Family identifies one of the ordinal answer scales used by the survey.
type Family int

const (
	Frequency Family = iota
	Contribution
	TimeReduction
)

// String returns the export key fragment for the family.
func (f Family) String() string {
	switch f {
	case Frequency:
		return "frequency"
	case Contribution:
		return "contribution"
	case TimeReduction:
		return "time_reduction"
	default:
		return fmt.Sprintf("family(%d)", int(f))
	}
}

// Families lists every family in a stable order.
func Families() []Family {
	return []Family{Frequency, Contribution, TimeReduction}
}

// Level is one answer on a scale. Missing levels map to no value at all.
type Level struct {
	Answer  string
	Value   float64
	Missing bool
}

// Levels are listed from the lowest to the highest ordinal answer, which is
// the order used by crosstabs. The empty answer comes first.
var (
	frequencyLevels = []Level{
		{Answer: "", Value: 0},
		{Answer: "利用したことがない", Value: 1},
		{Answer: "ほとんど利用しない", Value: 2},
		{Answer: "月に数回", Value: 3},
		{Answer: "週に数回", Value: 4},
		{Answer: "毎日", Value: 5},
	}
	contributionLevels = []Level{
		{Answer: "", Value: 0},
		{Answer: "1:全く貢献しなかった", Value: 1},
		{Answer: "2:あまり貢献しなかった", Value: 2},
		{Answer: "3:どちらともいえない", Value: 3},
		{Answer: "4:貢献した", Value: 4},
		{Answer: "5:非常に貢献した", Value: 5},
		{Answer: "利用していない/判断できない", Value: 0},
	}
	timeReductionLevels = []Level{
		{Answer: "", Missing: true},
		{Answer: "むしろ増えてしまった", Value: -10},
		{Answer: "あまり変わらない", Value: 0},
		{Answer: "10-20%程度", Value: 15},
		{Answer: "30-50%程度", Value: 40},
		{Answer: "50%以上", Value: 75},
		{Answer: "100%（依頼してほぼ終わり）", Value: 100},
	}
)

var lookup = map[Family]map[string]Level{
	Frequency:     index(frequencyLevels),
	Contribution:  index(contributionLevels),
	TimeReduction: index(timeReductionLevels),
}

func index(levels []Level) map[string]Level {
	m := make(map[string]Level, len(levels))
	for _, l := range levels {
		m[l.Answer] = l
	}
	return m
}

func levelsOf(f Family) []Level {
	switch f {
	case Frequency:
		return frequencyLevels
	case Contribution:
		return contributionLevels
	case TimeReduction:
		return timeReductionLevels
	}
	return nil
}

// Map converts a raw answer to its numeric score. The second result is false
// when the answer is not on the scale or the scale defines it as missing.
func Map(f Family, answer string) (float64, bool) {
	l, ok := lookup[f][answer]
	if !ok || l.Missing {
		return 0, false
	}
	return l.Value, true
}

// Levels returns a copy of the scale's non-empty answers in ordinal order.
func Levels(f Family) []Level {
	src := levelsOf(f)
	out := make([]Level, 0, len(src))
	for _, l := range src {
		if l.Answer == "" {
			continue
		}
		out = append(out, l)
	}
	return out
}

// Bounds returns the smallest and largest score the family can produce.
func Bounds(f Family) (lo, hi float64) {
	first := true
	for _, l := range levelsOf(f) {
		if l.Missing {
			continue
		}
		if first || l.Value < lo {
			lo = l.Value
		}
		if first || l.Value > hi {
			hi = l.Value
		}
		first = false
	}
	return lo, hi
}
