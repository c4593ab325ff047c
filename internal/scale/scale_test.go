package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapKnownAnswers(t *testing.T) {
	tests := []struct {
		family Family
		answer string
		want   float64
	}{
		{Frequency, "毎日", 5},
		{Frequency, "週に数回", 4},
		{Frequency, "月に数回", 3},
		{Frequency, "ほとんど利用しない", 2},
		{Frequency, "利用したことがない", 1},
		{Frequency, "", 0},
		{Contribution, "5:非常に貢献した", 5},
		{Contribution, "1:全く貢献しなかった", 1},
		{Contribution, "利用していない/判断できない", 0},
		{Contribution, "", 0},
		{TimeReduction, "100%（依頼してほぼ終わり）", 100},
		{TimeReduction, "50%以上", 75},
		{TimeReduction, "30-50%程度", 40},
		{TimeReduction, "10-20%程度", 15},
		{TimeReduction, "あまり変わらない", 0},
		{TimeReduction, "むしろ増えてしまった", -10},
	}
	for _, tt := range tests {
		got, ok := Map(tt.family, tt.answer)
		assert.True(t, ok, "%s %q", tt.family, tt.answer)
		assert.Equal(t, tt.want, got, "%s %q", tt.family, tt.answer)
	}
}

func TestMapMissing(t *testing.T) {
	// Unknown answers are treated as missing rather than rejected.
	for _, f := range Families() {
		_, ok := Map(f, "たまに")
		assert.False(t, ok, f.String())
	}
	_, ok := Map(TimeReduction, "")
	assert.False(t, ok, "empty time reduction answer has no value")

	_, ok = Map(Family(42), "毎日")
	assert.False(t, ok)
}

func TestLevelsAreCopies(t *testing.T) {
	levels := Levels(Frequency)
	assert.Len(t, levels, 5)
	assert.Equal(t, "利用したことがない", levels[0].Answer)
	assert.Equal(t, "毎日", levels[4].Answer)

	levels[0].Value = 99
	got, _ := Map(Frequency, "利用したことがない")
	assert.Equal(t, 1.0, got)
}

func TestBounds(t *testing.T) {
	lo, hi := Bounds(Frequency)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 5.0, hi)

	lo, hi = Bounds(TimeReduction)
	assert.Equal(t, -10.0, lo)
	assert.Equal(t, 100.0, hi)
}

func TestFamilyString(t *testing.T) {
	assert.Equal(t, "frequency", Frequency.String())
	assert.Equal(t, "contribution", Contribution.String())
	assert.Equal(t, "time_reduction", TimeReduction.String())
}
