package ingest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/surveytest"
)

func TestLoadWithMonthColumn(t *testing.T) {
	path := surveytest.WriteFile(t, surveytest.TSV(
		surveytest.Row{Timestamp: "2025/05/20 10:12:33", Team: survey.DirectorTeam, Month: "2025年5月",
			Answers: map[string]string{"q": "毎日"}},
		surveytest.Row{Timestamp: "2025/06/02 09:00:00", Team: survey.EngineeringTeam, Month: "2025年6月"},
	))

	ds, err := ingest.Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	rows := ds.Rows()
	assert.Equal(t, "2025年5月", rows[0].Month)
	assert.Equal(t, survey.DirectorTeam, rows[0].Team)
	assert.Equal(t, 2025, rows[0].Timestamp.Year())
	assert.Equal(t, time.May, rows[0].Timestamp.Month())

	v, ok := rows[0].Answer("q")
	assert.True(t, ok)
	assert.Equal(t, "毎日", v)

	// Empty cells are missing.
	_, ok = rows[1].Answer("q")
	assert.False(t, ok)
	assert.True(t, ds.HasColumn("q"))
	assert.False(t, ds.HasColumn("nope"))
	assert.Equal(t, path, ds.Path())
}

func TestMonthDerivedFromTimestamp(t *testing.T) {
	ds, err := ingest.Parse("x.tsv", surveytest.TSV(
		surveytest.Row{Timestamp: "2025-07-31 23:59:00", Team: survey.DirectorTeam},
	))
	require.NoError(t, err)
	assert.Equal(t, "2025年7月", ds.Rows()[0].Month)
}

func TestMonthsSortedChronologically(t *testing.T) {
	ds := surveytest.Dataset(t,
		surveytest.Row{Timestamp: "2025/12/01 10:00:00", Team: "a"},
		surveytest.Row{Timestamp: "2025/05/01 10:00:00", Team: "b"},
		surveytest.Row{Timestamp: "2025/10/01 10:00:00", Team: "a"},
		surveytest.Row{Timestamp: "2025/05/03 10:00:00", Team: "a"},
	)
	assert.Equal(t, []string{"2025年5月", "2025年10月", "2025年12月"}, ds.Months())
	assert.Equal(t, []string{"a", "b"}, ds.Teams())
	assert.Len(t, ds.Where("a", ""), 3)
	assert.Len(t, ds.Where("a", "2025年5月"), 1)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := ingest.Load(filepath.Join(t.TempDir(), "missing.tsv"))
		var pe *ingest.ParseError
		require.True(t, errors.As(err, &pe))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty", "", "missing header row"},
		{"no team column", survey.TimestampColumn + "\tq\n2025/05/01 10:00:00\tx\n", "missing required column"},
		{"no timestamp column", survey.TeamColumn + "\n" + survey.DirectorTeam + "\n", "missing required column"},
		{"ragged row", survey.TimestampColumn + "\t" + survey.TeamColumn + "\n2025/05/01 10:00:00\ta\textra\n", "malformed row"},
		{"bad timestamp", survey.TimestampColumn + "\t" + survey.TeamColumn + "\nyesterday\ta\n", "invalid timestamp"},
		{"blank timestamp without month", survey.TimestampColumn + "\t" + survey.TeamColumn + "\n\ta\n", "invalid timestamp"},
		{"invalid utf8", survey.TimestampColumn + "\t" + survey.TeamColumn + "\n\xff\xfe\ta\n", "not valid UTF-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest.Parse("bad.tsv", []byte(tt.data))
			var pe *ingest.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Contains(t, pe.Error(), tt.want)
			assert.Contains(t, pe.Error(), "bad.tsv")
		})
	}
}

func TestParseSkipsBOMAndBlankLines(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, surveytest.TSV(
		surveytest.Row{Timestamp: "2025/05/01 10:00:00", Team: survey.DirectorTeam},
	)...)
	data = append(data, []byte("\t\n")...)

	ds, err := ingest.Parse("bom.tsv", data)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.True(t, ds.HasColumn(survey.TimestampColumn))
}

func TestMonthOrder(t *testing.T) {
	assert.Equal(t, 202505, ingest.MonthOrder("2025年5月"))
	assert.Equal(t, 202505, ingest.MonthOrder("2025年05月"))
	assert.Equal(t, 0, ingest.MonthOrder("May 2025"))
	assert.Equal(t, "2025年5月", ingest.MonthLabel(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC)))
}

func TestShortRowIsPadded(t *testing.T) {
	data := survey.TimestampColumn + "\t" + survey.TeamColumn + "\tq1\tq2\n" +
		"2025/05/01 10:00:00\t" + survey.DirectorTeam + "\tyes\n" +
		"2025/05/02 10:00:00\t" + survey.DirectorTeam + "\n"

	ds, err := ingest.Parse("short.tsv", []byte(data))
	require.NoError(t, err)
	rows := ds.Rows()
	require.Len(t, rows, 2)

	v, ok := rows[0].Answer("q1")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)
	_, ok = rows[0].Answer("q2")
	assert.False(t, ok)
	_, ok = rows[1].Answer("q1")
	assert.False(t, ok)
	assert.Equal(t, survey.DirectorTeam, rows[1].Team)
}

func TestBlankTimestampWithMonth(t *testing.T) {
	ds, err := ingest.Parse("month.tsv", surveytest.TSV(
		surveytest.Row{Timestamp: "", Team: survey.EngineeringTeam, Month: "2025年6月"},
		surveytest.Row{Timestamp: "2025/07/01 10:00:00", Team: survey.EngineeringTeam},
	))
	require.NoError(t, err)
	rows := ds.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "2025年6月", rows[0].Month)
	assert.True(t, rows[0].Timestamp.IsZero())
	assert.Equal(t, "2025年7月", rows[1].Month, "blank 年月 falls back to the timestamp")
}

func TestMultilineAnswer(t *testing.T) {
	ds, err := ingest.Parse("multiline.tsv", surveytest.TSV(
		surveytest.Row{Timestamp: "2025/05/01 10:00:00", Team: survey.DirectorTeam,
			Answers: map[string]string{"q": "一行目\n\"二行目\""}},
	))
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	v, _ := ds.Rows()[0].Answer("q")
	assert.Equal(t, "一行目\n\"二行目\"", v)
}
