package headline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-omotenashi/ai-usage-survey/internal/aggregate"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/surveytest"
)

const (
	may  = "2025年5月"
	june = "2025年6月"
	july = "2025年7月"
)

var period = headline.Period{Months: []string{may, june, july}, Earlier: may, Later: july}

var stamps = map[string]string{
	may:  "2025/05/10 09:00:00",
	june: "2025/06/10 09:00:00",
	july: "2025/07/10 09:00:00",
}

func answer(month, team string, answers map[string]string) surveytest.Row {
	return surveytest.Row{Timestamp: stamps[month], Team: team, Month: month, Answers: answers}
}

func tables(t *testing.T, rows ...surveytest.Row) (freq, contrib, time aggregate.Table) {
	t.Helper()
	ds := surveytest.Dataset(t, rows...)
	up := surveytest.Upstream()
	return aggregate.Aggregate(ds, scale.Frequency, up),
		aggregate.Aggregate(ds, scale.Contribution, up),
		aggregate.Aggregate(ds, scale.TimeReduction, up)
}

func TestMostUsedSingleTool(t *testing.T) {
	up := surveytest.Upstream()
	freq, contrib, _ := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{up.Column(scale.Frequency, "ChatGPT"): "毎日"}),
	)

	m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
	require.NotNil(t, m.MostUsed)
	assert.Equal(t, "ChatGPT", m.MostUsed.Name)
	assert.Equal(t, 5.0, m.MostUsed.Score)
	assert.Nil(t, m.BestContribution)
	assert.Nil(t, m.BestCombined, "no contribution data means no combined score")
	assert.Nil(t, m.MostImproved, "only one month present")

	// Another team sees nothing.
	other := headline.Tools(freq, contrib, survey.EngineeringTeam, period)
	assert.Nil(t, other.MostUsed)
}

func TestMostUsedTieKeepsCatalogueOrder(t *testing.T) {
	up := surveytest.Upstream()
	freq, contrib, _ := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{
			up.Column(scale.Frequency, "Devin Search"): "週に数回",
			up.Column(scale.Frequency, "Gemini"):       "週に数回",
		}),
	)
	m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
	require.NotNil(t, m.MostUsed)
	assert.Equal(t, "Gemini", m.MostUsed.Name)
}

func TestMostUsedAveragesMonthlyMeans(t *testing.T) {
	up := surveytest.Upstream()
	col := up.Column(scale.Frequency, "ChatGPT")
	freq, contrib, _ := tables(t,
		// May mean 5, June mean (1+1+1)/3 = 1: overall (5+1)/2 = 3, not 2.
		answer(may, survey.DirectorTeam, map[string]string{col: "毎日"}),
		answer(june, survey.DirectorTeam, map[string]string{col: "利用したことがない"}),
		answer(june, survey.DirectorTeam, map[string]string{col: "利用したことがない"}),
		answer(june, survey.DirectorTeam, map[string]string{col: "利用したことがない"}),
	)
	m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
	require.NotNil(t, m.MostUsed)
	assert.Equal(t, 3.0, m.MostUsed.Score)
}

func TestBestCombinedExcludesOneSided(t *testing.T) {
	up := surveytest.Upstream()
	freq, contrib, _ := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{
			up.Column(scale.Frequency, "ChatGPT"):      "毎日",
			up.Column(scale.Contribution, "ChatGPT"):   "利用していない/判断できない",
			up.Column(scale.Frequency, "Gemini"):       "月に数回",
			up.Column(scale.Contribution, "Gemini"):    "2:あまり貢献しなかった",
			up.Column(scale.Contribution, "bolt.new"):  "5:非常に貢献した",
		}),
	)
	m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
	require.NotNil(t, m.BestCombined)
	assert.Equal(t, "Gemini", m.BestCombined.Name)
	assert.Equal(t, 6.0, m.BestCombined.Score)

	require.NotNil(t, m.BestContribution)
	assert.Equal(t, "bolt.new", m.BestContribution.Name)
}

func TestMostImproved(t *testing.T) {
	up := surveytest.Upstream()
	chat := up.Column(scale.Frequency, "ChatGPT")
	gem := up.Column(scale.Frequency, "Gemini")
	spark := up.Column(scale.Frequency, "genspark")

	t.Run("largest positive delta", func(t *testing.T) {
		freq, contrib, _ := tables(t,
			answer(may, survey.DirectorTeam, map[string]string{chat: "月に数回", gem: "ほとんど利用しない", spark: "毎日"}),
			answer(july, survey.DirectorTeam, map[string]string{chat: "週に数回", gem: "毎日"}),
		)
		m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
		require.NotNil(t, m.MostImproved)
		assert.Equal(t, "Gemini", m.MostImproved.Name)
		assert.Equal(t, 3.0, m.MostImproved.Delta)
		assert.Equal(t, 2.0, m.MostImproved.From)
		assert.Equal(t, 5.0, m.MostImproved.To)
	})

	t.Run("no improvement", func(t *testing.T) {
		freq, contrib, _ := tables(t,
			answer(may, survey.DirectorTeam, map[string]string{chat: "毎日"}),
			answer(july, survey.DirectorTeam, map[string]string{chat: "毎日"}),
		)
		m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
		assert.Nil(t, m.MostImproved)
	})

	t.Run("missing reference month", func(t *testing.T) {
		freq, contrib, _ := tables(t,
			answer(may, survey.DirectorTeam, map[string]string{chat: "利用したことがない"}),
			answer(june, survey.DirectorTeam, map[string]string{chat: "毎日"}),
		)
		m := headline.Tools(freq, contrib, survey.DirectorTeam, period)
		assert.Nil(t, m.MostImproved)
	})
}

func TestTimeReduction(t *testing.T) {
	up := surveytest.Upstream()
	plan := up.Column(scale.TimeReduction, "企画・提案の骨子検討")
	docs := up.Column(scale.TimeReduction, "提案資料作成")
	admin := up.Column(scale.TimeReduction, "事務作業")

	_, _, tr := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{plan: "10-20%程度", docs: "30-50%程度", admin: "むしろ増えてしまった"}),
		answer(july, survey.DirectorTeam, map[string]string{plan: "50%以上", docs: "30-50%程度"}),
		answer(july, survey.EngineeringTeam, map[string]string{plan: "100%（依頼してほぼ終わり）"}),
	)

	m := headline.TimeReduction(tr, survey.DirectorTeam, period)
	require.NotNil(t, m.BestTask)
	// plan: (15+75)/2 = 45, docs: 40, admin: -10
	assert.Equal(t, "企画・提案の骨子検討", m.BestTask.Name)
	assert.Equal(t, 45.0, m.BestTask.Score)

	require.NotNil(t, m.MostImproved)
	assert.Equal(t, "企画・提案の骨子検討", m.MostImproved.Name)
	assert.Equal(t, 60.0, m.MostImproved.Delta)

	require.NotNil(t, m.Average)
	assert.InDelta(t, (15.0+75+40+40-10)/5, *m.Average, 1e-9)
	assert.Equal(t, 2, m.Effective)
	assert.Equal(t, 3, m.Total)
	require.NotNil(t, m.EffectiveRatio())
	assert.InDelta(t, 200.0/3, *m.EffectiveRatio(), 1e-9)
}

func TestTimeReductionNoData(t *testing.T) {
	_, _, tr := tables(t, answer(may, survey.DirectorTeam, nil))
	m := headline.TimeReduction(tr, survey.DirectorTeam, period)
	assert.Nil(t, m.BestTask)
	assert.Nil(t, m.MostImproved)
	assert.Nil(t, m.Average)
	assert.Nil(t, m.EffectiveRatio())
}

func TestSnapshotSubstitutesZero(t *testing.T) {
	up := surveytest.Upstream()
	freq, _, _ := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{up.Column(scale.Frequency, "Gemini"): "週に数回"}),
	)
	got := headline.Snapshot(freq, survey.DirectorTeam, up.Tools)
	require.Len(t, got, len(up.Tools))
	assert.Equal(t, headline.Value{Name: "ChatGPT", Score: 0}, got[0])
	assert.Equal(t, headline.Value{Name: "Gemini", Score: 4}, got[1])
}

func TestCombined(t *testing.T) {
	up := surveytest.Upstream()
	freq, contrib, _ := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{
			up.Column(scale.Frequency, "ChatGPT"):    "毎日",
			up.Column(scale.Contribution, "ChatGPT"): "4:貢献した",
			up.Column(scale.Frequency, "Gemini"):     "毎日",
		}),
		answer(june, survey.DirectorTeam, map[string]string{
			up.Column(scale.Frequency, "ChatGPT"):    "月に数回",
			up.Column(scale.Contribution, "ChatGPT"): "4:貢献した",
		}),
	)
	got := headline.Combined(freq, contrib, survey.DirectorTeam, period.Months, []string{"ChatGPT", "Gemini"})
	assert.Equal(t, []headline.Value{{Name: "ChatGPT", Score: 16}, {Name: "Gemini", Score: 0}}, got)
}

func TestTaskAverages(t *testing.T) {
	up := surveytest.Upstream()
	plan := up.Column(scale.TimeReduction, "企画・提案の骨子検討")
	admin := up.Column(scale.TimeReduction, "事務作業")
	_, _, tr := tables(t,
		answer(may, survey.DirectorTeam, map[string]string{plan: "50%以上", admin: "あまり変わらない"}),
		answer(may, survey.EngineeringTeam, map[string]string{plan: "10-20%程度"}),
	)
	got := headline.TaskAverages(tr)
	assert.Equal(t, []headline.Value{
		{Name: "事務作業", Score: 0},
		{Name: "企画・提案の骨子検討", Score: 45},
	}, got)
}
