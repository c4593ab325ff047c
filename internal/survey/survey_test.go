package survey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
)

func TestColumn(t *testing.T) {
	p, ok := Lookup(Upstream)
	require.True(t, ok)
	assert.Equal(t,
		"先月で、上流工程の作業において、以下のAIツールをどのくらいの頻度で利用しましたか？ [ChatGPT]",
		p.Column(scale.Frequency, "ChatGPT"))

	d, _ := Lookup(Development)
	assert.Equal(t,
		"開発工程の作業において、それぞれのAIツールは担当された作業の生産性向上にどの程度貢献したと感じますか？ [Cursor]",
		d.Column(scale.Contribution, "Cursor"))
}

func TestSubjects(t *testing.T) {
	p, _ := Lookup(Development)
	assert.Len(t, p.Subjects(scale.Frequency), 7)
	assert.Len(t, p.Subjects(scale.TimeReduction), 6)

	// Callers get copies of the catalogue.
	subjects := p.Subjects(scale.Frequency)
	subjects[0] = "changed"
	again, _ := Lookup(Development)
	assert.Equal(t, "ChatGPT / Gemini / Claude（会話）", again.Tools[0])
}

func TestProcessesOrder(t *testing.T) {
	ps := Processes()
	require.Len(t, ps, 2)
	assert.Equal(t, Upstream, ps[0].Kind)
	assert.Equal(t, DirectorTeam, ps[0].Team)
	assert.Equal(t, Development, ps[1].Kind)
	assert.Equal(t, EngineeringTeam, ps[1].Team)

	_, ok := Lookup("ops")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Claude Code", DisplayName("Claude (ClaudeCode)"))
	assert.Equal(t, "Gemini", DisplayName("Gemini"))
	assert.Equal(t, "上流工程（ディレクターチーム）", upstream.DisplayLabel())
}
