// Package survey holds the fixed question catalogue of the monthly AI usage
// survey: team names, tool and task lists, and the column naming rules.
package survey

import (
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
)

// Column names that every export must contain.
const (
	TimestampColumn = "タイムスタンプ"
	TeamColumn      = "あなたが所属するチームはどちらですか？"
	MonthColumn     = "年月"
)

// Team values as they appear in the team column.
const (
	EngineeringTeam = "エンジニアリングチーム"
	DirectorTeam    = "ディレクターチーム"
)

const (
	trainingColumn = "AIツールをより効果的に活用するために、どのようなトレーニングや情報共有があると役立ちますか？（複数選択可）"
	openFeedback   = "AIを活用した開発プロセス全体に関して、その他何か意見や要望があれば自由にご記入ください。"
	upstreamStory  = "上流工程でAIツールを活用したことで、特に効果を実感した作業や具体的なエピソードがあれば教えてください。"
	devTimeColumn  = "開発工程において、AIツールを活用することで、おおよそどの程度の時間や労力が削減できたと感じますか？（可能な範囲で、具体的な作業とともにご記入ください）"
)

// ProcessKind is one of the two surveyed work pipelines.
type ProcessKind string

const (
	Upstream    ProcessKind = "upstream"
	Development ProcessKind = "development"
)

// Process describes the questions asked of one team.
type Process struct {
	Kind  ProcessKind
	Label string
	Team  string
	Tools []string
	Tasks []string

	templates       map[scale.Family]string
	ChallengeColumn string
	ExampleColumn   string
}

var upstream = Process{
	Kind:  Upstream,
	Label: "上流工程",
	Team:  DirectorTeam,
	Tools: []string{
		"ChatGPT",
		"Gemini",
		"genspark",
		"bolt.new",
		"Notebook LM",
		"Devin Search",
		"その他のAIツール",
	},
	Tasks: []string{
		"企画・提案の骨子検討",
		"提案資料作成",
		"仕様・要件整理（UI含む）",
		"概要設計・システム構成検討",
		"プレゼン・説明内容の整理",
		"事務作業",
		"その他",
	},
	templates: map[scale.Family]string{
		scale.Frequency:     "先月で、上流工程の作業において、以下のAIツールをどのくらいの頻度で利用しましたか？",
		scale.Contribution:  "上流工程の作業において、それぞれのAIツールは担当された作業の生産性向上にどの程度貢献したと感じますか？",
		scale.TimeReduction: "上流工程において、AIツールを活用することで、担当作業について、おおよそどの程度の時間や労力が削減できたと感じますか？",
	},
	ChallengeColumn: "上流工程でAIツールを活用する上で、どのような課題を感じていますか？（複数選択可）",
	ExampleColumn:   upstreamStory,
}

var development = Process{
	Kind:  Development,
	Label: "開発工程",
	Team:  EngineeringTeam,
	Tools: []string{
		"ChatGPT / Gemini / Claude（会話）",
		"ChatGPT / Gemini / Claude（コーディング）",
		"Devin (Session / Search / wiki)",
		"GitHub Copilot",
		"Cursor",
		"Claude (ClaudeCode)",
		"その他",
	},
	Tasks: []string{
		"技術的な調査、問題解決のための情報収集",
		"設計作業（検討・整理含む）",
		"コーディング作業",
		"単体テスト作業（テストケース作成・実行）",
		"レビュー（コードや設計）",
		"その他",
	},
	templates: map[scale.Family]string{
		scale.Frequency:     "先月、開発工程の作業において、以下のAIツールをどのくらいの頻度で利用しましたか？",
		scale.Contribution:  "開発工程の作業において、それぞれのAIツールは担当された作業の生産性向上にどの程度貢献したと感じますか？",
		scale.TimeReduction: devTimeColumn,
	},
	ChallengeColumn: "開発工程でAIツールを活用する上で、どのような課題を感じていますか？（複数選択可）",
	ExampleColumn:   devTimeColumn,
}

// Processes returns both processes, upstream first.
func Processes() []Process {
	return []Process{upstream.clone(), development.clone()}
}

// Lookup returns the process of the given kind.
func Lookup(kind ProcessKind) (Process, bool) {
	switch kind {
	case Upstream:
		return upstream.clone(), true
	case Development:
		return development.clone(), true
	}
	return Process{}, false
}

func (p Process) clone() Process {
	c := p
	c.Tools = append([]string(nil), p.Tools...)
	c.Tasks = append([]string(nil), p.Tasks...)
	return c
}

// Subjects returns the tools (frequency, contribution) or tasks
// (time reduction) asked about for a family.
func (p Process) Subjects(f scale.Family) []string {
	if f == scale.TimeReduction {
		return append([]string(nil), p.Tasks...)
	}
	return append([]string(nil), p.Tools...)
}

// Question is the question text shared by every subject of a family.
func (p Process) Question(f scale.Family) string {
	return p.templates[f]
}

// Column builds the exact header for one subject of a family.
func (p Process) Column(f scale.Family, subject string) string {
	return p.templates[f] + " [" + subject + "]"
}

// DisplayLabel is the section heading used for the process, e.g.
// "上流工程（ディレクターチーム）".
func (p Process) DisplayLabel() string {
	return p.Label + "（" + p.Team + "）"
}

// TrainingColumn is the multi-select training needs question.
func TrainingColumn() string { return trainingColumn }

// FeedbackColumns are the free-text questions collected for the word view.
func FeedbackColumns() []string {
	return []string{upstreamStory, openFeedback}
}

// OpenFeedbackColumn is the general comments question.
func OpenFeedbackColumn() string { return openFeedback }

var displayNames = map[string]string{
	"ChatGPT / Gemini / Claude（会話）":       "汎用AI（会話）",
	"ChatGPT / Gemini / Claude（コーディング）":   "汎用AI（コーディング）",
	"Devin (Session / Search / wiki)":     "Devin",
	"Claude (ClaudeCode)":                 "Claude Code",
}

// DisplayName returns the short label for a tool. Names without a short
// form are returned unchanged.
func DisplayName(tool string) string {
	if n, ok := displayNames[tool]; ok {
		return n
	}
	return tool
}
