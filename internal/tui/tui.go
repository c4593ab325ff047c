// Package tui is the terminal version of the dashboard. Each tab renders a
// report section as markdown through glamour inside a scrollable viewport.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/session"
)

const (
	defaultWidth  = 80
	defaultHeight = 24

	// header and footer lines around the viewport
	chromeHeight = 4
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1f77b4"))
	activeTabStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#1f77b4"))
	inactiveTabStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	helpStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#c62828")).Bold(true)
)

// Options configures the terminal dashboard.
type Options struct {
	// Style is a glamour style name ("dark", "light", "notty") or "auto".
	Style  string
	Logger *zap.Logger
}

type reportMsg struct {
	report *report.Report
	source string
}

type errMsg struct{ err error }

// Model is the bubbletea model of the dashboard.
type Model struct {
	sess    *session.Session
	builder *report.Builder
	style   string
	logger  *zap.Logger

	tabs     []string
	active   int
	pages    []viewport.Model
	markdown []string
	renderer *glamour.TermRenderer

	report  *report.Report
	source  string
	err     error
	loading bool
	width   int
	height  int
}

// New creates a dashboard model reading from sess.
func New(sess *session.Session, builder *report.Builder, opts Options) Model {
	if opts.Style == "" {
		opts.Style = "dark"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	m := Model{
		sess:    sess,
		builder: builder,
		style:   opts.Style,
		logger:  opts.Logger,
		tabs:    report.SectionIDs(),
		loading: true,
		width:   defaultWidth,
		height:  defaultHeight,
	}
	m.pages = make([]viewport.Model, len(m.tabs))
	m.markdown = make([]string, len(m.tabs))
	for i := range m.pages {
		m.pages[i] = viewport.New(defaultWidth, defaultHeight-chromeHeight)
	}
	m.renderer = m.newRenderer()
	return m
}

// Init starts the first load.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	sess, builder := m.sess, m.builder
	return func() tea.Msg {
		snap, err := sess.Get(context.Background())
		if err != nil {
			return errMsg{err}
		}
		return reportMsg{report: builder.Build(snap.Dataset, snap.Processed), source: snap.Dataset.Path()}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		for i := range m.pages {
			m.pages[i].Width = msg.Width
			m.pages[i].Height = max(msg.Height-chromeHeight, 1)
		}
		m.renderer = m.newRenderer()
		m.refresh()
		return m, nil

	case reportMsg:
		m.loading, m.err = false, nil
		m.report, m.source = msg.report, msg.source
		for i, id := range m.tabs {
			m.markdown[i] = msg.report.SectionMarkdown(id)
		}
		m.refresh()
		return m, nil

	case errMsg:
		m.loading = false
		m.err = msg.err
		m.logger.Warn("dashboard data unavailable", zap.Error(msg.err))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % len(m.tabs)
			return m, nil
		case "shift+tab", "left", "h":
			m.active = (m.active + len(m.tabs) - 1) % len(m.tabs)
			return m, nil
		case "1", "2", "3", "4":
			if i := int(msg.String()[0] - '1'); i < len(m.tabs) {
				m.active = i
			}
			return m, nil
		case "r":
			m.sess.Invalidate()
			m.loading = true
			return m, m.load()
		}
	}

	var cmd tea.Cmd
	m.pages[m.active], cmd = m.pages[m.active].Update(msg)
	return m, cmd
}

// Active returns the section ID of the selected tab.
func (m Model) Active() string {
	return m.tabs[m.active]
}

// Markdown returns the markdown source of a tab, empty before the first load.
func (m Model) Markdown(id string) string {
	for i, t := range m.tabs {
		if t == id {
			return m.markdown[i]
		}
	}
	return ""
}

// Err returns the last load error.
func (m Model) Err() error {
	return m.err
}

func (m Model) newRenderer() *glamour.TermRenderer {
	wrap := glamour.WithWordWrap(max(m.width-4, 20))
	style := glamour.WithStylePath(m.style)
	if m.style == "auto" {
		style = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(style, wrap)
	if err != nil {
		m.logger.Warn("markdown renderer unavailable", zap.String("style", m.style), zap.Error(err))
		return nil
	}
	return r
}

// refresh re-renders every tab into its viewport.
func (m *Model) refresh() {
	for i, src := range m.markdown {
		if src == "" {
			continue
		}
		out := src
		if m.renderer != nil {
			rendered, err := m.renderer.Render(src)
			if err != nil {
				m.logger.Warn("rendering section", zap.String("section", m.tabs[i]), zap.Error(err))
			} else {
				out = rendered
			}
		}
		m.pages[i].SetContent(out)
	}
}

// View renders the dashboard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("AI活用状況分析ダッシュボード"))
	if m.report != nil {
		b.WriteString(helpStyle.Render("  比較期間: " + report.PeriodLabel(m.report.Period)))
	}
	b.WriteString("\n")

	tabs := make([]string, len(m.tabs))
	for i, id := range m.tabs {
		label := fmt.Sprintf("%d %s", i+1, report.SectionTitle(id))
		if i == m.active {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = inactiveTabStyle.Render(label)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(errorMessage(m.err)))
		b.WriteString("\n")
		b.WriteString(m.err.Error())
		b.WriteString("\n")
	case m.loading:
		b.WriteString("読み込み中...\n")
	default:
		b.WriteString(m.pages[m.active].View())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("tab/←→: タブ切替  1-4: 直接移動  ↑↓: スクロール  r: 再読み込み  q: 終了"))
	return b.String()
}

func errorMessage(err error) string {
	if errors.Is(err, session.ErrNoDataset) {
		return "アンケートデータが見つかりません。"
	}
	return "データの読み込みに失敗しました。"
}

// Run starts the dashboard in the alternate screen until the user quits or
// ctx is cancelled.
func Run(ctx context.Context, sess *session.Session, builder *report.Builder, opts Options) error {
	p := tea.NewProgram(New(sess, builder, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running dashboard: %w", err)
	}
	return nil
}
