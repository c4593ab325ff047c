// Package server serves the four-tab HTML dashboard.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/dev-omotenashi/ai-usage-survey/internal/database"
	"github.com/dev-omotenashi/ai-usage-survey/internal/ingest"
	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/session"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// Server is the HTTP server for the dashboard.
type Server struct {
	sess    *session.Session
	builder *report.Builder
	db      *database.DB
	logger  *zap.Logger
	pages   map[string]*template.Template
	mux     *http.ServeMux
}

// New creates a new Server. db may be nil, in which case the run history
// page is empty.
func New(sess *session.Session, builder *report.Builder, db *database.DB, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	funcMap := template.FuncMap{
		"markdown":    renderMarkdown,
		"displayName": survey.DisplayName,
		"truncate":    report.Truncate,
		"inc":         func(i int) int { return i + 1 },
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page is parsed into its own clone of base so that every page
	// gets its own "content" and "title" definitions.
	pageNames := []string{"overview.html", "usage.html", "time.html", "feedback.html", "runs.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		_, err = clone.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{
		sess:    sess,
		builder: builder,
		db:      db,
		logger:  logger,
		pages:   pages,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleOverview)
	s.mux.HandleFunc("/usage", s.handleUsage)
	s.mux.HandleFunc("/time", s.handleTime)
	s.mux.HandleFunc("/feedback", s.handleFeedback)
	s.mux.HandleFunc("/runs", s.handleRuns)
	s.mux.HandleFunc("/reload", s.handleReload)
	s.mux.HandleFunc("/api/summary", s.handleAPISummary)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}

// load returns the current report, rendering the error page itself when
// the export cannot be read.
func (s *Server) load(w http.ResponseWriter, r *http.Request, tab string) (*report.Report, *session.Snapshot, bool) {
	snap, err := s.sess.Get(r.Context())
	if err != nil {
		s.renderError(w, tab, err)
		return nil, nil, false
	}
	return s.builder.Build(snap.Dataset, snap.Processed), snap, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	rep, snap, ok := s.load(w, r, report.SectionOverview)
	if !ok {
		return
	}
	s.render(w, "overview.html", s.pageData(report.SectionOverview, rep, snap, overviewView(rep)))
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	rep, snap, ok := s.load(w, r, report.SectionUsage)
	if !ok {
		return
	}
	var views []usageView
	for _, u := range rep.Usage {
		views = append(views, newUsageView(u, r.URL.Query().Get(string(u.Process.Kind)+"_tool")))
	}
	s.render(w, "usage.html", s.pageData(report.SectionUsage, rep, snap, views))
}

func (s *Server) handleTime(w http.ResponseWriter, r *http.Request) {
	rep, snap, ok := s.load(w, r, report.SectionTime)
	if !ok {
		return
	}
	var views []timeView
	for _, t := range rep.Time {
		views = append(views, newTimeView(t, rep.Period))
	}
	s.render(w, "time.html", s.pageData(report.SectionTime, rep, snap, views))
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	rep, snap, ok := s.load(w, r, report.SectionFeedback)
	if !ok {
		return
	}
	s.render(w, "feedback.html", s.pageData(report.SectionFeedback, rep, snap, newFeedbackView(rep.Feedback)))
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"Active": "runs", "Tabs": tabs()}
	if s.db != nil {
		runs, err := s.db.GetRecentRuns(20)
		if err != nil {
			s.logger.Error("listing runs", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		stats, err := s.db.GetStats()
		if err != nil {
			s.logger.Error("reading run stats", zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		data["Runs"] = runs
		data["Stats"] = stats
	}
	s.render(w, "runs.html", data)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	s.sess.Invalidate()
	back := r.FormValue("back")
	if back == "" || back[0] != '/' {
		back = "/"
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

type apiSummary struct {
	Source   string         `json:"source"`
	Total    int            `json:"total"`
	ByTeam   map[string]int `json:"by_team"`
	Months   []string       `json:"months"`
	LoadedAt time.Time      `json:"loaded_at"`
}

func (s *Server) handleAPISummary(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sess.Get(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, session.ErrNoDataset) {
			status = http.StatusServiceUnavailable
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(apiSummary{
		Source:   snap.Dataset.Path(),
		Total:    snap.Summary.Total,
		ByTeam:   snap.Summary.ByTeam,
		Months:   snap.Summary.Months,
		LoadedAt: snap.LoadedAt,
	})
}

type tab struct {
	ID    string
	Path  string
	Title string
}

func tabs() []tab {
	paths := map[string]string{
		report.SectionOverview: "/",
		report.SectionUsage:    "/usage",
		report.SectionTime:     "/time",
		report.SectionFeedback: "/feedback",
	}
	var out []tab
	for _, id := range report.SectionIDs() {
		out = append(out, tab{ID: id, Path: paths[id], Title: report.SectionTitle(id)})
	}
	return out
}

func (s *Server) pageData(active string, rep *report.Report, snap *session.Snapshot, view any) map[string]any {
	return map[string]any{
		"Active":   active,
		"Tabs":     tabs(),
		"Report":   rep,
		"Period":   report.PeriodLabel(rep.Period),
		"LoadedAt": snap.LoadedAt.Format("2006-01-02 15:04:05"),
		"Error":    rep.Err(active),
		"View":     view,
	}
}

func (s *Server) renderError(w http.ResponseWriter, active string, err error) {
	status := http.StatusInternalServerError
	message := "データの読み込みに失敗しました。"
	var perr *ingest.ParseError
	switch {
	case errors.Is(err, session.ErrNoDataset):
		status = http.StatusServiceUnavailable
		message = "アンケートデータが見つかりません。"
	case errors.As(err, &perr):
		message = "アンケートデータを解析できませんでした。"
	}
	s.logger.Warn("dashboard data unavailable", zap.Error(err))
	s.renderStatus(w, status, "error.html", map[string]any{
		"Active":  active,
		"Tabs":    tabs(),
		"Message": message,
		"Detail":  err.Error(),
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	s.renderStatus(w, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.logger.Error("template not found", zap.String("template", name))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.logger.Error("rendering template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("url", "http://"+addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
