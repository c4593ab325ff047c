package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dev-omotenashi/ai-usage-survey/internal/database"
	"github.com/dev-omotenashi/ai-usage-survey/internal/headline"
	"github.com/dev-omotenashi/ai-usage-survey/internal/report"
	"github.com/dev-omotenashi/ai-usage-survey/internal/scale"
	"github.com/dev-omotenashi/ai-usage-survey/internal/session"
	"github.com/dev-omotenashi/ai-usage-survey/internal/survey"
	"github.com/dev-omotenashi/ai-usage-survey/internal/surveytest"
)

var period = headline.Period{
	Months:  []string{"2025年5月", "2025年6月", "2025年7月"},
	Earlier: "2025年5月",
	Later:   "2025年7月",
}

func fixturePath(t *testing.T) string {
	t.Helper()
	dev := surveytest.Development()
	return surveytest.WriteFile(t, surveytest.TSV(
		surveytest.Row{Timestamp: "2025/05/20 10:00:00", Team: survey.EngineeringTeam, Answers: map[string]string{
			dev.Column(scale.Frequency, "GitHub Copilot"):       "月に数回",
			dev.Column(scale.Contribution, "GitHub Copilot"):    "4:貢献した",
			dev.Column(scale.TimeReduction, "コーディング作業"): "30-50%程度",
			dev.ChallengeColumn:                                 "精度",
			dev.ExampleColumn:                                   "レビュー指摘の下書きが速くなった",
			survey.OpenFeedbackColumn():                         "事例共有の場がほしい",
		}},
		surveytest.Row{Timestamp: "2025/07/20 10:00:00", Team: survey.EngineeringTeam, Answers: map[string]string{
			dev.Column(scale.Frequency, "GitHub Copilot"):    "毎日",
			dev.Column(scale.Contribution, "GitHub Copilot"): "5:非常に貢献した",
		}},
	))
}

func newTestServer(t *testing.T, path string, db *database.DB) (*Server, *session.Session) {
	t.Helper()
	sess := session.New(path, period.Months, nil)
	srv, err := New(sess, report.NewBuilder(period, nil), db, nil)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv, sess
}

func get(t *testing.T, srv *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestOverviewRoute(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"AI活用状況分析ダッシュボード", "総回答数", "2025年5月 〜 2025年7月", "<svg"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in response body", want)
		}
	}
}

func TestUnknownPath(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	if rec := get(t, srv, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestUsageRouteSelectsTool(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/usage?development_tool="+url.QueryEscape("GitHub Copilot"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "GitHub Copilotの利用頻度×生産性貢献度クロス集計") {
		t.Error("expected crosstab of the selected tool")
	}
	if !strings.Contains(body, "平均4.0点") {
		t.Error("expected most used card")
	}
	// Upstream falls back to its first tool, which has no answers.
	if !strings.Contains(body, "ChatGPTのデータが不足しています。") {
		t.Error("expected missing data notice for the default upstream tool")
	}
}

func TestUsageRouteUnknownToolFallsBack(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/usage?development_tool=bogus")
	body := rec.Body.String()
	if !strings.Contains(body, "汎用AI（会話）のデータが不足しています。") {
		t.Error("expected fallback to the first development tool")
	}
}

func TestTimeRoute(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/time")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "事例 1: レビュー指摘の下書きが速くなった") {
		t.Error("expected example in response")
	}
	if !strings.Contains(body, "時間削減データがありません。") {
		t.Error("expected upstream no-data notice")
	}
}

func TestFeedbackRoute(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/feedback")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "事例共有の場がほしい") {
		t.Error("expected feedback excerpt")
	}
	if !strings.Contains(body, "課題の設問がありません。") {
		t.Error("expected notice for the missing upstream challenge question")
	}
	if !strings.Contains(body, "<td>2025年5月</td><td>-</td><td>精度 (1)</td>") {
		t.Error("expected the May challenge summary in the monthly table")
	}
}

func TestMissingDataset(t *testing.T) {
	srv, _ := newTestServer(t, filepath.Join(t.TempDir(), "missing.tsv"), nil)
	rec := get(t, srv, "/usage")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "アンケートデータが見つかりません。") {
		t.Error("expected missing data message")
	}
}

func TestMalformedDataset(t *testing.T) {
	path := surveytest.WriteFile(t, []byte("a\tb\n1\t2\n"))
	srv, _ := newTestServer(t, path, nil)
	rec := get(t, srv, "/")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "解析できませんでした") {
		t.Error("expected parse error message")
	}
}

func TestReloadInvalidatesSession(t *testing.T) {
	srv, sess := newTestServer(t, fixturePath(t), nil)
	get(t, srv, "/")
	if sess.Loads() != 1 {
		t.Fatalf("expected 1 load, got %d", sess.Loads())
	}

	req := httptest.NewRequest("POST", "/reload", strings.NewReader("back=/usage"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/usage" {
		t.Errorf("expected redirect to /usage, got %q", loc)
	}

	get(t, srv, "/")
	if sess.Loads() != 2 {
		t.Errorf("expected reload after invalidate, got %d loads", sess.Loads())
	}
}

func TestReloadRejectsExternalRedirect(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	req := httptest.NewRequest("POST", "/reload", strings.NewReader("back=https://example.com"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("expected redirect to /, got %q", loc)
	}
}

func TestAPISummary(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/api/summary")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got apiSummary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Total != 2 {
		t.Errorf("expected 2 responses, got %d", got.Total)
	}
	if got.ByTeam[survey.EngineeringTeam] != 2 {
		t.Errorf("expected 2 engineering responses, got %v", got.ByTeam)
	}
}

func TestAPISummaryMissingDataset(t *testing.T) {
	srv, _ := newTestServer(t, filepath.Join(t.TempDir(), "missing.tsv"), nil)
	if rec := get(t, srv, "/api/summary"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRunsRoute(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	id, _ := db.InsertRun("survey.tsv", 2, nil)
	db.FinishRun(id, database.StatusOK, 3)

	srv, _ := newTestServer(t, fixturePath(t), db)
	rec := get(t, srv, "/runs")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), id) {
		t.Error("expected run ID in response")
	}
}

func TestRunsRouteWithoutDB(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/runs")
	if !strings.Contains(rec.Body.String(), "実行履歴がありません。") {
		t.Error("expected empty history notice")
	}
}

func TestStaticRoute(t *testing.T) {
	srv, _ := newTestServer(t, fixturePath(t), nil)
	rec := get(t, srv, "/static/style.css")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "--upstream") {
		t.Error("expected CSS content")
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := string(renderMarkdown("**太字**"))
	if !strings.Contains(out, "<strong>太字</strong>") {
		t.Errorf("unexpected markdown output %q", out)
	}
}
