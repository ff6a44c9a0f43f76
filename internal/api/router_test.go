package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"
	"triage-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAPI struct {
	sessions   []domain.AnalysisSession
	records    []domain.DomainRecord
	resultsErr error
}

func (s *stubAPI) ListAnalyses(ctx context.Context) ([]domain.AnalysisSession, error) {
	return s.sessions, nil
}

func (s *stubAPI) StartAnalysis(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error) {
	return &domain.AnalysisSession{ID: "created", Name: req.Name, Status: domain.AnalysisPending, TotalDomains: len(req.Domains)}, nil
}

func (s *stubAPI) GetResults(ctx context.Context, id string) ([]domain.DomainRecord, error) {
	if s.resultsErr != nil {
		return nil, s.resultsErr
	}
	return append([]domain.DomainRecord(nil), s.records...), nil
}

func stubRecords() []domain.DomainRecord {
	return []domain.DomainRecord{
		{ID: "a.com", Domain: "a.com", Price: "$100", DR: 50, Topic: "Tech", Country: "US", Status: domain.StatusOK, Scores: domain.Scores{Overall: 90}},
		{ID: "b.com", Domain: "b.com", Price: "$400", DR: 10, Topic: "Food", Country: "DE", Status: domain.StatusReview, Scores: domain.Scores{Overall: 40}},
		{ID: "c.com", Domain: "c.com", Price: "$200", DR: 70, Topic: "Tech", Country: "US", Status: domain.StatusReject, Scores: domain.Scores{Overall: 20}, CriticalViolations: []string{"Geography"}},
	}
}

type testEnv struct {
	router    *gin.Engine
	api       *stubAPI
	dashboard *service.DashboardService
	repo      *repository.MemoryRepo
}

func newTestEnv(t *testing.T, withAuth bool) *testEnv {
	t.Helper()
	api := &stubAPI{sessions: []domain.AnalysisSession{{ID: "a1", Name: "Batch", Status: domain.AnalysisCompleted}}, records: stubRecords()}
	repo := repository.NewMemoryRepo()
	notifier := service.NewNotifierService(repo, 0, 10)
	t.Cleanup(notifier.Stop)

	dash := service.NewDashboardService(api, service.NewPoller(api, time.Hour), repo, notifier, false)
	t.Cleanup(dash.Stop)

	whois := service.NewWhoisService()
	whois.Query = func(d string) (string, error) { return "", errors.New("offline") }

	h := Handlers{
		Analysis: NewAnalysisHandler(dash),
		Results:  NewResultsHandler(dash),
		Settings: NewSettingsHandler(repo, notifier),
		Tools:    NewToolHandler(whois),
	}
	if withAuth {
		auth := service.NewAuthService(repo, "secret")
		require.NoError(t, auth.InitAdmin(context.Background(), "admin", "admin123"))
		h.Auth = NewAuthHandler(auth)
		h.JWTSecret = []byte("secret")
	}
	return &testEnv{router: NewRouter(h), api: api, dashboard: dash, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func visibleIDs(t *testing.T, w *httptest.ResponseRecorder) []string {
	t.Helper()
	data := decode(t, w)["data"].(map[string]interface{})
	var ids []string
	for _, r := range data["rows"].([]interface{}) {
		ids = append(ids, r.(map[string]interface{})["id"].(string))
	}
	return ids
}

func TestCreateAnalysisValidation(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/analyses", gin.H{"name": "", "domains": []gin.H{{"domain": "x.com"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please enter analysis name", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/api/v1/analyses", gin.H{"name": "Batch", "domains": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Please add at least one domain", decode(t, w)["error"])

	w = env.do(t, http.MethodPost, "/api/v1/analyses", gin.H{"name": "Batch", "domains": []gin.H{{"domain": "x.com", "price": "$10"}}})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/analyses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])
}

func TestImportRawText(t *testing.T) {
	env := newTestEnv(t, false)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/import", strings.NewReader("domain,price,notes\nexample.com,$100,Good\n,$50,\n"))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyses/import", strings.NewReader("domain,price,notes\n"))
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid domains found in CSV", decode(t, w)["error"])
}

func TestImportMultipartCSV(t *testing.T) {
	env := newTestEnv(t, false)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "domains.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("a.com,$1\nb.com,$2\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])
}

func TestOpenFailureShowsHint(t *testing.T) {
	env := newTestEnv(t, false)
	env.api.resultsErr = &service.HTTPError{StatusCode: 500, Body: "boom"}

	w := env.do(t, http.MethodPost, "/api/v1/analyses/a1/open", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, service.HintResultsFailed, decode(t, w)["hint"])

	w = env.do(t, http.MethodGet, "/api/v1/view", nil)
	view := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "results", view["view"])
	assert.Equal(t, true, view["loading"])

	w = env.do(t, http.MethodGet, "/api/v1/results", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestResultsWorkflow(t *testing.T) {
	env := newTestEnv(t, false)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/analyses/a1/open", nil).Code)

	w := env.do(t, http.MethodGet, "/api/v1/results", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, visibleIDs(t, w), 3)

	// 篩選
	w = env.do(t, http.MethodPut, "/api/v1/results/filters", gin.H{"topics": []string{"Tech"}, "bands": gin.H{"price": "lt150"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"a.com"}, visibleIDs(t, w))

	w = env.do(t, http.MethodPut, "/api/v1/results/filters", gin.H{"bands": gin.H{"price": "bogus"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/results/filters/reset", nil)
	assert.Len(t, visibleIDs(t, w), 3)

	// 排序: DR desc
	w = env.do(t, http.MethodPost, "/api/v1/results/sort/dr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"c.com", "a.com", "b.com"}, visibleIDs(t, w))
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/api/v1/results/sort/nope", nil).Code)

	// 勾選後批次改狀態
	w = env.do(t, http.MethodPost, "/api/v1/results/selection", gin.H{"action": "select", "ids": []string{"b.com", "a.com"}})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v1/results/keys/o", nil)
	assert.Equal(t, "b.com", decode(t, w)["data"].(map[string]interface{})["expanded"])

	w = env.do(t, http.MethodPost, "/api/v1/results/status", gin.H{"status": "reject"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["total"])

	w = env.do(t, http.MethodPost, "/api/v1/results/status", gin.H{"status": "reject"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 沒有勾選時頂部按鈕切換篩選
	w = env.do(t, http.MethodPost, "/api/v1/results/top-action/Reject", nil)
	res := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "filter_toggle", res["mode"])
	assert.Equal(t, "Reject", res["filter"])

	w = env.do(t, http.MethodGet, "/api/v1/results/stats", nil)
	stats := decode(t, w)["data"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["total_domains"])
	assert.EqualValues(t, 3, stats["visible_domains"])

	w = env.do(t, http.MethodGet, "/api/v1/results/c.com/evidence", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/results/zzz.com/evidence", nil).Code)

	w = env.do(t, http.MethodGet, "/api/v1/results/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "a.com")

	w = env.do(t, http.MethodGet, "/api/v1/results/decisions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/view/back", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "list", decode(t, w)["data"].(map[string]interface{})["view"])
}

func TestSettingsMerge(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/v1/settings", gin.H{"webhook_enabled": true, "webhook_url": "http://hook"})
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPost, "/api/v1/settings", gin.H{"notify_on_completed": true})
	require.Equal(t, http.StatusOK, w.Code)

	settings, err := env.repo.GetSettings(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.WebhookEnabled)
	assert.Equal(t, "http://hook", settings.WebhookURL)
	assert.True(t, settings.NotifyOnCompleted)

	w = env.do(t, http.MethodPost, "/api/v1/settings/test", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTools(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/v1/tools/price-decision?price=$74&dr=20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Below market (good deal)", decode(t, w)["data"].(map[string]interface{})["label"])
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/tools/price-decision?dr=abc", nil).Code)

	w = env.do(t, http.MethodGet, "/api/v1/tools/whois?domain=a.com,b.org", nil)
	require.Equal(t, http.StatusOK, w.Code)
	rows := decode(t, w)["data"].([]interface{})
	require.Len(t, rows, 2)
	assert.Contains(t, rows[0].(map[string]interface{})["error"], "offline")
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/tools/whois", nil).Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t, true)

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/v1/analyses", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/login", gin.H{"username": "admin", "password": "nope"}).Code)

	w := env.do(t, http.MethodPost, "/api/login", gin.H{"username": "admin", "password": "admin123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analyses", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodOptions, "/api/v1/analyses", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
