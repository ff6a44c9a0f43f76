package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hookRecorder struct {
	mu       sync.Mutex
	messages []string
	paths    []string
	users    []string
}

func (h *hookRecorder) handler(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	user, _, _ := r.BasicAuth()
	h.mu.Lock()
	h.paths = append(h.paths, r.URL.Path)
	h.users = append(h.users, user)
	if chat, ok := body["chat_id"]; ok {
		h.messages = append(h.messages, chat+"|"+body["text"])
	} else {
		h.messages = append(h.messages, body["text"])
	}
	h.mu.Unlock()
}

func (h *hookRecorder) snapshot() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.messages...)
}

func newHookServer(t *testing.T) (*hookRecorder, *httptest.Server) {
	rec := &hookRecorder{}
	srv := httptest.NewServer(http.HandlerFunc(rec.handler))
	t.Cleanup(srv.Close)
	return rec, srv
}

func TestObserveAnalysesSeedsThenNotifiesTransitions(t *testing.T) {
	rec, srv := newHookServer(t)
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SaveSettings(context.Background(), domain.NotificationSettings{
		WebhookEnabled:    true,
		WebhookURL:        srv.URL,
		NotifyOnCompleted: true,
		NotifyOnFailed:    true,
	}))
	n := NewNotifierService(repo, 0, 10)

	// 第一次只記錄
	n.ObserveAnalyses([]domain.AnalysisSession{
		{ID: "old", Name: "Old", Status: domain.AnalysisCompleted},
		{ID: "a2", Name: "Second", Status: domain.AnalysisRunning, TotalDomains: 3},
	})
	n.ObserveAnalyses([]domain.AnalysisSession{
		{ID: "old", Name: "Old", Status: domain.AnalysisCompleted},
		{ID: "a2", Name: "Second", Status: domain.AnalysisCompleted, TotalDomains: 3, DomainsAnalyzed: 3},
		{ID: "a3", Name: "Third", Status: domain.AnalysisFailed},
	})
	// 已經是終態，不重複通知
	n.ObserveAnalyses([]domain.AnalysisSession{
		{ID: "a2", Name: "Second", Status: domain.AnalysisCompleted},
	})
	n.Stop()

	msgs := rec.snapshot()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Second")
	assert.Contains(t, msgs[0], "3/3")
	assert.Contains(t, msgs[1], "Third")
}

func TestNotifyAnalysisRespectsToggles(t *testing.T) {
	rec, srv := newHookServer(t)
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SaveSettings(context.Background(), domain.NotificationSettings{
		WebhookEnabled:            true,
		WebhookURL:                srv.URL,
		NotifyOnCompleted:         true,
		NotifyOnCompletedTemplate: "done {{.Name}}",
	}))
	n := NewNotifierService(repo, 0, 10)

	n.NotifyAnalysis(context.Background(), domain.AnalysisSession{ID: "a", Name: "A", Status: domain.AnalysisCompleted})
	n.NotifyAnalysis(context.Background(), domain.AnalysisSession{ID: "b", Name: "B", Status: domain.AnalysisFailed})
	n.Stop()

	assert.Equal(t, []string{"done A"}, rec.snapshot())
}

func TestNotifyReviewListsChanges(t *testing.T) {
	rec, srv := newHookServer(t)
	repo := repository.NewMemoryRepo()
	require.NoError(t, repo.SaveSettings(context.Background(), domain.NotificationSettings{
		WebhookEnabled: true,
		WebhookURL:     srv.URL,
		NotifyOnReview: true,
	}))
	n := NewNotifierService(repo, 0, 10)

	n.NotifyReview(context.Background(), domain.AnalysisSession{ID: "a", Name: "Batch"}, []domain.StatusChange{
		{ID: "x.com", Domain: "x.com", From: domain.StatusReview, To: domain.StatusReject},
	})
	n.NotifyReview(context.Background(), domain.AnalysisSession{ID: "a", Name: "Batch"}, nil)
	n.Stop()

	msgs := rec.snapshot()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "x.com: Review -> Reject")
}

func TestSendTestMessage(t *testing.T) {
	n := NewNotifierService(repository.NewMemoryRepo(), 0, 10)
	defer n.Stop()

	assert.Error(t, n.SendTestMessage(domain.NotificationSettings{}))

	rec, srv := newHookServer(t)
	n.TelegramAPI = srv.URL
	err := n.SendTestMessage(domain.NotificationSettings{
		WebhookEnabled:   true,
		WebhookURL:       srv.URL + "/hook",
		WebhookUser:      "bot",
		WebhookPassword:  "secret",
		TelegramEnabled:  true,
		TelegramBotToken: "TOKEN",
		TelegramChatID:   "42",
	})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ElementsMatch(t, []string{"/botTOKEN/sendMessage", "/hook"}, rec.paths)
	assert.Contains(t, rec.users, "bot")
	assert.Contains(t, rec.messages[0], "42|")
}

func TestSendTestMessageReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	n := NewNotifierService(repository.NewMemoryRepo(), 0, 10)
	n.HTTP.Timeout = time.Second
	defer n.Stop()

	err := n.SendTestMessage(domain.NotificationSettings{WebhookEnabled: true, WebhookURL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
