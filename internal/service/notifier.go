package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type EventType string

const (
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventReview    EventType = "review"
	EventTest      EventType = "test"
)

// TemplateData 模板可用的變數，例如 {{.Name}}
type TemplateData struct {
	ID       string
	Event    string
	Name     string
	Status   string
	Total    int
	Analyzed int
	Created  string
	Finished string
	Changes  []domain.StatusChange
	Count    int
}

// 預設模板 (當使用者沒設定時用這個)
const (
	defaultCompletedTemplate = `✅ [分析完成] {{.Name}}
已分析: {{.Analyzed}}/{{.Total}}
建立: {{.Created}}
完成: {{.Finished}}`

	defaultFailedTemplate = `❌ [分析失敗] {{.Name}}
已分析: {{.Analyzed}}/{{.Total}}
建立: {{.Created}}`

	defaultReviewTemplate = `📝 [人工審核] {{.Name}} 共 {{.Count}} 筆
{{range .Changes}}{{.Domain}}: {{.From}} -> {{.To}}
{{end}}`

	defaultTestTemplate = `🔔 測試通知 {{.ID}}`
)

type telegramJob struct {
	Token   string
	ChatID  string
	Message string
}

type webhookJob struct {
	URL      string
	Message  string
	User     string
	Password string
}

// WebhookPayload 相容 Slack/Teams/Discord
type WebhookPayload struct {
	Text string `json:"text"`
}

type NotifierService struct {
	Repo        repository.ReviewRepository
	HTTP        *http.Client
	TelegramAPI string

	tgQueue      chan telegramJob
	webhookQueue chan webhookJob
	limiter      *rate.Limiter

	mu       sync.Mutex
	lastSeen map[string]domain.AnalysisStatus
	seeded   bool

	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewNotifierService 啟動 Telegram / Webhook 兩個背景 worker，共用一個限速器
func NewNotifierService(repo repository.ReviewRepository, perSecond float64, queueSize int) *NotifierService {
	if queueSize <= 0 {
		queueSize = 1000
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	n := &NotifierService{
		Repo:         repo,
		HTTP:         &http.Client{Timeout: 10 * time.Second},
		TelegramAPI:  "https://api.telegram.org",
		tgQueue:      make(chan telegramJob, queueSize),
		webhookQueue: make(chan webhookJob, queueSize),
		limiter:      rate.NewLimiter(limit, 1),
		lastSeen:     make(map[string]domain.AnalysisStatus),
	}

	n.wg.Add(2)
	go n.startTelegramWorker()
	go n.startWebhookWorker()
	return n
}

// Stop 關閉佇列並等 worker 把剩下的訊息送完
func (n *NotifierService) Stop() {
	n.stopOnce.Do(func() {
		close(n.tgQueue)
		close(n.webhookQueue)
	})
	n.wg.Wait()
}

func (n *NotifierService) startTelegramWorker() {
	defer n.wg.Done()
	logrus.Info("[Notifier] Telegram Worker 已啟動")
	for job := range n.tgQueue {
		_ = n.limiter.Wait(context.Background())
		if err := n.sendTelegram(job.Token, job.ChatID, job.Message); err != nil {
			logrus.Errorf("[Notifier] Telegram 發送失敗: %v", err)
		}
	}
}

func (n *NotifierService) startWebhookWorker() {
	defer n.wg.Done()
	logrus.Info("[Notifier] Webhook Worker 已啟動")
	for job := range n.webhookQueue {
		_ = n.limiter.Wait(context.Background())
		if err := n.sendWebhook(job.URL, job.Message, job.User, job.Password); err != nil {
			logrus.Errorf("[Notifier] Webhook 發送失敗: %v", err)
		}
	}
}

// =============================================================================
// Events (業務入口)
// =============================================================================

// ObserveAnalyses 比對前後兩次輪詢，狀態第一次進入 completed / failed 時通知。
// 第一次觀察只記錄不通知，避免啟動時把歷史批次全部送一遍。
func (n *NotifierService) ObserveAnalyses(list []domain.AnalysisSession) {
	n.mu.Lock()
	var events []domain.AnalysisSession
	for _, a := range list {
		prev, known := n.lastSeen[a.ID]
		n.lastSeen[a.ID] = a.Status
		if !n.seeded || !a.Status.Terminal() {
			continue
		}
		if !known || !prev.Terminal() {
			events = append(events, a)
		}
	}
	n.seeded = true
	n.mu.Unlock()

	for _, a := range events {
		n.NotifyAnalysis(context.Background(), a)
	}
}

// NotifyAnalysis 依設定決定是否送出完成/失敗通知
func (n *NotifierService) NotifyAnalysis(ctx context.Context, a domain.AnalysisSession) {
	settings, err := n.Repo.GetSettings(ctx)
	if err != nil {
		logrus.Errorf("[Notifier] 讀取通知設定失敗: %v", err)
		return
	}

	var tpl string
	switch a.Status {
	case domain.AnalysisCompleted:
		if !settings.NotifyOnCompleted {
			return
		}
		tpl = pick(settings.NotifyOnCompletedTemplate, defaultCompletedTemplate)
	case domain.AnalysisFailed:
		if !settings.NotifyOnFailed {
			return
		}
		tpl = pick(settings.NotifyOnFailedTemplate, defaultFailedTemplate)
	default:
		return
	}

	msg, err := n.renderTemplate(tpl, analysisData(a))
	if err != nil {
		logrus.Errorf("[Notifier] 模板渲染失敗: %v", err)
		return
	}
	n.sendToChannels(settings, msg)
}

// NotifyReview 人工批次改狀態後通知
func (n *NotifierService) NotifyReview(ctx context.Context, a domain.AnalysisSession, changes []domain.StatusChange) {
	if len(changes) == 0 {
		return
	}
	settings, err := n.Repo.GetSettings(ctx)
	if err != nil || !settings.NotifyOnReview {
		return
	}
	data := analysisData(a)
	data.Event = string(EventReview)
	data.Changes = changes
	data.Count = len(changes)

	msg, err := n.renderTemplate(pick(settings.NotifyOnReviewTemplate, defaultReviewTemplate), data)
	if err != nil {
		logrus.Errorf("[Notifier] 模板渲染失敗: %v", err)
		return
	}
	n.sendToChannels(settings, msg)
}

// SendTestMessage 直接同步發送，錯誤回給呼叫端
func (n *NotifierService) SendTestMessage(settings domain.NotificationSettings) error {
	if !settings.HasChannel() {
		return fmt.Errorf("no notification channel configured")
	}
	msg, err := n.renderTemplate(defaultTestTemplate, TemplateData{ID: uuid.NewString(), Event: string(EventTest)})
	if err != nil {
		return err
	}
	var errs []string
	if settings.TelegramEnabled && settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		if err := n.sendTelegram(settings.TelegramBotToken, settings.TelegramChatID, msg); err != nil {
			errs = append(errs, "telegram: "+err.Error())
		}
	}
	if settings.WebhookEnabled && settings.WebhookURL != "" {
		if err := n.sendWebhook(settings.WebhookURL, msg, settings.WebhookUser, settings.WebhookPassword); err != nil {
			errs = append(errs, "webhook: "+err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

func analysisData(a domain.AnalysisSession) TemplateData {
	d := TemplateData{
		ID:       a.ID,
		Event:    string(a.Status),
		Name:     a.Name,
		Status:   string(a.Status),
		Total:    a.TotalDomains,
		Analyzed: a.DomainsAnalyzed,
		Created:  a.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if a.CompletedAt != nil {
		d.Finished = a.CompletedAt.Format("2006-01-02 15:04:05")
	}
	return d
}

func pick(custom, fallback string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return fallback
}

func (n *NotifierService) renderTemplate(tmplStr string, data interface{}) (string, error) {
	t, err := template.New("notify").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// sendToChannels 放入佇列，佇列滿了就丟棄
func (n *NotifierService) sendToChannels(settings *domain.NotificationSettings, msg string) {
	if settings.TelegramEnabled && settings.TelegramBotToken != "" && settings.TelegramChatID != "" {
		select {
		case n.tgQueue <- telegramJob{Token: settings.TelegramBotToken, ChatID: settings.TelegramChatID, Message: msg}:
			logrus.Infof("📥 [Queue] Telegram 訊息已入列 (目前堆積: %d)", len(n.tgQueue))
		default:
			logrus.Warn("🔥 [Queue] Telegram 通知佇列已滿，丟棄訊息")
		}
	}
	if settings.WebhookEnabled && settings.WebhookURL != "" {
		select {
		case n.webhookQueue <- webhookJob{URL: settings.WebhookURL, Message: msg, User: settings.WebhookUser, Password: settings.WebhookPassword}:
			logrus.Infof("📥 [Queue] Webhook 訊息已入列 (目前堆積: %d)", len(n.webhookQueue))
		default:
			logrus.Warn("🔥 [Queue] Webhook 通知佇列已滿，丟棄訊息")
		}
	}
}

func (n *NotifierService) sendWebhook(url, message, user, password string) error {
	jsonBytes, _ := json.Marshal(WebhookPayload{Text: message})

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	// 有設定帳密則加入 Basic Auth
	if user != "" || password != "" {
		req.SetBasicAuth(user, password)
	}

	resp, err := n.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}

func (n *NotifierService) sendTelegram(token, chatID, message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(n.TelegramAPI, "/"), token)
	payload := map[string]string{
		"chat_id": chatID,
		"text":    message,
	}
	jsonBytes, _ := json.Marshal(payload)

	req, err := http.NewRequest(http.MethodPost, apiURL, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram status code %d", resp.StatusCode)
	}
	return nil
}
