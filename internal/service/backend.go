package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"triage-dashboard/internal/domain"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// HTTPError 後端回傳非 2xx，Body 原文帶給前端顯示
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, body)
}

// DeriveBase 以頁面來源主機搭配固定 port 組出後端位址
// e.g. ("https://dash.example.com:3000/app", 8000) -> "https://dash.example.com:8000"
func DeriveBase(origin string, port int) (string, error) {
	if strings.TrimSpace(origin) == "" {
		origin = "http://localhost"
	}
	if !strings.Contains(origin, "://") {
		origin = "http://" + origin
	}
	u, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("invalid origin %q: missing host", origin)
	}
	return fmt.Sprintf("%s://%s", u.Scheme, net.JoinHostPort(u.Hostname(), strconv.Itoa(port))), nil
}

// AnalysisAPI 評分後端的三個端點
type AnalysisAPI interface {
	ListAnalyses(ctx context.Context) ([]domain.AnalysisSession, error)
	StartAnalysis(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error)
	GetResults(ctx context.Context, analysisID string) ([]domain.DomainRecord, error)
}

type BackendClient struct {
	BaseURL string
	HTTP    *http.Client

	results singleflight.Group
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// =============================================================================
// Public Methods
// =============================================================================

// ListAnalyses GET /api/analyses
func (c *BackendClient) ListAnalyses(ctx context.Context) ([]domain.AnalysisSession, error) {
	var resp struct {
		Analyses []analysisDTO `json:"analyses"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/analyses", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.AnalysisSession, 0, len(resp.Analyses))
	for _, a := range resp.Analyses {
		out = append(out, a.toSession())
	}
	return out, nil
}

// StartAnalysis POST /api/startAnalysis
func (c *BackendClient) StartAnalysis(ctx context.Context, req domain.StartAnalysisRequest) (*domain.AnalysisSession, error) {
	payload := startRequestDTO{Name: strings.TrimSpace(req.Name)}
	for _, d := range req.Domains {
		payload.Domains = append(payload.Domains, domainInputDTO{
			Domain: strings.TrimSpace(d.Domain),
			Price:  optional(d.Price),
			Notes:  optional(d.Notes),
		})
	}

	var created analysisDTO
	if err := c.do(ctx, http.MethodPost, "/api/startAnalysis", payload, &created); err != nil {
		return nil, err
	}
	s := created.toSession()
	return &s, nil
}

// GetResults GET /api/analyses-results/{id}，同一個 id 同時間只會打一次
func (c *BackendClient) GetResults(ctx context.Context, analysisID string) ([]domain.DomainRecord, error) {
	v, err, shared := c.results.Do(analysisID, func() (interface{}, error) {
		var resp struct {
			DomainResults []domainResultDTO `json:"domain_results"`
		}
		path := "/api/analyses-results/" + url.PathEscape(analysisID)
		if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
			return nil, err
		}
		records := make([]domain.DomainRecord, 0, len(resp.DomainResults))
		for _, r := range resp.DomainResults {
			records = append(records, r.toRecord())
		}
		return records, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logrus.Debugf("[Backend] results for %s shared with concurrent caller", analysisID)
	}
	// 共用結果時各自拿一份複本
	return append([]domain.DomainRecord(nil), v.([]domain.DomainRecord)...), nil
}

func (c *BackendClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	logrus.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("[Backend] request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
