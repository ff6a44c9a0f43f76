package domain

import (
	"errors"
	"strings"
	"time"
)

// AnalysisStatus 由外部後端驅動，儀表板只觀察不轉換
type AnalysisStatus string

const (
	AnalysisPending   AnalysisStatus = "pending"
	AnalysisRunning   AnalysisStatus = "running"
	AnalysisCompleted AnalysisStatus = "completed"
	AnalysisFailed    AnalysisStatus = "failed"
)

// Terminal completed / failed 之後不會再變
func (s AnalysisStatus) Terminal() bool {
	return s == AnalysisCompleted || s == AnalysisFailed
}

// AnalysisSession 一批送審的域名
type AnalysisSession struct {
	ID              string         `json:"id"`
	Name            string         `json:"name"`
	Status          AnalysisStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	TotalDomains    int            `json:"total_domains"`
	DomainsAnalyzed int            `json:"domains_analyzed"`
}

// Progress 0~1
func (a AnalysisSession) Progress() float64 {
	if a.TotalDomains <= 0 {
		return 0
	}
	p := float64(a.DomainsAnalyzed) / float64(a.TotalDomains)
	if p > 1 {
		return 1
	}
	return p
}

// DomainInput 匯入或手動新增的一列
type DomainInput struct {
	ID     string `json:"id,omitempty"`
	Domain string `json:"domain"`
	Price  string `json:"price,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

var (
	ErrEmptyName = errors.New("Please enter analysis name")
	ErrNoDomains = errors.New("Please add at least one domain")
)

// StartAnalysisRequest 送往後端 /api/startAnalysis 的內容
type StartAnalysisRequest struct {
	Name    string        `json:"name"`
	Domains []DomainInput `json:"domains"`
}

// Validate 與前端提交前的檢查一致: 名稱必填、至少一筆、不可有空白域名
func (r StartAnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if len(r.Domains) == 0 {
		return ErrNoDomains
	}
	for _, d := range r.Domains {
		if strings.TrimSpace(d.Domain) == "" {
			return ErrNoDomains
		}
	}
	return nil
}
