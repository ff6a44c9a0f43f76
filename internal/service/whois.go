package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/errgroup"
)

// WhoisInfo 候選域名的註冊資訊
type WhoisInfo struct {
	Domain     string    `json:"domain"`
	RootDomain string    `json:"root_domain"`
	Registrar  string    `json:"registrar,omitempty"`
	Created    time.Time `json:"created,omitempty"`
	Expiry     time.Time `json:"expiry,omitempty"`
	DaysLeft   int       `json:"days_left"`
	AgeYears   float64   `json:"age_years"`
	Error      string    `json:"error,omitempty"`
}

// WhoisService 查詢 WHOIS (工具頁用)
type WhoisService struct {
	// Query 預設為 whois.Whois，測試時可替換
	Query       func(domain string) (string, error)
	Concurrency int
	now         func() time.Time
}

func NewWhoisService() *WhoisService {
	return &WhoisService{
		Query:       func(d string) (string, error) { return whois.Whois(d) },
		Concurrency: 4,
		now:         time.Now,
	}
}

// Lookup 先取出可註冊的主網域再查 WHOIS
func (s *WhoisService) Lookup(ctx context.Context, name string) (WhoisInfo, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	info := WhoisInfo{Domain: name, RootDomain: getRootDomain(name)}
	if err := ctx.Err(); err != nil {
		return info, err
	}

	raw, err := s.Query(info.RootDomain)
	if err != nil {
		return info, fmt.Errorf("whois %s: %w", info.RootDomain, err)
	}
	result, err := whoisparser.Parse(raw)
	if err != nil {
		return info, fmt.Errorf("whois parse %s: %w", info.RootDomain, err)
	}

	if result.Registrar != nil {
		info.Registrar = result.Registrar.Name
	}
	if result.Domain == nil {
		return info, nil
	}

	now := s.now()
	if t, err := parseWhoisTime(result.Domain.CreatedDate); err == nil {
		info.Created = t
		info.AgeYears = float64(int(now.Sub(t).Hours()/24/365.25*10)) / 10
	}
	if t, err := parseWhoisTime(result.Domain.ExpirationDate); err == nil {
		info.Expiry = t
		info.DaysLeft = int(t.Sub(now).Hours() / 24)
	} else if result.Domain.ExpirationDate != "" {
		logrus.Warnf("[Whois] 到期日解析失敗 %s: '%s'", info.RootDomain, result.Domain.ExpirationDate)
	}
	return info, nil
}

// LookupMany 併發查詢，單筆失敗記在 Error 欄位不影響其他
func (s *WhoisService) LookupMany(ctx context.Context, names []string) ([]WhoisInfo, error) {
	out := make([]WhoisInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 4
	}
	g.SetLimit(limit)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			info, err := s.Lookup(gctx, name)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				info.Error = err.Error()
			}
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// parseWhoisTime 各家註冊商格式不一，去掉括號附註後逐一嘗試
func parseWhoisTime(dateStr string) (time.Time, error) {
	if idx := strings.Index(dateStr, " ("); idx != -1 {
		dateStr = dateStr[:idx]
	}
	dateStr = strings.TrimSpace(dateStr)
	formats := []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05.00Z",
		time.RFC3339,
		"2006-01-02",
		"02-Jan-2006",
		"2006.01.02",
	}
	for _, f := range formats {
		if t, e := time.Parse(f, dateStr); e == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format: %s", dateStr)
}

func getRootDomain(domainName string) string {
	root, err := publicsuffix.EffectiveTLDPlusOne(domainName)
	if err != nil {
		return domainName
	}
	return root
}
