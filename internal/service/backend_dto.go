package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"triage-dashboard/internal/domain"
)

type startRequestDTO struct {
	Name    string           `json:"name"`
	Domains []domainInputDTO `json:"domains"`
}

type domainInputDTO struct {
	Domain string  `json:"domain"`
	Price  *string `json:"price,omitempty"`
	Notes  *string `json:"notes,omitempty"`
}

type analysisDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	CreatedAt       flexTime  `json:"created_at"`
	CompletedAt     *flexTime `json:"completed_at"`
	TotalDomains    int       `json:"total_domains"`
	DomainsAnalyzed int       `json:"domains_analyzed"`
}

func (a analysisDTO) toSession() domain.AnalysisSession {
	s := domain.AnalysisSession{
		ID:              a.ID,
		Name:            a.Name,
		Status:          domain.AnalysisStatus(strings.ToLower(a.Status)),
		CreatedAt:       a.CreatedAt.Time,
		TotalDomains:    a.TotalDomains,
		DomainsAnalyzed: a.DomainsAnalyzed,
	}
	if a.CompletedAt != nil && !a.CompletedAt.IsZero() {
		t := a.CompletedAt.Time
		s.CompletedAt = &t
	}
	return s
}

type ruleResultDTO struct {
	Score             float64 `json:"score"`
	CriticalViolation bool    `json:"critical_violation"`
}

type domainResultDTO struct {
	Domain                        string                   `json:"domain"`
	Price                         flexString               `json:"price"`
	Notes                         flexString               `json:"notes"`
	Topic                         string                   `json:"topic"`
	Country                       string                   `json:"country"`
	DR                            float64                  `json:"dr"`
	OrgTraffic                    numberMap                `json:"org_traffic"`
	OrgTrafficHistory             numberMap                `json:"org_traffic_history"`
	Geography                     numberMap                `json:"geography"`
	LDLRRatio                     float64                  `json:"ld_lr_ratio"`
	TopPageTrafficPct             float64                  `json:"top_page_traffic_pct"`
	BacklinksForbiddenWords       float64                  `json:"backlinks_forbidden_words"`
	AnchorsForbiddenWords         float64                  `json:"anchors_forbidden_words"`
	AnchorsSpamWords              float64                  `json:"anchors_spam_words"`
	OrganicKeywordsForbiddenWords float64                  `json:"organic_keywords_forbidden_words"`
	OrganicKeywordsSpamWords      float64                  `json:"organic_keywords_spam_words"`
	RulesResults                  map[string]ruleResultDTO `json:"rules_results"`
	Preview                       *domain.Evidence         `json:"preview"`
}

// toRecord 分數 0~1 轉 0~100，並在載入時推導一次狀態
func (r domainResultDTO) toRecord() domain.DomainRecord {
	rec := domain.DomainRecord{
		ID:                            r.Domain,
		Domain:                        r.Domain,
		Price:                         string(r.Price),
		Notes:                         string(r.Notes),
		Topic:                         r.Topic,
		Country:                       r.Country,
		DR:                            r.DR,
		OrgTraffic:                    r.OrgTraffic,
		OrgTrafficHistory:             r.OrgTrafficHistory,
		Geography:                     r.Geography,
		LDLRRatio:                     r.LDLRRatio,
		TopPageTrafficPct:             r.TopPageTrafficPct,
		BacklinksForbiddenWords:       int(r.BacklinksForbiddenWords),
		AnchorsForbiddenWords:         int(r.AnchorsForbiddenWords),
		AnchorsSpamWords:              int(r.AnchorsSpamWords),
		OrganicKeywordsForbiddenWords: int(r.OrganicKeywordsForbiddenWords),
		OrganicKeywordsSpamWords:      int(r.OrganicKeywordsSpamWords),
		Preview:                       r.Preview,
	}
	if rec.Country == "" {
		rec.Country = strings.ToUpper(rec.TopCountry())
	}

	critical := false
	var sum float64
	var n int
	for name, res := range r.RulesResults {
		if name == domain.RuleOverall {
			continue
		}
		if f := rec.Scores.Field(name); f != nil {
			*f = toPercent(res.Score)
		}
		sum += res.Score
		n++
		if res.CriticalViolation {
			critical = true
		}
	}

	if overall, ok := r.RulesResults[domain.RuleOverall]; ok {
		rec.Scores.Overall = toPercent(overall.Score)
		critical = critical || overall.CriticalViolation
	} else if n > 0 {
		// 後端沒給 overall 時以平均補上 (與 aggregator 相同算法)
		rec.Scores.Overall = toPercent(sum / float64(n))
	}

	rec.Status = domain.DeriveStatus(rec.Scores.Overall, critical)
	rec.CriticalViolations = criticalRules(r.RulesResults)
	return rec
}

func toPercent(score float64) int {
	if math.IsNaN(score) {
		return 0
	}
	v := int(math.Round(score * 100))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// criticalRules 依固定規則順序列出，未知規則排在後面
func criticalRules(results map[string]ruleResultDTO) []string {
	var out []string
	seen := make(map[string]bool)
	for _, name := range domain.RuleNames {
		seen[name] = true
		if res, ok := results[name]; ok && res.CriticalViolation {
			out = append(out, domain.HumanizeRule(name))
		}
	}
	var extra []string
	for name, res := range results {
		if !seen[name] && name != domain.RuleOverall && res.CriticalViolation {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		out = append(out, domain.HumanizeRule(name))
	}
	return out
}

// =============================================================================
// Lenient JSON types (後端欄位型別不一定穩定)
// =============================================================================

// flexTime 接受 RFC3339 以及不帶時區的 ISO 格式 (視為 UTC)
type flexTime struct{ time.Time }

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unknown time format: %s", s)
}

// flexString 接受字串、數字或 null
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*s = ""
		return nil
	}
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(b, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// numberMap 物件以外的值 (字串、null) 一律當成空
type numberMap map[string]float64

func (m *numberMap) UnmarshalJSON(b []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(b, &raw); err != nil {
		*m = nil
		return nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case float64:
			out[k] = x
		case string:
			if f, err := strconv.ParseFloat(x, 64); err == nil {
				out[k] = f
			}
		}
	}
	*m = out
	return nil
}
