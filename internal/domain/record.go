package domain

import (
	"regexp"
	"strings"
)

// DomainStatus 人工審核狀態
type DomainStatus string

const (
	StatusOK     DomainStatus = "OK"
	StatusReview DomainStatus = "Review"
	StatusReject DomainStatus = "Reject"
)

// OKThreshold overall 分數高於此值才算 OK
const OKThreshold = 60

// Valid 檢查是否為三種合法狀態之一
func (s DomainStatus) Valid() bool {
	switch s {
	case StatusOK, StatusReview, StatusReject:
		return true
	}
	return false
}

// ParseDomainStatus 大小寫不敏感 ("ok" / "review" / "reject")
func ParseDomainStatus(v string) (DomainStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "ok":
		return StatusOK, true
	case "review":
		return StatusReview, true
	case "reject":
		return StatusReject, true
	}
	return "", false
}

// 後端規則名稱 (固定 11 條 + overall)
const (
	RuleOverall                       = "overall"
	RuleDomainRating                  = "DomainRatingRule"
	RuleOrganicTraffic                = "OrganicTrafficRule"
	RuleHistoricalOrganicTraffic      = "HistoricalOrganicTrafficRule"
	RuleGeography                     = "GeographyRule"
	RuleDomainsInOutLinksRatio        = "DomainsInOutLinksRatioRule"
	RuleSingleTopPageTraffic          = "SingleTopPageTrafficRule"
	RuleForbiddenWordsBacklinks       = "ForbiddenWordsBacklinksRule"
	RuleSpamWordsAnchors              = "SpamWordsAnchorsRule"
	RuleForbiddenWordsAnchor          = "ForbiddenWordsAnchorRule"
	RuleForbiddenWordsOrganicKeywords = "ForbiddenWordsOrganicKeywordsRule"
	RuleSpamWordsOrganicKeywords      = "SpamWordsOrganicKeywordsRule"
)

// RuleNames 顯示順序與後端 aggregator 相同
var RuleNames = []string{
	RuleDomainRating,
	RuleOrganicTraffic,
	RuleHistoricalOrganicTraffic,
	RuleGeography,
	RuleDomainsInOutLinksRatio,
	RuleSingleTopPageTraffic,
	RuleForbiddenWordsBacklinks,
	RuleSpamWordsAnchors,
	RuleForbiddenWordsAnchor,
	RuleForbiddenWordsOrganicKeywords,
	RuleSpamWordsOrganicKeywords,
}

// Scores 0-100 整數分數
type Scores struct {
	Overall                       int `bson:"overall" json:"overall"`
	DomainRating                  int `bson:"domain_rating" json:"DomainRatingRule"`
	OrganicTraffic                int `bson:"organic_traffic" json:"OrganicTrafficRule"`
	HistoricalOrganicTraffic      int `bson:"historical_organic_traffic" json:"HistoricalOrganicTrafficRule"`
	Geography                     int `bson:"geography" json:"GeographyRule"`
	DomainsInOutLinksRatio        int `bson:"domains_in_out_links_ratio" json:"DomainsInOutLinksRatioRule"`
	SingleTopPageTraffic          int `bson:"single_top_page_traffic" json:"SingleTopPageTrafficRule"`
	ForbiddenWordsBacklinks       int `bson:"forbidden_words_backlinks" json:"ForbiddenWordsBacklinksRule"`
	SpamWordsAnchors              int `bson:"spam_words_anchors" json:"SpamWordsAnchorsRule"`
	ForbiddenWordsAnchor          int `bson:"forbidden_words_anchor" json:"ForbiddenWordsAnchorRule"`
	ForbiddenWordsOrganicKeywords int `bson:"forbidden_words_organic_keywords" json:"ForbiddenWordsOrganicKeywordsRule"`
	SpamWordsOrganicKeywords      int `bson:"spam_words_organic_keywords" json:"SpamWordsOrganicKeywordsRule"`
}

// Field 依規則名稱取得對應欄位的指標，未知名稱回傳 nil
func (s *Scores) Field(rule string) *int {
	switch rule {
	case RuleOverall:
		return &s.Overall
	case RuleDomainRating:
		return &s.DomainRating
	case RuleOrganicTraffic:
		return &s.OrganicTraffic
	case RuleHistoricalOrganicTraffic:
		return &s.HistoricalOrganicTraffic
	case RuleGeography:
		return &s.Geography
	case RuleDomainsInOutLinksRatio:
		return &s.DomainsInOutLinksRatio
	case RuleSingleTopPageTraffic:
		return &s.SingleTopPageTraffic
	case RuleForbiddenWordsBacklinks:
		return &s.ForbiddenWordsBacklinks
	case RuleSpamWordsAnchors:
		return &s.SpamWordsAnchors
	case RuleForbiddenWordsAnchor:
		return &s.ForbiddenWordsAnchor
	case RuleForbiddenWordsOrganicKeywords:
		return &s.ForbiddenWordsOrganicKeywords
	case RuleSpamWordsOrganicKeywords:
		return &s.SpamWordsOrganicKeywords
	}
	return nil
}

// DomainRecord 一筆已評分的候選域名
type DomainRecord struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Price  string `json:"price"`
	Notes  string `json:"notes,omitempty"`

	Topic   string `json:"topic,omitempty"`
	Country string `json:"country,omitempty"`

	Scores Scores `json:"scores"`

	// 原始訊號
	DR                            float64            `json:"dr"`
	OrgTraffic                    map[string]float64 `json:"org_traffic"`
	OrgTrafficHistory             map[string]float64 `json:"org_traffic_history"`
	Geography                     map[string]float64 `json:"geography"`
	LDLRRatio                     float64            `json:"ld_lr_ratio"`
	TopPageTrafficPct             float64            `json:"top_page_traffic_pct"`
	BacklinksForbiddenWords       int                `json:"backlinks_forbidden_words"`
	AnchorsForbiddenWords         int                `json:"anchors_forbidden_words"`
	AnchorsSpamWords              int                `json:"anchors_spam_words"`
	OrganicKeywordsForbiddenWords int                `json:"organic_keywords_forbidden_words"`
	OrganicKeywordsSpamWords      int                `json:"organic_keywords_spam_words"`

	// 載入時計算一次，之後只會被人工批次操作覆寫
	Status             DomainStatus `json:"status"`
	CriticalViolations []string     `json:"criticalViolations,omitempty"`

	Preview *Evidence `json:"preview,omitempty"`
}

// TotalTraffic 各國自然流量加總
func (d *DomainRecord) TotalTraffic() float64 {
	var sum float64
	for _, v := range d.OrgTraffic {
		sum += v
	}
	return sum
}

// TopCountry 流量最高的國家 (同分取字母序較小者)
func (d *DomainRecord) TopCountry() string {
	best, bestVal := "", -1.0
	for c, v := range d.OrgTraffic {
		if v > bestVal || (v == bestVal && c < best) {
			best, bestVal = c, v
		}
	}
	return best
}

// DeriveStatus critical 一律 Reject，其次 overall > 60 為 OK，其餘 Review
func DeriveStatus(overall int, critical bool) DomainStatus {
	if critical {
		return StatusReject
	}
	if overall > OKThreshold {
		return StatusOK
	}
	return StatusReview
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// HumanizeRule "DomainRatingRule" -> "Domain Rating"
func HumanizeRule(name string) string {
	n := strings.TrimSuffix(name, "Rule")
	if n == "" {
		return name
	}
	return camelBoundary.ReplaceAllString(n, "$1 $2")
}
