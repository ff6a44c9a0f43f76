package service

import (
	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/format"
)

// EvidenceView 佐證側欄的唯讀資料
type EvidenceView struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
	Price  string `json:"price"`

	Outgoing  []domain.Anchor          `json:"outgoing"`
	Backlinks []domain.Anchor          `json:"backlinks"`
	Keywords  []domain.KeywordPosition `json:"keywords_top50"`
	HTML      domain.HTMLMeta          `json:"html"`

	PriceDecision      format.Decision        `json:"price_decision"`
	TrafficHistory     []format.Point         `json:"traffic_history"`
	ScoreTiers         map[string]format.Tier `json:"score_tiers"`
	SignalTiers        map[string]format.Tier `json:"signal_tiers"`
	CriticalViolations []string               `json:"critical_violations,omitempty"`
	HasPreview         bool                   `json:"has_preview"`
}

// BuildEvidence 純函式，不改資料也不打 API
func BuildEvidence(rec domain.DomainRecord) EvidenceView {
	v := EvidenceView{
		ID:                 rec.ID,
		Domain:             rec.Domain,
		Price:              rec.Price,
		Outgoing:           []domain.Anchor{},
		Backlinks:          []domain.Anchor{},
		Keywords:           []domain.KeywordPosition{},
		PriceDecision:      format.PriceDecision(rec.Price, rec.DR, rec.TotalTraffic()),
		TrafficHistory:     format.Sparkline(rec.OrgTrafficHistory),
		ScoreTiers:         make(map[string]format.Tier, len(domain.RuleNames)+1),
		CriticalViolations: rec.CriticalViolations,
	}

	if p := rec.Preview; p != nil {
		v.HasPreview = true
		v.HTML = p.HTML
		if p.AnchorsOutgoing != nil {
			v.Outgoing = p.AnchorsOutgoing
		}
		if p.AnchorsIncoming != nil {
			v.Backlinks = p.AnchorsIncoming
		}
		if len(p.KeywordsTop50) > 50 {
			v.Keywords = p.KeywordsTop50[:50]
		} else if p.KeywordsTop50 != nil {
			v.Keywords = p.KeywordsTop50
		}
	}

	scores := rec.Scores
	for _, name := range append([]string{domain.RuleOverall}, domain.RuleNames...) {
		v.ScoreTiers[name] = format.Classify(float64(*scores.Field(name)), false)
	}

	// 原始訊號: DR 越高越好，集中在單一頁面的流量比例越低越好
	v.SignalTiers = map[string]format.Tier{
		"dr":                   format.Classify(rec.DR, false),
		"top_page_traffic_pct": format.Classify(rec.TopPageTrafficPct, true),
	}
	return v
}
