package domain

type DashboardStats struct {
	TotalDomains   int            `json:"total_domains"`
	VisibleDomains int            `json:"visible_domains"`
	StatusCounts   map[string]int `json:"status_counts"` // e.g. "OK": 5, "Reject": 2
	TierCounts     map[string]int `json:"tier_counts"`   // overall 分數燈號分布
	CriticalCount  int            `json:"critical_count"`

	MedianPrice  float64 `json:"median_price"`
	MeanOverall  float64 `json:"mean_overall"`
	MeanDR       float64 `json:"mean_dr"`
	TotalTraffic float64 `json:"total_traffic"`

	TopCountries map[string]int `json:"top_countries"` // 國家 -> 域名數
}
