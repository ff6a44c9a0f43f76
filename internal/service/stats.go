package service

import (
	"sort"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/format"

	"github.com/montanaflynn/stats"
)

// topCountryLimit 統計卡片只列前幾名
const topCountryLimit = 5

// ComputeStats 結果頁上方的統計卡片。total 為全部列數，rows 為目前可見列。
func ComputeStats(total int, rows []domain.DomainRecord) domain.DashboardStats {
	out := domain.DashboardStats{
		TotalDomains:   total,
		VisibleDomains: len(rows),
		StatusCounts:   map[string]int{},
		TierCounts:     map[string]int{},
		TopCountries:   map[string]int{},
	}
	if len(rows) == 0 {
		return out
	}

	var prices, overall, drs []float64
	countries := map[string]int{}
	for i := range rows {
		r := &rows[i]
		out.StatusCounts[string(r.Status)]++
		out.TierCounts[string(format.Classify(float64(r.Scores.Overall), false))]++
		if len(r.CriticalViolations) > 0 {
			out.CriticalCount++
		}
		if p := format.PriceNum(r.Price); p > 0 {
			prices = append(prices, p)
		}
		overall = append(overall, float64(r.Scores.Overall))
		drs = append(drs, r.DR)
		out.TotalTraffic += r.TotalTraffic()
		if r.Country != "" {
			countries[r.Country]++
		}
	}

	// stats 對空輸入回傳錯誤，此時保留 0
	if v, err := stats.Median(prices); err == nil {
		out.MedianPrice = v
	}
	if v, err := stats.Mean(overall); err == nil {
		out.MeanOverall, _ = stats.Round(v, 1)
	}
	if v, err := stats.Mean(drs); err == nil {
		out.MeanDR, _ = stats.Round(v, 1)
	}

	type kv struct {
		k string
		v int
	}
	ranked := make([]kv, 0, len(countries))
	for k, v := range countries {
		ranked = append(ranked, kv{k, v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].v != ranked[j].v {
			return ranked[i].v > ranked[j].v
		}
		return ranked[i].k < ranked[j].k
	})
	for i, c := range ranked {
		if i >= topCountryLimit {
			break
		}
		out.TopCountries[c.k] = c.v
	}
	return out
}
