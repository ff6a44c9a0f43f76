package format

import (
	"math"
	"regexp"
	"strconv"
)

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// PriceNum 去掉貨幣符號與千分位，解析失敗回傳 0
// e.g. "$1,250" -> 1250
func PriceNum(p string) float64 {
	s := nonNumeric.ReplaceAllString(p, "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

const (
	LabelBelowMarket = "Below market (good deal)"
	LabelMarketFit   = "Market fit"
	LabelOverpriced  = "Overpriced vs. signals"
)

// Decision 報價與訊號推估價的比較結果 (僅供顯示，不參與評分)
type Decision struct {
	Label    string  `json:"label"`
	Tone     Tier    `json:"tone"`
	Price    float64 `json:"price"`
	Expected float64 `json:"expected"`
	Ratio    float64 `json:"ratio"`
}

// ExpectedPrice 40 + DR*3 + log10(max(1, traffic))*20
func ExpectedPrice(dr, traffic float64) float64 {
	return 40 + dr*3 + math.Log10(math.Max(1, traffic))*20
}

// PriceDecision 比值 < 0.75 便宜、<= 1.25 合理、其餘偏貴
func PriceDecision(price string, dr, traffic float64) Decision {
	p := PriceNum(price)
	expected := ExpectedPrice(dr, traffic)
	d := Decision{Price: p, Expected: expected}
	if expected > 0 {
		d.Ratio = p / expected
	}

	switch {
	case d.Ratio < 0.75:
		d.Label, d.Tone = LabelBelowMarket, TierGood
	case d.Ratio <= 1.25:
		d.Label, d.Tone = LabelMarketFit, TierWarn
	default:
		d.Label, d.Tone = LabelOverpriced, TierBad
	}
	return d
}
