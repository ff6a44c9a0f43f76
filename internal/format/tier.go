package format

import (
	"math"
	"strconv"
	"strings"
)

// Tier 分數燈號
type Tier string

const (
	TierGood    Tier = "good"
	TierWarn    Tier = "warn"
	TierBad     Tier = "bad"
	TierUnknown Tier = "unknown"
)

// 全站唯一的一組門檻: > 60 綠燈、>= 30 黃燈、其餘紅燈
const (
	GoodAbove = 60
	WarnFrom  = 30
)

// Classify 依分數給燈號。inverted 用於越低越好的指標 (spam 比例等)，以 100-score 判斷
func Classify(score float64, inverted bool) Tier {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return TierUnknown
	}
	if inverted {
		score = 100 - score
	}
	switch {
	case score > GoodAbove:
		return TierGood
	case score >= WarnFrom:
		return TierWarn
	default:
		return TierBad
	}
}

// ClassifyText 接受任意字串，非數字時回傳 unknown
func ClassifyText(v string, inverted bool) Tier {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return TierUnknown
	}
	return Classify(f, inverted)
}

// Color 對應前端顏色
func (t Tier) Color() string {
	switch t {
	case TierGood:
		return "emerald"
	case TierWarn:
		return "amber"
	case TierBad:
		return "rose"
	}
	return "slate"
}
