package table

import (
	"strings"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/format"
)

// StatusAll 不篩選狀態
const StatusAll = "All"

// BandFilter 三個區間下拉選單
type BandFilter string

const (
	PriceBand BandFilter = "price"
	DRBand    BandFilter = "dr"
	RatioBand BandFilter = "ldrd" // linked / referring domains
)

// Band 區間選項，空字串代表未選
type Band string

const (
	BandNone Band = ""
	BandLow  Band = "low"
	BandMid  Band = "mid"
	BandHigh Band = "high"
)

type bandSpec struct {
	low, high float64
	keys      map[Band]string
}

// 中間區間兩端皆含
var bandSpecs = map[BandFilter]bandSpec{
	PriceBand: {150, 300, map[Band]string{BandLow: "lt150", BandMid: "150-300", BandHigh: "gt300"}},
	DRBand:    {30, 60, map[Band]string{BandLow: "lt30", BandMid: "30-60", BandHigh: "gt60"}},
	RatioBand: {1, 3, map[Band]string{BandLow: "lt1", BandMid: "1-3", BandHigh: "gt3"}},
}

// ParseBand 接受前端的 key ("lt150", "30-60", "gt3") 或 low/mid/high
func ParseBand(f BandFilter, key string) (Band, bool) {
	spec, ok := bandSpecs[f]
	if !ok {
		return BandNone, false
	}
	switch Band(key) {
	case BandNone, BandLow, BandMid, BandHigh:
		return Band(key), true
	}
	for b, k := range spec.keys {
		if k == key {
			return b, true
		}
	}
	return BandNone, false
}

// Key 轉回前端使用的 key
func (f BandFilter) Key(b Band) string {
	return bandSpecs[f].keys[b]
}

// Contains 判斷數值是否落在區間
func (f BandFilter) Contains(b Band, v float64) bool {
	spec := bandSpecs[f]
	switch b {
	case BandLow:
		return v < spec.low
	case BandMid:
		return v >= spec.low && v <= spec.high
	case BandHigh:
		return v > spec.high
	}
	return true
}

func (f BandFilter) value(d *domain.DomainRecord) float64 {
	switch f {
	case PriceBand:
		return format.PriceNum(d.Price)
	case DRBand:
		return d.DR
	case RatioBand:
		return d.LDLRRatio
	}
	return 0
}

// Filters 目前所有篩選條件
type Filters struct {
	Status    string   `json:"status"`
	Search    string   `json:"search"`
	Topics    []string `json:"topics"`
	Countries []string `json:"countries"`
	Price     Band     `json:"price"`
	DR        Band     `json:"dr"`
	Ratio     Band     `json:"ldrd"`
}

func (f *Filters) band(kind BandFilter) *Band {
	switch kind {
	case PriceBand:
		return &f.Price
	case DRBand:
		return &f.DR
	case RatioBand:
		return &f.Ratio
	}
	return nil
}

func (f Filters) clone() Filters {
	f.Topics = append([]string(nil), f.Topics...)
	f.Countries = append([]string(nil), f.Countries...)
	return f
}

// predicate 單一條件，彼此 AND 串接所以順序不影響結果
type predicate func(d *domain.DomainRecord) bool

func (f Filters) predicates() []predicate {
	var ps []predicate
	if f.Status != "" && f.Status != StatusAll {
		want := domain.DomainStatus(f.Status)
		ps = append(ps, func(d *domain.DomainRecord) bool { return d.Status == want })
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		ps = append(ps, func(d *domain.DomainRecord) bool { return strings.Contains(strings.ToLower(d.Domain), q) })
	}
	if len(f.Topics) > 0 {
		set := toSet(f.Topics)
		ps = append(ps, func(d *domain.DomainRecord) bool { _, ok := set[d.Topic]; return ok })
	}
	if len(f.Countries) > 0 {
		set := toSet(f.Countries)
		ps = append(ps, func(d *domain.DomainRecord) bool { _, ok := set[d.Country]; return ok })
	}
	for _, kind := range []BandFilter{PriceBand, DRBand, RatioBand} {
		b := *f.band(kind)
		if b == BandNone {
			continue
		}
		kind := kind
		ps = append(ps, func(d *domain.DomainRecord) bool { return kind.Contains(b, kind.value(d)) })
	}
	return ps
}

// Derive 由完整清單推導出可見且已排序的列，不修改輸入
func Derive(rows []domain.DomainRecord, f Filters, key SortKey, dir Direction) []domain.DomainRecord {
	ps := f.predicates()
	out := make([]domain.DomainRecord, 0, len(rows))
next:
	for i := range rows {
		for _, p := range ps {
			if !p(&rows[i]) {
				continue next
			}
		}
		out = append(out, rows[i])
	}
	sortRows(out, key, dir)
	return out
}

func toSet(vals []string) map[string]struct{} {
	set := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		set[v] = struct{}{}
	}
	return set
}
