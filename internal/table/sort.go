package table

import (
	"sort"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/format"
)

// SortKey 可排序欄位，每個 key 對應一個型別化的取值函式
type SortKey int

const (
	SortNone SortKey = iota
	SortPrice
	SortDR
	SortOverall
	SortDomainRating
	SortOrganicTraffic
	SortHistoricalOrganicTraffic
	SortGeography
	SortDomainsInOutLinksRatio
	SortSingleTopPageTraffic
	SortForbiddenWordsBacklinks
	SortSpamWordsAnchors
	SortForbiddenWordsAnchor
	SortForbiddenWordsOrganicKeywords
	SortSpamWordsOrganicKeywords
)

type Direction string

const (
	Desc Direction = "desc"
	Asc  Direction = "asc"
)

type sortField struct {
	name string
	get  func(d *domain.DomainRecord) float64
}

func score(get func(s *domain.Scores) int) func(d *domain.DomainRecord) float64 {
	return func(d *domain.DomainRecord) float64 { return float64(get(&d.Scores)) }
}

var sortFields = map[SortKey]sortField{
	SortPrice:   {"price", func(d *domain.DomainRecord) float64 { return format.PriceNum(d.Price) }},
	SortDR:      {"dr", func(d *domain.DomainRecord) float64 { return d.DR }},
	SortOverall: {domain.RuleOverall, score(func(s *domain.Scores) int { return s.Overall })},

	SortDomainRating:                  {domain.RuleDomainRating, score(func(s *domain.Scores) int { return s.DomainRating })},
	SortOrganicTraffic:                {domain.RuleOrganicTraffic, score(func(s *domain.Scores) int { return s.OrganicTraffic })},
	SortHistoricalOrganicTraffic:      {domain.RuleHistoricalOrganicTraffic, score(func(s *domain.Scores) int { return s.HistoricalOrganicTraffic })},
	SortGeography:                     {domain.RuleGeography, score(func(s *domain.Scores) int { return s.Geography })},
	SortDomainsInOutLinksRatio:        {domain.RuleDomainsInOutLinksRatio, score(func(s *domain.Scores) int { return s.DomainsInOutLinksRatio })},
	SortSingleTopPageTraffic:          {domain.RuleSingleTopPageTraffic, score(func(s *domain.Scores) int { return s.SingleTopPageTraffic })},
	SortForbiddenWordsBacklinks:       {domain.RuleForbiddenWordsBacklinks, score(func(s *domain.Scores) int { return s.ForbiddenWordsBacklinks })},
	SortSpamWordsAnchors:              {domain.RuleSpamWordsAnchors, score(func(s *domain.Scores) int { return s.SpamWordsAnchors })},
	SortForbiddenWordsAnchor:          {domain.RuleForbiddenWordsAnchor, score(func(s *domain.Scores) int { return s.ForbiddenWordsAnchor })},
	SortForbiddenWordsOrganicKeywords: {domain.RuleForbiddenWordsOrganicKeywords, score(func(s *domain.Scores) int { return s.ForbiddenWordsOrganicKeywords })},
	SortSpamWordsOrganicKeywords:      {domain.RuleSpamWordsOrganicKeywords, score(func(s *domain.Scores) int { return s.SpamWordsOrganicKeywords })},
}

// ParseSortKey 接受 "price" / "dr" / "overall" 或後端規則名稱
func ParseSortKey(name string) (SortKey, bool) {
	for k, f := range sortFields {
		if f.name == name {
			return k, true
		}
	}
	return SortNone, false
}

func (k SortKey) String() string {
	if f, ok := sortFields[k]; ok {
		return f.name
	}
	return ""
}

// Value 取得排序用數值
func (k SortKey) Value(d *domain.DomainRecord) float64 {
	if f, ok := sortFields[k]; ok {
		return f.get(d)
	}
	return 0
}

// SortKeys 全部可排序欄位名稱 (含 price / dr)
func SortKeys() []string {
	out := make([]string, 0, len(sortFields))
	for k := SortPrice; k <= SortSpamWordsOrganicKeywords; k++ {
		out = append(out, k.String())
	}
	return out
}

// sortRows 穩定排序，相同值維持原本順序
func sortRows(rows []domain.DomainRecord, key SortKey, dir Direction) {
	if key == SortNone {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key.Value(&rows[i]), key.Value(&rows[j])
		if dir == Asc {
			return a < b
		}
		return a > b
	})
}
