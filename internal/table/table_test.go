package table

import (
	"fmt"
	"testing"

	"triage-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testTopics    = []string{"Business", "Tech", "Finance", "News", "E-commerce", "Travel", "Education", "Health", "SaaS", "Entertainment"}
	testCountries = []string{"US", "DE", "FR", "ES", "IT", "PL", "UK", "CA", "AU", "JP", "SE", "NL", "PT", "GR", "TR", "MX"}
)

// sixteenDomains 產生 16 筆固定資料
func sixteenDomains() []domain.DomainRecord {
	rows := make([]domain.DomainRecord, 16)
	for i := range rows {
		overall := (i * 37) % 100
		rows[i] = domain.DomainRecord{
			ID:        fmt.Sprintf("d%02d", i+1),
			Domain:    fmt.Sprintf("site%02d.example", i+1),
			Price:     fmt.Sprintf("$%d", 50+i*25),
			DR:        float64(i * 5),
			LDLRRatio: float64(i) / 4,
			Topic:     testTopics[i%len(testTopics)],
			Country:   testCountries[i%len(testCountries)],
			Scores:    domain.Scores{Overall: overall, DomainRating: 100 - overall},
			Status:    domain.DeriveStatus(overall, i%5 == 0),
		}
	}
	return rows
}

func ids(rows []domain.DomainRecord) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestFilterOrderDoesNotMatter(t *testing.T) {
	a := New(sixteenDomains())
	require.NoError(t, a.SetStatusFilter("Reject"))
	assert.NotEmpty(t, a.Visible())
	a.SetSearch("zzz-no-match")

	b := New(sixteenDomains())
	b.SetSearch("zzz-no-match")
	require.NoError(t, b.SetStatusFilter("Reject"))

	assert.Empty(t, a.Visible())
	assert.Empty(t, b.Visible())
}

func TestConjunctiveFiltersCommute(t *testing.T) {
	a := New(sixteenDomains())
	require.NoError(t, a.SetBand(DRBand, BandMid))
	a.SetCountries([]string{"US", "FR", "IT", "UK", "AU", "SE"})
	a.SetSearch("SITE")

	b := New(sixteenDomains())
	b.SetSearch("SITE")
	b.SetCountries([]string{"US", "FR", "IT", "UK", "AU", "SE"})
	require.NoError(t, b.SetBand(DRBand, BandMid))

	assert.Equal(t, ids(a.Visible()), ids(b.Visible()))
	// DR 30..60 -> i in 6..12; 國家限定 -> i in {6(UK),8(AU),10(SE)}
	assert.Equal(t, []string{"d07", "d09", "d11"}, ids(a.Visible()))
}

func TestDeriveIsPure(t *testing.T) {
	rows := sixteenDomains()
	f := Filters{Status: StatusAll, Price: BandHigh}
	first := Derive(rows, f, SortPrice, Asc)
	second := Derive(rows, f, SortPrice, Asc)
	assert.Equal(t, first, second)
	assert.Equal(t, "d01", rows[0].ID, "input order untouched")
	for _, r := range first {
		assert.True(t, PriceBand.Contains(BandHigh, PriceBand.value(&r)))
	}
}

func TestBandsInclusiveMiddle(t *testing.T) {
	assert.True(t, PriceBand.Contains(BandLow, 149.99))
	assert.True(t, PriceBand.Contains(BandMid, 150))
	assert.True(t, PriceBand.Contains(BandMid, 300))
	assert.True(t, PriceBand.Contains(BandHigh, 300.01))
	assert.True(t, DRBand.Contains(BandMid, 30))
	assert.True(t, DRBand.Contains(BandMid, 60))
	assert.False(t, DRBand.Contains(BandHigh, 60))
	assert.True(t, RatioBand.Contains(BandMid, 1))
	assert.True(t, RatioBand.Contains(BandMid, 3))
	assert.True(t, RatioBand.Contains(BandLow, 0.99))

	b, ok := ParseBand(PriceBand, "150-300")
	assert.True(t, ok)
	assert.Equal(t, BandMid, b)
	b, ok = ParseBand(RatioBand, "gt3")
	assert.True(t, ok)
	assert.Equal(t, BandHigh, b)
	_, ok = ParseBand(DRBand, "gt300")
	assert.False(t, ok)
}

func TestSetBandTogglesOff(t *testing.T) {
	tb := New(sixteenDomains())
	require.NoError(t, tb.SetBand(PriceBand, BandLow))
	assert.Equal(t, BandLow, tb.Filters().Price)
	require.NoError(t, tb.SetBand(PriceBand, BandLow))
	assert.Equal(t, BandNone, tb.Filters().Price)
	assert.ErrorIs(t, tb.SetBand("nope", BandLow), ErrUnknownFilter)
}

func TestToggleSortSequence(t *testing.T) {
	tb := New(sixteenDomains())

	tb.ToggleSort(SortOverall)
	key, dir := tb.Sort()
	assert.Equal(t, SortOverall, key)
	assert.Equal(t, Desc, dir)
	rows := tb.Visible()
	for i := 1; i < len(rows); i++ {
		assert.GreaterOrEqual(t, rows[i-1].Scores.Overall, rows[i].Scores.Overall)
	}

	tb.ToggleSort(SortOverall)
	_, dir = tb.Sort()
	assert.Equal(t, Asc, dir)
	rows = tb.Visible()
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].Scores.Overall, rows[i].Scores.Overall)
	}

	tb.ToggleSort(SortDR)
	key, dir = tb.Sort()
	assert.Equal(t, SortDR, key)
	assert.Equal(t, Desc, dir)
	assert.Equal(t, "d16", tb.Visible()[0].ID)

	tb.ToggleSort(SortDR)
	tb.ToggleSort(SortDR)
	_, dir = tb.Sort()
	assert.Equal(t, Desc, dir)
}

func TestSortIsStable(t *testing.T) {
	rows := []domain.DomainRecord{
		{ID: "a", Price: "$100"},
		{ID: "b", Price: "$200"},
		{ID: "c", Price: "100 USD"},
		{ID: "d", Price: ""},
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, ids(Derive(rows, Filters{}, SortPrice, Desc)))
	assert.Equal(t, []string{"d", "a", "c", "b"}, ids(Derive(rows, Filters{}, SortPrice, Asc)))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(Derive(rows, Filters{}, SortNone, Desc)))
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("SpamWordsAnchorsRule")
	assert.True(t, ok)
	assert.Equal(t, SortSpamWordsAnchors, k)
	k, ok = ParseSortKey("price")
	assert.True(t, ok)
	assert.Equal(t, SortPrice, k)
	_, ok = ParseSortKey("constructor")
	assert.False(t, ok)
	assert.Len(t, SortKeys(), 14)
}

func TestBulkRejectThreeRows(t *testing.T) {
	var reported []domain.StatusChange
	tb := New(sixteenDomains(), WithOnChange(func(c []domain.StatusChange) { reported = c }))
	before := tb.Rows()

	for _, id := range []string{"d02", "d04", "d07"} {
		require.NoError(t, tb.Select(id))
	}
	changes, err := tb.ApplyStatus(domain.StatusReject)
	require.NoError(t, err)
	assert.Len(t, changes, 3)
	assert.Equal(t, changes, reported)
	assert.Empty(t, tb.Selected())

	after := tb.Rows()
	for i := range after {
		switch after[i].ID {
		case "d02", "d04", "d07":
			assert.Equal(t, domain.StatusReject, after[i].Status)
		default:
			assert.Equal(t, before[i].Status, after[i].Status, after[i].ID)
		}
	}
}

func TestApplyStatusDoesNotAliasCallerSlice(t *testing.T) {
	src := sixteenDomains()
	orig := src[1].Status
	tb := New(src)
	require.NoError(t, tb.Select("d02"))
	_, err := tb.ApplyStatus(domain.StatusOK)
	require.NoError(t, err)
	assert.Equal(t, orig, src[1].Status)

	_, err = tb.ApplyStatus(domain.StatusOK)
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = tb.ApplyStatus("Maybe")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestTopActionOverload(t *testing.T) {
	tb := New(sixteenDomains())

	res, err := tb.TopAction(domain.StatusOK)
	require.NoError(t, err)
	assert.Equal(t, ModeFilterToggle, res.Mode)
	assert.Equal(t, "OK", tb.Filters().Status)

	res, err = tb.TopAction(domain.StatusOK)
	require.NoError(t, err)
	assert.Equal(t, ModeFilterToggle, res.Mode)
	assert.Equal(t, StatusAll, tb.Filters().Status)

	require.NoError(t, tb.SetStatusFilter("Review"))
	require.NoError(t, tb.Select("d03"))
	res, err = tb.TopAction(domain.StatusOK)
	require.NoError(t, err)
	assert.Equal(t, ModeBulkEdit, res.Mode)
	require.Len(t, res.Changes, 1)
	assert.Equal(t, "Review", tb.Filters().Status, "filter untouched on bulk edit")
	row, _ := tb.Row("d03")
	assert.Equal(t, domain.StatusOK, row.Status)
	assert.Empty(t, tb.Selected())
}

func TestHandleKey(t *testing.T) {
	tb := New(sixteenDomains())

	assert.False(t, tb.HandleKey("a", false).Handled, "no selection")

	require.NoError(t, tb.Select("d05"))
	require.NoError(t, tb.Select("d01"))
	assert.False(t, tb.HandleKey("a", true).Handled, "input focused")
	assert.Len(t, tb.Selected(), 2)

	res := tb.HandleKey("o", false)
	assert.True(t, res.Handled)
	assert.Equal(t, "d05", res.Expanded, "first selected by insertion order")
	assert.True(t, tb.IsExpanded("d05"))
	tb.HandleKey("o", false)
	assert.False(t, tb.IsExpanded("d05"))

	assert.False(t, tb.HandleKey("x", false).Handled)

	res = tb.HandleKey("s", false)
	assert.True(t, res.Handled)
	assert.Len(t, res.Changes, 2)
	for _, id := range []string{"d05", "d01"} {
		row, _ := tb.Row(id)
		assert.Equal(t, domain.StatusReview, row.Status)
	}
	assert.Empty(t, tb.Selected())

	require.NoError(t, tb.Select("d02"))
	tb.HandleKey("d", false)
	row, _ := tb.Row("d02")
	assert.Equal(t, domain.StatusReject, row.Status)

	require.NoError(t, tb.Select("d02"))
	tb.HandleKey("a", false)
	row, _ = tb.Row("d02")
	assert.Equal(t, domain.StatusOK, row.Status)
}

func TestSelectionOrder(t *testing.T) {
	tb := New(sixteenDomains())
	require.NoError(t, tb.ToggleSelect("d03"))
	require.NoError(t, tb.ToggleSelect("d01"))
	require.NoError(t, tb.ToggleSelect("d03"))
	require.NoError(t, tb.ToggleSelect("d03"))
	assert.Equal(t, []string{"d01", "d03"}, tb.Selected())
	assert.ErrorIs(t, tb.Select("missing"), ErrUnknownRow)

	tb.ClearSelection()
	require.NoError(t, tb.SetStatusFilter("Reject"))
	tb.SelectAllVisible()
	assert.Equal(t, ids(tb.Visible()), tb.Selected())
}

func TestClearAndReset(t *testing.T) {
	tb := New(sixteenDomains())
	tb.SetSearch("site")
	require.NoError(t, tb.SetStatusFilter("OK"))
	tb.ToggleTopic("Tech")
	tb.ToggleCountry("DE")
	require.NoError(t, tb.SetBand(PriceBand, BandHigh))
	require.NoError(t, tb.SetBand(DRBand, BandLow))
	require.NoError(t, tb.SetBand(RatioBand, BandMid))

	require.NoError(t, tb.ClearFilter("price"))
	f := tb.Filters()
	assert.Equal(t, BandNone, f.Price)
	assert.Equal(t, BandLow, f.DR)
	assert.Equal(t, []string{"Tech"}, f.Topics)

	tb.Reset()
	f = tb.Filters()
	assert.Empty(t, f.Topics)
	assert.Empty(t, f.Countries)
	assert.Equal(t, BandNone, f.DR)
	assert.Equal(t, BandNone, f.Ratio)
	assert.Equal(t, "site", f.Search)
	assert.Equal(t, "OK", f.Status)

	assert.ErrorIs(t, tb.ClearFilter("colour"), ErrUnknownFilter)
	assert.ErrorIs(t, tb.SetStatusFilter("Maybe"), ErrInvalidStatus)

	require.NoError(t, tb.SetStatusFilter("ok"))
	assert.Equal(t, "OK", tb.Filters().Status)
	require.NoError(t, tb.SetStatusFilter("REJECT"))
	assert.Equal(t, "Reject", tb.Filters().Status)
	require.NoError(t, tb.SetStatusFilter("all"))
	assert.Equal(t, StatusAll, tb.Filters().Status)
}

func TestSnapshotFacets(t *testing.T) {
	tb := New(sixteenDomains())
	v := tb.Snapshot()
	assert.Equal(t, 16, v.Total)
	assert.Len(t, v.Rows, 16)
	assert.Len(t, v.Facets.Topics, 10)
	assert.Len(t, v.Facets.Countries, 16)
	assert.Equal(t, 16, v.StatusSums["OK"]+v.StatusSums["Review"]+v.StatusSums["Reject"])
	assert.Equal(t, "", v.BandKeys["price"])

	require.NoError(t, tb.SetBand(PriceBand, BandMid))
	assert.Equal(t, "150-300", tb.Snapshot().BandKeys["price"])
}

func TestRestore(t *testing.T) {
	tb := New(sixteenDomains())
	n := tb.Restore(map[string]domain.DomainStatus{"site01.example": domain.StatusOK, "unknown.example": domain.StatusReject})
	assert.Equal(t, 1, n)
	row, _ := tb.Row("d01")
	assert.Equal(t, domain.StatusOK, row.Status)
}
