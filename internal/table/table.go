// Package table 是結果頁的表格狀態機: 篩選、排序、勾選、展開，以及人工批次改狀態。
//
// Table 自己持有一份列資料，批次改狀態只改這份，並透過 OnChange 回報給上層，
// 呼叫端拿到的 slice 永遠是複本。
package table

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"triage-dashboard/internal/domain"
)

var (
	ErrNoSelection   = errors.New("no rows selected")
	ErrInvalidStatus = errors.New("invalid status")
	ErrUnknownRow    = errors.New("unknown row id")
	ErrUnknownFilter = errors.New("unknown filter")
)

// ChangeFunc 批次改狀態後的回呼 (在鎖外呼叫)
type ChangeFunc func(changes []domain.StatusChange)

type Option func(*Table)

// WithOnChange 設定狀態變更回呼
func WithOnChange(fn ChangeFunc) Option {
	return func(t *Table) { t.onChange = fn }
}

type Table struct {
	mu sync.Mutex

	rows  []domain.DomainRecord
	index map[string]int

	filters Filters
	sortKey SortKey
	sortDir Direction

	// 勾選順序有意義: 快捷鍵 o 作用在最先勾選的那一列
	selected    []string
	selectedSet map[string]struct{}
	expanded    map[string]bool

	onChange ChangeFunc
}

// New 複製傳入的清單後建立表格
func New(records []domain.DomainRecord, opts ...Option) *Table {
	t := &Table{
		rows:        append([]domain.DomainRecord(nil), records...),
		index:       make(map[string]int, len(records)),
		filters:     Filters{Status: StatusAll},
		sortDir:     Desc,
		selectedSet: make(map[string]struct{}),
		expanded:    make(map[string]bool),
	}
	for i, r := range t.rows {
		t.index[r.ID] = i
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// View 前端一次取得的完整狀態
type View struct {
	Rows       []domain.DomainRecord `json:"rows"`
	Total      int                   `json:"total"`
	Filters    Filters               `json:"filters"`
	BandKeys   map[string]string     `json:"band_keys"`
	SortKey    string                `json:"sort_key"`
	SortDir    Direction             `json:"sort_dir"`
	Selected   []string              `json:"selected"`
	Expanded   []string              `json:"expanded"`
	Facets     Facets                `json:"facets"`
	StatusSums map[string]int        `json:"status_counts"`
}

// Facets 下拉選單的選項
type Facets struct {
	Topics    []string `json:"topics"`
	Countries []string `json:"countries"`
	SortKeys  []string `json:"sort_keys"`
}

// Snapshot 推導可見列並附上目前狀態
func (t *Table) Snapshot() View {
	t.mu.Lock()
	defer t.mu.Unlock()

	v := View{
		Rows:    Derive(t.rows, t.filters, t.sortKey, t.sortDir),
		Total:   len(t.rows),
		Filters: t.filters.clone(),
		BandKeys: map[string]string{
			string(PriceBand): PriceBand.Key(t.filters.Price),
			string(DRBand):    DRBand.Key(t.filters.DR),
			string(RatioBand): RatioBand.Key(t.filters.Ratio),
		},
		SortKey:    t.sortKey.String(),
		SortDir:    t.sortDir,
		Selected:   append([]string{}, t.selected...),
		Expanded:   t.expandedLocked(),
		Facets:     t.facetsLocked(),
		StatusSums: t.statusCountsLocked(),
	}
	return v
}

// Visible 目前可見的列 (已排序)
func (t *Table) Visible() []domain.DomainRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Derive(t.rows, t.filters, t.sortKey, t.sortDir)
}

// Rows 全部列的複本，原始順序
func (t *Table) Rows() []domain.DomainRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.DomainRecord(nil), t.rows...)
}

// Row 依 id 取單列
func (t *Table) Row(id string) (domain.DomainRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	i, ok := t.index[id]
	if !ok {
		return domain.DomainRecord{}, false
	}
	return t.rows[i], true
}

// Filters 目前篩選條件
func (t *Table) Filters() Filters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filters.clone()
}

// Sort 目前排序
func (t *Table) Sort() (SortKey, Direction) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sortKey, t.sortDir
}

// =============================================================================
// Filters (篩選)
// =============================================================================

// SetStatusFilter "All" 或三種狀態之一，大小寫不敏感
func (t *Table) SetStatusFilter(status string) error {
	if status == "" || strings.EqualFold(status, StatusAll) {
		status = StatusAll
	} else {
		parsed, ok := domain.ParseDomainStatus(status)
		if !ok {
			return ErrInvalidStatus
		}
		status = string(parsed)
	}
	t.mu.Lock()
	t.filters.Status = status
	t.mu.Unlock()
	return nil
}

func (t *Table) SetSearch(q string) {
	t.mu.Lock()
	t.filters.Search = q
	t.mu.Unlock()
}

func (t *Table) SetTopics(topics []string) {
	t.mu.Lock()
	t.filters.Topics = append([]string(nil), topics...)
	t.mu.Unlock()
}

func (t *Table) SetCountries(countries []string) {
	t.mu.Lock()
	t.filters.Countries = append([]string(nil), countries...)
	t.mu.Unlock()
}

// ToggleTopic 多選勾/取消
func (t *Table) ToggleTopic(topic string) {
	t.mu.Lock()
	t.filters.Topics = toggle(t.filters.Topics, topic)
	t.mu.Unlock()
}

func (t *Table) ToggleCountry(country string) {
	t.mu.Lock()
	t.filters.Countries = toggle(t.filters.Countries, country)
	t.mu.Unlock()
}

// SetBand 再選一次同一區間即取消
func (t *Table) SetBand(kind BandFilter, b Band) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur := t.filters.band(kind)
	if cur == nil {
		return ErrUnknownFilter
	}
	if *cur == b {
		*cur = BandNone
		return nil
	}
	*cur = b
	return nil
}

// ClearFilter 只清除單一下拉條件
func (t *Table) ClearFilter(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch name {
	case "topics", "topic":
		t.filters.Topics = nil
	case "countries", "country":
		t.filters.Countries = nil
	default:
		cur := t.filters.band(BandFilter(name))
		if cur == nil {
			return ErrUnknownFilter
		}
		*cur = BandNone
	}
	return nil
}

// Reset 清除所有下拉條件，保留搜尋字串與狀態篩選
func (t *Table) Reset() {
	t.mu.Lock()
	t.filters.Topics = nil
	t.filters.Countries = nil
	t.filters.Price = BandNone
	t.filters.DR = BandNone
	t.filters.Ratio = BandNone
	t.mu.Unlock()
}

// ToggleSort 新欄位一律從 desc 開始，同欄位再點切換方向
func (t *Table) ToggleSort(key SortKey) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sortKey == key {
		if t.sortDir == Desc {
			t.sortDir = Asc
		} else {
			t.sortDir = Desc
		}
		return
	}
	t.sortKey = key
	t.sortDir = Desc
}

// =============================================================================
// Selection / Expansion (勾選與展開)
// =============================================================================

func (t *Table) Select(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[id]; !ok {
		return ErrUnknownRow
	}
	t.selectLocked(id)
	return nil
}

func (t *Table) Deselect(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deselectLocked(id)
}

// ToggleSelect 取消後再勾選會排到最後
func (t *Table) ToggleSelect(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[id]; !ok {
		return ErrUnknownRow
	}
	if _, ok := t.selectedSet[id]; ok {
		t.deselectLocked(id)
	} else {
		t.selectLocked(id)
	}
	return nil
}

// SelectAllVisible 勾選目前可見的列 (依畫面順序)
func (t *Table) SelectAllVisible() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, r := range Derive(t.rows, t.filters, t.sortKey, t.sortDir) {
		t.selectLocked(r.ID)
	}
}

func (t *Table) ClearSelection() {
	t.mu.Lock()
	t.clearSelectionLocked()
	t.mu.Unlock()
}

// Selected 依勾選先後順序
func (t *Table) Selected() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string{}, t.selected...)
}

func (t *Table) ToggleExpand(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.index[id]; !ok {
		return ErrUnknownRow
	}
	t.toggleExpandLocked(id)
	return nil
}

func (t *Table) IsExpanded(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.expanded[id]
}

// =============================================================================
// Internal helpers
// =============================================================================

func (t *Table) selectLocked(id string) {
	if _, ok := t.selectedSet[id]; ok {
		return
	}
	t.selectedSet[id] = struct{}{}
	t.selected = append(t.selected, id)
}

func (t *Table) deselectLocked(id string) {
	if _, ok := t.selectedSet[id]; !ok {
		return
	}
	delete(t.selectedSet, id)
	for i, s := range t.selected {
		if s == id {
			t.selected = append(t.selected[:i], t.selected[i+1:]...)
			break
		}
	}
}

func (t *Table) clearSelectionLocked() {
	t.selected = nil
	t.selectedSet = make(map[string]struct{})
}

func (t *Table) toggleExpandLocked(id string) {
	if t.expanded[id] {
		delete(t.expanded, id)
		return
	}
	t.expanded[id] = true
}

func (t *Table) expandedLocked() []string {
	out := make([]string, 0, len(t.expanded))
	for _, r := range t.rows {
		if t.expanded[r.ID] {
			out = append(out, r.ID)
		}
	}
	return out
}

func (t *Table) facetsLocked() Facets {
	topics := map[string]struct{}{}
	countries := map[string]struct{}{}
	for _, r := range t.rows {
		if r.Topic != "" {
			topics[r.Topic] = struct{}{}
		}
		if r.Country != "" {
			countries[r.Country] = struct{}{}
		}
	}
	return Facets{Topics: sortedKeys(topics), Countries: sortedKeys(countries), SortKeys: SortKeys()}
}

func (t *Table) statusCountsLocked() map[string]int {
	counts := map[string]int{
		string(domain.StatusOK):     0,
		string(domain.StatusReview): 0,
		string(domain.StatusReject): 0,
	}
	for _, r := range t.rows {
		counts[string(r.Status)]++
	}
	return counts
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func toggle(list []string, v string) []string {
	for i, s := range list {
		if s == v {
			return append(append([]string(nil), list[:i]...), list[i+1:]...)
		}
	}
	return append(append([]string(nil), list...), v)
}
