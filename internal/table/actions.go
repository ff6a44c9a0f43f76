package table

import (
	"triage-dashboard/internal/domain"
)

// ApplyStatus 將所有勾選列改成指定狀態並清空勾選。
// 覆寫後不再重新推導，原本計算出的狀態不保留。
func (t *Table) ApplyStatus(status domain.DomainStatus) ([]domain.StatusChange, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	t.mu.Lock()
	if len(t.selected) == 0 {
		t.mu.Unlock()
		return nil, ErrNoSelection
	}
	changes := t.applyLocked(status)
	t.mu.Unlock()

	t.emit(changes)
	return changes, nil
}

func (t *Table) applyLocked(status domain.DomainStatus) []domain.StatusChange {
	changes := make([]domain.StatusChange, 0, len(t.selected))
	for _, id := range t.selected {
		i, ok := t.index[id]
		if !ok {
			continue
		}
		row := &t.rows[i]
		changes = append(changes, domain.StatusChange{ID: row.ID, Domain: row.Domain, From: row.Status, To: status})
		row.Status = status
	}
	t.clearSelectionLocked()
	return changes
}

func (t *Table) emit(changes []domain.StatusChange) {
	if t.onChange != nil && len(changes) > 0 {
		t.onChange(changes)
	}
}

// TopActionMode 頂部狀態按鈕實際做了什麼
type TopActionMode string

const (
	ModeBulkEdit     TopActionMode = "bulk_edit"
	ModeFilterToggle TopActionMode = "filter_toggle"
)

type TopActionResult struct {
	Mode    TopActionMode         `json:"mode"`
	Changes []domain.StatusChange `json:"changes,omitempty"`
	Filter  string                `json:"filter"`
}

// TopAction 頂部 OK / Review / Reject 按鈕:
// 有勾選時為批次改狀態 (不動篩選)；沒有勾選時切換狀態篩選，再按一次同狀態回到 All。
func (t *Table) TopAction(status domain.DomainStatus) (TopActionResult, error) {
	if !status.Valid() {
		return TopActionResult{}, ErrInvalidStatus
	}

	t.mu.Lock()
	if len(t.selected) > 0 {
		changes := t.applyLocked(status)
		res := TopActionResult{Mode: ModeBulkEdit, Changes: changes, Filter: t.filters.Status}
		t.mu.Unlock()
		t.emit(changes)
		return res, nil
	}

	if t.filters.Status == string(status) {
		t.filters.Status = StatusAll
	} else {
		t.filters.Status = string(status)
	}
	res := TopActionResult{Mode: ModeFilterToggle, Filter: t.filters.Status}
	t.mu.Unlock()
	return res, nil
}

// KeyResult 快捷鍵處理結果
type KeyResult struct {
	Handled  bool                  `json:"handled"`
	Changes  []domain.StatusChange `json:"changes,omitempty"`
	Expanded string                `json:"expanded,omitempty"`
}

var keyStatus = map[string]domain.DomainStatus{
	"a": domain.StatusOK,
	"s": domain.StatusReview,
	"d": domain.StatusReject,
}

// HandleKey a/s/d 批次改狀態，o 展開/收合最先勾選的那一列。
// 輸入框有焦點或沒有勾選任何列時不處理。
func (t *Table) HandleKey(key string, inputFocused bool) KeyResult {
	if inputFocused {
		return KeyResult{}
	}

	t.mu.Lock()
	if len(t.selected) == 0 {
		t.mu.Unlock()
		return KeyResult{}
	}

	if status, ok := keyStatus[key]; ok {
		changes := t.applyLocked(status)
		t.mu.Unlock()
		t.emit(changes)
		return KeyResult{Handled: true, Changes: changes}
	}

	if key == "o" {
		first := t.selected[0]
		t.toggleExpandLocked(first)
		t.mu.Unlock()
		return KeyResult{Handled: true, Expanded: first}
	}

	t.mu.Unlock()
	return KeyResult{}
}

// Restore 套用先前保存的人工決定 (依域名比對)，不觸發 OnChange
func (t *Table) Restore(decisions map[string]domain.DomainStatus) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.rows {
		if s, ok := decisions[t.rows[i].Domain]; ok && s.Valid() && t.rows[i].Status != s {
			t.rows[i].Status = s
			n++
		}
	}
	return n
}
