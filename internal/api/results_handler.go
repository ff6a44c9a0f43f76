package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/service"
	"triage-dashboard/internal/table"

	"github.com/gin-gonic/gin"
)

// ResultsHandler 結果頁表格操作，全部作用在目前開啟的分析
type ResultsHandler struct {
	Dashboard *service.DashboardService
}

func NewResultsHandler(d *service.DashboardService) *ResultsHandler {
	return &ResultsHandler{Dashboard: d}
}

// withTable 取得目前表格，沒有開啟的結果時直接回應錯誤
func (h *ResultsHandler) withTable(c *gin.Context, fn func(tbl *table.Table)) {
	tbl, err := h.Dashboard.Table()
	if err != nil {
		respondError(c, err)
		return
	}
	fn(tbl)
}

func (h *ResultsHandler) respondSnapshot(c *gin.Context, tbl *table.Table) {
	c.JSON(http.StatusOK, gin.H{"data": tbl.Snapshot()})
}

// =============================================================================
// Query APIs (讀取類)
// =============================================================================

// GetResults 篩選排序後的列與目前表格狀態
// @Router /api/v1/results [get]
func (h *ResultsHandler) GetResults(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		h.respondSnapshot(c, tbl)
	})
}

// GetEvidence 佐證側欄
// @Router /api/v1/results/:id/evidence [get]
func (h *ResultsHandler) GetEvidence(c *gin.Context) {
	ev, err := h.Dashboard.Evidence(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ev})
}

// GetStatistics 統計卡片 (依目前可見列)
func (h *ResultsHandler) GetStatistics(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		v := tbl.Snapshot()
		c.JSON(http.StatusOK, gin.H{"data": service.ComputeStats(v.Total, v.Rows)})
	})
}

// ExportResults 匯出可見列 (csv / xlsx)
// @Param format query string false "csv 或 xlsx"
func (h *ResultsHandler) ExportResults(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		format := strings.ToLower(c.DefaultQuery("format", "csv"))
		data, contentType, err := service.ExportBytes(format, tbl.Visible())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := fmt.Sprintf("domains_%s.%s", time.Now().Format("20060102"), format)
		c.Header("Content-Disposition", "attachment;filename="+name)
		c.Data(http.StatusOK, contentType, data)
	})
}

// GetDecisions 已保存的人工審核紀錄
func (h *ResultsHandler) GetDecisions(c *gin.Context) {
	list, err := h.Dashboard.Decisions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list, "total": len(list)})
}

// =============================================================================
// Filter / Sort (篩選排序)
// =============================================================================

// filtersRequest 只更新有帶的欄位
type filtersRequest struct {
	Status        *string           `json:"status"`
	Search        *string           `json:"search"`
	Topics        *[]string         `json:"topics"`
	Countries     *[]string         `json:"countries"`
	ToggleTopic   string            `json:"toggle_topic"`
	ToggleCountry string            `json:"toggle_country"`
	Bands         map[string]string `json:"bands"` // e.g. {"price": "lt150", "dr": "30-60"}
}

// UpdateFilters 設定篩選條件
// @Router /api/v1/results/filters [put]
func (h *ResultsHandler) UpdateFilters(c *gin.Context) {
	var req filtersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	h.withTable(c, func(tbl *table.Table) {
		// 先驗證區間，避免只套用一半
		bands := make(map[table.BandFilter]table.Band, len(req.Bands))
		for name, key := range req.Bands {
			b, ok := table.ParseBand(table.BandFilter(name), key)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid band %s=%s", name, key)})
				return
			}
			bands[table.BandFilter(name)] = b
		}
		if req.Status != nil {
			if err := tbl.SetStatusFilter(*req.Status); err != nil {
				respondError(c, err)
				return
			}
		}

		if req.Search != nil {
			tbl.SetSearch(*req.Search)
		}
		if req.Topics != nil {
			tbl.SetTopics(*req.Topics)
		}
		if req.Countries != nil {
			tbl.SetCountries(*req.Countries)
		}
		if req.ToggleTopic != "" {
			tbl.ToggleTopic(req.ToggleTopic)
		}
		if req.ToggleCountry != "" {
			tbl.ToggleCountry(req.ToggleCountry)
		}
		for kind, b := range bands {
			if err := tbl.SetBand(kind, b); err != nil {
				respondError(c, err)
				return
			}
		}
		h.respondSnapshot(c, tbl)
	})
}

// ClearFilter 清除單一下拉條件 (topics / countries / price / dr / ldrd)
func (h *ResultsHandler) ClearFilter(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		if err := tbl.ClearFilter(c.Param("name")); err != nil {
			respondError(c, err)
			return
		}
		h.respondSnapshot(c, tbl)
	})
}

// ResetFilters 清除所有下拉條件
func (h *ResultsHandler) ResetFilters(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		tbl.Reset()
		h.respondSnapshot(c, tbl)
	})
}

// ToggleSort 點欄位標題
// @Router /api/v1/results/sort/:key [post]
func (h *ResultsHandler) ToggleSort(c *gin.Context) {
	key, ok := table.ParseSortKey(c.Param("key"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown sort key: " + c.Param("key")})
		return
	}
	h.withTable(c, func(tbl *table.Table) {
		tbl.ToggleSort(key)
		h.respondSnapshot(c, tbl)
	})
}

// =============================================================================
// Selection / Review (勾選與人工審核)
// =============================================================================

type selectionRequest struct {
	Action string   `json:"action" binding:"required,oneof=select deselect toggle all clear"`
	IDs    []string `json:"ids"`
}

// UpdateSelection 勾選操作
// @Router /api/v1/results/selection [post]
func (h *ResultsHandler) UpdateSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.withTable(c, func(tbl *table.Table) {
		var err error
		switch req.Action {
		case "all":
			tbl.SelectAllVisible()
		case "clear":
			tbl.ClearSelection()
		default:
			for _, id := range req.IDs {
				switch req.Action {
				case "select":
					err = tbl.Select(id)
				case "deselect":
					tbl.Deselect(id)
				case "toggle":
					err = tbl.ToggleSelect(id)
				}
				if err != nil {
					break
				}
			}
		}
		if err != nil {
			respondError(c, err)
			return
		}
		h.respondSnapshot(c, tbl)
	})
}

// ToggleExpand 展開/收合單列
func (h *ResultsHandler) ToggleExpand(c *gin.Context) {
	h.withTable(c, func(tbl *table.Table) {
		if err := tbl.ToggleExpand(c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		h.respondSnapshot(c, tbl)
	})
}

// BulkStatus 將勾選列改成指定狀態
// @Router /api/v1/results/status [post]
func (h *ResultsHandler) BulkStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, ok := domain.ParseDomainStatus(req.Status)
	if !ok {
		respondError(c, table.ErrInvalidStatus)
		return
	}

	h.withTable(c, func(tbl *table.Table) {
		changes, err := tbl.ApplyStatus(status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": changes, "total": len(changes)})
	})
}

// TopAction 頂部狀態按鈕: 有勾選為批次修改，否則切換狀態篩選
func (h *ResultsHandler) TopAction(c *gin.Context) {
	status, ok := domain.ParseDomainStatus(c.Param("status"))
	if !ok {
		respondError(c, table.ErrInvalidStatus)
		return
	}
	h.withTable(c, func(tbl *table.Table) {
		res, err := tbl.TopAction(status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": res})
	})
}

// HandleKey 快捷鍵 a / s / d / o
// @Param input_focused query bool false "輸入框是否有焦點"
func (h *ResultsHandler) HandleKey(c *gin.Context) {
	focused := c.Query("input_focused") == "true" || c.Query("input_focused") == "1"
	h.withTable(c, func(tbl *table.Table) {
		res := tbl.HandleKey(strings.ToLower(c.Param("key")), focused)
		c.JSON(http.StatusOK, gin.H{"data": res})
	})
}
