package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"triage-dashboard/internal/csvimport"
	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AnalysisHandler struct {
	Dashboard *service.DashboardService
}

func NewAnalysisHandler(d *service.DashboardService) *AnalysisHandler {
	return &AnalysisHandler{Dashboard: d}
}

// =============================================================================
// List view (列表頁)
// =============================================================================

// GetAnalyses 最近一次輪詢的分析清單
// @Router /api/v1/analyses [get]
func (h *AnalysisHandler) GetAnalyses(c *gin.Context) {
	list, err := h.Dashboard.Analyses()
	st := h.Dashboard.State()
	resp := gin.H{
		"data":       list,
		"total":      len(list),
		"polling":    st.PollerRunning,
		"updated_at": st.ListUpdatedAt,
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// CreateAnalysis 送出新批次
// @Router /api/v1/analyses [post]
func (h *AnalysisHandler) CreateAnalysis(c *gin.Context) {
	var req domain.StartAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	created, err := h.Dashboard.Submit(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyName) || errors.Is(err, domain.ErrNoDomains) {
			respondError(c, err)
			return
		}
		respondBackendError(c, err, service.HintStartFailed)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// ImportDomains 解析上傳的 CSV / XLSX，或直接貼上的文字
// @Router /api/v1/analyses/import [post]
func (h *AnalysisHandler) ImportDomains(c *gin.Context) {
	var (
		rows []domain.DomainInput
		err  error
	)

	if fh, ferr := c.FormFile("file"); ferr == nil {
		f, oerr := fh.Open()
		if oerr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": oerr.Error()})
			return
		}
		defer f.Close()
		if strings.EqualFold(filepath.Ext(fh.Filename), ".xlsx") {
			rows, err = csvimport.ParseXLSX(f)
		} else {
			rows, err = csvimport.ParseReader(f)
		}
		logrus.Infof("[Import] 檔案 %s 解析出 %d 筆", fh.Filename, len(rows))
	} else {
		rows, err = csvimport.ParseReader(c.Request.Body)
	}

	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows, "total": len(rows)})
}

// =============================================================================
// Navigation (頁面切換)
// =============================================================================

// OpenAnalysis 切到結果頁
// @Router /api/v1/analyses/:id/open [post]
func (h *AnalysisHandler) OpenAnalysis(c *gin.Context) {
	if err := h.Dashboard.OpenAnalysis(c.Request.Context(), c.Param("id")); err != nil {
		respondBackendError(c, err, service.HintResultsFailed)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.Dashboard.State()})
}

// Back 回到列表頁
func (h *AnalysisHandler) Back(c *gin.Context) {
	h.Dashboard.Back()
	c.JSON(http.StatusOK, gin.H{"data": h.Dashboard.State()})
}

func (h *AnalysisHandler) GetView(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.Dashboard.State()})
}
