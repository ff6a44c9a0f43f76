package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"triage-dashboard/internal/format"
	"triage-dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

// maxWhoisBatch 一次最多查詢的域名數
const maxWhoisBatch = 20

type ToolHandler struct {
	Whois *service.WhoisService
}

func NewToolHandler(w *service.WhoisService) *ToolHandler {
	return &ToolHandler{Whois: w}
}

// WhoisLookup 查詢註冊商與到期日，domain 可用逗號分隔多個
// @Param domain query string true "example.com,example.org"
func (h *ToolHandler) WhoisLookup(c *gin.Context) {
	var names []string
	for _, n := range strings.Split(c.Query("domain"), ",") {
		if n = strings.TrimSpace(n); n != "" {
			names = append(names, n)
		}
	}
	if len(names) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "domain is required"})
		return
	}
	if len(names) > maxWhoisBatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("最多一次查詢 %d 個域名", maxWhoisBatch)})
		return
	}

	results, err := h.Whois.LookupMany(c.Request.Context(), names)
	if err != nil {
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": results, "total": len(results)})
}

// PriceDecision 價格判斷 (與佐證側欄相同的算法)
// @Param price query string true "$1,250"
// @Param dr query number false "Domain Rating"
// @Param traffic query number false "organic traffic"
func (h *ToolHandler) PriceDecision(c *gin.Context) {
	dr, err := parseOptionalFloat(c.Query("dr"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dr"})
		return
	}
	traffic, err := parseOptionalFloat(c.Query("traffic"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid traffic"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": format.PriceDecision(c.Query("price"), dr, traffic)})
}

func parseOptionalFloat(s string) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
