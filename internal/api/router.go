package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handlers 路由需要的所有 handler；Auth 為 nil 時不啟用登入
type Handlers struct {
	Analysis  *AnalysisHandler
	Results   *ResultsHandler
	Settings  *SettingsHandler
	Tools     *ToolHandler
	Auth      *AuthHandler
	JWTSecret []byte
}

// NewRouter 建立 gin engine 並註冊所有路由
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), Logger(), CORS())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	if h.Auth != nil {
		r.POST("/api/login", h.Auth.Login)
		v1.Use(AuthMiddleware(h.JWTSecret))
	}
	{
		// 列表頁
		v1.GET("/analyses", h.Analysis.GetAnalyses)
		v1.POST("/analyses", h.Analysis.CreateAnalysis)
		v1.POST("/analyses/import", h.Analysis.ImportDomains)
		v1.POST("/analyses/:id/open", h.Analysis.OpenAnalysis)
		v1.GET("/view", h.Analysis.GetView)
		v1.POST("/view/back", h.Analysis.Back)

		// 結果頁
		v1.GET("/results", h.Results.GetResults)
		v1.GET("/results/stats", h.Results.GetStatistics)
		v1.GET("/results/export", h.Results.ExportResults)
		v1.GET("/results/decisions", h.Results.GetDecisions)
		v1.GET("/results/:id/evidence", h.Results.GetEvidence)
		v1.PUT("/results/filters", h.Results.UpdateFilters)
		v1.DELETE("/results/filters/:name", h.Results.ClearFilter)
		v1.POST("/results/filters/reset", h.Results.ResetFilters)
		v1.POST("/results/sort/:key", h.Results.ToggleSort)
		v1.POST("/results/selection", h.Results.UpdateSelection)
		v1.POST("/results/expand/:id", h.Results.ToggleExpand)
		v1.POST("/results/status", h.Results.BulkStatus)
		v1.POST("/results/top-action/:status", h.Results.TopAction)
		v1.POST("/results/keys/:key", h.Results.HandleKey)

		// 設定與工具
		v1.GET("/settings", h.Settings.GetSettings)
		v1.POST("/settings", h.Settings.SaveSettings)
		v1.POST("/settings/test", h.Settings.TestNotification)
		v1.GET("/tools/whois", h.Tools.WhoisLookup)
		v1.GET("/tools/price-decision", h.Tools.PriceDecision)
	}
	return r
}
