package api

import (
	"encoding/json"
	"io"
	"net/http"

	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/repository"
	"triage-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SettingsHandler struct {
	Repo     repository.ReviewRepository
	Notifier *service.NotifierService
}

func NewSettingsHandler(r repository.ReviewRepository, n *service.NotifierService) *SettingsHandler {
	return &SettingsHandler{Repo: r, Notifier: n}
}

// GetSettings 讀取通知設定
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.Repo.GetSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

// SaveSettings 只覆寫請求中有帶的欄位
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.Repo.GetSettings(ctx)
	if err != nil {
		current = &domain.NotificationSettings{}
	}

	jsonData, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "讀取請求失敗"})
		return
	}
	if err := json.Unmarshal(jsonData, current); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "無效的 JSON 格式"})
		return
	}

	if err := h.Repo.SaveSettings(ctx, *current); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logrus.Infof("設定已更新 | Telegram: %v | Webhook: %v", current.TelegramEnabled, current.WebhookEnabled)
	c.JSON(http.StatusOK, gin.H{"message": "設定已儲存", "data": current})
}

// TestNotification 用請求帶的設定直接發送一則測試訊息
func (h *SettingsHandler) TestNotification(c *gin.Context) {
	var settings domain.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}
	if err := h.Notifier.SendTestMessage(settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "測試訊息發送成功"})
}
