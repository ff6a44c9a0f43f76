package api

import (
	"errors"
	"net/http"

	"triage-dashboard/internal/csvimport"
	"triage-dashboard/internal/domain"
	"triage-dashboard/internal/service"
	"triage-dashboard/internal/table"

	"github.com/gin-gonic/gin"
)

// statusFor 將服務層錯誤對應到 HTTP 狀態碼
func statusFor(err error) int {
	var httpErr *service.HTTPError
	switch {
	case errors.Is(err, domain.ErrEmptyName),
		errors.Is(err, domain.ErrNoDomains),
		errors.Is(err, csvimport.ErrNoRows),
		errors.Is(err, table.ErrNoSelection),
		errors.Is(err, table.ErrInvalidStatus),
		errors.Is(err, table.ErrUnknownFilter):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrUnknownRow),
		errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrNoResults):
		return http.StatusConflict
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// respondBackendError 後端失敗時附上固定提示
func respondBackendError(c *gin.Context, err error, hint string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		status = http.StatusBadGateway
	}
	c.JSON(status, gin.H{"error": err.Error(), "hint": hint})
}
