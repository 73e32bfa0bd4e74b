package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

type AlertScanner interface {
	Scan(ctx context.Context) (domain.AlertScanResult, error)
	OpenAlerts(ctx context.Context, limit int) ([]domain.StockAlert, error)
}

type alertView struct {
	domain.StockAlert
	AlertTypeLabel string `json:"alert_type_label"`
}

type AlertHandler struct {
	alerts AlertScanner
}

func NewAlertHandler(alerts AlertScanner) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// Scan handles POST /alerts/scan
func (h *AlertHandler) Scan(c *gin.Context) {
	result, err := h.alerts.Scan(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListOpen handles GET /alerts?limit=
func (h *AlertHandler) ListOpen(c *gin.Context) {
	limit := 100
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "100")); err == nil && l > 0 {
		limit = l
	}

	alerts, err := h.alerts.OpenAlerts(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]alertView, len(alerts))
	for i, a := range alerts {
		views[i] = alertView{StockAlert: a, AlertTypeLabel: domain.AlertTypeLabel(a.AlertType)}
	}

	c.JSON(http.StatusOK, gin.H{"data": views, "total": len(views)})
}
