package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Forecaster is the slice of the forecast service the handlers need.
type Forecaster interface {
	Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error)
	ForecastAll(ctx context.Context) (domain.BatchForecastResult, error)
	MetricHistory(ctx context.Context, productID int64) ([]domain.ModelMetric, error)
	PredictionHistory(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error)
}

type ForecastHandler struct {
	service Forecaster
}

func NewForecastHandler(service Forecaster) *ForecastHandler {
	return &ForecastHandler{service: service}
}

// GetForecast handles GET /products/:id/forecast?horizon_days=&method=
func (h *ForecastHandler) GetForecast(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	req := domain.ForecastRequest{ProductID: productID}

	if raw := c.Query("horizon_days"); raw != "" {
		horizon, err := strconv.Atoi(raw)
		if err != nil || horizon < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_days must be a positive integer"})
			return
		}
		req.HorizonDays = horizon
	}

	method, valid := domain.ParseForecastMethod(c.Query("method"))
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "method must be one of auto, prophet, classical"})
		return
	}
	req.Method = method

	resp, err := h.service.Forecast(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RunBatch handles POST /forecasts/run
func (h *ForecastHandler) RunBatch(c *gin.Context) {
	result, err := h.service.ForecastAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetMetrics handles GET /products/:id/metrics
func (h *ForecastHandler) GetMetrics(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	metrics, err := h.service.MetricHistory(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	if metrics == nil {
		metrics = []domain.ModelMetric{}
	}

	c.JSON(http.StatusOK, gin.H{"data": metrics})
}

// GetPredictions handles GET /products/:id/predictions?limit=
func (h *ForecastHandler) GetPredictions(c *gin.Context) {
	productID, ok := parseProductID(c)
	if !ok {
		return
	}

	limit := 30
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "30")); err == nil && l > 0 {
		limit = l
	}

	predictions, err := h.service.PredictionHistory(c.Request.Context(), productID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if predictions == nil {
		predictions = []domain.Prediction{}
	}

	c.JSON(http.StatusOK, gin.H{"data": predictions})
}

func parseProductID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrProductNotFound.Error()})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
