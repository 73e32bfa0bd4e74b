package handlers

import (
	"context"
	"net/http"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
)

type Backtester interface {
	Run(ctx context.Context) (domain.BacktestResult, error)
}

type BacktestHandler struct {
	backtest Backtester
}

func NewBacktestHandler(backtest Backtester) *BacktestHandler {
	return &BacktestHandler{backtest: backtest}
}

// Run handles POST /backtest
func (h *BacktestHandler) Run(c *gin.Context) {
	result, err := h.backtest.Run(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
