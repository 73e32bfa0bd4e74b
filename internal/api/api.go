// internal/api/api.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Services struct {
	Forecast handlers.Forecaster
	Alerts   handlers.AlertScanner
	Backtest handlers.Backtester
	// Ping reports store connectivity for /health. Optional.
	Ping     func(ctx context.Context) error
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		if services != nil && services.Ping != nil {
			if err := services.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Forecast != nil {
			forecastHandler := handlers.NewForecastHandler(services.Forecast)
			productGroup := apiGroup.Group("/products/:id")
			{
				productGroup.GET("/forecast", forecastHandler.GetForecast)
				productGroup.GET("/metrics", forecastHandler.GetMetrics)
				productGroup.GET("/predictions", forecastHandler.GetPredictions)
			}
			apiGroup.POST("/forecasts/run", forecastHandler.RunBatch)
		}

		if services.Alerts != nil {
			alertHandler := handlers.NewAlertHandler(services.Alerts)
			alertGroup := apiGroup.Group("/alerts")
			{
				alertGroup.GET("", alertHandler.ListOpen)
				alertGroup.POST("/scan", alertHandler.Scan)
			}
		}

		if services.Backtest != nil {
			backtestHandler := handlers.NewBacktestHandler(services.Backtest)
			apiGroup.POST("/backtest", backtestHandler.Run)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
