package domain

import (
	"errors"
	"strings"
)

// AlertType classifies a stock alert.
type AlertType string

const (
	AlertLowStock     AlertType = "low_stock"
	AlertWillStockout AlertType = "will_stockout"
)

var alertTypeLabels = map[AlertType]string{
	AlertLowStock:     "Low stock",
	AlertWillStockout: "Will stock out",
}

// AlertTypeLabel returns a human-readable label for an alert type.
func AlertTypeLabel(t AlertType) string {
	if label, ok := alertTypeLabels[t]; ok {
		return label
	}

	return "Unknown"
}

// ForecastMethod selects which forecasting path a caller wants.
type ForecastMethod string

const (
	MethodAuto      ForecastMethod = "auto"
	MethodProphet   ForecastMethod = "prophet"
	MethodClassical ForecastMethod = "classical"
)

// ParseForecastMethod returns the method for a given label (case-insensitive).
// An empty label means auto.
func ParseForecastMethod(label string) (ForecastMethod, bool) {
	switch ForecastMethod(strings.ToLower(strings.TrimSpace(label))) {
	case "", MethodAuto:
		return MethodAuto, true
	case MethodProphet:
		return MethodProphet, true
	case MethodClassical:
		return MethodClassical, true
	}

	return "", false
}

var (
	// ErrProductNotFound is the only forecasting failure surfaced to callers.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidRequest wraps horizon or method validation failures.
	ErrInvalidRequest = errors.New("invalid forecast request")
)
