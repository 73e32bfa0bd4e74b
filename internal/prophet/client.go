// Package prophet is the client for the external trend+seasonality
// forecasting service. Remote failures are reported as a Result, never as a
// Go error, so callers can branch on the failure kind.
package prophet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
)

const forecastPath = "/forecast"

// FailureKind is the closed set of reasons an advanced forecast can fail.
type FailureKind string

const (
	// FailureUnavailable covers connection errors and timeouts. Retryable.
	FailureUnavailable FailureKind = "unavailable"
	// FailureServiceError is a non-2xx response from the service.
	FailureServiceError FailureKind = "service_error"
	// FailureMalformed is a 2xx response we could not use.
	FailureMalformed FailureKind = "malformed_response"
)

// Failure describes why the advanced path produced no forecast.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Detail     string
}

func (f *Failure) Retryable() bool {
	return f != nil && f.Kind == FailureUnavailable
}

// Result is either a Response or a Failure, never both.
type Result struct {
	Response *Response
	Failure  *Failure
}

func (r Result) OK() bool {
	return r.Response != nil && r.Failure == nil
}

// HistoryPoint is one day of history in the service's wire format.
type HistoryPoint struct {
	DS string `json:"ds"`
	Y  int    `json:"y"`
}

// Request is the body sent to the service.
type Request struct {
	ProductID          int64          `json:"product_id"`
	ProductName        string         `json:"product_name"`
	HistoricalSales    []HistoryPoint `json:"historical_sales"`
	HorizonDays        int            `json:"horizon_days"`
	ConfidenceInterval float64        `json:"confidence_interval"`
}

// PredictionPoint is one forecast day returned by the service.
type PredictionPoint struct {
	Date       string  `json:"date"`
	Prediction float64 `json:"prediction"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// Response is the success body.
type Response struct {
	Model       string            `json:"model"`
	Predictions []PredictionPoint `json:"predictions"`
	Metadata    map[string]any    `json:"metadata"`
}

type errorBody struct {
	Detail any    `json:"detail"`
	Error  string `json:"error"`
}

// Forecaster is what the orchestrator needs from the advanced service.
type Forecaster interface {
	Forecast(ctx context.Context, req Request) Result
}

// Client calls the advanced forecasting service over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

func NewClient(cfg config.ProphetConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Forecast posts the history and returns the service's forecast or a
// classified failure. A timeout is reported as FailureUnavailable.
func (c *Client) Forecast(ctx context.Context, req Request) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(req)
	if err != nil {
		return failed(FailureMalformed, 0, fmt.Sprintf("encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+forecastPath, bytes.NewReader(payload))
	if err != nil {
		return failed(FailureUnavailable, 0, fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return failed(FailureUnavailable, 0, describeTransportError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return failed(FailureUnavailable, resp.StatusCode, fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failed(FailureServiceError, resp.StatusCode, errorDetail(body))
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		return failed(FailureMalformed, resp.StatusCode, fmt.Sprintf("decode response: %v", err))
	}
	if len(out.Predictions) != req.HorizonDays {
		return failed(FailureMalformed, resp.StatusCode,
			fmt.Sprintf("expected %d predictions, got %d", req.HorizonDays, len(out.Predictions)))
	}
	if strings.TrimSpace(out.Model) == "" {
		out.Model = "prophet"
	}

	return Result{Response: &out}
}

func failed(kind FailureKind, status int, detail string) Result {
	return Result{Failure: &Failure{Kind: kind, StatusCode: status, Detail: detail}}
}

func describeTransportError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}
	return err.Error()
}

func errorDetail(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch d := eb.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if raw, err := json.Marshal(d); err == nil {
				return string(raw)
			}
		}
		if eb.Error != "" {
			return eb.Error
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > 512 {
		text = text[:512]
	}
	return text
}
