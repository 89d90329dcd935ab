package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreschagin/swarm-heartbeat/internal/application/dto"
	"github.com/dreschagin/swarm-heartbeat/internal/application/port"
	"github.com/dreschagin/swarm-heartbeat/pkg/logger"
)

const maxErrorBody = 256

// Config параметры доставки
type Config struct {
	Endpoint   string
	APIKey     string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// HTTPDeliveryClient отправляет снимки удаленному коллектору POST-запросом.
// Реализует интерфейс port.DeliveryClient
type HTTPDeliveryClient struct {
	endpoint   string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
	telemetry  port.Telemetry
	log        *logger.Logger
}

// NewHTTPDeliveryClient создает клиента доставки
func NewHTTPDeliveryClient(cfg Config, telemetry port.Telemetry, log *logger.Logger) *HTTPDeliveryClient {
	if cfg.MaxRetries < 1 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if telemetry == nil {
		telemetry = port.NopTelemetry{}
	}
	return &HTTPDeliveryClient{
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		telemetry:  telemetry,
		log:        log.With("component", "delivery"),
	}
}

// Send доставляет снимок. Любой 2xx считается успехом; ответы не-2xx и сетевые
// ошибки повторяются с фиксированной паузой, прочие ошибки прерывают доставку
func (c *HTTPDeliveryClient) Send(ctx context.Context, snapshot *dto.MetricsSnapshotDTO) bool {
	if c.endpoint == "" {
		c.log.Warn("Monitor endpoint is not configured, skipping delivery")
		return false
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		c.log.Error("Failed to encode snapshot", err)
		c.telemetry.DeliveryAttempt(port.DeliveryOutcomeAborted)
		return false
	}

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		req, err := c.newRequest(ctx, body)
		if err != nil {
			c.log.Error("Failed to build delivery request", err, "endpoint", c.endpoint)
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeAborted)
			return false
		}

		status, err := c.do(req)
		switch {
		case err != nil && ctx.Err() != nil:
			c.log.Warn("Delivery cancelled", "attempt", attempt, "error", ctx.Err().Error())
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeAborted)
			return false
		case err != nil:
			c.log.Warn("Delivery attempt failed", "attempt", attempt, "max", c.maxRetries, "error", err.Error())
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeTransport)
		case status >= 200 && status < 300:
			c.log.Debug("Snapshot delivered", "attempt", attempt, "status", status, "swarm_id", snapshot.SwarmID)
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeSuccess)
			return true
		default:
			c.log.Warn("Monitor rejected snapshot", "attempt", attempt, "max", c.maxRetries, "status", status)
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeHTTPError)
		}

		if attempt < c.maxRetries && !c.wait(ctx) {
			c.telemetry.DeliveryAttempt(port.DeliveryOutcomeAborted)
			return false
		}
	}

	c.log.Error("Snapshot delivery failed after retries", nil, "attempts", c.maxRetries, "endpoint", c.endpoint)
	return false
}

func (c *HTTPDeliveryClient) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *HTTPDeliveryClient) do(req *http.Request) (int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.log.Debug("Monitor error response", "status", resp.StatusCode, "body", string(snippet))
	}
	// Дочитываем тело, чтобы соединение вернулось в пул
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (c *HTTPDeliveryClient) wait(ctx context.Context) bool {
	if c.retryDelay == 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
