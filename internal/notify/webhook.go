// Package notify pushes alerts to an external webhook endpoint.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/infra/resilience"
)

var tracer = otel.Tracer("notify")

// payload is the JSON body posted to the webhook.
type payload struct {
	Alerts []domain.Alert `json:"alerts"`
	Count  int            `json:"count"`
	SentAt time.Time      `json:"sent_at"`
}

// WebhookClient delivers alert batches to a configured URL. Calls are
// wrapped in a circuit breaker so a dead endpoint fails fast, each
// attempt retries with backoff, and a bulkhead keeps concurrent
// sweeps from piling requests onto the endpoint.
type WebhookClient struct {
	httpClient *http.Client
	url        string
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	logger     *zap.Logger
}

func NewWebhookClient(httpClient *http.Client, url string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *WebhookClient {
	return &WebhookClient{
		httpClient: httpClient,
		url:        url,
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		logger:     logger,
	}
}

// Send posts the alerts as a single JSON batch. An empty batch is a
// no-op.
func (c *WebhookClient) Send(ctx context.Context, alerts []domain.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	ctx, span := tracer.Start(ctx, "WebhookClient.Send")
	defer span.End()
	span.SetAttributes(attribute.Int("alerts.count", len(alerts)))

	body, err := json.Marshal(payload{
		Alerts: alerts,
		Count:  len(alerts),
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal alert batch: %w", err)
	}

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return err
	}
	defer c.bulkhead.Release()

	_, err = c.cb.Execute(func() (any, error) {
		innerErr := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("create webhook request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("post to webhook: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode < 200 || resp.StatusCode > 299 {
				return fmt.Errorf("webhook returned status %d", resp.StatusCode)
			}
			return nil
		})
		return nil, innerErr
	})
	if err != nil {
		c.logger.Warn("webhook delivery failed", zap.Error(err), zap.Int("alerts", len(alerts)))
		return &domain.ErrExternalService{Service: "webhook", Err: err}
	}

	c.logger.Info("alerts delivered", zap.Int("alerts", len(alerts)))
	return nil
}
