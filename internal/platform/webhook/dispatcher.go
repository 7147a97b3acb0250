package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/providercard/providercard/internal/platform/metrics"
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = c }
}

// WithTimeouts sets the per-attempt deadlines for notifications and pings.
func WithTimeouts(delivery, ping time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.timeout = delivery
		d.pingTimeout = ping
	}
}

// WithMaxAttempts sets the attempt ceiling used when scheduling retries.
func WithMaxAttempts(n int) DispatcherOption {
	return func(d *Dispatcher) { d.maxAttempts = n }
}

// Dispatcher signs and delivers webhook payloads, recording every
// attempt in the delivery ledger. Deliveries to distinct recipients are
// independent; a failure for one never propagates to another.
type Dispatcher struct {
	store       DeliveryStore
	client      *http.Client
	logger      zerolog.Logger
	secret      string
	timeout     time.Duration
	pingTimeout time.Duration
	maxAttempts int

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

// NewDispatcher creates a Dispatcher with production defaults.
func NewDispatcher(store DeliveryStore, secret string, logger zerolog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:       store,
		client:      &http.Client{},
		logger:      logger,
		secret:      secret,
		timeout:     30 * time.Second,
		pingTimeout: 10 * time.Second,
		maxAttempts: 5,
		breakers:    make(map[string]*gobreaker.CircuitBreaker[*http.Response]),
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Deliver records a pending Delivery, then performs one signed POST to
// the endpoint and records the terminal outcome. The pending row is
// persisted before the network call so a crash mid-delivery still
// leaves an auditable record. Errors are captured into the row, never
// returned; notification is best-effort relative to the mutation that
// triggered it.
func (d *Dispatcher) Deliver(ctx context.Context, url, eventType string, payload []byte, consentID *string) *Delivery {
	delivery := &Delivery{
		ID:        uuid.New().String(),
		ConsentID: consentID,
		URL:       url,
		EventType: eventType,
		Payload:   payload,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := d.store.Create(ctx, delivery); err != nil {
		d.logger.Error().Err(err).Str("url", url).Msg("failed to record pending delivery")
	}

	d.attempt(ctx, delivery)
	return delivery
}

// attempt performs one delivery round trip and persists the outcome.
// Retries call this with the stored row so the payload bytes, and
// therefore the signature, are identical across attempts.
func (d *Dispatcher) attempt(ctx context.Context, delivery *Delivery) {
	attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.post(attemptCtx, delivery.URL, delivery.Payload, map[string]string{
		"X-Event":    delivery.EventType,
		"X-Delivery": delivery.ID,
	})
	metrics.WebhookDeliveryDuration.Observe(time.Since(start).Seconds())

	delivery.Attempts++

	if err != nil {
		d.recordFailure(ctx, delivery, classifyTransportError(err, d.timeout))
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLen))
	status := resp.StatusCode
	delivery.ResponseStatus = &status
	delivery.ResponseBody = string(body)

	if status < 400 {
		now := time.Now().UTC()
		delivery.Status = StatusDelivered
		delivery.DeliveredAt = &now
		delivery.NextRetryAt = nil
		metrics.WebhookDeliveries.WithLabelValues(delivery.EventType, StatusDelivered).Inc()
		if err := d.store.Update(ctx, delivery); err != nil {
			d.logger.Error().Err(err).Str("delivery", delivery.ID).Msg("failed to mark delivered")
		}
		d.logger.Info().
			Str("url", delivery.URL).
			Str("event", delivery.EventType).
			Int("status", status).
			Msg("webhook delivered")
		return
	}

	d.recordFailure(ctx, delivery, fmt.Sprintf("http status %d", status))
}

func (d *Dispatcher) recordFailure(ctx context.Context, delivery *Delivery, errMsg string) {
	delivery.Status = StatusFailed
	delivery.ErrorMessage = truncate(errMsg, maxErrorLen)

	if delivery.Attempts < d.maxAttempts {
		next := time.Now().UTC().Add(retryBackoff(delivery.Attempts))
		delivery.NextRetryAt = &next
	} else {
		delivery.NextRetryAt = nil
	}

	metrics.WebhookDeliveries.WithLabelValues(delivery.EventType, StatusFailed).Inc()
	if err := d.store.Update(ctx, delivery); err != nil {
		d.logger.Error().Err(err).Str("delivery", delivery.ID).Msg("failed to record delivery failure")
	}
	d.logger.Error().
		Str("url", delivery.URL).
		Str("event", delivery.EventType).
		Int("attempt", delivery.Attempts).
		Str("error", delivery.ErrorMessage).
		Msg("webhook delivery failed")
}

// PingResult reports the outcome of a connectivity check.
type PingResult struct {
	Success    bool   `json:"success"`
	StatusCode *int   `json:"status_code"`
	Message    string `json:"message"`
}

// Ping sends a minimal signed test event to the endpoint with a short
// deadline. It classifies failures as timeout, connection error, or
// other, and never writes to the delivery ledger.
func (d *Dispatcher) Ping(ctx context.Context, url string, payload []byte) PingResult {
	pingCtx, cancel := context.WithTimeout(ctx, d.pingTimeout)
	defer cancel()

	req, err := d.newSignedRequest(pingCtx, url, payload, map[string]string{
		"X-Event": "test.ping",
	})
	if err != nil {
		return PingResult{Message: "Error: " + err.Error()}
	}

	// The ping bypasses the endpoint's circuit breaker: a tripped
	// endpoint can still be re-checked, and ping outcomes never count
	// toward the breaker state used by real deliveries.
	resp, err := d.client.Do(req)
	if err != nil {
		var netErr net.Error
		var opErr *net.OpError
		switch {
		case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
			return PingResult{Message: fmt.Sprintf("Webhook delivery timed out (%s)", d.pingTimeout)}
		case errors.As(err, &opErr) && opErr.Op == "dial":
			return PingResult{Message: "Could not connect to webhook URL"}
		default:
			return PingResult{Message: "Error: " + err.Error()}
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	status := resp.StatusCode
	if status < 400 {
		return PingResult{Success: true, StatusCode: &status, Message: "Test webhook delivered successfully"}
	}
	return PingResult{StatusCode: &status, Message: fmt.Sprintf("Webhook returned %d", status)}
}

// post signs the payload and POSTs it through the endpoint's circuit
// breaker. The breaker short-circuits hosts that keep failing at the
// transport level; an HTTP response of any status counts as reachable.
func (d *Dispatcher) post(ctx context.Context, url string, payload []byte, extraHeaders map[string]string) (*http.Response, error) {
	req, err := d.newSignedRequest(ctx, url, payload, extraHeaders)
	if err != nil {
		return nil, err
	}
	return d.breaker(url).Execute(func() (*http.Response, error) {
		return d.client.Do(req)
	})
}

// newSignedRequest builds the signed POST shared by deliveries and
// pings. The signature covers the payload bytes only.
func (d *Dispatcher) newSignedRequest(ctx context.Context, url string, payload []byte, extraHeaders map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(payload, d.secret))
	req.Header.Set("X-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (d *Dispatcher) breaker(url string) *gobreaker.CircuitBreaker[*http.Response] {
	d.mu.Lock()
	defer d.mu.Unlock()
	cb, ok := d.breakers[url]
	if !ok {
		cb = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
			Name:    url,
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 10
			},
		})
		d.breakers[url] = cb
	}
	return cb
}

// retryBackoff returns the wait before the next attempt. attempt is the
// number of attempts already made.
func retryBackoff(attempt int) time.Duration {
	schedule := []time.Duration{
		30 * time.Second,
		1 * time.Minute,
		5 * time.Minute,
		15 * time.Minute,
		1 * time.Hour,
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(schedule) {
		attempt = len(schedule)
	}
	return schedule[attempt-1]
}

func classifyTransportError(err error, timeout time.Duration) string {
	var netErr net.Error
	var opErr *net.OpError
	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		return fmt.Sprintf("timed out after %s", timeout)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "connection failed: " + err.Error()
	case errors.Is(err, gobreaker.ErrOpenState):
		return "circuit open: endpoint failing repeatedly"
	default:
		return err.Error()
	}
}
