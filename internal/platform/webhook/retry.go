package webhook

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/providercard/providercard/internal/platform/metrics"
)

// RetryWorker re-attempts failed deliveries whose backoff has elapsed.
// Each retry re-sends the stored payload bytes, so recipients see the
// same signature on every attempt. After MaxAttempts the row keeps its
// failed status with next_retry_at cleared and is never picked up
// again.
type RetryWorker struct {
	store      DeliveryStore
	dispatcher *Dispatcher
	logger     zerolog.Logger

	// Interval controls how often failed deliveries are polled.
	Interval time.Duration
	// BatchSize is the max number of due deliveries fetched per tick.
	BatchSize int
	// MaxAttempts caps total attempts per delivery, first try included.
	MaxAttempts int
}

// NewRetryWorker creates a worker with production defaults.
func NewRetryWorker(store DeliveryStore, dispatcher *Dispatcher, logger zerolog.Logger) *RetryWorker {
	return &RetryWorker{
		store:       store,
		dispatcher:  dispatcher,
		logger:      logger,
		Interval:    15 * time.Second,
		BatchSize:   50,
		MaxAttempts: 5,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (w *RetryWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RetryDue(ctx)
		}
	}
}

// RetryDue re-attempts every due delivery once. Exposed for tests and
// for manual draining.
func (w *RetryWorker) RetryDue(ctx context.Context) {
	due, err := w.store.ListRetryable(ctx, time.Now().UTC(), w.MaxAttempts, w.BatchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to list retryable deliveries")
		return
	}

	for _, d := range due {
		metrics.WebhookRetries.Inc()
		w.logger.Info().
			Str("delivery", d.ID).
			Str("url", d.URL).
			Int("attempt", d.Attempts+1).
			Msg("retrying webhook delivery")
		w.dispatcher.attempt(ctx, d)
	}
}
