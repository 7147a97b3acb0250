package webhook

import (
	"context"
	"time"
)

// Delivery statuses. A row is created pending before the network call,
// then moved to exactly one terminal state per attempt. Failed rows
// with a future NextRetryAt are picked up by the retry worker.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

const (
	maxResponseBodyLen = 1000
	maxErrorLen        = 500
)

// Delivery is one recorded notification attempt for one recipient.
// Payload holds the exact bytes sent, so retries re-send a
// byte-identical body under the same signature.
type Delivery struct {
	ID             string     `json:"id"`
	ConsentID      *string    `json:"consent_id,omitempty"`
	URL            string     `json:"webhook_url"`
	EventType      string     `json:"event_type"`
	Payload        []byte     `json:"-"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	ResponseStatus *int       `json:"response_status,omitempty"`
	ResponseBody   string     `json:"response_body,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	NextRetryAt    *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// DeliveryStore is the persistence interface for the delivery ledger.
type DeliveryStore interface {
	Create(ctx context.Context, d *Delivery) error
	Update(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id string) (*Delivery, error)
	List(ctx context.Context, consentID string, limit, offset int) ([]*Delivery, int, error)
	// ListRetryable returns failed deliveries whose NextRetryAt is at or
	// before now and whose attempt count is below maxAttempts.
	ListRetryable(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*Delivery, error)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
