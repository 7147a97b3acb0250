package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func failedDelivery(url string, attempts int, nextRetry time.Time) *Delivery {
	return &Delivery{
		ID:          uuid.New().String(),
		URL:         url,
		EventType:   "provider.updated",
		Payload:     []byte(`{"event":{"type":"provider.updated"}}`),
		Status:      StatusFailed,
		Attempts:    attempts,
		NextRetryAt: &nextRetry,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRetryWorker_RedeliversDueFailure(t *testing.T) {
	var gotBody []byte
	var gotSig, gotTS string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature")
		gotTS = r.Header.Get("X-Timestamp")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewInMemoryDeliveryStore()
	d := failedDelivery(srv.URL, 1, time.Now().Add(-time.Minute))
	store.Create(context.Background(), d)

	worker := NewRetryWorker(store, testDispatcher(store), zerolog.Nop())
	worker.RetryDue(context.Background())

	updated, err := store.Get(context.Background(), d.ID)
	if err != nil {
		t.Fatalf("delivery lost: %v", err)
	}
	if updated.Status != StatusDelivered {
		t.Fatalf("expected delivered after retry, got %s (%s)", updated.Status, updated.ErrorMessage)
	}
	if updated.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", updated.Attempts)
	}
	if string(gotBody) != string(d.Payload) {
		t.Error("retry must re-send the exact stored payload bytes")
	}
	if !Verify(gotBody, gotSig, gotTS, "test-secret", DefaultTolerance) {
		t.Error("retried delivery carried an invalid signature")
	}
}

func TestRetryWorker_SkipsFutureAndExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no delivery should have been attempted")
	}))
	defer srv.Close()

	store := NewInMemoryDeliveryStore()
	store.Create(context.Background(), failedDelivery(srv.URL, 1, time.Now().Add(time.Hour)))
	store.Create(context.Background(), failedDelivery(srv.URL, 5, time.Now().Add(-time.Minute)))

	exhaustedNoRetry := failedDelivery(srv.URL, 3, time.Time{})
	exhaustedNoRetry.NextRetryAt = nil
	store.Create(context.Background(), exhaustedNoRetry)

	worker := NewRetryWorker(store, testDispatcher(store), zerolog.Nop())
	worker.RetryDue(context.Background())
}

func TestRetryWorker_ExhaustsNextRetryAfterFinalAttempt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := NewInMemoryDeliveryStore()
	d := failedDelivery(srv.URL, 4, time.Now().Add(-time.Minute))
	store.Create(context.Background(), d)

	worker := NewRetryWorker(store, testDispatcher(store), zerolog.Nop())
	worker.RetryDue(context.Background())

	updated, _ := store.Get(context.Background(), d.ID)
	if updated.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", updated.Status)
	}
	if updated.Attempts != 5 {
		t.Errorf("expected 5 attempts, got %d", updated.Attempts)
	}
	if updated.NextRetryAt != nil {
		t.Error("expected no further retry after the attempt ceiling")
	}

	// A second sweep must not pick it up again.
	due, _ := store.ListRetryable(context.Background(), time.Now().UTC(), worker.MaxAttempts, 10)
	if len(due) != 0 {
		t.Errorf("exhausted delivery still listed as retryable: %d", len(due))
	}
}
