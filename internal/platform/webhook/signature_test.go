package webhook

import (
	"fmt"
	"strconv"
	"testing"
	"time"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	payload := []byte(`{"event":{"type":"provider.updated"}}`)
	secret := "signing-secret"

	sig := Sign(payload, secret)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	if !Verify(payload, sig, now, secret, DefaultTolerance) {
		t.Fatal("expected signature to verify")
	}
}

func TestVerify_TamperedPayload(t *testing.T) {
	payload := []byte(`{"event":{"type":"provider.updated"}}`)
	secret := "signing-secret"
	sig := Sign(payload, secret)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	for i := range payload {
		tampered := make([]byte, len(payload))
		copy(tampered, payload)
		tampered[i] ^= 0x01
		if Verify(tampered, sig, now, secret, DefaultTolerance) {
			t.Fatalf("expected verification to fail with byte %d flipped", i)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	payload := []byte(`{"ping":true}`)
	sig := Sign(payload, "secret-a")
	now := strconv.FormatInt(time.Now().Unix(), 10)

	if Verify(payload, sig, now, "secret-b", DefaultTolerance) {
		t.Fatal("expected verification to fail under a different secret")
	}
}

func TestVerify_StaleTimestamp(t *testing.T) {
	payload := []byte(`{"ping":true}`)
	secret := "signing-secret"
	sig := Sign(payload, secret)

	stale := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
	if Verify(payload, sig, stale, secret, DefaultTolerance) {
		t.Fatal("expected stale timestamp to fail even with a correct signature")
	}

	future := strconv.FormatInt(time.Now().Add(10*time.Minute).Unix(), 10)
	if Verify(payload, sig, future, secret, DefaultTolerance) {
		t.Fatal("expected far-future timestamp to fail")
	}
}

func TestVerify_UnparsableTimestamp(t *testing.T) {
	payload := []byte(`{"ping":true}`)
	secret := "signing-secret"
	sig := Sign(payload, secret)

	for _, ts := range []string{"", "not-a-number", "12.5"} {
		if Verify(payload, sig, ts, secret, DefaultTolerance) {
			t.Fatalf("expected timestamp %q to fail verification", ts)
		}
	}
}

func TestSign_Deterministic(t *testing.T) {
	payload := []byte(`{"a":1}`)
	if Sign(payload, "s") != Sign(payload, "s") {
		t.Fatal("expected identical signatures for identical input")
	}
}

func TestRetryBackoff_Schedule(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 30 * time.Second},
		{2, 1 * time.Minute},
		{3, 5 * time.Minute},
		{4, 15 * time.Minute},
		{5, 1 * time.Hour},
		{9, 1 * time.Hour},
		{0, 30 * time.Second},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("attempt_%d", tc.attempt), func(t *testing.T) {
			if got := retryBackoff(tc.attempt); got != tc.want {
				t.Errorf("retryBackoff(%d) = %s, want %s", tc.attempt, got, tc.want)
			}
		})
	}
}
