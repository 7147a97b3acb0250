package consent

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/providercard/providercard/internal/domain/provider"
	"github.com/providercard/providercard/internal/platform/webhook"
)

func testProvider() (*provider.Provider, []*provider.Role) {
	p := &provider.Provider{
		ID:        uuid.New(),
		FHIRID:    "prac-1",
		Email:     "jane@clinic.example",
		FirstName: "Jane",
		LastName:  "Rivera",
		Status:    "verified",
	}
	roles := []*provider.Role{{
		FHIRID:        "role-1",
		ProviderID:    p.ID,
		Active:        true,
		SpecialtyCode: strPtr("207Q00000X"),
	}}
	return p, roles
}

func newTestNotifier(repo Repository) (*Notifier, *webhook.InMemoryDeliveryStore) {
	store := webhook.NewInMemoryDeliveryStore()
	dispatcher := webhook.NewDispatcher(store, "test-secret", zerolog.Nop(),
		webhook.WithTimeouts(300*time.Millisecond, 100*time.Millisecond))
	return NewNotifier(repo, dispatcher, zerolog.Nop()), store
}

func addGrant(t *testing.T, repo *mockRepo, providerID uuid.UUID, name, url string) *Consent {
	t.Helper()
	grant := &Consent{
		ID:            uuid.New(),
		ProviderID:    providerID,
		RecipientName: name,
		RecipientType: "payer",
		WebhookURL:    &url,
		Status:        StatusActive,
		Scope:         []string{"Practitioner.read"},
		GrantedAt:     time.Now().UTC(),
	}
	repo.consents[grant.ID] = grant
	return grant
}

func TestFanout_IsolatesRecipientFailures(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer slow.Close()

	repo := newMockRepo()
	p, roles := testProvider()
	okGrant := addGrant(t, repo, p.ID, "Healthy Payer", ok.URL)
	slowGrant := addGrant(t, repo, p.ID, "Slow Payer", slow.URL)

	notifier, _ := newTestNotifier(repo)
	deliveries := notifier.Fanout(context.Background(), p, roles, "provider.updated")

	if len(deliveries) != 2 {
		t.Fatalf("deliveries = %d, want one per grant", len(deliveries))
	}

	byConsent := map[string]*webhook.Delivery{}
	for _, d := range deliveries {
		byConsent[*d.ConsentID] = d
	}

	delivered := byConsent[okGrant.ID.String()]
	if delivered == nil || delivered.Status != webhook.StatusDelivered {
		t.Errorf("healthy recipient delivery = %+v, want delivered", delivered)
	}

	failed := byConsent[slowGrant.ID.String()]
	if failed == nil || failed.Status != webhook.StatusFailed {
		t.Fatalf("slow recipient delivery = %+v, want failed", failed)
	}
	if !strings.Contains(failed.ErrorMessage, "timed out") {
		t.Errorf("error = %q, want timeout classification", failed.ErrorMessage)
	}
}

func TestFanout_EnvelopeAndSignature(t *testing.T) {
	var received struct {
		body      []byte
		signature string
		timestamp string
		event     string
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.body, _ = io.ReadAll(r.Body)
		received.signature = r.Header.Get("X-Signature")
		received.timestamp = r.Header.Get("X-Timestamp")
		received.event = r.Header.Get("X-Event")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := newMockRepo()
	p, roles := testProvider()
	grant := addGrant(t, repo, p.ID, "Acme Health", srv.URL)

	notifier, _ := newTestNotifier(repo)
	deliveries := notifier.Fanout(context.Background(), p, roles, "provider.updated")
	if len(deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(deliveries))
	}

	if received.event != "provider.updated" {
		t.Errorf("X-Event = %q", received.event)
	}
	if !webhook.Verify(received.body, received.signature, received.timestamp, "test-secret", webhook.DefaultTolerance) {
		t.Error("received payload does not verify against its signature")
	}

	var env eventEnvelope
	if err := json.Unmarshal(received.body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Event.Type != "provider.updated" || env.Event.ID == "" {
		t.Errorf("unexpected event header: %+v", env.Event)
	}
	if env.Consent.ID != grant.ID.String() || env.Consent.Recipient != "Acme Health" {
		t.Errorf("unexpected consent block: %+v", env.Consent)
	}
	if env.Practitioner["id"] != "prac-1" {
		t.Errorf("practitioner id = %v", env.Practitioner["id"])
	}
	if len(env.Roles) != 1 || env.Roles[0]["id"] != "role-1" {
		t.Errorf("roles = %v", env.Roles)
	}
}

func TestFanout_NoNotifiableGrants(t *testing.T) {
	repo := newMockRepo()
	p, roles := testProvider()

	// one revoked grant with a URL, one active grant without
	grant := addGrant(t, repo, p.ID, "Revoked Payer", "http://example.invalid/hook")
	grant.Status = StatusRevoked
	active := addGrant(t, repo, p.ID, "No Webhook", "")
	active.WebhookURL = nil

	notifier, store := newTestNotifier(repo)
	deliveries := notifier.Fanout(context.Background(), p, roles, "provider.updated")
	if len(deliveries) != 0 {
		t.Fatalf("deliveries = %d, want 0", len(deliveries))
	}
	_, total, _ := store.List(context.Background(), "", 10, 0)
	if total != 0 {
		t.Fatalf("ledger rows = %d, want 0", total)
	}
}
