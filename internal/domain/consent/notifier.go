package consent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/providercard/providercard/internal/domain/provider"
	"github.com/providercard/providercard/internal/platform/fhir"
	"github.com/providercard/providercard/internal/platform/webhook"
)

// Notifier fans change events out to every consented recipient with a
// webhook endpoint. It implements provider.ChangeNotifier.
type Notifier struct {
	repo       Repository
	dispatcher *webhook.Dispatcher
	logger     zerolog.Logger
}

func NewNotifier(repo Repository, dispatcher *webhook.Dispatcher, logger zerolog.Logger) *Notifier {
	return &Notifier{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "notifier").Logger(),
	}
}

type eventEnvelope struct {
	Event struct {
		ID        string `json:"id"`
		Type      string `json:"type"`
		Timestamp string `json:"timestamp"`
	} `json:"event"`
	Consent struct {
		ID        string   `json:"id"`
		Recipient string   `json:"recipient"`
		Scope     []string `json:"scope"`
	} `json:"consent"`
	Practitioner fhir.ResourceTree   `json:"practitioner"`
	Roles        []fhir.ResourceTree `json:"roles"`
}

// ProviderChanged satisfies provider.ChangeNotifier. Outcomes land in
// the delivery ledger; the triggering mutation never fails on them.
func (n *Notifier) ProviderChanged(ctx context.Context, p *provider.Provider, roles []*provider.Role, eventType string) {
	n.Fanout(ctx, p, roles, eventType)
}

// Fanout delivers one signed event per notifiable grant. Grants are
// independent: each gets its own goroutine, payload, and Delivery
// record, so a slow or failing recipient cannot affect the others.
func (n *Notifier) Fanout(ctx context.Context, p *provider.Provider, roles []*provider.Role, eventType string) []*webhook.Delivery {
	consents, err := n.repo.ListNotifiable(ctx, p.ID)
	if err != nil {
		n.logger.Error().Err(err).Str("provider_id", p.ID.String()).Msg("listing notifiable consents")
		return nil
	}
	if len(consents) == 0 {
		return nil
	}
	n.logger.Info().
		Int("recipients", len(consents)).
		Str("event", eventType).
		Str("provider_id", p.ID.String()).
		Msg("notifying consented recipients")

	// Resource trees are rendered once and shared read-only across
	// all recipients.
	practitionerTree := p.ToFHIR()
	roleTrees := make([]fhir.ResourceTree, 0, len(roles))
	for _, role := range roles {
		roleTrees = append(roleTrees, role.ToFHIR(p))
	}

	deliveries := make([]*webhook.Delivery, len(consents))
	var wg sync.WaitGroup
	for i, c := range consents {
		payload, err := n.buildPayload(c, practitionerTree, roleTrees, eventType)
		if err != nil {
			n.logger.Error().Err(err).Str("consent_id", c.ID.String()).Msg("building event payload")
			continue
		}
		wg.Add(1)
		go func(i int, url, consentID string) {
			defer wg.Done()
			deliveries[i] = n.dispatcher.Deliver(ctx, url, eventType, payload, &consentID)
		}(i, *c.WebhookURL, c.ID.String())
	}
	wg.Wait()

	out := deliveries[:0]
	for _, d := range deliveries {
		if d != nil {
			out = append(out, d)
		}
	}
	return out
}

func (n *Notifier) buildPayload(c *Consent, practitioner fhir.ResourceTree, roles []fhir.ResourceTree, eventType string) ([]byte, error) {
	var env eventEnvelope
	env.Event.ID = uuid.NewString()
	env.Event.Type = eventType
	env.Event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	env.Consent.ID = c.ID.String()
	env.Consent.Recipient = c.RecipientName
	env.Consent.Scope = c.Scope
	if env.Consent.Scope == nil {
		env.Consent.Scope = []string{}
	}
	env.Practitioner = practitioner
	env.Roles = roles
	return json.Marshal(&env)
}
