package consent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/providercard/providercard/internal/platform/webhook"
)

type Service struct {
	repo       Repository
	dispatcher *webhook.Dispatcher
	deliveries webhook.DeliveryStore
	logger     zerolog.Logger
}

func NewService(repo Repository, dispatcher *webhook.Dispatcher, deliveries webhook.DeliveryStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		deliveries: deliveries,
		logger:     logger.With().Str("component", "consent").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, c *Consent) error {
	if c.RecipientName == "" || c.RecipientType == "" {
		return fmt.Errorf("recipient_name and recipient_type are required")
	}
	if c.ProviderID == uuid.Nil {
		return fmt.Errorf("provider_id is required")
	}
	c.Status = StatusActive
	c.GrantedAt = time.Now().UTC()
	c.RevokedAt = nil
	if c.Scope == nil {
		c.Scope = []string{}
	}
	return s.repo.Create(ctx, c)
}

// Get returns the consent only if it belongs to the provider.
func (s *Service) Get(ctx context.Context, providerID, id uuid.UUID) (*Consent, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil || c.ProviderID != providerID {
		return nil, fmt.Errorf("consent not found")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, providerID uuid.UUID) ([]*Consent, error) {
	return s.repo.ListByProvider(ctx, providerID)
}

// Update modifies recipient details, scope, purpose, and expiry.
// Status transitions are not writable here; revocation has its own
// operation and is one-way.
func (s *Service) Update(ctx context.Context, providerID uuid.UUID, updated *Consent) (*Consent, error) {
	c, err := s.Get(ctx, providerID, updated.ID)
	if err != nil {
		return nil, err
	}
	if updated.RecipientName != "" {
		c.RecipientName = updated.RecipientName
	}
	if updated.RecipientType != "" {
		c.RecipientType = updated.RecipientType
	}
	if updated.RecipientID != nil {
		c.RecipientID = updated.RecipientID
	}
	if updated.WebhookURL != nil {
		c.WebhookURL = updated.WebhookURL
	}
	if updated.Scope != nil {
		c.Scope = updated.Scope
	}
	if updated.Purpose != nil {
		c.Purpose = updated.Purpose
	}
	if updated.ExpiresAt != nil {
		c.ExpiresAt = updated.ExpiresAt
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Revoke performs the one-way active to revoked transition. Revoking
// an already revoked or expired grant is rejected.
func (s *Service) Revoke(ctx context.Context, providerID, id uuid.UUID) (*Consent, error) {
	c, err := s.Get(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusRevoked {
		return nil, fmt.Errorf("consent already revoked")
	}
	if c.Status == StatusExpired || c.ExpiredAt(time.Now().UTC()) {
		return nil, fmt.Errorf("consent is expired")
	}

	now := time.Now().UTC()
	c.Status = StatusRevoked
	c.RevokedAt = &now
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().Str("consent_id", c.ID.String()).Msg("consent revoked")
	return c, nil
}

// TestWebhook sends a signed ping to the grant's endpoint. The result
// distinguishes delivered, rejected, and unreachable outcomes and is
// never recorded in the delivery ledger.
func (s *Service) TestWebhook(ctx context.Context, providerID, id uuid.UUID) (webhook.PingResult, error) {
	c, err := s.Get(ctx, providerID, id)
	if err != nil {
		return webhook.PingResult{}, err
	}
	if c.WebhookURL == nil || *c.WebhookURL == "" {
		return webhook.PingResult{}, fmt.Errorf("no webhook URL configured")
	}

	payload, err := json.Marshal(map[string]interface{}{
		"event": map[string]interface{}{
			"id":        uuid.NewString(),
			"type":      "test.ping",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"message": "This is a test webhook from ProviderCard",
	})
	if err != nil {
		return webhook.PingResult{}, err
	}
	return s.dispatcher.Ping(ctx, *c.WebhookURL, payload), nil
}

// ListDeliveries returns the most recent deliveries across all of the
// provider's grants, newest first.
func (s *Service) ListDeliveries(ctx context.Context, providerID uuid.UUID, limit int) ([]*webhook.Delivery, error) {
	consents, err := s.repo.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var all []*webhook.Delivery
	for _, c := range consents {
		deliveries, _, err := s.deliveries.List(ctx, c.ID.String(), limit, 0)
		if err != nil {
			return nil, err
		}
		all = append(all, deliveries...)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
