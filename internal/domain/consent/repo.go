package consent

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consent, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Consent, error)
	// ListNotifiable returns the provider's active, unexpired grants
	// that carry a webhook endpoint. Fan-out targets exactly this set.
	ListNotifiable(ctx context.Context, providerID uuid.UUID) ([]*Consent, error)
	Update(ctx context.Context, c *Consent) error
}
