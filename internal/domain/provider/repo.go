package provider

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Provider, error)
	GetByEmail(ctx context.Context, email string) (*Provider, error)
	GetByNPI(ctx context.Context, npi string) (*Provider, error)
	Update(ctx context.Context, p *Provider) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Provider, int, error)
}

type RoleRepository interface {
	Create(ctx context.Context, r *Role) error
	GetByID(ctx context.Context, id uuid.UUID) (*Role, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Role, error)
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Role, error)
	Update(ctx context.Context, r *Role) error
	Delete(ctx context.Context, id uuid.UUID) error
}
