package provider

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/providercard/providercard/internal/platform/auth"
	"github.com/providercard/providercard/internal/platform/fhir"
	"github.com/providercard/providercard/internal/platform/metrics"
)

// Event types handed to the ChangeNotifier on mutations.
const (
	EventProviderUpdated = "provider.updated"
	EventRoleCreated     = "role.created"
	EventRoleUpdated     = "role.updated"
	EventRoleDeleted     = "role.deleted"
)

// ChangeNotifier receives a provider's current state after every
// successful mutation. Implementations must not fail the mutation:
// delivery outcomes are recorded in their own ledger.
type ChangeNotifier interface {
	ProviderChanged(ctx context.Context, p *Provider, roles []*Role, eventType string)
}

// ValidationError carries the full list of structural violations found
// when a mutation's FHIR rendering failed validation. The mutation is
// rejected as a whole; nothing is persisted.
type ValidationError struct {
	Result *fhir.ValidationResult
}

func (e *ValidationError) Error() string { return e.Result.Err().Error() }

type Service struct {
	providers Repository
	roles     RoleRepository
	validator *fhir.Validator
	notifier  ChangeNotifier
	logger    zerolog.Logger
}

func NewService(providers Repository, roles RoleRepository, notifier ChangeNotifier, logger zerolog.Logger) *Service {
	return &Service{
		providers: providers,
		roles:     roles,
		validator: fhir.NewValidator(),
		notifier:  notifier,
		logger:    logger.With().Str("component", "provider").Logger(),
	}
}

// -- Registration and authentication --

func (s *Service) Register(ctx context.Context, email, password, firstName, lastName string) (*Provider, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("first_name and last_name are required")
	}
	if existing, _ := s.providers.GetByEmail(ctx, email); existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	p := &Provider{
		FHIRID:       uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    firstName,
		LastName:     lastName,
		Status:       StatusPendingVerification,
	}
	p.Completeness = CalculateCompleteness(p, nil)

	if err := s.validateTree(p.ToFHIR(), "Practitioner"); err != nil {
		return nil, err
	}
	if err := s.providers.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("provider_id", p.ID.String()).Msg("provider registered")
	return p, nil
}

func (s *Service) Authenticate(ctx context.Context, email, password string) (*Provider, error) {
	p, err := s.providers.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if !auth.CheckPassword(p.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials")
	}
	return p, nil
}

// -- Provider profile --

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.providers.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Provider, error) {
	return s.providers.GetByFHIRID(ctx, fhirID)
}

// UpdateProfile persists the provider after re-validating its FHIR
// rendering and recomputing the completeness score. Consented
// recipients are notified after the write succeeds.
func (s *Service) UpdateProfile(ctx context.Context, p *Provider) error {
	if p.FirstName == "" || p.LastName == "" {
		return fmt.Errorf("first_name and last_name are required")
	}

	roles, err := s.roles.ListByProvider(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Completeness = CalculateCompleteness(p, roles)

	if err := s.validateTree(p.ToFHIR(), "Practitioner"); err != nil {
		return err
	}
	if err := s.providers.Update(ctx, p); err != nil {
		return err
	}
	s.notify(ctx, p, roles, EventProviderUpdated)
	return nil
}

// -- Roles --

func (s *Service) CreateRole(ctx context.Context, role *Role) (*Role, error) {
	p, err := s.providers.GetByID(ctx, role.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("provider not found")
	}
	if role.FHIRID == "" {
		role.FHIRID = uuid.NewString()
	}
	role.Active = true

	if err := s.validateTree(role.ToFHIR(p), "PractitionerRole"); err != nil {
		return nil, err
	}
	if err := s.roles.Create(ctx, role); err != nil {
		return nil, err
	}
	if err := s.refreshCompleteness(ctx, p, EventRoleCreated); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) GetRole(ctx context.Context, id uuid.UUID) (*Role, error) {
	return s.roles.GetByID(ctx, id)
}

func (s *Service) GetRoleByFHIRID(ctx context.Context, fhirID string) (*Role, error) {
	return s.roles.GetByFHIRID(ctx, fhirID)
}

func (s *Service) ListRoles(ctx context.Context, providerID uuid.UUID) ([]*Role, error) {
	return s.roles.ListByProvider(ctx, providerID)
}

func (s *Service) UpdateRole(ctx context.Context, role *Role) error {
	existing, err := s.roles.GetByID(ctx, role.ID)
	if err != nil {
		return fmt.Errorf("role not found")
	}
	if existing.ProviderID != role.ProviderID {
		return fmt.Errorf("role does not belong to provider")
	}
	p, err := s.providers.GetByID(ctx, role.ProviderID)
	if err != nil {
		return err
	}
	role.FHIRID = existing.FHIRID

	if err := s.validateTree(role.ToFHIR(p), "PractitionerRole"); err != nil {
		return err
	}
	if err := s.roles.Update(ctx, role); err != nil {
		return err
	}
	return s.refreshCompleteness(ctx, p, EventRoleUpdated)
}

func (s *Service) DeleteRole(ctx context.Context, providerID, roleID uuid.UUID) error {
	existing, err := s.roles.GetByID(ctx, roleID)
	if err != nil {
		return fmt.Errorf("role not found")
	}
	if existing.ProviderID != providerID {
		return fmt.Errorf("role does not belong to provider")
	}
	if err := s.roles.Delete(ctx, roleID); err != nil {
		return err
	}
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return err
	}
	return s.refreshCompleteness(ctx, p, EventRoleDeleted)
}

// -- FHIR reads --

func (s *Service) PractitionerResource(ctx context.Context, fhirID string) (fhir.ResourceTree, error) {
	p, err := s.providers.GetByFHIRID(ctx, fhirID)
	if err != nil {
		return nil, err
	}
	return p.ToFHIR(), nil
}

func (s *Service) PractitionerRoleResource(ctx context.Context, fhirID string) (fhir.ResourceTree, error) {
	role, err := s.roles.GetByFHIRID(ctx, fhirID)
	if err != nil {
		return nil, err
	}
	p, err := s.providers.GetByID(ctx, role.ProviderID)
	if err != nil {
		return nil, err
	}
	return role.ToFHIR(p), nil
}

// SearchPractitionerRoles renders all roles owned by the practitioner
// with the given FHIR id as a searchset bundle. An unknown
// practitioner yields an empty bundle rather than an error.
func (s *Service) SearchPractitionerRoles(ctx context.Context, practitionerFHIRID, baseURL string) (fhir.ResourceTree, error) {
	resources := []fhir.ResourceTree{}
	p, err := s.providers.GetByFHIRID(ctx, practitionerFHIRID)
	if err == nil {
		roles, err := s.roles.ListByProvider(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, role := range roles {
			resources = append(resources, role.ToFHIR(p))
		}
	}
	return fhir.NewBundle(resources, "searchset", baseURL), nil
}

// ExportBundle renders the provider and all of its roles as a batch
// bundle with per-entry PUT requests, suitable for replay against any
// FHIR server.
func (s *Service) ExportBundle(ctx context.Context, providerID uuid.UUID, baseURL string) (fhir.ResourceTree, error) {
	p, err := s.providers.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	roles, err := s.roles.ListByProvider(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	resources := []fhir.ResourceTree{p.ToFHIR()}
	for _, role := range roles {
		resources = append(resources, role.ToFHIR(p))
	}
	return fhir.NewBatchBundle(resources, baseURL), nil
}

// ValidatePractitioner runs the structural validator against an
// arbitrary resource tree without touching storage.
func (s *Service) ValidatePractitioner(resource fhir.ResourceTree) *fhir.ValidationResult {
	result := s.validator.Validate(resource, "Practitioner")
	if !result.Valid {
		metrics.ValidationFailures.WithLabelValues("Practitioner").Inc()
	}
	return result
}

// -- internals --

func (s *Service) validateTree(tree fhir.ResourceTree, expectedType string) error {
	result := s.validator.Validate(tree, expectedType)
	if !result.Valid {
		metrics.ValidationFailures.WithLabelValues(expectedType).Inc()
		return &ValidationError{Result: result}
	}
	return nil
}

func (s *Service) refreshCompleteness(ctx context.Context, p *Provider, eventType string) error {
	roles, err := s.roles.ListByProvider(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Completeness = CalculateCompleteness(p, roles)
	if err := s.providers.Update(ctx, p); err != nil {
		return err
	}
	s.notify(ctx, p, roles, eventType)
	return nil
}

func (s *Service) notify(ctx context.Context, p *Provider, roles []*Role, eventType string) {
	if s.notifier == nil {
		return
	}
	s.notifier.ProviderChanged(ctx, p, roles, eventType)
}
