package provider

import (
	"time"

	"github.com/google/uuid"
)

// Provider statuses.
const (
	StatusPendingVerification = "pending_verification"
	StatusVerified            = "verified"
)

// Provider maps to the provider table. It is the canonical record a
// practitioner maintains about themselves.
type Provider struct {
	ID           uuid.UUID `db:"id" json:"id"`
	FHIRID       string    `db:"fhir_id" json:"fhir_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`

	NPI       *string `db:"npi" json:"npi,omitempty"`
	DEANumber *string `db:"dea_number" json:"dea_number,omitempty"`

	FirstName  string  `db:"first_name" json:"first_name"`
	MiddleName *string `db:"middle_name" json:"middle_name,omitempty"`
	LastName   string  `db:"last_name" json:"last_name"`
	Suffix     *string `db:"suffix" json:"suffix,omitempty"`
	Gender     *string `db:"gender" json:"gender,omitempty"`

	Phone        *string `db:"phone" json:"phone,omitempty"`
	AddressLine1 *string `db:"address_line1" json:"address_line1,omitempty"`
	AddressLine2 *string `db:"address_line2" json:"address_line2,omitempty"`
	City         *string `db:"city" json:"city,omitempty"`
	State        *string `db:"state" json:"state,omitempty"`
	PostalCode   *string `db:"postal_code" json:"postal_code,omitempty"`
	Country      *string `db:"country" json:"country,omitempty"`

	Status       string `db:"status" json:"status"`
	Completeness int    `db:"completeness" json:"completeness"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Insurance is one accepted-insurance descriptor on a role. The list is
// order-preserving and may contain duplicates.
type Insurance struct {
	Name     string `json:"name"`
	PlanType string `json:"plan_type,omitempty"`
}

// Role maps to the provider_role table. Roles are exclusively owned by
// one provider and removed with it.
type Role struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`
	FHIRID     string    `db:"fhir_id" json:"fhir_id"`
	Active     bool      `db:"active" json:"active"`

	SpecialtyCode    *string `db:"specialty_code" json:"specialty_code,omitempty"`
	SpecialtyDisplay *string `db:"specialty_display" json:"specialty_display,omitempty"`

	PracticeName         *string `db:"practice_name" json:"practice_name,omitempty"`
	PracticeAddressLine1 *string `db:"practice_address_line1" json:"practice_address_line1,omitempty"`

	LicenseState      *string    `db:"license_state" json:"license_state,omitempty"`
	LicenseNumber     *string    `db:"license_number" json:"license_number,omitempty"`
	LicenseExpiration *time.Time `db:"license_expiration" json:"license_expiration,omitempty"`

	AcceptedInsurances []Insurance `db:"accepted_insurances" json:"accepted_insurances,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CalculateCompleteness derives the 0-100 profile completeness score
// from the provider's own fields and its roles. The score is
// recomputed on every mutation and never treated as authoritative
// storage.
func CalculateCompleteness(p *Provider, roles []*Role) int {
	score := 0

	// Core identifiers
	if p.NPI != nil && *p.NPI != "" {
		score += 15
	}
	if p.FirstName != "" && p.LastName != "" {
		score += 10
	}

	// Contact info
	if p.Email != "" {
		score += 10
	}
	if p.Phone != nil && *p.Phone != "" {
		score += 5
	}

	// Address
	if strSet(p.AddressLine1) && strSet(p.City) && strSet(p.State) {
		score += 15
	}

	// Roles and specialties
	if len(roles) > 0 {
		score += 20
		hasSpecialty, hasLicense, hasInsurance := false, false, false
		for _, r := range roles {
			if strSet(r.SpecialtyCode) {
				hasSpecialty = true
			}
			if strSet(r.LicenseNumber) {
				hasLicense = true
			}
			if len(r.AcceptedInsurances) > 0 {
				hasInsurance = true
			}
		}
		if hasSpecialty {
			score += 10
		}
		if hasLicense {
			score += 10
		}
		if hasInsurance {
			score += 5
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

func strSet(s *string) bool {
	return s != nil && *s != ""
}
