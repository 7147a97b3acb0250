package consent

import (
	"time"

	"github.com/google/uuid"
)

// Consent statuses. Revoked and expired are terminal: a grant can
// never return to active, a new one must be created instead.
const (
	StatusActive  = "active"
	StatusRevoked = "revoked"
	StatusExpired = "expired"
)

// Consent is an explicit, revocable authorization for a named
// recipient to read a provider's data and receive change
// notifications at an optional webhook endpoint.
type Consent struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ProviderID uuid.UUID `db:"provider_id" json:"provider_id"`

	RecipientName string  `db:"recipient_name" json:"recipient_name"`
	RecipientType string  `db:"recipient_type" json:"recipient_type"`
	RecipientID   *string `db:"recipient_id" json:"recipient_id,omitempty"`
	WebhookURL    *string `db:"webhook_url" json:"recipient_webhook_url,omitempty"`

	Status  string   `db:"status" json:"status"`
	Scope   []string `db:"scope" json:"scope"`
	Purpose *string  `db:"purpose" json:"purpose,omitempty"`

	GrantedAt time.Time  `db:"granted_at" json:"granted_at"`
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	RevokedAt *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// ExpiredAt reports whether the grant's expiry has passed at the
// given instant. Grants without an expiry never expire.
func (c *Consent) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
