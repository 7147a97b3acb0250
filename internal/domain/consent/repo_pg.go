package consent

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const consentCols = `id, provider_id, recipient_name, recipient_type, recipient_id, webhook_url,
	status, scope, purpose, granted_at, expires_at, revoked_at, created_at, updated_at`

func scanConsent(row pgx.Row) (*Consent, error) {
	var c Consent
	err := row.Scan(
		&c.ID, &c.ProviderID, &c.RecipientName, &c.RecipientType, &c.RecipientID, &c.WebhookURL,
		&c.Status, &c.Scope, &c.Purpose, &c.GrantedAt, &c.ExpiresAt, &c.RevokedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Consent) error {
	c.ID = uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO consent (
			id, provider_id, recipient_name, recipient_type, recipient_id, webhook_url,
			status, scope, purpose, granted_at, expires_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		c.ID, c.ProviderID, c.RecipientName, c.RecipientType, c.RecipientID, c.WebhookURL,
		c.Status, c.Scope, c.Purpose, c.GrantedAt, c.ExpiresAt,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Consent, error) {
	return scanConsent(r.pool.QueryRow(ctx, `SELECT `+consentCols+` FROM consent WHERE id = $1`, id))
}

func (r *repoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Consent, error) {
	return r.list(ctx, `SELECT `+consentCols+` FROM consent WHERE provider_id = $1 ORDER BY created_at DESC`, providerID)
}

func (r *repoPG) ListNotifiable(ctx context.Context, providerID uuid.UUID) ([]*Consent, error) {
	return r.list(ctx, `
		SELECT `+consentCols+` FROM consent
		WHERE provider_id = $1
		  AND status = 'active'
		  AND webhook_url IS NOT NULL
		  AND (expires_at IS NULL OR expires_at > NOW())
		ORDER BY created_at`, providerID)
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*Consent, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consents []*Consent
	for rows.Next() {
		var c Consent
		if err := rows.Scan(
			&c.ID, &c.ProviderID, &c.RecipientName, &c.RecipientType, &c.RecipientID, &c.WebhookURL,
			&c.Status, &c.Scope, &c.Purpose, &c.GrantedAt, &c.ExpiresAt, &c.RevokedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		consents = append(consents, &c)
	}
	return consents, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, c *Consent) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE consent SET
			recipient_name=$2, recipient_type=$3, recipient_id=$4, webhook_url=$5,
			status=$6, scope=$7, purpose=$8, expires_at=$9, revoked_at=$10, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.RecipientName, c.RecipientType, c.RecipientID, c.WebhookURL,
		c.Status, c.Scope, c.Purpose, c.ExpiresAt, c.RevokedAt,
	)
	return err
}
