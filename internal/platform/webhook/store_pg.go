package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type deliveryStorePG struct{ pool *pgxpool.Pool }

// NewDeliveryStorePG creates a PostgreSQL-backed delivery ledger.
func NewDeliveryStorePG(pool *pgxpool.Pool) DeliveryStore {
	return &deliveryStorePG{pool: pool}
}

const deliveryCols = `id, consent_id, webhook_url, event_type, payload, status,
	attempts, response_status, response_body, error_message, next_retry_at,
	created_at, delivered_at`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.ConsentID, &d.URL, &d.EventType, &d.Payload, &d.Status,
		&d.Attempts, &d.ResponseStatus, &d.ResponseBody, &d.ErrorMessage, &d.NextRetryAt,
		&d.CreatedAt, &d.DeliveredAt)
	return &d, err
}

func (s *deliveryStorePG) Create(ctx context.Context, d *Delivery) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO webhook_delivery (id, consent_id, webhook_url, event_type, payload, status, attempts)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		d.ID, d.ConsentID, d.URL, d.EventType, d.Payload, d.Status, d.Attempts)
	return err
}

func (s *deliveryStorePG) Update(ctx context.Context, d *Delivery) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE webhook_delivery SET status=$2, attempts=$3, response_status=$4,
			response_body=$5, error_message=$6, next_retry_at=$7, delivered_at=$8
		WHERE id = $1`,
		d.ID, d.Status, d.Attempts, d.ResponseStatus,
		d.ResponseBody, d.ErrorMessage, d.NextRetryAt, d.DeliveredAt)
	return err
}

func (s *deliveryStorePG) Get(ctx context.Context, id string) (*Delivery, error) {
	return scanDelivery(s.pool.QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM webhook_delivery WHERE id = $1`, id))
}

func (s *deliveryStorePG) List(ctx context.Context, consentID string, limit, offset int) ([]*Delivery, int, error) {
	where := ``
	args := []interface{}{}
	if consentID != "" {
		where = ` WHERE consent_id = $1`
		args = append(args, consentID)
	}

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM webhook_delivery`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT `+deliveryCols+` FROM webhook_delivery`+where+
		` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (s *deliveryStorePG) ListRetryable(ctx context.Context, now time.Time, maxAttempts, limit int) ([]*Delivery, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+deliveryCols+` FROM webhook_delivery
		WHERE status = $1 AND next_retry_at IS NOT NULL AND next_retry_at <= $2 AND attempts < $3
		ORDER BY next_retry_at ASC
		LIMIT $4`,
		StatusFailed, now, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
