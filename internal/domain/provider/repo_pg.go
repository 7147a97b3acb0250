package provider

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// -- Provider Repository --

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const providerCols = `id, fhir_id, email, password_hash, npi, dea_number,
	first_name, middle_name, last_name, suffix, gender,
	phone, address_line1, address_line2, city, state, postal_code, country,
	status, completeness, created_at, updated_at`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(
		&p.ID, &p.FHIRID, &p.Email, &p.PasswordHash, &p.NPI, &p.DEANumber,
		&p.FirstName, &p.MiddleName, &p.LastName, &p.Suffix, &p.Gender,
		&p.Phone, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode, &p.Country,
		&p.Status, &p.Completeness, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Provider) error {
	p.ID = uuid.New()
	if p.FHIRID == "" {
		p.FHIRID = p.ID.String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider (
			id, fhir_id, email, password_hash, npi, dea_number,
			first_name, middle_name, last_name, suffix, gender,
			phone, address_line1, address_line2, city, state, postal_code, country,
			status, completeness
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		p.ID, p.FHIRID, p.Email, p.PasswordHash, p.NPI, p.DEANumber,
		p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.Gender,
		p.Phone, p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Country,
		p.Status, p.Completeness,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE id = $1`, id))
}

func (r *repoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE fhir_id = $1`, fhirID))
}

func (r *repoPG) GetByEmail(ctx context.Context, email string) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE email = $1`, email))
}

func (r *repoPG) GetByNPI(ctx context.Context, npi string) (*Provider, error) {
	return scanProvider(r.pool.QueryRow(ctx, `SELECT `+providerCols+` FROM provider WHERE npi = $1`, npi))
}

func (r *repoPG) Update(ctx context.Context, p *Provider) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE provider SET
			email=$2, npi=$3, dea_number=$4,
			first_name=$5, middle_name=$6, last_name=$7, suffix=$8, gender=$9,
			phone=$10, address_line1=$11, address_line2=$12, city=$13, state=$14, postal_code=$15, country=$16,
			status=$17, completeness=$18, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Email, p.NPI, p.DEANumber,
		p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.Gender,
		p.Phone, p.AddressLine1, p.AddressLine2, p.City, p.State, p.PostalCode, p.Country,
		p.Status, p.Completeness,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Provider, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM provider`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+providerCols+` FROM provider ORDER BY last_name, first_name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var providers []*Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(
			&p.ID, &p.FHIRID, &p.Email, &p.PasswordHash, &p.NPI, &p.DEANumber,
			&p.FirstName, &p.MiddleName, &p.LastName, &p.Suffix, &p.Gender,
			&p.Phone, &p.AddressLine1, &p.AddressLine2, &p.City, &p.State, &p.PostalCode, &p.Country,
			&p.Status, &p.Completeness, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		providers = append(providers, &p)
	}
	return providers, total, rows.Err()
}

// -- Role Repository --

type roleRepoPG struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) RoleRepository {
	return &roleRepoPG{pool: pool}
}

const roleCols = `id, provider_id, fhir_id, active,
	specialty_code, specialty_display, practice_name, practice_address_line1,
	license_state, license_number, license_expiration, accepted_insurances,
	created_at, updated_at`

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(
		&role.ID, &role.ProviderID, &role.FHIRID, &role.Active,
		&role.SpecialtyCode, &role.SpecialtyDisplay, &role.PracticeName, &role.PracticeAddressLine1,
		&role.LicenseState, &role.LicenseNumber, &role.LicenseExpiration, &role.AcceptedInsurances,
		&role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepoPG) Create(ctx context.Context, role *Role) error {
	role.ID = uuid.New()
	if role.FHIRID == "" {
		role.FHIRID = role.ID.String()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_role (
			id, provider_id, fhir_id, active,
			specialty_code, specialty_display, practice_name, practice_address_line1,
			license_state, license_number, license_expiration, accepted_insurances
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		role.ID, role.ProviderID, role.FHIRID, role.Active,
		role.SpecialtyCode, role.SpecialtyDisplay, role.PracticeName, role.PracticeAddressLine1,
		role.LicenseState, role.LicenseNumber, role.LicenseExpiration, role.AcceptedInsurances,
	)
	return err
}

func (r *roleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleCols+` FROM provider_role WHERE id = $1`, id))
}

func (r *roleRepoPG) GetByFHIRID(ctx context.Context, fhirID string) (*Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleCols+` FROM provider_role WHERE fhir_id = $1`, fhirID))
}

func (r *roleRepoPG) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleCols+` FROM provider_role WHERE provider_id = $1 ORDER BY created_at`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(
			&role.ID, &role.ProviderID, &role.FHIRID, &role.Active,
			&role.SpecialtyCode, &role.SpecialtyDisplay, &role.PracticeName, &role.PracticeAddressLine1,
			&role.LicenseState, &role.LicenseNumber, &role.LicenseExpiration, &role.AcceptedInsurances,
			&role.CreatedAt, &role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func (r *roleRepoPG) Update(ctx context.Context, role *Role) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE provider_role SET
			active=$2, specialty_code=$3, specialty_display=$4,
			practice_name=$5, practice_address_line1=$6,
			license_state=$7, license_number=$8, license_expiration=$9,
			accepted_insurances=$10, updated_at=NOW()
		WHERE id = $1`,
		role.ID, role.Active, role.SpecialtyCode, role.SpecialtyDisplay,
		role.PracticeName, role.PracticeAddressLine1,
		role.LicenseState, role.LicenseNumber, role.LicenseExpiration,
		role.AcceptedInsurances,
	)
	return err
}

func (r *roleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM provider_role WHERE id = $1`, id)
	return err
}
