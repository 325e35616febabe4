package repository

import (
	"context"
	"strings"

	"tutorlane/backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// WithPurchaserLock holds a Postgres advisory lock keyed by the purchaser
// identity for the duration of fn. This serializes finalization for one
// purchaser across all instances; the unique enrollment index remains the
// backstop if the lock is ever bypassed.
func (r *Repository) WithPurchaserLock(ctx context.Context, identityRef string, fn func(ctx context.Context) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0));`, identityRef); err != nil {
		return err
	}
	defer func() {
		// Unlock even when ctx is already canceled.
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock(hashtextextended($1, 0));`, identityRef)
	}()

	return fn(ctx)
}

// UpsertProfileByIdentity creates or refreshes the profile for a stable
// identity reference. Empty contact fields never overwrite stored values.
func (r *Repository) UpsertProfileByIdentity(ctx context.Context, identityRef string, defaults models.ProfileDefaults) (models.Profile, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO profiles (identity_ref, full_name, email, phone, postcode)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (identity_ref) DO UPDATE SET
	full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name),
	email = COALESCE(NULLIF(EXCLUDED.email, ''), profiles.email),
	phone = COALESCE(NULLIF(EXCLUDED.phone, ''), profiles.phone),
	postcode = COALESCE(NULLIF(EXCLUDED.postcode, ''), profiles.postcode),
	updated_at = now()
RETURNING id::text, identity_ref, full_name, email, phone, postcode, created_at, updated_at;`,
		strings.TrimSpace(identityRef),
		strings.TrimSpace(defaults.FullName),
		strings.TrimSpace(defaults.Email),
		strings.TrimSpace(defaults.Phone),
		strings.TrimSpace(defaults.Postcode),
	)

	var out models.Profile
	if err := row.Scan(
		&out.ID,
		&out.IdentityRef,
		&out.FullName,
		&out.Email,
		&out.Phone,
		&out.Postcode,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		return models.Profile{}, err
	}
	return out, nil
}
