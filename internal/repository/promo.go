package repository

import (
	"context"
	"errors"

	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/models"

	"github.com/jackc/pgx/v5"
)

// GetPromoCodeByCode looks up a promo code case-insensitively.
func (r *Repository) GetPromoCodeByCode(ctx context.Context, code string) (models.PromoCode, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id::text, code, discount_percent, is_active, expires_at, created_at, updated_at
FROM promo_codes
WHERE upper(code) = $1;`, booking.NormalizePromoCode(code))

	var out models.PromoCode
	if err := row.Scan(
		&out.ID,
		&out.Code,
		&out.DiscountPercent,
		&out.IsActive,
		&out.ExpiresAt,
		&out.CreatedAt,
		&out.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.PromoCode{}, booking.ErrPromoNotFound
		}
		return models.PromoCode{}, err
	}
	return out, nil
}
