package booking

import (
	"errors"
	"strings"
	"time"

	"tutorlane/backend/internal/models"
)

var (
	ErrPromoNotFound = errors.New("promo code not found")
	ErrPromoInactive = errors.New("promo code is inactive")
	ErrPromoExpired  = errors.New("promo code has expired")
)

// NormalizePromoCode uppercases and trims a code so lookups are
// case-insensitive.
func NormalizePromoCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidatePromo checks a stored promo code against the clock. It does not
// apply the discount; callers apply the returned percentage themselves.
// A code with no expiry never expires. Expiry is inclusive: a code validated
// at exactly its expiry instant is still accepted.
func ValidatePromo(promo models.PromoCode, now time.Time) error {
	if !promo.IsActive {
		return ErrPromoInactive
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return ErrPromoExpired
	}
	return nil
}

// ApplyPercentDiscount reduces an amount by a percentage, rounding to the
// nearest cent.
func ApplyPercentDiscount(amountCents int64, percent int64) int64 {
	if percent <= 0 || amountCents <= 0 {
		return amountCents
	}
	if percent > 100 {
		percent = 100
	}
	discounted := amountCents*(100-percent) + 50
	return discounted / 100
}
