package pricing

import (
	"errors"
	"fmt"
)

const (
	PurchaseTypeTrial       = "TRIAL"
	PurchaseTypeStarterPack = "STARTER_PACK"
)

const (
	BracketYears2To6   = "2-6"
	BracketYears7To9   = "7-9"
	BracketYears10To12 = "10-12"
)

// Fixed business rule: per-session base price in cents by class bracket.
var perSessionCentsByBracket = map[string]int64{
	BracketYears2To6:   2200,
	BracketYears7To9:   2500,
	BracketYears10To12: 2700,
}

// StarterPackDiscountCents is applied once per pack, not per session.
const StarterPackDiscountCents int64 = 500

var (
	ErrInvalidBracket      = errors.New("invalid class bracket")
	ErrInvalidPurchaseType = errors.New("invalid purchase type")
	ErrInvalidSessionCount = errors.New("session count must be positive")
)

// Quote represents quote.
type Quote struct {
	ClassBracket      string `json:"classBracket"`
	PurchaseType      string `json:"purchaseType"`
	SessionCount      int    `json:"sessionCount"`
	PerSessionCents   int64  `json:"perSessionCents"`
	SubtotalCents     int64  `json:"subtotalCents"`
	PackDiscountCents int64  `json:"packDiscountCents"`
	TotalCents        int64  `json:"totalCents"`
}

// Resolve computes the price for a purchase. No silent defaults: an unknown
// bracket or purchase type is an error.
func Resolve(classBracket, purchaseType string, sessionCount int) (Quote, error) {
	perSession, ok := perSessionCentsByBracket[classBracket]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidBracket, classBracket)
	}

	switch purchaseType {
	case PurchaseTypeTrial:
		return Quote{
			ClassBracket:    classBracket,
			PurchaseType:    purchaseType,
			SessionCount:    1,
			PerSessionCents: perSession,
			SubtotalCents:   perSession,
			TotalCents:      perSession,
		}, nil
	case PurchaseTypeStarterPack:
		if sessionCount <= 0 {
			return Quote{}, fmt.Errorf("%w: %d", ErrInvalidSessionCount, sessionCount)
		}
		subtotal := perSession * int64(sessionCount)
		return Quote{
			ClassBracket:      classBracket,
			PurchaseType:      purchaseType,
			SessionCount:      sessionCount,
			PerSessionCents:   perSession,
			SubtotalCents:     subtotal,
			PackDiscountCents: StarterPackDiscountCents,
			TotalCents:        subtotal - StarterPackDiscountCents,
		}, nil
	default:
		return Quote{}, fmt.Errorf("%w: %q", ErrInvalidPurchaseType, purchaseType)
	}
}
