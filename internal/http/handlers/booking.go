package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/http/middleware"
	"tutorlane/backend/internal/models"
	"tutorlane/backend/internal/pricing"
	"tutorlane/backend/internal/schedule"
)

type quoteRequest struct {
	ClassBracket string `json:"classBracket" validate:"required"`
	PurchaseType string `json:"purchaseType" validate:"required"`
	SessionCount int    `json:"sessionCount"`
	StartDate    string `json:"startDate"`
	PromoCode    string `json:"promoCode"`
}

type quoteResponse struct {
	pricing.Quote
	PromoCode          string   `json:"promoCode,omitempty"`
	PromoDiscountCents int64    `json:"promoDiscountCents,omitempty"`
	FinalCents         int64    `json:"finalCents"`
	SessionDates       []string `json:"sessionDates,omitempty"`
}

type validatePromoRequest struct {
	Code        string `json:"code" validate:"required"`
	AmountCents int64  `json:"amountCents"`
}

type validatePromoResponse struct {
	Code             string `json:"code"`
	DiscountPercent  int64  `json:"discountPercent"`
	DiscountCents    int64  `json:"discountCents,omitempty"`
	FinalAmountCents int64  `json:"finalAmountCents,omitempty"`
}

type initiatePaymentRequest struct {
	ClassBracket string `json:"classBracket" validate:"required"`
	PurchaseType string `json:"purchaseType" validate:"required"`
	SessionCount int    `json:"sessionCount"`
	PromoCode    string `json:"promoCode"`
	CustomerName string `json:"customerName"`
	RedirectURL  string `json:"redirectUrl" validate:"required,url"`
	CancelURL    string `json:"cancelUrl"`
}

type initiatePaymentResponse struct {
	AccessCode  string `json:"accessCode"`
	RedirectURL string `json:"redirectUrl"`
	AmountCents int64  `json:"amountCents"`
}

type finalizeContact struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Postcode string `json:"postcode"`
}

type finalizeBookingRequest struct {
	AccessCode string                 `json:"accessCode" validate:"required"`
	Contact    finalizeContact        `json:"contact"`
	Intent     *models.PurchaseIntent `json:"intent"`
}

type finalizeBookingResponse struct {
	Enrollment    models.CourseEnrollment `json:"enrollment"`
	Sessions      []models.SessionRequest `json:"sessions,omitempty"`
	AlreadyBooked bool                    `json:"alreadyBooked"`
}

// Quote prices a purchase server-side, optionally applying a promo code and
// previewing the generated session dates.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("quote", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "classBracket and purchaseType are required")
		return
	}

	quote, err := pricing.Resolve(req.ClassBracket, req.PurchaseType, req.SessionCount)
	if err != nil {
		logger.Warn("quote", "status", "invalid_purchase", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := quoteResponse{Quote: quote, FinalCents: quote.TotalCents}

	if strings.TrimSpace(req.PromoCode) != "" {
		ctx, cancel := h.withTimeout(r.Context())
		defer cancel()
		applied, err := h.applyPromo(ctx, req.PromoCode, quote.TotalCents)
		if err != nil {
			status, code := promoErrorStatus(err)
			writeErrorCode(w, status, code, err.Error())
			return
		}
		resp.PromoCode = applied.Code
		resp.PromoDiscountCents = applied.DiscountCents
		resp.FinalCents = applied.FinalCents
	}

	if req.PurchaseType == models.PurchaseTypeStarterPack && strings.TrimSpace(req.StartDate) != "" {
		start, err := schedule.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate, expected YYYY-MM-DD")
			return
		}
		dates := schedule.GenerateSessionDates(start, quote.SessionCount)
		resp.SessionDates = make([]string, 0, len(dates))
		for _, d := range dates {
			resp.SessionDates = append(resp.SessionDates, d.String())
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ValidatePromoCode checks a promo code and reports the discount it would
// apply to the given amount.
func (h *Handler) ValidatePromoCode(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)

	var req validatePromoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("validate_promo", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	applied, err := h.applyPromo(ctx, req.Code, req.AmountCents)
	if err != nil {
		status, code := promoErrorStatus(err)
		logger.Warn("validate_promo", "status", code, "code", booking.NormalizePromoCode(req.Code))
		writeErrorCode(w, status, code, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, validatePromoResponse{
		Code:             applied.Code,
		DiscountPercent:  applied.Percent,
		DiscountCents:    applied.DiscountCents,
		FinalAmountCents: applied.FinalCents,
	})
}

// InitiatePayment recomputes the purchase amount server-side and opens a
// hosted-redirect payment session for it. Client-supplied amounts are never
// trusted.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	identityRef, ok := middleware.IdentityRefFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !h.initiateLimiter.Allow(identityRef) {
		logger.Warn("initiate_payment", "status", "rate_limited")
		writeError(w, http.StatusTooManyRequests, "too many payment attempts, try again later")
		return
	}

	var req initiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("initiate_payment", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "classBracket, purchaseType and redirectUrl are required")
		return
	}

	quote, err := pricing.Resolve(req.ClassBracket, req.PurchaseType, req.SessionCount)
	if err != nil {
		logger.Warn("initiate_payment", "status", "invalid_purchase", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	amount := quote.TotalCents
	if strings.TrimSpace(req.PromoCode) != "" {
		applied, err := h.applyPromo(ctx, req.PromoCode, amount)
		if err != nil {
			status, code := promoErrorStatus(err)
			writeErrorCode(w, status, code, err.Error())
			return
		}
		amount = applied.FinalCents
	}

	email, _ := middleware.EmailFromContext(r.Context())
	session, err := h.initiator.Initiate(ctx, booking.InitiateParams{
		AmountCents:   amount,
		IdentityRef:   identityRef,
		CustomerName:  req.CustomerName,
		CustomerEmail: email,
		RedirectURL:   req.RedirectURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		var gwErr *booking.GatewayError
		if errors.As(err, &gwErr) {
			logger.Warn("initiate_payment", "status", "gateway_rejected", "codes", strings.Join(gwErr.Messages, ","))
			writeError(w, http.StatusBadGateway, gwErr.Error())
			return
		}
		if errors.Is(err, booking.ErrInvalidPurchase) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		logger.Error("initiate_payment", "status", "error", "error", err)
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	writeJSON(w, http.StatusCreated, initiatePaymentResponse{
		AccessCode:  session.AccessCode,
		RedirectURL: session.RedirectURL,
		AmountCents: amount,
	})
}

// FinalizeBooking verifies the completed payment and materializes the booking.
// The endpoint is safe to retry: a repeat call for an already-booked course
// returns the existing enrollment.
func (h *Handler) FinalizeBooking(w http.ResponseWriter, r *http.Request) {
	logger := h.loggerForRequest(r)
	identityRef, ok := middleware.IdentityRefFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req finalizeBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("finalize_booking", "status", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "accessCode is required")
		return
	}

	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()
	result, err := h.engine.Finalize(ctx, booking.FinalizeInput{
		AccessCode:  req.AccessCode,
		IdentityRef: identityRef,
		Contact: models.ProfileDefaults{
			FullName: strings.TrimSpace(req.Contact.FullName),
			Email:    strings.TrimSpace(req.Contact.Email),
			Phone:    strings.TrimSpace(req.Contact.Phone),
			Postcode: strings.TrimSpace(req.Contact.Postcode),
		},
		Intent: req.Intent,
	})
	if err != nil {
		h.handleFinalizeError(logger, w, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyBooked {
		status = http.StatusOK
	}
	writeJSON(w, status, finalizeBookingResponse{
		Enrollment:    result.Enrollment,
		Sessions:      result.Sessions,
		AlreadyBooked: result.AlreadyBooked,
	})
}

// handleFinalizeError maps the finalization error taxonomy onto HTTP codes.
// Declined payments are retryable by the purchaser; missing booking data and
// persistence conflicts mean the charge went through and support must step in.
func (h *Handler) handleFinalizeError(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrInvalidPurchase):
		writeErrorCode(w, http.StatusBadRequest, "invalid_purchase", err.Error())
	case errors.Is(err, booking.ErrPaymentDeclined):
		logger.Warn("finalize_booking", "status", "payment_declined", "error", err)
		writeErrorCode(w, http.StatusPaymentRequired, "payment_declined", "payment was declined, please try again")
	case errors.Is(err, booking.ErrBookingDataMissing):
		logger.Error("finalize_booking", "status", "booking_data_missing", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "booking_data_missing", "payment succeeded but booking details were lost, please contact support")
	case errors.Is(err, booking.ErrPersistenceConflict):
		logger.Error("finalize_booking", "status", "persistence_conflict", "error", err)
		writeErrorCode(w, http.StatusInternalServerError, "persistence_conflict", "payment succeeded but the booking could not be saved, please contact support")
	default:
		logger.Error("finalize_booking", "status", "error", "error", err)
		writeErrorCode(w, http.StatusBadGateway, "temporary_failure", "temporary failure, please retry")
	}
}

// timeNow is swapped in tests to pin promo expiry checks.
var timeNow = time.Now

type appliedPromo struct {
	Code          string
	Percent       int64
	DiscountCents int64
	FinalCents    int64
}

func (h *Handler) applyPromo(ctx context.Context, code string, amountCents int64) (appliedPromo, error) {
	promo, err := h.promos.GetPromoCodeByCode(ctx, code)
	if err != nil {
		return appliedPromo{}, err
	}
	if err := booking.ValidatePromo(promo, timeNow()); err != nil {
		return appliedPromo{}, err
	}
	final := booking.ApplyPercentDiscount(amountCents, promo.DiscountPercent)
	return appliedPromo{
		Code:          promo.Code,
		Percent:       promo.DiscountPercent,
		DiscountCents: amountCents - final,
		FinalCents:    final,
	}, nil
}

func promoErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrPromoNotFound):
		return http.StatusNotFound, "promo_not_found"
	case errors.Is(err, booking.ErrPromoInactive):
		return http.StatusUnprocessableEntity, "promo_inactive"
	case errors.Is(err, booking.ErrPromoExpired):
		return http.StatusUnprocessableEntity, "promo_expired"
	default:
		return http.StatusInternalServerError, "promo_lookup_failed"
	}
}
