package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tutorlane/backend/internal/auth"
	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/config"
	"tutorlane/backend/internal/http/middleware"
	"tutorlane/backend/internal/models"
)

const testJWTSecret = "test-secret"

type fakeEngine struct {
	result booking.FinalizeResult
	err    error
	inputs []booking.FinalizeInput
}

func (f *fakeEngine) Finalize(ctx context.Context, in booking.FinalizeInput) (booking.FinalizeResult, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return booking.FinalizeResult{}, f.err
	}
	return f.result, nil
}

type fakeInitiator struct {
	session booking.RedirectSession
	err     error
	params  []booking.InitiateParams
}

func (f *fakeInitiator) Initiate(ctx context.Context, params booking.InitiateParams) (booking.RedirectSession, error) {
	f.params = append(f.params, params)
	if f.err != nil {
		return booking.RedirectSession{}, f.err
	}
	return f.session, nil
}

type fakePromoStore struct {
	promos map[string]models.PromoCode
}

func (f *fakePromoStore) GetPromoCodeByCode(ctx context.Context, code string) (models.PromoCode, error) {
	promo, ok := f.promos[booking.NormalizePromoCode(code)]
	if !ok {
		return models.PromoCode{}, booking.ErrPromoNotFound
	}
	return promo, nil
}

func newTestHandler(engine *fakeEngine, initiator *fakeInitiator, promos *fakePromoStore) *Handler {
	if promos == nil {
		promos = &fakePromoStore{}
	}
	return New(engine, initiator, promos, &config.Config{JWTSecret: testJWTSecret}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func authedRequest(t *testing.T, method, target string, body interface{}, identityRef string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	token, err := auth.SignAccessToken(testJWTSecret, identityRef, "sam@example.com")
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveAuthed(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	middleware.AuthMiddleware(testJWTSecret)(h).ServeHTTP(resp, req)
	return resp
}

// TestQuoteWithPromoAndDates verifies quote with promo and dates behavior.
func TestQuoteWithPromoAndDates(t *testing.T) {
	promos := &fakePromoStore{promos: map[string]models.PromoCode{
		"SAVE10": {Code: "SAVE10", DiscountPercent: 10, IsActive: true},
	}}
	h := newTestHandler(nil, nil, promos)

	body, _ := json.Marshal(quoteRequest{
		ClassBracket: "7-9",
		PurchaseType: models.PurchaseTypeStarterPack,
		SessionCount: 6,
		StartDate:    "2024-03-08",
		PromoCode:    "save10",
	})
	req := httptest.NewRequest(http.MethodPost, "/bookings/quote", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.Quote(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	var payload quoteResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.TotalCents != 14500 {
		t.Fatalf("expected total 14500, got %d", payload.TotalCents)
	}
	if payload.FinalCents != 13050 {
		t.Fatalf("expected final 13050 after 10%% promo, got %d", payload.FinalCents)
	}
	if payload.PromoDiscountCents != 1450 {
		t.Fatalf("expected discount 1450, got %d", payload.PromoDiscountCents)
	}
	if len(payload.SessionDates) != 6 {
		t.Fatalf("expected 6 session dates, got %d", len(payload.SessionDates))
	}
	if payload.SessionDates[0] != "2024-03-08" {
		t.Fatalf("expected first date 2024-03-08, got %s", payload.SessionDates[0])
	}
	for _, d := range payload.SessionDates {
		if d == "2024-03-10" {
			t.Fatal("session dates must skip Sunday 2024-03-10")
		}
	}
}

// TestQuoteUnknownBracket verifies quote unknown bracket behavior.
func TestQuoteUnknownBracket(t *testing.T) {
	h := newTestHandler(nil, nil, nil)

	body, _ := json.Marshal(quoteRequest{ClassBracket: "1-1", PurchaseType: models.PurchaseTypeTrial})
	req := httptest.NewRequest(http.MethodPost, "/bookings/quote", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.Quote(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", resp.Code, resp.Body.String())
	}
}

// TestValidatePromoCodeExpired verifies validate promo code expired behavior.
func TestValidatePromoCodeExpired(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	promos := &fakePromoStore{promos: map[string]models.PromoCode{
		"OLD": {Code: "OLD", DiscountPercent: 20, IsActive: true, ExpiresAt: &expired},
	}}
	h := newTestHandler(nil, nil, promos)

	body, _ := json.Marshal(validatePromoRequest{Code: "OLD", AmountCents: 2200})
	req := httptest.NewRequest(http.MethodPost, "/promo-codes/validate", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	h.ValidatePromoCode(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", resp.Code, resp.Body.String())
	}
	var payload map[string]string
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["code"] != "promo_expired" {
		t.Fatalf("expected promo_expired code, got %q", payload["code"])
	}
}

// TestInitiatePaymentRecomputesAmount verifies initiate payment recomputes amount behavior.
func TestInitiatePaymentRecomputesAmount(t *testing.T) {
	initiator := &fakeInitiator{session: booking.RedirectSession{
		AccessCode:  "AC-1",
		RedirectURL: "https://pay.example.com/AC-1",
	}}
	h := newTestHandler(nil, initiator, nil)

	req := authedRequest(t, http.MethodPost, "/payments/initiate", initiatePaymentRequest{
		ClassBracket: "7-9",
		PurchaseType: models.PurchaseTypeStarterPack,
		SessionCount: 6,
		CustomerName: "Sam Lee",
		RedirectURL:  "https://app.example.com/return",
	}, "cust-42")
	resp := serveAuthed(h.InitiatePayment, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	if len(initiator.params) != 1 {
		t.Fatalf("expected 1 gateway call, got %d", len(initiator.params))
	}
	got := initiator.params[0]
	if got.AmountCents != 14500 {
		t.Fatalf("expected server-computed amount 14500, got %d", got.AmountCents)
	}
	if got.IdentityRef != "cust-42" {
		t.Fatalf("expected identity cust-42, got %s", got.IdentityRef)
	}
	if got.CustomerEmail != "sam@example.com" {
		t.Fatalf("expected token email, got %s", got.CustomerEmail)
	}

	var payload initiatePaymentResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.AccessCode != "AC-1" || payload.AmountCents != 14500 {
		t.Fatalf("unexpected response: %+v", payload)
	}
}

// TestInitiatePaymentRateLimited verifies initiate payment rate limited behavior.
func TestInitiatePaymentRateLimited(t *testing.T) {
	initiator := &fakeInitiator{session: booking.RedirectSession{AccessCode: "AC-1", RedirectURL: "https://pay.example.com/AC-1"}}
	h := newTestHandler(nil, initiator, nil)

	body := initiatePaymentRequest{
		ClassBracket: "2-6",
		PurchaseType: models.PurchaseTypeTrial,
		RedirectURL:  "https://app.example.com/return",
	}
	var last *httptest.ResponseRecorder
	for i := 0; i < 6; i++ {
		req := authedRequest(t, http.MethodPost, "/payments/initiate", body, "cust-limited")
		last = serveAuthed(h.InitiatePayment, req)
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on sixth attempt, got %d", last.Code)
	}
	if len(initiator.params) != 5 {
		t.Fatalf("expected 5 gateway calls before the limit, got %d", len(initiator.params))
	}
}

// TestFinalizeBookingSuccess verifies finalize booking success behavior.
func TestFinalizeBookingSuccess(t *testing.T) {
	engine := &fakeEngine{result: booking.FinalizeResult{
		Enrollment: models.CourseEnrollment{ID: "enr-1", CourseTitle: "Year 8 Mathematics", SessionsTotal: 6},
		Sessions:   make([]models.SessionRequest, 6),
	}}
	h := newTestHandler(engine, nil, nil)

	req := authedRequest(t, http.MethodPost, "/bookings/finalize", finalizeBookingRequest{
		AccessCode: "AC-1",
		Contact:    finalizeContact{FullName: "Sam Lee", Email: "sam@example.com"},
		Intent: &models.PurchaseIntent{
			PurchaseType: models.PurchaseTypeStarterPack,
			CourseTitle:  "Year 8 Mathematics",
			StartDate:    "2024-03-08",
			SessionCount: 6,
			AmountCents:  14500,
		},
	}, "cust-42")
	resp := serveAuthed(h.FinalizeBooking, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	if len(engine.inputs) != 1 {
		t.Fatalf("expected 1 finalize call, got %d", len(engine.inputs))
	}
	if engine.inputs[0].IdentityRef != "cust-42" {
		t.Fatalf("expected token identity, got %s", engine.inputs[0].IdentityRef)
	}
	var payload finalizeBookingResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Enrollment.ID != "enr-1" || payload.AlreadyBooked {
		t.Fatalf("unexpected response: %+v", payload)
	}
}

// TestFinalizeBookingErrorTaxonomy verifies finalize booking error taxonomy behavior.
func TestFinalizeBookingErrorTaxonomy(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "declined", err: fmt.Errorf("%w: D4405", booking.ErrPaymentDeclined), wantStatus: http.StatusPaymentRequired, wantCode: "payment_declined"},
		{name: "data_missing", err: fmt.Errorf("%w: no intent", booking.ErrBookingDataMissing), wantStatus: http.StatusInternalServerError, wantCode: "booking_data_missing"},
		{name: "conflict", err: fmt.Errorf("%w: append enrollment", booking.ErrPersistenceConflict), wantStatus: http.StatusInternalServerError, wantCode: "persistence_conflict"},
		{name: "invalid", err: fmt.Errorf("%w: access code is required", booking.ErrInvalidPurchase), wantStatus: http.StatusBadRequest, wantCode: "invalid_purchase"},
		{name: "transport", err: fmt.Errorf("query transaction: connection reset"), wantStatus: http.StatusBadGateway, wantCode: "temporary_failure"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(&fakeEngine{err: tc.err}, nil, nil)
			req := authedRequest(t, http.MethodPost, "/bookings/finalize", finalizeBookingRequest{
				AccessCode: "AC-1",
				Intent:     &models.PurchaseIntent{PurchaseType: models.PurchaseTypeTrial, CourseTitle: "Year 3 English", PreferredDate: "2024-03-08", PreferredTime: "4:00 PM - 5:00 PM", AmountCents: 2200},
			}, "cust-42")
			resp := serveAuthed(h.FinalizeBooking, req)

			if resp.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tc.wantStatus, resp.Code, resp.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if payload["code"] != tc.wantCode {
				t.Fatalf("expected code %q, got %q", tc.wantCode, payload["code"])
			}
		})
	}
}

// TestFinalizeBookingUnauthorized verifies finalize booking unauthorized behavior.
func TestFinalizeBookingUnauthorized(t *testing.T) {
	h := newTestHandler(&fakeEngine{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/bookings/finalize", strings.NewReader(`{"accessCode":"AC-1"}`))
	resp := serveAuthed(h.FinalizeBooking, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
