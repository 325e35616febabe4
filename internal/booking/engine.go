package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tutorlane/backend/internal/models"
	"tutorlane/backend/internal/schedule"
)

const defaultVerifyTimeout = 15 * time.Second

// Verification is the gateway-reported outcome for one access code.
type Verification struct {
	Succeeded     bool
	TransactionID string
	ResponseCodes []string
}

// PaymentVerifier queries the gateway for a transaction outcome.
type PaymentVerifier interface {
	QueryTransaction(ctx context.Context, accessCode string) (Verification, error)
}

// ProfileStore persists purchaser profiles and their enrollments.
// FindCourseEnrollment returns ErrEnrollmentNotFound when no enrollment
// matches; AppendCourseEnrollment returns ErrEnrollmentExists on a duplicate
// (profile, course title) pair.
type ProfileStore interface {
	UpsertProfileByIdentity(ctx context.Context, identityRef string, defaults models.ProfileDefaults) (models.Profile, error)
	FindCourseEnrollment(ctx context.Context, profileID, courseTitle string) (models.CourseEnrollment, error)
	AppendCourseEnrollment(ctx context.Context, enrollment models.CourseEnrollment) (models.CourseEnrollment, error)
}

// SessionStore persists session request batches.
type SessionStore interface {
	InsertSessionRequests(ctx context.Context, requests []models.SessionRequest) error
}

// PurchaserLocker serializes finalization per purchaser identity across
// instances.
type PurchaserLocker interface {
	WithPurchaserLock(ctx context.Context, identityRef string, fn func(ctx context.Context) error) error
}

// Confirmation is handed to the notifier after a booking is committed.
type Confirmation struct {
	Profile    models.Profile
	Enrollment models.CourseEnrollment
	Sessions   []models.SessionRequest
}

// Notifier dispatches the booking confirmation as a detached task. Failures
// must never reach the finalize result.
type Notifier interface {
	SendBookingConfirmation(confirmation Confirmation)
}

// Engine drives the payment-confirmation to booking-creation state machine.
// It holds no durable state and is safe to re-invoke: a repeat call for an
// already-enrolled course is a no-op success.
type Engine struct {
	gateway       PaymentVerifier
	profiles      ProfileStore
	sessions      SessionStore
	locks         PurchaserLocker
	notifier      Notifier
	logger        *slog.Logger
	verifyTimeout time.Duration
}

// NewEngine creates engine.
func NewEngine(gateway PaymentVerifier, profiles ProfileStore, sessions SessionStore, locks PurchaserLocker, notifier Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		gateway:       gateway,
		profiles:      profiles,
		sessions:      sessions,
		locks:         locks,
		notifier:      notifier,
		logger:        logger,
		verifyTimeout: defaultVerifyTimeout,
	}
}

// FinalizeInput represents finalize input.
type FinalizeInput struct {
	AccessCode  string
	IdentityRef string
	Contact     models.ProfileDefaults
	Intent      *models.PurchaseIntent
}

// FinalizeResult represents finalize result.
type FinalizeResult struct {
	Enrollment    models.CourseEnrollment
	Sessions      []models.SessionRequest
	AlreadyBooked bool
}

// Finalize verifies the transaction with the gateway, then materializes the
// booking under a per-purchaser lock. Before verification succeeds no local
// state is mutated, so gateway transport failures are safe to retry.
func (e *Engine) Finalize(ctx context.Context, in FinalizeInput) (FinalizeResult, error) {
	if strings.TrimSpace(in.AccessCode) == "" {
		return FinalizeResult{}, fmt.Errorf("%w: access code is required", ErrInvalidPurchase)
	}
	if strings.TrimSpace(in.IdentityRef) == "" {
		return FinalizeResult{}, fmt.Errorf("%w: purchaser identity is required", ErrInvalidPurchase)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, e.verifyTimeout)
	defer cancel()
	verification, err := e.gateway.QueryTransaction(verifyCtx, in.AccessCode)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("query transaction: %w", err)
	}
	if !verification.Succeeded {
		reason := "declined by gateway"
		if len(verification.ResponseCodes) > 0 {
			reason = verification.ResponseCodes[0]
		}
		e.logger.Warn("finalize", "status", "payment_declined", "access_code", in.AccessCode, "reason", reason)
		return FinalizeResult{}, fmt.Errorf("%w: %s", ErrPaymentDeclined, reason)
	}

	// Past this point the charge has succeeded. Intent problems must surface
	// as missing booking data, never as a payment failure.
	if err := validateIntent(in.Intent); err != nil {
		e.logger.Error("finalize", "status", "booking_data_missing", "access_code", in.AccessCode, "transaction_id", verification.TransactionID, "error", err)
		return FinalizeResult{}, err
	}

	var out FinalizeResult
	err = e.locks.WithPurchaserLock(ctx, in.IdentityRef, func(ctx context.Context) error {
		res, merr := e.materialize(ctx, in, verification)
		if merr != nil {
			return merr
		}
		out = res
		return nil
	})
	if err != nil {
		return FinalizeResult{}, err
	}
	return out, nil
}

func (e *Engine) materialize(ctx context.Context, in FinalizeInput, verification Verification) (FinalizeResult, error) {
	intent := *in.Intent

	profile, err := e.profiles.UpsertProfileByIdentity(ctx, in.IdentityRef, in.Contact)
	if err != nil {
		return FinalizeResult{}, fmt.Errorf("upsert profile: %w", err)
	}

	existing, err := e.profiles.FindCourseEnrollment(ctx, profile.ID, intent.CourseTitle)
	if err == nil {
		e.logger.Info("finalize", "status", "already_booked", "profile_id", profile.ID, "course", intent.CourseTitle)
		return FinalizeResult{Enrollment: existing, AlreadyBooked: true}, nil
	}
	if !errors.Is(err, ErrEnrollmentNotFound) {
		return FinalizeResult{}, fmt.Errorf("find enrollment: %w", err)
	}

	requests, err := buildSessionRequests(profile, intent, verification)
	if err != nil {
		return FinalizeResult{}, err
	}

	if err := e.sessions.InsertSessionRequests(ctx, requests); err != nil {
		return FinalizeResult{}, fmt.Errorf("insert session requests: %w", err)
	}

	enrollment := models.CourseEnrollment{
		ProfileID:         profile.ID,
		CourseTitle:       intent.CourseTitle,
		Status:            models.EnrollmentStatusPending,
		SessionsTotal:     len(requests),
		SessionsRemaining: len(requests),
		AmountPaidCents:   intent.AmountCents,
		TransactionID:     verification.TransactionID,
		PromoCode:         NormalizePromoCode(intent.PromoCode),
		DiscountCents:     intent.DiscountCents,
		FirstSessionDate:  requests[0].SessionDate,
		FirstSessionTime:  requests[0].TimeSlot,
	}
	created, err := e.profiles.AppendCourseEnrollment(ctx, enrollment)
	if err != nil {
		if errors.Is(err, ErrEnrollmentExists) {
			// A racing finalize won the unique constraint. Treat ours as a
			// replay of the winner's booking.
			existing, findErr := e.profiles.FindCourseEnrollment(ctx, profile.ID, intent.CourseTitle)
			if findErr == nil {
				e.logger.Info("finalize", "status", "already_booked_race", "profile_id", profile.ID, "course", intent.CourseTitle)
				return FinalizeResult{Enrollment: existing, AlreadyBooked: true}, nil
			}
		}
		// Session requests are committed but the enrollment is not. Surface
		// the inconsistency for manual reconciliation instead of rolling back.
		e.logger.Error("finalize", "status", "persistence_conflict", "profile_id", profile.ID, "course", intent.CourseTitle, "error", err)
		return FinalizeResult{}, fmt.Errorf("%w: append enrollment: %v", ErrPersistenceConflict, err)
	}

	e.notifier.SendBookingConfirmation(Confirmation{Profile: profile, Enrollment: created, Sessions: requests})
	e.logger.Info("finalize", "status", "finalized", "profile_id", profile.ID, "course", intent.CourseTitle, "sessions", len(requests), "transaction_id", verification.TransactionID)
	return FinalizeResult{Enrollment: created, Sessions: requests}, nil
}

func validateIntent(intent *models.PurchaseIntent) error {
	if intent == nil {
		return fmt.Errorf("%w: purchase intent was not provided", ErrBookingDataMissing)
	}
	if strings.TrimSpace(intent.CourseTitle) == "" {
		return fmt.Errorf("%w: course title is empty", ErrBookingDataMissing)
	}
	switch intent.PurchaseType {
	case models.PurchaseTypeTrial:
		if strings.TrimSpace(intent.PreferredDate) == "" || strings.TrimSpace(intent.PreferredTime) == "" {
			return fmt.Errorf("%w: trial preferred date or time is empty", ErrBookingDataMissing)
		}
		if _, err := schedule.ParseDate(intent.PreferredDate); err != nil {
			return fmt.Errorf("%w: %v", ErrBookingDataMissing, err)
		}
	case models.PurchaseTypeStarterPack:
		if intent.SessionCount <= 0 {
			return fmt.Errorf("%w: starter pack session count is %d", ErrBookingDataMissing, intent.SessionCount)
		}
		if strings.TrimSpace(intent.StartDate) == "" {
			return fmt.Errorf("%w: starter pack start date is empty", ErrBookingDataMissing)
		}
		if _, err := schedule.ParseDate(intent.StartDate); err != nil {
			return fmt.Errorf("%w: %v", ErrBookingDataMissing, err)
		}
		if strings.TrimSpace(intent.PreferredTimeMonFri) == "" {
			return fmt.Errorf("%w: weekday time slot is empty", ErrBookingDataMissing)
		}
	default:
		return fmt.Errorf("%w: unknown purchase type %q", ErrBookingDataMissing, intent.PurchaseType)
	}
	return nil
}

func buildSessionRequests(profile models.Profile, intent models.PurchaseIntent, verification Verification) ([]models.SessionRequest, error) {
	base := models.SessionRequest{
		ProfileID:     profile.ID,
		CourseTitle:   intent.CourseTitle,
		Subject:       intent.Subject,
		StudentName:   intent.StudentName,
		PurchaseType:  intent.PurchaseType,
		PaymentStatus: models.PaymentStatusPaid,
		TransactionID: verification.TransactionID,
		PromoCode:     NormalizePromoCode(intent.PromoCode),
	}

	if intent.PurchaseType == models.PurchaseTypeTrial {
		date, err := schedule.ParseDate(intent.PreferredDate)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBookingDataMissing, err)
		}
		request := base
		request.SessionDate = date.String()
		request.TimeSlot = intent.PreferredTime
		request.AmountPaidCents = intent.AmountCents
		return []models.SessionRequest{request}, nil
	}

	start, err := schedule.ParseDate(intent.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBookingDataMissing, err)
	}
	sessions := schedule.GenerateSessions(start, intent.SessionCount, schedule.SlotPreferences{
		MonFri:   intent.PreferredTimeMonFri,
		Saturday: intent.PreferredTimeSaturday,
	})

	// Informational split only. The integer division remainder is accepted;
	// the enrollment carries the authoritative total.
	perSession := intent.AmountCents / int64(len(sessions))
	requests := make([]models.SessionRequest, 0, len(sessions))
	for _, s := range sessions {
		request := base
		request.SessionDate = s.Date.String()
		request.TimeSlot = s.TimeSlot
		request.AmountPaidCents = perSession
		requests = append(requests, request)
	}
	return requests, nil
}
