package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"tutorlane/backend/internal/booking"
	"tutorlane/backend/internal/config"
	authmw "tutorlane/backend/internal/http/middleware"
	"tutorlane/backend/internal/models"
	"tutorlane/backend/internal/rate"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

// finalizeEngine drives the payment-confirmation to booking state machine.
type finalizeEngine interface {
	Finalize(ctx context.Context, in booking.FinalizeInput) (booking.FinalizeResult, error)
}

// paymentInitiator opens hosted-redirect payment sessions.
type paymentInitiator interface {
	Initiate(ctx context.Context, params booking.InitiateParams) (booking.RedirectSession, error)
}

// promoStore resolves promo codes by their normalized code.
type promoStore interface {
	GetPromoCodeByCode(ctx context.Context, code string) (models.PromoCode, error)
}

type Handler struct {
	engine          finalizeEngine
	initiator       paymentInitiator
	promos          promoStore
	cfg             *config.Config
	logger          *slog.Logger
	validator       *validator.Validate
	initiateLimiter *rate.WindowLimiter
}

func New(engine finalizeEngine, initiator paymentInitiator, promos promoStore, cfg *config.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:          engine,
		initiator:       initiator,
		promos:          promos,
		cfg:             cfg,
		logger:          logger,
		validator:       validator.New(),
		initiateLimiter: rate.NewWindowLimiter(5, time.Minute),
	}
}

func (h *Handler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 30*time.Second)
}

func (h *Handler) loggerForRequest(r *http.Request) *slog.Logger {
	logger := h.logger
	if logger == nil {
		return slog.Default()
	}
	if reqID := chimw.GetReqID(r.Context()); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	if identityRef, ok := authmw.IdentityRefFromContext(r.Context()); ok {
		logger = logger.With("identity_ref", identityRef)
	}
	return logger
}

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
