package booking

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// RedirectParams describes one hosted-redirect payment session request.
// Amounts are in minor units (cents).
type RedirectParams struct {
	AmountCents   int64
	Currency      string
	InvoiceRef    string
	CustomerRef   string
	CustomerName  string
	CustomerEmail string
	RedirectURL   string
	CancelURL     string
}

// RedirectSession is the gateway handle the client is redirected with.
type RedirectSession struct {
	AccessCode  string `json:"accessCode"`
	RedirectURL string `json:"redirectUrl"`
}

// RedirectGateway opens hosted-redirect payment sessions.
type RedirectGateway interface {
	CreateRedirectSession(ctx context.Context, params RedirectParams) (RedirectSession, error)
}

// Initiator opens payment sessions for computed purchase amounts. It stores
// nothing durable and never retries: a blind retry risks a duplicate charge.
type Initiator struct {
	gateway RedirectGateway
	logger  *slog.Logger
}

// NewInitiator creates initiator.
func NewInitiator(gateway RedirectGateway, logger *slog.Logger) *Initiator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Initiator{gateway: gateway, logger: logger}
}

// InitiateParams represents initiate params.
type InitiateParams struct {
	AmountCents   int64
	Currency      string
	IdentityRef   string
	CustomerName  string
	CustomerEmail string
	RedirectURL   string
	CancelURL     string
}

// Initiate requests a hosted-redirect session. The purchaser's identity
// reference travels as the gateway customer reference so the finalization
// step can re-associate the verified transaction with the purchaser.
func (i *Initiator) Initiate(ctx context.Context, params InitiateParams) (RedirectSession, error) {
	if params.AmountCents <= 0 {
		return RedirectSession{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPurchase)
	}
	if strings.TrimSpace(params.IdentityRef) == "" {
		return RedirectSession{}, fmt.Errorf("%w: purchaser identity is required", ErrInvalidPurchase)
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "AUD"
	}

	invoiceRef := uuid.NewString()
	session, err := i.gateway.CreateRedirectSession(ctx, RedirectParams{
		AmountCents:   params.AmountCents,
		Currency:      currency,
		InvoiceRef:    invoiceRef,
		CustomerRef:   params.IdentityRef,
		CustomerName:  params.CustomerName,
		CustomerEmail: params.CustomerEmail,
		RedirectURL:   params.RedirectURL,
		CancelURL:     params.CancelURL,
	})
	if err != nil {
		i.logger.Error("initiate_payment", "status", "gateway_error", "invoice_ref", invoiceRef, "error", err)
		return RedirectSession{}, err
	}

	i.logger.Info("initiate_payment", "status", "redirect_created", "invoice_ref", invoiceRef, "amount_cents", params.AmountCents)
	return session, nil
}
