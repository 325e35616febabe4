package eway

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"tutorlane/backend/internal/booking"
)

// Gateway adapts the raw client to the booking collaborator interfaces.
type Gateway struct {
	client *Client
}

// NewGateway creates gateway.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// CreateRedirectSession implements booking.RedirectGateway.
func (g *Gateway) CreateRedirectSession(ctx context.Context, params booking.RedirectParams) (booking.RedirectSession, error) {
	firstName, lastName := splitName(params.CustomerName)
	result, err := g.client.CreateAccessCodeShared(ctx, CreateAccessCodeRequest{
		Customer: Customer{
			Reference: params.CustomerRef,
			FirstName: firstName,
			LastName:  lastName,
			Email:     params.CustomerEmail,
		},
		Payment: Payment{
			TotalAmount:      params.AmountCents,
			CurrencyCode:     params.Currency,
			InvoiceReference: params.InvoiceRef,
		},
		RedirectURL: params.RedirectURL,
		CancelURL:   params.CancelURL,
	})
	if err != nil {
		return booking.RedirectSession{}, fmt.Errorf("create access code: %w", err)
	}
	if result.Errors != "" {
		return booking.RedirectSession{}, &booking.GatewayError{Messages: SplitErrorCodes(result.Errors)}
	}
	if strings.TrimSpace(result.AccessCode) == "" || strings.TrimSpace(result.SharedPaymentURL) == "" {
		return booking.RedirectSession{}, fmt.Errorf("access code response missing AccessCode or SharedPaymentUrl")
	}
	return booking.RedirectSession{
		AccessCode:  result.AccessCode,
		RedirectURL: result.SharedPaymentURL,
	}, nil
}

// QueryTransaction implements booking.PaymentVerifier.
func (g *Gateway) QueryTransaction(ctx context.Context, accessCode string) (booking.Verification, error) {
	result, err := g.client.GetAccessCodeResult(ctx, accessCode)
	if err != nil {
		return booking.Verification{}, fmt.Errorf("get access code result: %w", err)
	}
	verification := booking.Verification{
		Succeeded:     result.TransactionStatus,
		ResponseCodes: SplitErrorCodes(result.ResponseMessage),
	}
	if result.TransactionID > 0 {
		verification.TransactionID = strconv.FormatInt(result.TransactionID, 10)
	}
	return verification, nil
}

func splitName(full string) (string, string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	first, last, found := strings.Cut(full, " ")
	if !found {
		return full, ""
	}
	return first, strings.TrimSpace(last)
}
