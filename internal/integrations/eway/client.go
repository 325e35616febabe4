package eway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	MethodProcessPayment    = "ProcessPayment"
	TransactionTypePurchase = "Purchase"
)

type Config struct {
	BaseURL  string
	APIKey   string
	Password string
}

type Client struct {
	baseURL    string
	apiKey     string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eway api status %d: %s", e.StatusCode, e.Body)
}

type Customer struct {
	Reference string `json:"Reference,omitempty"`
	FirstName string `json:"FirstName,omitempty"`
	LastName  string `json:"LastName,omitempty"`
	Email     string `json:"Email,omitempty"`
}

type Payment struct {
	TotalAmount      int64  `json:"TotalAmount"`
	CurrencyCode     string `json:"CurrencyCode,omitempty"`
	InvoiceReference string `json:"InvoiceReference,omitempty"`
}

type CreateAccessCodeRequest struct {
	Customer        Customer `json:"Customer"`
	Payment         Payment  `json:"Payment"`
	RedirectURL     string   `json:"RedirectUrl"`
	CancelURL       string   `json:"CancelUrl,omitempty"`
	Method          string   `json:"Method"`
	TransactionType string   `json:"TransactionType"`
}

type SharedAccessCode struct {
	AccessCode       string `json:"AccessCode"`
	SharedPaymentURL string `json:"SharedPaymentUrl"`
	Errors           string `json:"Errors"`
}

type AccessCodeResult struct {
	AccessCode        string `json:"AccessCode"`
	TransactionID     int64  `json:"TransactionID"`
	TransactionStatus bool   `json:"TransactionStatus"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseMessage   string `json:"ResponseMessage"`
	Errors            string `json:"Errors"`
}

func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.sandbox.ewaypayments.com"
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		password:   strings.TrimSpace(cfg.Password),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(10), 5),
		logger:     logger,
	}
}

// CreateAccessCodeShared opens a hosted payment page session and returns the
// access code plus the shared redirect URL.
func (c *Client) CreateAccessCodeShared(ctx context.Context, in CreateAccessCodeRequest) (SharedAccessCode, error) {
	var out SharedAccessCode
	if in.Method == "" {
		in.Method = MethodProcessPayment
	}
	if in.TransactionType == "" {
		in.TransactionType = TransactionTypePurchase
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return out, err
	}
	body, err := c.do(ctx, http.MethodPost, "/AccessCodesShared", payload)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode access code response: %w", err)
	}
	return out, nil
}

// GetAccessCodeResult queries the outcome of the transaction behind an
// access code.
func (c *Client) GetAccessCodeResult(ctx context.Context, accessCode string) (AccessCodeResult, error) {
	var out AccessCodeResult
	accessCode = strings.TrimSpace(accessCode)
	if accessCode == "" {
		return out, fmt.Errorf("access code is required")
	}
	body, err := c.do(ctx, http.MethodGet, "/AccessCode/"+url.PathEscape(accessCode), nil)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("decode access code result: %w", err)
	}
	return out, nil
}

// SplitErrorCodes splits the gateway's comma-separated code list.
func SplitErrorCodes(value string) []string {
	parts := strings.Split(value, ",")
	codes := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		codes = append(codes, trimmed)
	}
	return codes
}

func (c *Client) do(ctx context.Context, method, pathPart string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if len(payload) > 0 {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+pathPart, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, c.password)
	if len(payload) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if c.logger != nil {
		c.logger.Debug("eway_api_response", "method", method, "path", pathPart, "status", resp.StatusCode)
	}
	return body, nil
}
