package eway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tutorlane/backend/internal/booking"
)

// TestCreateAccessCodeSharedParsing verifies create access code shared parsing behavior.
func TestCreateAccessCodeSharedParsing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AccessCodesShared" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "test-key" || pass != "test-pass" {
			t.Fatalf("unexpected basic auth: %s %s", user, pass)
		}
		var raw map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		payment, _ := raw["Payment"].(map[string]interface{})
		if payment["TotalAmount"] != float64(14500) {
			t.Fatalf("unexpected TotalAmount: %#v", payment["TotalAmount"])
		}
		if raw["Method"] != "ProcessPayment" {
			t.Fatalf("unexpected Method: %#v", raw["Method"])
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"AccessCode":       "60CF3L_test",
			"SharedPaymentUrl": "https://secure.example/sharedpage/60CF3L_test",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Password: "test-pass"}, srv.Client(), nil)
	result, err := client.CreateAccessCodeShared(context.Background(), CreateAccessCodeRequest{
		Customer: Customer{Reference: "parent-1", FirstName: "Sam", LastName: "Lee", Email: "sam@example.com"},
		Payment:  Payment{TotalAmount: 14500, CurrencyCode: "AUD", InvoiceReference: "inv-1"},
	})
	if err != nil {
		t.Fatalf("create access code: %v", err)
	}
	if result.AccessCode != "60CF3L_test" || !strings.Contains(result.SharedPaymentURL, "sharedpage") {
		t.Fatalf("unexpected response: %#v", result)
	}
}

// TestGetAccessCodeResultParsing verifies get access code result parsing behavior.
func TestGetAccessCodeResultParsing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AccessCode/60CF3L_test" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"AccessCode":        "60CF3L_test",
			"TransactionID":     11260001,
			"TransactionStatus": true,
			"ResponseCode":      "00",
			"ResponseMessage":   "A2000",
		})
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Password: "p"}, srv.Client(), nil)
	result, err := client.GetAccessCodeResult(context.Background(), "60CF3L_test")
	if err != nil {
		t.Fatalf("get access code result: %v", err)
	}
	if !result.TransactionStatus || result.TransactionID != 11260001 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

// TestDoSurfacesAPIError verifies do surfaces a p i error behavior.
func TestDoSurfacesAPIError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "bad", Password: "bad"}, srv.Client(), nil)
	_, err := client.GetAccessCodeResult(context.Background(), "60CF3L_test")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", apiErr.StatusCode)
	}
}

// TestGatewayConvertsErrorCodes verifies gateway converts error codes behavior.
func TestGatewayConvertsErrorCodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"AccessCode": "",
			"Errors":     "V6021, V6043",
		})
	}))
	defer srv.Close()

	gateway := NewGateway(NewClient(Config{BaseURL: srv.URL, APIKey: "k", Password: "p"}, srv.Client(), nil))
	_, err := gateway.CreateRedirectSession(context.Background(), booking.RedirectParams{
		AmountCents: 2500,
		Currency:    "AUD",
		CustomerRef: "parent-1",
	})
	var ge *booking.GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if len(ge.Messages) != 2 || ge.Messages[0] != "V6021" || ge.Messages[1] != "V6043" {
		t.Fatalf("unexpected messages: %v", ge.Messages)
	}
}

// TestGatewayQueryTransactionDeclined verifies gateway query transaction declined behavior.
func TestGatewayQueryTransactionDeclined(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"AccessCode":        "60CF3L_test",
			"TransactionID":     0,
			"TransactionStatus": false,
			"ResponseMessage":   "D4405",
		})
	}))
	defer srv.Close()

	gateway := NewGateway(NewClient(Config{BaseURL: srv.URL, APIKey: "k", Password: "p"}, srv.Client(), nil))
	verification, err := gateway.QueryTransaction(context.Background(), "60CF3L_test")
	if err != nil {
		t.Fatalf("query transaction: %v", err)
	}
	if verification.Succeeded {
		t.Fatalf("expected declined verification")
	}
	if len(verification.ResponseCodes) != 1 || verification.ResponseCodes[0] != "D4405" {
		t.Fatalf("unexpected response codes: %v", verification.ResponseCodes)
	}
	if verification.TransactionID != "" {
		t.Fatalf("expected empty transaction id for declined payment, got %s", verification.TransactionID)
	}
}

// TestSplitErrorCodes verifies split error codes behavior.
func TestSplitErrorCodes(t *testing.T) {
	t.Parallel()

	codes := SplitErrorCodes(" V6021,V6043 , ")
	if len(codes) != 2 || codes[0] != "V6021" || codes[1] != "V6043" {
		t.Fatalf("unexpected codes: %v", codes)
	}
	if got := SplitErrorCodes(""); len(got) != 0 {
		t.Fatalf("expected no codes for empty input, got %v", got)
	}
}
