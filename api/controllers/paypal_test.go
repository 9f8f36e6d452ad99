package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/renpay/renpay-backend/internal/wallet"
	"github.com/renpay/renpay-backend/pkg/db/models"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/paypal"
)

type fakePayPalGateway struct {
	order   *paypal.Order
	capture *paypal.CaptureResult
	err     error

	createParams    *paypal.CreateOrderParams
	capturedOrderID string
}

func (f *fakePayPalGateway) ClientID() string    { return "client-abc" }
func (f *fakePayPalGateway) Environment() string { return "sandbox" }

func (f *fakePayPalGateway) PlanID(plan string) string {
	if plan == "annual" {
		return "P-ANNUAL"
	}
	return "P-MONTHLY"
}

func (f *fakePayPalGateway) CreateOrder(ctx context.Context, params paypal.CreateOrderParams) (*paypal.Order, error) {
	f.createParams = &params
	return f.order, f.err
}

func (f *fakePayPalGateway) CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error) {
	f.capturedOrderID = orderID
	return f.capture, f.err
}

func TestPayPalConfig(t *testing.T) {
	rec := doJSON(t, PayPalConfig(&fakePayPalGateway{}, nil), http.MethodGet, "/api/v1/paypal/config", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["clientId"] != "client-abc" {
		t.Fatalf("expected public client id, got %v", data["clientId"])
	}
	plans := data["planIds"].(map[string]any)
	if plans["monthly"] != "P-MONTHLY" || plans["annual"] != "P-ANNUAL" {
		t.Fatalf("unexpected plan ids: %v", plans)
	}
}

func TestPayPalConfigUnconfigured(t *testing.T) {
	rec := doJSON(t, PayPalConfig(nil, nil), http.MethodGet, "/api/v1/paypal/config", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestPayPalCreateOrderCarriesBuyerEmail(t *testing.T) {
	gateway := &fakePayPalGateway{order: &paypal.Order{ID: "PP-ORDER-1", Status: "CREATED"}}
	svc := &fakeWalletService{}

	body := `{"action":"create_order","email":"Jo@Example.com","amount":"50.00"}`
	rec := doJSON(t, PayPalAction(gateway, newFakeUserRepo(), svc, nil, nil), http.MethodPost, "/api/v1/paypal", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gateway.createParams == nil {
		t.Fatal("expected order creation to reach the gateway")
	}
	if gateway.createParams.CustomID != "jo@example.com" {
		t.Fatalf("expected normalized email as custom id, got %q", gateway.createParams.CustomID)
	}
	if gateway.createParams.RequestID == "" {
		t.Fatal("expected a request id for gateway idempotency")
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["orderId"] != "PP-ORDER-1" {
		t.Fatalf("expected gateway order id, got %v", data["orderId"])
	}
}

func TestPayPalCaptureCreditsWallet(t *testing.T) {
	gateway := &fakePayPalGateway{capture: &paypal.CaptureResult{
		OrderID:   "PP-ORDER-1",
		CaptureID: "CAP-9",
		Status:    "COMPLETED",
		Amount:    decimal.RequireFromString("50.00"),
		Currency:  "USD",
		CustomID:  "jo@example.com",
	}}
	svc := &fakeWalletService{creditResult: &wallet.CaptureCreditResult{
		Wallet: &models.Wallet{Balance: decimal.RequireFromString("50.00"), Currency: "USD"},
	}}

	body := `{"action":"capture_order","orderId":"PP-ORDER-1"}`
	rec := doJSON(t, PayPalAction(gateway, newFakeUserRepo(), svc, nil, nil), http.MethodPost, "/api/v1/paypal", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.creditInput == nil {
		t.Fatal("expected the capture to credit the wallet")
	}
	if svc.creditInput.CaptureID != "CAP-9" {
		t.Fatalf("expected capture id CAP-9, got %q", svc.creditInput.CaptureID)
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["leafBalance"] != "50.00" {
		t.Fatalf("expected leafBalance 50.00, got %v", data["leafBalance"])
	}
	if data["alreadyCredited"] != false {
		t.Fatalf("expected alreadyCredited false, got %v", data["alreadyCredited"])
	}
}

func TestPayPalCaptureIncompleteStatus(t *testing.T) {
	gateway := &fakePayPalGateway{capture: &paypal.CaptureResult{
		OrderID:   "PP-ORDER-1",
		CaptureID: "CAP-9",
		Status:    "PENDING",
	}}

	body := `{"action":"capture_order","orderId":"PP-ORDER-1"}`
	rec := doJSON(t, PayPalAction(gateway, newFakeUserRepo(), &fakeWalletService{}, nil, nil), http.MethodPost, "/api/v1/paypal", body)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestPayPalCaptureGatewayError(t *testing.T) {
	gateway := &fakePayPalGateway{err: pkgerrors.New(pkgerrors.CodeGateway, "capture declined")}

	body := `{"action":"capture_order","orderId":"PP-ORDER-1"}`
	rec := doJSON(t, PayPalAction(gateway, newFakeUserRepo(), &fakeWalletService{}, nil, nil), http.MethodPost, "/api/v1/paypal", body)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
	}
}
