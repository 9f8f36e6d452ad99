package controllers

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

func activeSubscription() *models.Subscription {
	gwID := "I-GW123"
	now := time.Now().UTC()
	next := now.AddDate(0, 1, 0)
	return &models.Subscription{
		ID:                    uuid.New(),
		UserID:                uuid.New(),
		Plan:                  enums.SubscriptionPlanMonthly,
		Status:                enums.SubscriptionStatusActive,
		Gateway:               enums.PaymentGatewayPayPal,
		GatewaySubscriptionID: &gwID,
		StartedAt:             &now,
		NextBillingAt:         &next,
	}
}

func TestSubscriptionGetActive(t *testing.T) {
	svc := &fakeSubscriptionsService{sub: activeSubscription()}

	rec := doJSON(t, SubscriptionGet(newFakeUserRepo(), svc, nil), http.MethodGet, "/api/v1/subscription?email=jo@example.com", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	sub := data["subscription"].(map[string]any)
	if sub["status"] != "active" || sub["plan"] != "monthly" {
		t.Fatalf("unexpected subscription view: %v", sub)
	}
}

func TestSubscriptionGetNone(t *testing.T) {
	svc := &fakeSubscriptionsService{err: pkgerrors.New(pkgerrors.CodeNotFound, "no subscription found")}
	rec := doJSON(t, SubscriptionGet(newFakeUserRepo(), svc, nil), http.MethodGet, "/api/v1/subscription?email=jo@example.com", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["subscription"] != nil {
		t.Fatalf("expected null subscription, got %v", data["subscription"])
	}
}

func TestSubscriptionGetNonActiveHidden(t *testing.T) {
	sub := activeSubscription()
	sub.Status = enums.SubscriptionStatusCanceled
	svc := &fakeSubscriptionsService{sub: sub}

	rec := doJSON(t, SubscriptionGet(newFakeUserRepo(), svc, nil), http.MethodGet, "/api/v1/subscription?email=jo@example.com", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["subscription"] != nil {
		t.Fatalf("expected canceled subscription to be hidden, got %v", data["subscription"])
	}
}

func TestSubscriptionActivatePayPal(t *testing.T) {
	svc := &fakeSubscriptionsService{sub: activeSubscription()}

	body := `{"action":"activate_paypal","email":"jo@example.com","plan":"monthly","subscriptionId":"I-GW123"}`
	rec := doJSON(t, SubscriptionAction(newFakeUserRepo(), svc, nil), http.MethodPost, "/api/v1/subscription", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.activateInput == nil {
		t.Fatal("expected activation to reach the service")
	}
	if svc.activateInput.GatewaySubscriptionID != "I-GW123" {
		t.Fatalf("expected gateway id I-GW123, got %q", svc.activateInput.GatewaySubscriptionID)
	}
}

func TestSubscriptionActivateRequiresSubscriptionID(t *testing.T) {
	body := `{"action":"activate_paypal","email":"jo@example.com","plan":"monthly"}`
	rec := doJSON(t, SubscriptionAction(newFakeUserRepo(), &fakeSubscriptionsService{}, nil), http.MethodPost, "/api/v1/subscription", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSubscriptionCreateInternal(t *testing.T) {
	sub := activeSubscription()
	sub.Gateway = enums.PaymentGatewayInternal
	sub.GatewaySubscriptionID = nil
	svc := &fakeSubscriptionsService{sub: sub}

	body := `{"email":"jo@example.com","plan":"annual"}`
	rec := doJSON(t, SubscriptionAction(newFakeUserRepo(), svc, nil), http.MethodPost, "/api/v1/subscription", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.internalPlan != enums.SubscriptionPlanAnnual {
		t.Fatalf("expected annual plan, got %q", svc.internalPlan)
	}
}

func TestSubscriptionRejectsBadPlan(t *testing.T) {
	body := `{"email":"jo@example.com","plan":"weekly"}`
	rec := doJSON(t, SubscriptionAction(newFakeUserRepo(), &fakeSubscriptionsService{}, nil), http.MethodPost, "/api/v1/subscription", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
