package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

type samplePayload struct {
	Email  string  `json:"email" validate:"required,email"`
	Amount float64 `json:"amount" validate:"required,min=1"`
}

func TestDecodeJSONBody(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.com","amount":25}`))

	var payload samplePayload
	if err := DecodeJSONBody(r, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Email != "a@b.com" || payload.Amount != 25 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@b.com","amount":25,"extra":true}`))

	var payload samplePayload
	err := DecodeJSONBody(r, &payload)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"nope","amount":0}`))

	var payload samplePayload
	err := DecodeJSONBody(r, &payload)
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := domainErr.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", domainErr.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail: %q", details["email"])
	}
	if _, ok := details["amount"]; !ok {
		t.Fatal("expected amount detail")
	}
}

func TestEmailFromQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/?email=buyer%40example.com", nil)
	email, err := EmailFromQuery(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "buyer@example.com" {
		t.Fatalf("unexpected email %q", email)
	}

	r = httptest.NewRequest("GET", "/", nil)
	if _, err := EmailFromQuery(r); err == nil {
		t.Fatal("expected error for missing email")
	}

	r = httptest.NewRequest("GET", "/?email=not-an-email", nil)
	if _, err := EmailFromQuery(r); err == nil {
		t.Fatal("expected error for invalid email")
	}
}
