package subscriptions

import (
	"testing"
	"time"

	"github.com/renpay/renpay-backend/pkg/enums"
)

func TestMapPayPalStatus(t *testing.T) {
	tests := []struct {
		in   string
		want enums.SubscriptionStatus
	}{
		{"ACTIVE", enums.SubscriptionStatusActive},
		{"active", enums.SubscriptionStatusActive},
		{"APPROVAL_PENDING", enums.SubscriptionStatusPending},
		{"APPROVED", enums.SubscriptionStatusPending},
		{"SUSPENDED", enums.SubscriptionStatusSuspended},
		{"CANCELLED", enums.SubscriptionStatusCanceled},
		{"EXPIRED", enums.SubscriptionStatusCanceled},
		{"SOMETHING_NEW", enums.SubscriptionStatusPending},
		{"", enums.SubscriptionStatusPending},
	}
	for _, tc := range tests {
		if got := MapPayPalStatus(tc.in); got != tc.want {
			t.Errorf("MapPayPalStatus(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNextBillingFallback(t *testing.T) {
	from := time.Date(2025, 8, 15, 12, 0, 0, 0, time.UTC)

	if got := NextBillingFallback(enums.SubscriptionPlanMonthly, from); !got.Equal(from.AddDate(0, 1, 0)) {
		t.Errorf("monthly fallback = %s", got)
	}
	if got := NextBillingFallback(enums.SubscriptionPlanAnnual, from); !got.Equal(from.AddDate(1, 0, 0)) {
		t.Errorf("annual fallback = %s", got)
	}
}
