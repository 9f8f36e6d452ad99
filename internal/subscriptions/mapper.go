package subscriptions

import (
	"strings"
	"time"

	"github.com/renpay/renpay-backend/pkg/enums"
)

// MapPayPalStatus translates a PayPal billing subscription status into the
// internal subscription state. Unknown statuses map to pending so a later
// sync can settle them.
func MapPayPalStatus(status string) enums.SubscriptionStatus {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "ACTIVE":
		return enums.SubscriptionStatusActive
	case "APPROVAL_PENDING", "APPROVED":
		return enums.SubscriptionStatusPending
	case "SUSPENDED":
		return enums.SubscriptionStatusSuspended
	case "CANCELLED", "EXPIRED":
		return enums.SubscriptionStatusCanceled
	default:
		return enums.SubscriptionStatusPending
	}
}

// NextBillingFallback estimates the next billing date from the plan interval
// when the gateway does not report one.
func NextBillingFallback(plan enums.SubscriptionPlan, from time.Time) time.Time {
	if plan == enums.SubscriptionPlanAnnual {
		return from.AddDate(1, 0, 0)
	}
	return from.AddDate(0, 1, 0)
}
