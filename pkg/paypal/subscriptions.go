package paypal

import (
	"context"
	"net/http"
	"time"

	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

// Subscription is the subset of the billing subscription resource the
// activation flow consumes.
type Subscription struct {
	ID              string
	Status          string
	PlanID          string
	StartTime       *time.Time
	NextBillingTime *time.Time
}

type subscriptionResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	PlanID      string `json:"plan_id"`
	StartTime   string `json:"start_time"`
	BillingInfo struct {
		NextBillingTime string `json:"next_billing_time"`
	} `json:"billing_info"`
}

// GetSubscription fetches a billing subscription by its PayPal id.
func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	if subscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscriptionID is required")
	}

	c.log(ctx, "get_subscription", map[string]any{"subscription_id": subscriptionID})

	var resp subscriptionResponse
	path := "/v1/billing/subscriptions/" + escapePath(subscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &resp, http.StatusOK); err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:     resp.ID,
		Status: resp.Status,
		PlanID: resp.PlanID,
	}
	if t, err := time.Parse(time.RFC3339, resp.StartTime); err == nil {
		sub.StartTime = &t
	}
	if t, err := time.Parse(time.RFC3339, resp.BillingInfo.NextBillingTime); err == nil {
		sub.NextBillingTime = &t
	}
	return sub, nil
}
