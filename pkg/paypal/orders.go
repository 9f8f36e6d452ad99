package paypal

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

// CreateOrderParams describes a one-time checkout order.
type CreateOrderParams struct {
	Amount      decimal.Decimal
	Currency    string
	Description string
	// CustomID rides along on the order and comes back on capture. The wallet
	// flow stores the buyer email here.
	CustomID string
	// RequestID is forwarded as PayPal-Request-Id for gateway-side idempotency.
	RequestID string
}

// Order is the subset of the checkout order resource the API consumes.
type Order struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []Link `json:"links"`
}

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

// CaptureResult is the flattened outcome of capturing an order.
type CaptureResult struct {
	OrderID   string
	CaptureID string
	Status    string
	Amount    decimal.Decimal
	Currency  string
	CustomID  string
}

type amountPayload struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type createOrderRequest struct {
	Intent        string `json:"intent"`
	PurchaseUnits []struct {
		Amount      amountPayload `json:"amount"`
		Description string        `json:"description,omitempty"`
		CustomID    string        `json:"custom_id,omitempty"`
	} `json:"purchase_units"`
	ApplicationContext struct {
		ShippingPreference string `json:"shipping_preference"`
		UserAction         string `json:"user_action"`
		BrandName          string `json:"brand_name,omitempty"`
	} `json:"application_context"`
}

type captureOrderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID       string        `json:"id"`
				Status   string        `json:"status"`
				Amount   amountPayload `json:"amount"`
				CustomID string        `json:"custom_id"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

// CreateOrder creates a CAPTURE-intent checkout order for a wallet top-up.
func (c *Client) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	if !params.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order amount must be positive")
	}
	currency := params.Currency
	if currency == "" {
		currency = "USD"
	}

	req := createOrderRequest{Intent: "CAPTURE"}
	req.PurchaseUnits = make([]struct {
		Amount      amountPayload `json:"amount"`
		Description string        `json:"description,omitempty"`
		CustomID    string        `json:"custom_id,omitempty"`
	}, 1)
	req.PurchaseUnits[0].Amount = amountPayload{CurrencyCode: currency, Value: params.Amount.StringFixed(2)}
	req.PurchaseUnits[0].Description = params.Description
	req.PurchaseUnits[0].CustomID = params.CustomID
	req.ApplicationContext.ShippingPreference = "NO_SHIPPING"
	req.ApplicationContext.UserAction = "PAY_NOW"
	req.ApplicationContext.BrandName = "Renpay"

	headers := map[string]string{}
	if params.RequestID != "" {
		headers["PayPal-Request-Id"] = params.RequestID
	}

	c.log(ctx, "create_order", map[string]any{
		"amount":   params.Amount.StringFixed(2),
		"currency": currency,
	})

	var order Order
	if err := c.do(ctx, http.MethodPost, "/v2/checkout/orders", headers, req, &order, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}
	return &order, nil
}

// CaptureOrder captures an approved checkout order and returns the first
// capture of the first purchase unit.
func (c *Client) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orderID is required")
	}

	c.log(ctx, "capture_order", map[string]any{"order_id": orderID})

	var resp captureOrderResponse
	path := "/v2/checkout/orders/" + escapePath(orderID) + "/capture"
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, &resp, http.StatusCreated, http.StatusOK); err != nil {
		return nil, err
	}

	result := &CaptureResult{OrderID: resp.ID, Status: resp.Status}
	if len(resp.PurchaseUnits) > 0 && len(resp.PurchaseUnits[0].Payments.Captures) > 0 {
		capture := resp.PurchaseUnits[0].Payments.Captures[0]
		result.CaptureID = capture.ID
		result.Status = capture.Status
		result.Currency = capture.Amount.CurrencyCode
		result.CustomID = capture.CustomID

		amount, err := decimal.NewFromString(capture.Amount.Value)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeGateway, err, "parsing capture amount")
		}
		result.Amount = amount
	}
	if result.CaptureID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGateway, "paypal capture response contained no captures")
	}
	return result, nil
}
