package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/renpay/renpay-backend/api/responses"
	"github.com/renpay/renpay-backend/api/validators"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/internal/wallet"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
	"github.com/renpay/renpay-backend/pkg/metrics"
	"github.com/renpay/renpay-backend/pkg/money"
	"github.com/renpay/renpay-backend/pkg/paypal"
)

// PayPalGateway is the slice of the PayPal client the controllers call.
type PayPalGateway interface {
	ClientID() string
	Environment() string
	PlanID(plan string) string
	CreateOrder(ctx context.Context, params paypal.CreateOrderParams) (*paypal.Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*paypal.CaptureResult, error)
}

type paypalActionPayload struct {
	Action  string           `json:"action" validate:"required,oneof=create_order capture_order"`
	Email   string           `json:"email,omitempty" validate:"omitempty,email"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
	OrderID string           `json:"orderId,omitempty"`
}

// PayPalConfig exposes the public gateway settings the checkout form needs.
func PayPalConfig(gateway PayPalGateway, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gateway == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"clientId": gateway.ClientID(),
			"env":      gateway.Environment(),
			"currency": "USD",
			"planIds": map[string]string{
				"monthly": gateway.PlanID("monthly"),
				"annual":  gateway.PlanID("annual"),
			},
		})
	}
}

// PayPalAction dispatches on the payload action: "create_order" opens a
// checkout order for a wallet top-up, "capture_order" captures it and credits
// the buyer's wallet. Capture replays return alreadyCredited instead of a
// second credit.
func PayPalAction(gateway PayPalGateway, userRepo users.Repository, walletSvc wallet.Service, pm *metrics.PaymentMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if gateway == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured"))
			return
		}
		if userRepo == nil || walletSvc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		var payload paypalActionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		switch payload.Action {
		case "create_order":
			if payload.Email == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "email is required"))
				return
			}
			if payload.Amount == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount is required"))
				return
			}
			if logg != nil {
				ctx = logg.WithUserEmail(ctx, payload.Email)
			}

			order, err := gateway.CreateOrder(ctx, paypal.CreateOrderParams{
				Amount:      *payload.Amount,
				Currency:    "USD",
				Description: "Renpay Leaf top-up",
				CustomID:    users.NormalizeEmail(payload.Email),
				RequestID:   uuid.NewString(),
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]string{
				"orderId": order.ID,
				"status":  order.Status,
			})

		case "capture_order":
			if payload.OrderID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderId is required"))
				return
			}

			capture, err := gateway.CaptureOrder(ctx, payload.OrderID)
			if err != nil {
				pm.IncCapture("error")
				responses.WriteError(ctx, logg, w, err)
				return
			}
			if !strings.EqualFold(capture.Status, "COMPLETED") {
				pm.IncCapture("incomplete")
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeGateway, "capture not completed").
					WithDetails(map[string]string{"status": capture.Status}))
				return
			}
			pm.IncCapture("completed")

			// The buyer email rides on custom_id; the payload email is the
			// fallback for orders created before that was wired.
			email := capture.CustomID
			if email == "" {
				email = payload.Email
			}
			if email == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "no buyer email on capture"))
				return
			}
			if logg != nil {
				ctx = logg.WithUserEmail(ctx, email)
			}

			user, err := userRepo.GetOrCreate(ctx, email)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			result, err := walletSvc.CreditFromCapture(ctx, wallet.CaptureCreditInput{
				UserID:    user.ID,
				Amount:    capture.Amount,
				Currency:  capture.Currency,
				CaptureID: capture.CaptureID,
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			responses.WriteSuccess(w, map[string]any{
				"captureId":       capture.CaptureID,
				"paypalOrderId":   capture.OrderID,
				"status":          capture.Status,
				"amount":          money.Format(capture.Amount),
				"currency":        capture.Currency,
				"alreadyCredited": result.AlreadyCredited,
				"leafBalance":     money.Format(result.Wallet.Balance),
			})

		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown action"))
		}
	}
}
