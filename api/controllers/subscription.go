package controllers

import (
	"net/http"

	"github.com/renpay/renpay-backend/api/responses"
	"github.com/renpay/renpay-backend/api/validators"
	"github.com/renpay/renpay-backend/internal/subscriptions"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
)

type subscriptionActionPayload struct {
	Action         string `json:"action,omitempty" validate:"omitempty,oneof=activate_paypal"`
	Email          string `json:"email" validate:"required,email"`
	Plan           string `json:"plan" validate:"required,oneof=monthly annual"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
}

// SubscriptionGet returns the caller's active subscription, or null when none
// is active. PayPal-backed rows are re-synced from the gateway best-effort.
func SubscriptionGet(userRepo users.Repository, svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		email, err := validators.EmailFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := userRepo.GetOrCreate(ctx, email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithUserEmail(ctx, user.Email)
		}

		sub, err := svc.Get(ctx, user.ID)
		if err != nil {
			if apiErr := pkgerrors.As(err); apiErr != nil && apiErr.Code() == pkgerrors.CodeNotFound {
				responses.WriteSuccess(w, map[string]any{"subscription": nil})
				return
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}
		// only an active plan is a subscription as far as the front end cares
		if sub != nil && sub.Status != enums.SubscriptionStatusActive {
			responses.WriteSuccess(w, map[string]any{"subscription": nil})
			return
		}
		responses.WriteSuccess(w, map[string]any{"subscription": newSubscriptionView(sub)})
	}
}

// SubscriptionAction activates a PayPal billing subscription when the action
// says so, otherwise records an internally-billed plan.
func SubscriptionAction(userRepo users.Repository, svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "subscription service unavailable"))
			return
		}

		var payload subscriptionActionPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := enums.ParseSubscriptionPlan(payload.Plan)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid plan"))
			return
		}

		user, err := userRepo.GetOrCreate(ctx, payload.Email)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if logg != nil {
			ctx = logg.WithUserEmail(ctx, user.Email)
		}

		if payload.Action == "activate_paypal" {
			if payload.SubscriptionID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "subscriptionId is required"))
				return
			}
			sub, err := svc.ActivatePayPal(ctx, subscriptions.ActivatePayPalInput{
				UserID:                user.ID,
				Plan:                  plan,
				GatewaySubscriptionID: payload.SubscriptionID,
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{"subscription": newSubscriptionView(sub)})
			return
		}

		sub, err := svc.CreateInternal(ctx, user.ID, plan)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"subscription": newSubscriptionView(sub)})
	}
}
