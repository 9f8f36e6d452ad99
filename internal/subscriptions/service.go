package subscriptions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
	"github.com/renpay/renpay-backend/pkg/paypal"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayClient interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*paypal.Subscription, error)
	PlanID(plan string) string
}

// Service manages the user's service plan.
type Service interface {
	ActivatePayPal(ctx context.Context, input ActivatePayPalInput) (*models.Subscription, error)
	Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CreateInternal(ctx context.Context, userID uuid.UUID, plan enums.SubscriptionPlan) (*models.Subscription, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	gateway gatewayClient
	logger  *logger.Logger
}

// ActivatePayPalInput records a PayPal billing subscription locally.
type ActivatePayPalInput struct {
	UserID                uuid.UUID
	Plan                  enums.SubscriptionPlan
	GatewaySubscriptionID string
}

// NewService wires a subscriptions service with the required dependencies.
func NewService(repo Repository, tx txRunner, gateway gatewayClient, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("subscriptions repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		gateway: gateway,
		logger:  logg,
	}, nil
}

func (s *service) ActivatePayPal(ctx context.Context, input ActivatePayPalInput) (*models.Subscription, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid plan %q", input.Plan))
	}
	if input.GatewaySubscriptionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if s.gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paypal gateway is not configured")
	}

	remote, err := s.gateway.GetSubscription(ctx, input.GatewaySubscriptionID)
	if err != nil {
		return nil, err
	}

	// the paid plan must match what the caller claims to have bought
	expectedPlanID := s.gateway.PlanID(string(input.Plan))
	if expectedPlanID != "" && remote.PlanID != expectedPlanID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription plan does not match the selected plan").
			WithDetails(map[string]any{"expectedPlanId": expectedPlanID, "actualPlanId": remote.PlanID})
	}

	status := MapPayPalStatus(remote.Status)
	switch status {
	case enums.SubscriptionStatusCanceled, enums.SubscriptionStatusSuspended:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription is not active on PayPal").
			WithDetails(map[string]any{"gatewayStatus": remote.Status})
	case enums.SubscriptionStatusPending:
		// approval already happened by the time the front end calls us
		status = enums.SubscriptionStatusActive
	}
	now := time.Now()
	startedAt := remote.StartTime
	if startedAt == nil {
		startedAt = &now
	}
	nextBilling := remote.NextBillingTime
	if nextBilling == nil {
		fallback := NextBillingFallback(input.Plan, *startedAt)
		nextBilling = &fallback
	}

	var sub *models.Subscription
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindByGatewayID(ctx, input.GatewaySubscriptionID)
		switch {
		case err == nil:
			existing.Plan = input.Plan
			existing.Status = status
			existing.StartedAt = startedAt
			existing.NextBillingAt = nextBilling
			existing.ExpiresAt = nextBilling
			if err := repo.Update(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update subscription")
			}
			sub = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			gatewayID := input.GatewaySubscriptionID
			sub = &models.Subscription{
				UserID:                input.UserID,
				Plan:                  input.Plan,
				Status:                status,
				Gateway:               enums.PaymentGatewayPayPal,
				GatewaySubscriptionID: &gatewayID,
				StartedAt:             startedAt,
				NextBillingAt:         nextBilling,
				ExpiresAt:             nextBilling,
			}
			if err := repo.Create(ctx, sub); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
		}

		if sub.Status == enums.SubscriptionStatusActive {
			if err := repo.CancelOtherActive(ctx, input.UserID, sub.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel other subscriptions")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Get returns the user's active subscription, refreshing its status from the
// gateway when possible. Without an active row the newest one is reported, so
// a recently canceled plan still shows up. Gateway failures degrade to the
// stored state.
func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	sub, err := s.repo.FindActiveByUser(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub, err = s.repo.FindLatestByUser(ctx, userID)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no subscription found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}

	if s.gateway != nil && sub.Gateway == enums.PaymentGatewayPayPal && sub.GatewaySubscriptionID != nil {
		remote, err := s.gateway.GetSubscription(ctx, *sub.GatewaySubscriptionID)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn(ctx, "subscription status sync failed")
			}
			return sub, nil
		}
		if status := MapPayPalStatus(remote.Status); status != sub.Status {
			sub.Status = status
			if remote.NextBillingTime != nil {
				sub.NextBillingAt = remote.NextBillingTime
			}
			if err := s.repo.Update(ctx, sub); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist synced status")
			}
		}
	}
	return sub, nil
}

// CreateInternal grants a subscription without a payment gateway, used for
// manually provisioned accounts.
func (s *service) CreateInternal(ctx context.Context, userID uuid.UUID, plan enums.SubscriptionPlan) (*models.Subscription, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !plan.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid plan %q", plan))
	}

	now := time.Now()

	// an active, unexpired subscription is simply returned instead of minting
	// a second one
	existing, err := s.repo.FindActiveByUser(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load subscription")
	}
	if err == nil && (existing.ExpiresAt == nil || existing.ExpiresAt.After(now)) {
		return existing, nil
	}

	next := NextBillingFallback(plan, now)
	sub := &models.Subscription{
		UserID:        userID,
		Plan:          plan,
		Status:        enums.SubscriptionStatusActive,
		Gateway:       enums.PaymentGatewayInternal,
		StartedAt:     &now,
		NextBillingAt: &next,
		ExpiresAt:     &next,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
		}
		if err := repo.CancelOtherActive(ctx, userID, sub.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel other subscriptions")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}
