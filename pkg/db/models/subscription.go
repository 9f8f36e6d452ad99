package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/pkg/enums"
)

// Subscription tracks a user's service plan. At most one row per user may be
// in the active state; activation cancels any other active rows in the same
// transaction.
type Subscription struct {
	ID                    uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID                uuid.UUID                `gorm:"column:user_id;type:uuid;not null;index"`
	Plan                  enums.SubscriptionPlan   `gorm:"column:plan;not null"`
	Status                enums.SubscriptionStatus `gorm:"column:status;not null"`
	Gateway               enums.PaymentGateway     `gorm:"column:gateway;not null"`
	GatewaySubscriptionID *string                  `gorm:"column:gateway_subscription_id;uniqueIndex"`
	StartedAt             *time.Time               `gorm:"column:started_at"`
	NextBillingAt         *time.Time               `gorm:"column:next_billing_at"`
	ExpiresAt             *time.Time               `gorm:"column:expires_at"`
	CreatedAt             time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
