package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/pkg/enums"
)

// Order is a media-delivery order. TotalAmount is immutable in the payment
// path; settlement only flips status and stamps paid_at.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	OrderName   string            `gorm:"column:order_name;not null"`
	TotalCount  int               `gorm:"column:total_count;not null"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'UNPAID'"`
	ClientID    string            `gorm:"column:client_id;not null"`
	ClientName  string            `gorm:"column:client_name;not null"`
	ClientEmail *string           `gorm:"column:client_email"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	PaidAt      *time.Time        `gorm:"column:paid_at"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
