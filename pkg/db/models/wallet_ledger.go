package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/pkg/enums"
)

// WalletLedger is an append-only movement on a wallet. Amount is signed:
// positive for top-ups, negative for order payments. BalanceAfter captures the
// wallet balance as it stood immediately after this entry was applied, which
// gives the history endpoint a running trail without recomputing.
//
// Reference carries the external idempotency key (PayPal capture id, order
// number tag). The (wallet_id, reference) index backs the duplicate check done
// under the wallet row lock.
type WalletLedger struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	WalletID     uuid.UUID             `gorm:"column:wallet_id;type:uuid;not null;index:idx_wallet_ledger_wallet_reference,priority:1"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	Type         enums.LedgerEntryType `gorm:"column:type;not null"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Currency     string                `gorm:"column:currency;not null;default:'USD'"`
	Description  string                `gorm:"column:description;not null"`
	Reference    string                `gorm:"column:reference;not null;index:idx_wallet_ledger_wallet_reference,priority:2"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`

	Order *Order `gorm:"foreignKey:OrderID"`
}

func (wl *WalletLedger) TableName() string { return "wallet_ledger" }

func (wl *WalletLedger) BeforeCreate(tx *gorm.DB) error {
	if wl.ID == uuid.Nil {
		wl.ID = uuid.New()
	}
	return nil
}
