package controllers

import (
	"time"

	"github.com/renpay/renpay-backend/internal/wallet"
	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/money"
)

// View types shape API payloads independently of the gorm models, so schema
// changes never leak into the contract the front end depends on.

type walletView struct {
	LeafBalance string `json:"leafBalance"`
	Currency    string `json:"currency"`
}

type ledgerEntryView struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balanceAfter"`
	Currency     string    `json:"currency"`
	Description  string    `json:"description"`
	Reference    string    `json:"reference"`
	OrderNumber  *string   `json:"orderNumber,omitempty"`
	OrderName    *string   `json:"orderName,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type orderItemView struct {
	Type      string  `json:"type"`
	Count     int     `json:"count"`
	UnitPrice string  `json:"unitPrice"`
	Link      *string `json:"link,omitempty"`
}

type orderView struct {
	OrderNumber string          `json:"orderNumber"`
	OrderName   string          `json:"orderName"`
	TotalCount  int             `json:"totalCount"`
	TotalAmount string          `json:"totalAmount"`
	Status      string          `json:"status"`
	ClientID    string          `json:"clientId"`
	ClientName  string          `json:"clientName"`
	ClientEmail *string         `json:"clientEmail,omitempty"`
	PaidAt      *time.Time      `json:"paidAt,omitempty"`
	Items       []orderItemView `json:"items"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type subscriptionView struct {
	Plan                  string     `json:"plan"`
	Status                string     `json:"status"`
	Gateway               string     `json:"gateway"`
	GatewaySubscriptionID *string    `json:"gatewaySubscriptionId,omitempty"`
	StartedAt             *time.Time `json:"startedAt,omitempty"`
	NextBillingAt         *time.Time `json:"nextBillingAt,omitempty"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
}

type paidOrderView struct {
	OrderNumber string    `json:"orderNumber"`
	OrderName   string    `json:"orderName"`
	Amount      string    `json:"amount"`
	PaidAt      time.Time `json:"paidAt"`
}

type emailStatusView struct {
	Sent    bool    `json:"sent"`
	Skipped bool    `json:"skipped"`
	Reason  *string `json:"reason,omitempty"`
}

func newWalletView(w *models.Wallet) walletView {
	return walletView{LeafBalance: money.Format(w.Balance), Currency: w.Currency}
}

func newLedgerEntryView(entry models.WalletLedger) ledgerEntryView {
	view := ledgerEntryView{
		ID:           entry.ID.String(),
		Type:         string(entry.Type),
		Amount:       money.Format(entry.Amount),
		BalanceAfter: money.Format(entry.BalanceAfter),
		Currency:     entry.Currency,
		Description:  entry.Description,
		Reference:    entry.Reference,
		CreatedAt:    entry.CreatedAt,
	}
	if entry.Order != nil {
		view.OrderNumber = &entry.Order.OrderNumber
		view.OrderName = &entry.Order.OrderName
	}
	return view
}

func newOrderView(order models.Order) orderView {
	items := make([]orderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemView{
			Type:      item.Type,
			Count:     item.Count,
			UnitPrice: money.Format(item.UnitPrice),
			Link:      item.Link,
		})
	}
	return orderView{
		OrderNumber: order.OrderNumber,
		OrderName:   order.OrderName,
		TotalCount:  order.TotalCount,
		TotalAmount: money.Format(order.TotalAmount),
		Status:      string(order.Status),
		ClientID:    order.ClientID,
		ClientName:  order.ClientName,
		ClientEmail: order.ClientEmail,
		PaidAt:      order.PaidAt,
		Items:       items,
		CreatedAt:   order.CreatedAt,
	}
}

func newOrderViews(orders []models.Order) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order))
	}
	return views
}

func newSubscriptionView(sub *models.Subscription) *subscriptionView {
	if sub == nil {
		return nil
	}
	return &subscriptionView{
		Plan:                  string(sub.Plan),
		Status:                string(sub.Status),
		Gateway:               string(sub.Gateway),
		GatewaySubscriptionID: sub.GatewaySubscriptionID,
		StartedAt:             sub.StartedAt,
		NextBillingAt:         sub.NextBillingAt,
		ExpiresAt:             sub.ExpiresAt,
	}
}

func newPaidOrderViews(paid []wallet.PaidOrder) []paidOrderView {
	views := make([]paidOrderView, 0, len(paid))
	for _, entry := range paid {
		views = append(views, paidOrderView{
			OrderNumber: entry.OrderNumber,
			OrderName:   entry.OrderName,
			Amount:      money.Format(entry.Amount),
			PaidAt:      entry.PaidAt,
		})
	}
	return views
}
