package orders

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/money"
)

// Service defines order lifecycle operations outside of payment.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Delete(ctx context.Context, userID uuid.UUID, orderNumber string) error
}

type service struct {
	repo Repository
}

// CreateOrderInput captures a new order and its line items.
type CreateOrderInput struct {
	UserID      uuid.UUID
	OrderName   string
	ClientID    string
	ClientName  string
	ClientEmail *string
	Items       []OrderItemInput
}

// OrderItemInput is a single media deliverable on an order.
type OrderItemInput struct {
	Type      string
	Count     int
	UnitPrice decimal.Decimal
	Link      *string
}

// UpdateStatusInput marks an order paid or unpaid by hand. Manual overrides
// do not touch the wallet ledger.
type UpdateStatusInput struct {
	UserID      uuid.UUID
	OrderNumber string
	Status      enums.OrderStatus
}

// NewService wires an orders service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order item is required")
	}

	totalCount := 0
	totalAmount := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Type == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item type is required")
		}
		if item.Count <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item count must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item unit price cannot be negative")
		}

		unitPrice := money.Normalize(item.UnitPrice)
		totalCount += item.Count
		totalAmount = totalAmount.Add(unitPrice.Mul(decimal.NewFromInt(int64(item.Count))))
		items = append(items, models.OrderItem{
			Type:      item.Type,
			Count:     item.Count,
			UnitPrice: unitPrice,
			Link:      item.Link,
		})
	}

	clientID := input.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("CLI-%05d", rand.Intn(100000))
	}

	order := &models.Order{
		OrderNumber: NewOrderNumber(),
		OrderName:   input.OrderName,
		TotalCount:  totalCount,
		TotalAmount: money.Normalize(totalAmount),
		Status:      enums.OrderStatusUnpaid,
		ClientID:    clientID,
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		UserID:      input.UserID,
		Items:       items,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	orders, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.OrderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}

	order, err := s.findOwnedOrder(ctx, input.UserID, input.OrderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status == input.Status {
		return order, nil
	}

	if err := s.repo.MarkPaid(ctx, order.ID, input.Status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = input.Status
	if input.Status == enums.OrderStatusPaid {
		now := time.Now()
		order.PaidAt = &now
	} else {
		order.PaidAt = nil
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, userID uuid.UUID, orderNumber string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if orderNumber == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}

	order, err := s.findOwnedOrder(ctx, userID, orderNumber)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, order.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
	}
	return nil
}

func (s *service) findOwnedOrder(ctx context.Context, userID uuid.UUID, orderNumber string) (*models.Order, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// NewOrderNumber returns a millisecond-stamped order number.
func NewOrderNumber() string {
	return fmt.Sprintf("ORD-%d", time.Now().UnixMilli())
}
