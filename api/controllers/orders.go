package controllers

import (
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/renpay/renpay-backend/api/responses"
	"github.com/renpay/renpay-backend/api/validators"
	"github.com/renpay/renpay-backend/internal/orders"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
)

type orderItemPayload struct {
	Type      string          `json:"type" validate:"required"`
	Count     int             `json:"count" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Link      *string         `json:"link,omitempty"`
}

type createOrderPayload struct {
	Email       string             `json:"email" validate:"required,email"`
	OrderName   string             `json:"orderName" validate:"required"`
	ClientID    string             `json:"clientId,omitempty"`
	ClientName  string             `json:"clientName,omitempty"`
	ClientEmail *string            `json:"clientEmail,omitempty" validate:"omitempty,email"`
	Items       []orderItemPayload `json:"items" validate:"required,min=1,dive"`
}

type updateOrderStatusPayload struct {
	Email       string `json:"email" validate:"required,email"`
	OrderNumber string `json:"orderNumber" validate:"required"`
	Status      string `json:"status" validate:"required,oneof=PAID UNPAID"`
}

// OrdersList returns the caller's orders newest first, items included.
func OrdersList(userRepo users.Repository, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		list, err := svc.List(ctx, user.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"orders": newOrderViews(list)})
	}
}

// OrdersCreate records a new unpaid order with its line items.
func OrdersCreate(userRepo users.Repository, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload createOrderPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
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

		clientName := strings.TrimSpace(payload.ClientName)
		if clientName == "" {
			clientName = user.Email
		}

		items := make([]orders.OrderItemInput, 0, len(payload.Items))
		for _, item := range payload.Items {
			items = append(items, orders.OrderItemInput{
				Type:      item.Type,
				Count:     item.Count,
				UnitPrice: item.UnitPrice,
				Link:      item.Link,
			})
		}

		order, err := svc.Create(ctx, orders.CreateOrderInput{
			UserID:      user.ID,
			OrderName:   payload.OrderName,
			ClientID:    payload.ClientID,
			ClientName:  clientName,
			ClientEmail: payload.ClientEmail,
			Items:       items,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderView(*order))
	}
}

// OrdersUpdateStatus flips an order's paid status by hand. This is the manual
// escape hatch; it does not touch the wallet ledger.
func OrdersUpdateStatus(userRepo users.Repository, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload updateOrderStatusPayload
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
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

		order, err := svc.UpdateStatus(ctx, orders.UpdateStatusInput{
			UserID:      user.ID,
			OrderNumber: payload.OrderNumber,
			Status:      status,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderView(*order))
	}
}

// OrdersDelete removes an order by number. Identity and order number arrive
// as query params because DELETE bodies do not survive every proxy.
func OrdersDelete(userRepo users.Repository, svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		email, err := validators.EmailFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		orderNumber := strings.TrimSpace(r.URL.Query().Get("orderNumber"))
		if orderNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "orderNumber is required"))
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

		if err := svc.Delete(ctx, user.ID, orderNumber); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}
