package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/renpay/renpay-backend/api/responses"
	"github.com/renpay/renpay-backend/api/validators"
	"github.com/renpay/renpay-backend/internal/mailer"
	"github.com/renpay/renpay-backend/internal/users"
	"github.com/renpay/renpay-backend/internal/wallet"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/logger"
	"github.com/renpay/renpay-backend/pkg/money"
)

type walletActionPayload struct {
	Action       string           `json:"action" validate:"required,oneof=topup pay_orders"`
	Email        string           `json:"email" validate:"required,email"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Description  string           `json:"description,omitempty"`
	Reference    string           `json:"reference,omitempty"`
	OrderNumbers []string         `json:"orderNumbers,omitempty"`
}

// WalletGet returns the caller's balance and recent ledger history.
func WalletGet(userRepo users.Repository, svc wallet.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
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

		overview, err := svc.Get(ctx, user.ID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		ledger := make([]ledgerEntryView, 0, len(overview.Entries))
		for _, entry := range overview.Entries {
			ledger = append(ledger, newLedgerEntryView(entry))
		}
		responses.WriteSuccess(w, map[string]any{
			"wallet": newWalletView(overview.Wallet),
			"ledger": ledger,
		})
	}
}

// WalletAction dispatches on the payload action: "topup" credits the wallet
// directly, "pay_orders" settles a batch of orders from the balance and then
// sends a receipt email. The email result rides on the response and never
// fails the payment.
func WalletAction(userRepo users.Repository, svc wallet.Service, notifier mailer.Mailer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if userRepo == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wallet service unavailable"))
			return
		}

		var payload walletActionPayload
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

		switch payload.Action {
		case "topup":
			if payload.Amount == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount is required"))
				return
			}
			entry, err := svc.TopUp(ctx, wallet.TopUpInput{
				UserID:      user.ID,
				Amount:      *payload.Amount,
				Description: payload.Description,
				Reference:   payload.Reference,
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]any{
				"wallet": walletView{
					LeafBalance: money.Format(entry.BalanceAfter),
					Currency:    entry.Currency,
				},
				"ledgerEntry": newLedgerEntryView(*entry),
			})

		case "pay_orders":
			result, err := svc.PayOrders(ctx, wallet.PayOrdersInput{
				UserID:       user.ID,
				OrderNumbers: payload.OrderNumbers,
			})
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			emailStatus := mailer.Status{Skipped: true}
			if notifier != nil && !result.AllAlreadyPaid() {
				emailStatus = notifier.SendOrdersPaid(ctx, user.Email, result)
			}

			responses.WriteSuccess(w, map[string]any{
				"message":     result.Message,
				"paidOrders":  newPaidOrderViews(result.Paid),
				"alreadyPaid": result.AlreadyPaid,
				"totalAmount": money.Format(result.TotalAmount),
				"wallet": walletView{
					LeafBalance: money.Format(result.NewBalance),
					Currency:    result.Currency,
				},
				"email": emailStatusView{
					Sent:    emailStatus.Sent,
					Skipped: emailStatus.Skipped,
					Reason:  emailStatus.Reason,
				},
			})

		default:
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown action"))
		}
	}
}
