package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/internal/orders"
	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
	"github.com/renpay/renpay-backend/pkg/metrics"
	"github.com/renpay/renpay-backend/pkg/money"
)

const ledgerHistoryLimit = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the wallet ledger operations. Every balance change happens
// inside a transaction that locks the wallet row, writes the ledger entry, and
// updates the stored balance together.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*Overview, error)
	TopUp(ctx context.Context, input TopUpInput) (*models.WalletLedger, error)
	CreditFromCapture(ctx context.Context, input CaptureCreditInput) (*CaptureCreditResult, error)
	PayOrders(ctx context.Context, input PayOrdersInput) (*PayOrdersResult, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	tx      txRunner
	metrics *metrics.PaymentMetrics
}

// Overview bundles the wallet with its recent ledger history.
type Overview struct {
	Wallet  *models.Wallet
	Entries []models.WalletLedger
}

// TopUpInput credits a wallet directly.
type TopUpInput struct {
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// CaptureCreditInput credits a wallet from a completed PayPal capture.
type CaptureCreditInput struct {
	UserID    uuid.UUID
	Amount    decimal.Decimal
	Currency  string
	CaptureID string
}

// CaptureCreditResult reports the credit outcome. AlreadyCredited is set when
// the capture reference was seen before and no new entry was written.
type CaptureCreditResult struct {
	Entry           *models.WalletLedger
	Wallet          *models.Wallet
	AlreadyCredited bool
}

// PayOrdersInput settles a batch of the caller's orders from the wallet.
type PayOrdersInput struct {
	UserID       uuid.UUID
	OrderNumbers []string
}

// PaidOrder is one order settled in a PayOrders call.
type PaidOrder struct {
	OrderNumber string
	OrderName   string
	Amount      decimal.Decimal
	PaidAt      time.Time
}

// PayOrdersResult reports which orders were paid, which were skipped because
// they were already paid, and the balance after settlement.
type PayOrdersResult struct {
	Message     string
	Paid        []PaidOrder
	AlreadyPaid []string
	TotalAmount decimal.Decimal
	NewBalance  decimal.Decimal
	Currency    string
}

// AllAlreadyPaid reports whether the call was an idempotent no-op.
func (r *PayOrdersResult) AllAlreadyPaid() bool {
	return len(r.Paid) == 0 && len(r.AlreadyPaid) > 0
}

// NewService wires a wallet service with the required dependencies.
func NewService(repo Repository, orderRepo orders.Repository, tx txRunner, paymentMetrics *metrics.PaymentMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:    repo,
		orders:  orderRepo,
		tx:      tx,
		metrics: paymentMetrics,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*Overview, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	wallet, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet")
	}
	entries, err := s.repo.ListLedger(ctx, wallet.ID, ledgerHistoryLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load wallet ledger")
	}
	return &Overview{Wallet: wallet, Entries: entries}, nil
}

func (s *service) TopUp(ctx context.Context, input TopUpInput) (*models.WalletLedger, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	amount := money.Normalize(input.Amount)
	reference := input.Reference
	if reference == "" {
		reference = fmt.Sprintf("LEAF-TOPUP-%d", time.Now().UnixMilli())
	}
	description := input.Description
	if description == "" {
		description = fmt.Sprintf("Leaf top-up (+%s Leaf)", money.Format(amount))
	}

	var entry *models.WalletLedger
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := lockWallet(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		entry, err = credit(ctx, repo, wallet, creditParams{
			amount:      amount,
			entryType:   enums.LedgerEntryTypeTopUp,
			description: description,
			reference:   reference,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTopUp(amount)
	return entry, nil
}

func (s *service) CreditFromCapture(ctx context.Context, input CaptureCreditInput) (*CaptureCreditResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.CaptureID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capture id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capture amount must be positive")
	}

	amount := money.Normalize(input.Amount)
	reference := fmt.Sprintf("PAYPAL-CAPTURE-%s", input.CaptureID)

	result := &CaptureCreditResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		wallet, err := lockWallet(ctx, repo, input.UserID)
		if err != nil {
			return err
		}

		// a replayed capture must not credit twice
		seen, err := repo.HasReference(ctx, wallet.ID, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check capture reference")
		}
		if seen {
			result.Wallet = wallet
			result.AlreadyCredited = true
			return nil
		}

		entry, err := credit(ctx, repo, wallet, creditParams{
			amount:      amount,
			entryType:   enums.LedgerEntryTypeTopUp,
			description: fmt.Sprintf("PayPal top-up (+%s Leaf)", money.Format(amount)),
			reference:   reference,
		})
		if err != nil {
			return err
		}
		result.Entry = entry
		result.Wallet = wallet
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.AlreadyCredited {
		s.metrics.IncTopUp(amount)
	}
	return result, nil
}

func (s *service) PayOrders(ctx context.Context, input PayOrdersInput) (*PayOrdersResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	numbers := dedupe(input.OrderNumbers)
	if len(numbers) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order number is required")
	}

	result := &PayOrdersResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		batch, err := orderRepo.FindByNumbersForUser(ctx, input.UserID, numbers)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
		}
		// unknown numbers are skipped; the call fails only when nothing matched
		if len(batch) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "no matching orders found")
		}

		unpaid := make([]models.Order, 0, len(batch))
		for _, order := range batch {
			if order.Status == enums.OrderStatusPaid {
				result.AlreadyPaid = append(result.AlreadyPaid, order.OrderNumber)
				continue
			}
			unpaid = append(unpaid, order)
		}

		wallet, err := lockWallet(ctx, repo, input.UserID)
		if err != nil {
			return err
		}
		result.Currency = wallet.Currency

		// all requested orders already settled: no-op, balance untouched
		if len(unpaid) == 0 {
			result.Message = "All selected orders are already paid."
			result.NewBalance = wallet.Balance
			return nil
		}

		total := decimal.Zero
		for _, order := range unpaid {
			total = total.Add(order.TotalAmount)
		}
		total = money.Normalize(total)

		if wallet.Balance.LessThan(total) {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient Leaf balance").
				WithDetails(map[string]any{
					"walletBalance": money.Format(wallet.Balance),
					"totalAmount":   money.Format(total),
					"missingAmount": money.Format(total.Sub(wallet.Balance)),
				})
		}

		balance := wallet.Balance
		paidAt := time.Now().UTC()
		for _, order := range unpaid {
			amount := money.Normalize(order.TotalAmount)
			balance = balance.Sub(amount)

			if err := orderRepo.MarkPaid(ctx, order.ID, enums.OrderStatusPaid); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
			}

			orderID := order.ID
			entry := &models.WalletLedger{
				WalletID:     wallet.ID,
				UserID:       wallet.UserID,
				OrderID:      &orderID,
				Type:         enums.LedgerEntryTypeOrderPayment,
				Amount:       amount.Neg(),
				BalanceAfter: balance,
				Currency:     wallet.Currency,
				Description:  fmt.Sprintf("Paid order %s with Leaf", order.OrderNumber),
				Reference:    fmt.Sprintf("LEAF-ORDER-%s", order.OrderNumber),
			}
			if err := repo.CreateLedgerEntry(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
			}

			result.Paid = append(result.Paid, PaidOrder{
				OrderNumber: order.OrderNumber,
				OrderName:   order.OrderName,
				Amount:      amount,
				PaidAt:      paidAt,
			})
		}

		if err := repo.UpdateBalance(ctx, wallet.ID, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
		}

		result.Message = fmt.Sprintf("Paid %d order(s).", len(result.Paid))
		result.TotalAmount = total
		result.NewBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncOrderPayments(len(result.Paid))
	return result, nil
}

type creditParams struct {
	amount      decimal.Decimal
	entryType   enums.LedgerEntryType
	description string
	reference   string
}

// credit raises the wallet balance and writes the matching ledger entry.
// Callers must hold the wallet row lock.
func credit(ctx context.Context, repo Repository, wallet *models.Wallet, params creditParams) (*models.WalletLedger, error) {
	balance := wallet.Balance.Add(params.amount)

	entry := &models.WalletLedger{
		WalletID:     wallet.ID,
		UserID:       wallet.UserID,
		Type:         params.entryType,
		Amount:       params.amount,
		BalanceAfter: balance,
		Currency:     wallet.Currency,
		Description:  params.description,
		Reference:    params.reference,
	}
	if err := repo.CreateLedgerEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write ledger entry")
	}
	if err := repo.UpdateBalance(ctx, wallet.ID, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update wallet balance")
	}

	wallet.Balance = balance
	return entry, nil
}

// lockWallet ensures the wallet exists and returns it locked for update.
func lockWallet(ctx context.Context, repo Repository, userID uuid.UUID) (*models.Wallet, error) {
	if _, err := repo.GetOrCreate(ctx, userID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure wallet")
	}
	wallet, err := repo.FindForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "wallet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet")
	}
	return wallet, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
