package wallet

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/renpay/renpay-backend/internal/orders"
	"github.com/renpay/renpay-backend/pkg/db/models"
	"github.com/renpay/renpay-backend/pkg/enums"
	pkgerrors "github.com/renpay/renpay-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (g gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db     *gorm.DB
	svc    Service
	repo   Repository
	orders orders.Repository
	userID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Wallet{},
		&models.Order{},
		&models.OrderItem{},
		&models.WalletLedger{},
	); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}

	user := models.User{Email: "buyer@example.com", Name: "buyer"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	repo := NewRepository(conn)
	orderRepo := orders.NewRepository(conn)
	svc, err := NewService(repo, orderRepo, gormTxRunner{db: conn}, nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}

	return &fixture{
		db:     conn,
		svc:    svc,
		repo:   repo,
		orders: orderRepo,
		userID: user.ID,
	}
}

func (f *fixture) seedOrder(t *testing.T, number string, amount string, status enums.OrderStatus) *models.Order {
	t.Helper()
	order := &models.Order{
		OrderNumber: number,
		OrderName:   "shoot " + number,
		TotalCount:  1,
		TotalAmount: decimal.RequireFromString(amount),
		Status:      status,
		UserID:      f.userID,
	}
	if err := f.db.Create(order).Error; err != nil {
		t.Fatalf("failed to seed order %s: %v", number, err)
	}
	return order
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	var wallet models.Wallet
	if err := f.db.Where("user_id = ?", f.userID).First(&wallet).Error; err != nil {
		t.Fatalf("failed to load wallet: %v", err)
	}
	return wallet.Balance
}

func (f *fixture) ledger(t *testing.T) []models.WalletLedger {
	t.Helper()
	var entries []models.WalletLedger
	if err := f.db.Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("failed to load ledger: %v", err)
	}
	return entries
}

func entryByReference(t *testing.T, entries []models.WalletLedger, reference string) models.WalletLedger {
	t.Helper()
	for _, entry := range entries {
		if entry.Reference == reference {
			return entry
		}
	}
	t.Fatalf("ledger entry %q not found", reference)
	return models.WalletLedger{}
}

func TestTopUpCreatesWalletAndEntry(t *testing.T) {
	f := newFixture(t)

	entry, err := f.svc.TopUp(context.Background(), TopUpInput{
		UserID: f.userID,
		Amount: decimal.RequireFromString("100.005"),
	})
	if err != nil {
		t.Fatalf("TopUp error: %v", err)
	}

	// half-up to cents
	if !entry.Amount.Equal(decimal.RequireFromString("100.01")) {
		t.Fatalf("expected normalized amount 100.01, got %s", entry.Amount)
	}
	if !entry.BalanceAfter.Equal(decimal.RequireFromString("100.01")) {
		t.Fatalf("expected balance after 100.01, got %s", entry.BalanceAfter)
	}
	if entry.Type != enums.LedgerEntryTypeTopUp {
		t.Fatalf("expected TOPUP entry, got %s", entry.Type)
	}
	if !strings.HasPrefix(entry.Reference, "LEAF-TOPUP-") {
		t.Fatalf("expected generated reference, got %q", entry.Reference)
	}
	if entry.Description != "Leaf top-up (+100.01 Leaf)" {
		t.Fatalf("unexpected description %q", entry.Description)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("100.01")) {
		t.Fatalf("stored balance mismatch: %s", f.balance(t))
	}
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	for _, amount := range []string{"0", "-5.00"} {
		_, err := f.svc.TopUp(context.Background(), TopUpInput{
			UserID: f.userID,
			Amount: decimal.RequireFromString(amount),
		})
		domainErr := pkgerrors.As(err)
		if domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
			t.Fatalf("amount %s: expected validation error, got %v", amount, err)
		}
	}
}

func TestCreditFromCaptureIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	input := CaptureCreditInput{
		UserID:    f.userID,
		Amount:    decimal.RequireFromString("25.00"),
		Currency:  "USD",
		CaptureID: "CAP123",
	}

	first, err := f.svc.CreditFromCapture(ctx, input)
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}
	if first.AlreadyCredited {
		t.Fatal("first credit should not be marked as duplicate")
	}
	if first.Entry.Reference != "PAYPAL-CAPTURE-CAP123" {
		t.Fatalf("unexpected reference %q", first.Entry.Reference)
	}
	if first.Entry.Description != "PayPal top-up (+25.00 Leaf)" {
		t.Fatalf("unexpected description %q", first.Entry.Description)
	}

	second, err := f.svc.CreditFromCapture(ctx, input)
	if err != nil {
		t.Fatalf("second credit: %v", err)
	}
	if !second.AlreadyCredited {
		t.Fatal("replayed capture should be reported as already credited")
	}
	if !f.balance(t).Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("balance credited twice: %s", f.balance(t))
	}
	if entries := f.ledger(t); len(entries) != 1 {
		t.Fatalf("expected a single ledger entry, got %d", len(entries))
	}
}

func TestPayOrdersSettlesBatchWithRunningBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "30.00", enums.OrderStatusUnpaid)
	f.seedOrder(t, "ORD-2", "45.50", enums.OrderStatusUnpaid)

	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("100.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	result, err := f.svc.PayOrders(ctx, PayOrdersInput{
		UserID:       f.userID,
		OrderNumbers: []string{"ORD-1", "ORD-2", "ORD-1"},
	})
	if err != nil {
		t.Fatalf("PayOrders error: %v", err)
	}

	if len(result.Paid) != 2 {
		t.Fatalf("expected 2 paid orders, got %d", len(result.Paid))
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("expected new balance 24.50, got %s", result.NewBalance)
	}
	if !f.balance(t).Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("stored balance mismatch: %s", f.balance(t))
	}

	var paidCount int64
	if err := f.db.Model(&models.Order{}).
		Where("status = ?", enums.OrderStatusPaid).
		Count(&paidCount).Error; err != nil {
		t.Fatalf("count paid orders: %v", err)
	}
	if paidCount != 2 {
		t.Fatalf("expected both orders marked paid, got %d", paidCount)
	}

	entries := f.ledger(t)
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}

	// payment rows carry the running balance trail, oldest order first
	payment1 := entryByReference(t, entries, "LEAF-ORDER-ORD-1")
	payment2 := entryByReference(t, entries, "LEAF-ORDER-ORD-2")
	if !payment1.Amount.Equal(decimal.RequireFromString("-30.00")) {
		t.Fatalf("expected negative payment amount, got %s", payment1.Amount)
	}
	if payment1.Description != "Paid order ORD-1 with Leaf" {
		t.Fatalf("unexpected description %q", payment1.Description)
	}
	if !payment1.BalanceAfter.Equal(decimal.RequireFromString("70.00")) {
		t.Fatalf("expected running balance 70.00, got %s", payment1.BalanceAfter)
	}
	if !payment2.BalanceAfter.Equal(decimal.RequireFromString("24.50")) {
		t.Fatalf("expected running balance 24.50, got %s", payment2.BalanceAfter)
	}
	if payment1.OrderID == nil || payment2.OrderID == nil {
		t.Fatal("payment entries must link their orders")
	}
}

func TestPayOrdersInsufficientBalanceRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "80.00", enums.OrderStatusUnpaid)
	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("50.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	_, err := f.svc.PayOrders(ctx, PayOrdersInput{UserID: f.userID, OrderNumbers: []string{"ORD-1"}})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeInsufficientBalance {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}

	details, ok := domainErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", domainErr.Details())
	}
	if details["missingAmount"] != "30.00" {
		t.Fatalf("expected missing amount 30.00, got %v", details["missingAmount"])
	}
	if details["walletBalance"] != "50.00" || details["totalAmount"] != "80.00" {
		t.Fatalf("unexpected details: %v", details)
	}

	// nothing moved
	if !f.balance(t).Equal(decimal.RequireFromString("50.00")) {
		t.Fatalf("balance should be unchanged, got %s", f.balance(t))
	}
	var order models.Order
	if err := f.db.Where("order_number = ?", "ORD-1").First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.Status != enums.OrderStatusUnpaid {
		t.Fatalf("order should stay unpaid, got %s", order.Status)
	}
	if entries := f.ledger(t); len(entries) != 1 {
		t.Fatalf("expected only the top-up entry, got %d", len(entries))
	}
}

func TestPayOrdersAllAlreadyPaidIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "30.00", enums.OrderStatusPaid)
	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("10.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	result, err := f.svc.PayOrders(ctx, PayOrdersInput{UserID: f.userID, OrderNumbers: []string{"ORD-1"}})
	if err != nil {
		t.Fatalf("PayOrders error: %v", err)
	}
	if !result.AllAlreadyPaid() {
		t.Fatalf("expected no-op result, got %+v", result)
	}
	if result.Message != "All selected orders are already paid." {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("10.00")) {
		t.Fatalf("balance should be untouched, got %s", result.NewBalance)
	}
	if entries := f.ledger(t); len(entries) != 1 {
		t.Fatalf("expected only the top-up entry, got %d", len(entries))
	}
}

func TestPayOrdersSkipsAlreadyPaidInMixedBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "30.00", enums.OrderStatusPaid)
	f.seedOrder(t, "ORD-2", "20.00", enums.OrderStatusUnpaid)
	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("25.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	result, err := f.svc.PayOrders(ctx, PayOrdersInput{UserID: f.userID, OrderNumbers: []string{"ORD-1", "ORD-2"}})
	if err != nil {
		t.Fatalf("PayOrders error: %v", err)
	}
	if len(result.Paid) != 1 || result.Paid[0].OrderNumber != "ORD-2" {
		t.Fatalf("expected only ORD-2 paid, got %+v", result.Paid)
	}
	if len(result.AlreadyPaid) != 1 || result.AlreadyPaid[0] != "ORD-1" {
		t.Fatalf("expected ORD-1 skipped, got %v", result.AlreadyPaid)
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected balance 5.00, got %s", result.NewBalance)
	}
}

func TestPayOrdersSettlesKnownSubsetOfBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "8.00", enums.OrderStatusUnpaid)
	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("20.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	// unknown numbers are ignored, the matched order still settles
	result, err := f.svc.PayOrders(ctx, PayOrdersInput{
		UserID:       f.userID,
		OrderNumbers: []string{"ORD-1", "ORD-DOES-NOT-EXIST"},
	})
	if err != nil {
		t.Fatalf("PayOrders error: %v", err)
	}
	if len(result.Paid) != 1 || result.Paid[0].OrderNumber != "ORD-1" {
		t.Fatalf("expected ORD-1 paid, got %+v", result.Paid)
	}
	if result.Paid[0].PaidAt.IsZero() {
		t.Fatal("paid order should carry its settlement time")
	}
	if !result.TotalAmount.Equal(decimal.RequireFromString("8.00")) {
		t.Fatalf("expected total 8.00, got %s", result.TotalAmount)
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("12.00")) {
		t.Fatalf("expected balance 12.00, got %s", result.NewBalance)
	}
}

func TestPayOrdersNoMatchingOrdersFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PayOrders(context.Background(), PayOrdersInput{
		UserID:       f.userID,
		OrderNumbers: []string{"ORD-MISSING", " "},
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestPayOrdersTrimsOrderNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seedOrder(t, "ORD-1", "5.00", enums.OrderStatusUnpaid)
	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("10.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	result, err := f.svc.PayOrders(ctx, PayOrdersInput{
		UserID:       f.userID,
		OrderNumbers: []string{"  ORD-1  ", "ORD-1"},
	})
	if err != nil {
		t.Fatalf("PayOrders error: %v", err)
	}
	if len(result.Paid) != 1 || result.Paid[0].OrderNumber != "ORD-1" {
		t.Fatalf("expected ORD-1 paid once, got %+v", result.Paid)
	}
	if !result.NewBalance.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected balance 5.00, got %s", result.NewBalance)
	}
}

func TestPayOrdersDoesNotPayForeignOrders(t *testing.T) {
	f := newFixture(t)

	other := models.User{Email: "other@example.com", Name: "other"}
	if err := f.db.Create(&other).Error; err != nil {
		t.Fatalf("seed other user: %v", err)
	}
	foreign := &models.Order{
		OrderNumber: "ORD-FOREIGN",
		TotalCount:  1,
		TotalAmount: decimal.RequireFromString("10.00"),
		Status:      enums.OrderStatusUnpaid,
		UserID:      other.ID,
	}
	if err := f.db.Create(foreign).Error; err != nil {
		t.Fatalf("seed foreign order: %v", err)
	}

	_, err := f.svc.PayOrders(context.Background(), PayOrdersInput{
		UserID:       f.userID,
		OrderNumbers: []string{"ORD-FOREIGN"},
	})
	domainErr := pkgerrors.As(err)
	if domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for foreign order, got %v", err)
	}
}

func TestGetReturnsWalletAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	overview, err := f.svc.Get(ctx, f.userID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !overview.Wallet.Balance.Equal(decimal.Zero) {
		t.Fatalf("new wallet should start at zero, got %s", overview.Wallet.Balance)
	}
	if len(overview.Entries) != 0 {
		t.Fatalf("new wallet should have no history, got %d entries", len(overview.Entries))
	}

	if _, err := f.svc.TopUp(ctx, TopUpInput{UserID: f.userID, Amount: decimal.RequireFromString("15.00")}); err != nil {
		t.Fatalf("TopUp: %v", err)
	}

	overview, err = f.svc.Get(ctx, f.userID)
	if err != nil {
		t.Fatalf("Get after top-up: %v", err)
	}
	if len(overview.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(overview.Entries))
	}
	if !overview.Wallet.Balance.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected balance 15.00, got %s", overview.Wallet.Balance)
	}
}
