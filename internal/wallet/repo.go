package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/renpay/renpay-backend/pkg/db/models"
)

// Repository manages persistence for wallets and their ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	FindForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error
	CreateLedgerEntry(ctx context.Context, entry *models.WalletLedger) error
	HasReference(ctx context.Context, walletID uuid.UUID, reference string) (bool, error)
	ListLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletLedger, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallet repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.Wallet{
		UserID:   userID,
		Currency: "USD",
		Balance:  decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// FindForUpdate loads the wallet row under SELECT ... FOR UPDATE so concurrent
// balance mutations serialize on the row. SQLite has no row locks and
// serializes writers on its own, so the clause is Postgres-only.
func (r *repository) FindForUpdate(ctx context.Context, userID uuid.UUID) (*models.Wallet, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var wallet models.Wallet
	if err := query.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (r *repository) UpdateBalance(ctx context.Context, walletID uuid.UUID, balance decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ?", walletID).
		UpdateColumn("balance", balance).Error
}

func (r *repository) CreateLedgerEntry(ctx context.Context, entry *models.WalletLedger) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) HasReference(ctx context.Context, walletID uuid.UUID, reference string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WalletLedger{}).
		Where("wallet_id = ? AND reference = ?", walletID, reference).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListLedger(ctx context.Context, walletID uuid.UUID, limit int) ([]models.WalletLedger, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.WalletLedger
	if err := r.db.WithContext(ctx).
		Preload("Order").
		Where("wallet_id = ?", walletID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
