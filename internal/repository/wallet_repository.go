package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aimd54/fanscore/internal/models"
)

// WalletRepository manages reward point balances and their transaction log.
type WalletRepository struct {
	db *DB
}

// NewWalletRepository creates a new wallet repository.
func NewWalletRepository(db *DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// Credit adds amount to a user's wallet, creating it if needed, and records the
// matching transaction. Both writes commit together.
func (r *WalletRepository) Credit(ctx context.Context, txn *models.PointTransaction) (*models.UserWallet, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}

	var wallet models.UserWallet
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", txn.UserID).First(&wallet).Error
		switch {
		case notFound(err):
			wallet = models.UserWallet{UserID: txn.UserID, PointsBalance: txn.Amount}
			if err := tx.Create(&wallet).Error; err != nil {
				return fmt.Errorf("failed to create wallet: %w", err)
			}
		case err != nil:
			return fmt.Errorf("failed to read wallet: %w", err)
		default:
			if err := tx.Model(&wallet).
				Update("points_balance", gorm.Expr("points_balance + ?", txn.Amount)).Error; err != nil {
				return fmt.Errorf("failed to update wallet: %w", err)
			}
			if err := tx.Where("user_id = ?", txn.UserID).First(&wallet).Error; err != nil {
				return fmt.Errorf("failed to reload wallet: %w", err)
			}
		}

		if err := tx.Create(txn).Error; err != nil {
			return fmt.Errorf("failed to record transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetWallet returns a user's wallet, or nil when the user never earned points.
func (r *WalletRepository) GetWallet(ctx context.Context, userID string) (*models.UserWallet, error) {
	var wallet models.UserWallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

// ListTransactions returns a user's most recent wallet transactions.
func (r *WalletRepository) ListTransactions(ctx context.Context, userID string, limit int) ([]models.PointTransaction, error) {
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
