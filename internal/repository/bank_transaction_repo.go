package repository

import (
	"context"
	"errors"
	"fmt"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/recerrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormBankTransactionRepository struct {
	db *gorm.DB
}

func NewGormBankTransactionRepository(db *gorm.DB) *GormBankTransactionRepository {
	return &GormBankTransactionRepository{db: db}
}

func (r *GormBankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var tx models.BankTransaction
	err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("bank transaction %s: %w", id, recerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading bank transaction: %w", err)
	}
	return &tx, nil
}

func (r *GormBankTransactionRepository) ListPendingUnproposed(ctx context.Context, bankAccountID uuid.UUID, limit int) ([]models.BankTransaction, error) {
	var txs []models.BankTransaction
	err := r.db.WithContext(ctx).
		Where("bank_account_id = ?", bankAccountID).
		Where("status = ?", models.TransactionPending).
		Where("NOT EXISTS (SELECT 1 FROM bank_reconciliations br WHERE br.bank_transaction_id = bank_transactions.id AND br.reconciliation_status <> ?)", models.StatusRejected).
		Order("transaction_date ASC, id ASC").
		Limit(limit).
		Find(&txs).Error
	if err != nil {
		return nil, fmt.Errorf("listing pending transactions: %w", err)
	}
	return txs, nil
}

type GormRuleRepository struct {
	db *gorm.DB
}

func NewGormRuleRepository(db *gorm.DB) *GormRuleRepository {
	return &GormRuleRepository{db: db}
}

// ListActive returns active rules scoped to the account plus global rules,
// highest priority first.
func (r *GormRuleRepository) ListActive(ctx context.Context, bankAccountID uuid.UUID) ([]models.ReconciliationRule, error) {
	var rules []models.ReconciliationRule
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("bank_account_id = ? OR bank_account_id IS NULL", bankAccountID).
		Order("priority DESC, id ASC").
		Find(&rules).Error
	if err != nil {
		return nil, fmt.Errorf("listing reconciliation rules: %w", err)
	}
	return rules, nil
}
