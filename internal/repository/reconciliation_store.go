package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/recerrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReconciliationStore persists reconciliation rows. The partial unique
// index on (bank_transaction_id) WHERE status <> 'rejected' turns every
// create into a compare-and-swap: the loser of a race gets a duplicate-key
// error, surfaced as ErrConcurrentModification.
type GormReconciliationStore struct {
	db *gorm.DB
}

func NewGormReconciliationStore(db *gorm.DB) *GormReconciliationStore {
	return &GormReconciliationStore{db: db}
}

func (s *GormReconciliationStore) CreateProposal(ctx context.Context, rec *models.BankReconciliation) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("transaction %s already has an active reconciliation: %w",
			rec.BankTransactionID, recerrors.ErrConcurrentModification)
	}
	if err != nil {
		return fmt.Errorf("creating reconciliation: %w", err)
	}
	return nil
}

func (s *GormReconciliationStore) GetReconciliationByID(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error) {
	var rec models.BankReconciliation
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading reconciliation: %w", err)
	}
	return &rec, nil
}

func (s *GormReconciliationStore) ListByAccount(ctx context.Context, bankAccountID uuid.UUID, status models.ReconciliationStatus) ([]models.BankReconciliation, error) {
	recs := []models.BankReconciliation{}
	query := s.db.WithContext(ctx).
		Joins("JOIN bank_transactions bt ON bt.id = bank_reconciliations.bank_transaction_id").
		Where("bt.bank_account_id = ?", bankAccountID).
		Order("bank_reconciliations.created_at ASC, bank_reconciliations.id ASC")
	if status != "" {
		query = query.Where("bank_reconciliations.reconciliation_status = ?", status)
	}
	if err := query.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("listing reconciliations: %w", err)
	}
	return recs, nil
}

func (s *GormReconciliationStore) ActiveByTransaction(ctx context.Context, txID uuid.UUID) (*models.BankReconciliation, error) {
	var rec models.BankReconciliation
	err := s.db.WithContext(ctx).
		Where("bank_transaction_id = ?", txID).
		Where("reconciliation_status <> ?", models.StatusRejected).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active reconciliation: %w", err)
	}
	return &rec, nil
}

// Confirm flips the row to confirmed and the owning transaction to
// reconciled in one database transaction. The status guard on the UPDATE
// protects against a concurrent confirm or reject.
func (s *GormReconciliationStore) Confirm(ctx context.Context, id uuid.UUID, actor string, now time.Time) (*models.BankReconciliation, error) {
	var out *models.BankReconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.BankReconciliation
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
			}
			return err
		}
		if !rec.ReconciliationStatus.CanTransition(models.StatusConfirmed) {
			return recerrors.NewInvalidTransition(string(rec.ReconciliationStatus), string(models.StatusConfirmed))
		}

		res := tx.Model(&models.BankReconciliation{}).
			Where("id = ?", id).
			Where("reconciliation_status IN ?", []models.ReconciliationStatus{models.StatusSuggested, models.StatusMatched}).
			Updates(map[string]interface{}{
				"reconciliation_status": models.StatusConfirmed,
				"reconciled_by":         actor,
				"reconciled_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reconciliation %s changed underneath confirm: %w", id, recerrors.ErrConcurrentModification)
		}

		if err := tx.Model(&models.BankTransaction{}).
			Where("id = ?", rec.BankTransactionID).
			Update("status", models.TransactionReconciled).Error; err != nil {
			return err
		}

		rec.ReconciliationStatus = models.StatusConfirmed
		rec.ReconciledBy = &actor
		rec.ReconciledAt = &now
		out = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reject moves the row to rejected. The owning transaction keeps its
// pending status so a later batch can propose again.
func (s *GormReconciliationStore) Reject(ctx context.Context, id uuid.UUID, actor, notes string, now time.Time) (*models.BankReconciliation, error) {
	var out *models.BankReconciliation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec models.BankReconciliation
		if err := tx.First(&rec, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
			}
			return err
		}
		if !rec.ReconciliationStatus.CanTransition(models.StatusRejected) {
			return recerrors.NewInvalidTransition(string(rec.ReconciliationStatus), string(models.StatusRejected))
		}

		res := tx.Model(&models.BankReconciliation{}).
			Where("id = ?", id).
			Where("reconciliation_status IN ?", []models.ReconciliationStatus{models.StatusSuggested, models.StatusMatched}).
			Updates(map[string]interface{}{
				"reconciliation_status": models.StatusRejected,
				"reconciled_by":         actor,
				"reconciled_at":         now,
				"notes":                 notes,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("reconciliation %s changed underneath reject: %w", id, recerrors.ErrConcurrentModification)
		}

		rec.ReconciliationStatus = models.StatusRejected
		rec.ReconciledBy = &actor
		rec.ReconciledAt = &now
		rec.Notes = &notes
		out = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormReconciliationStore) AppendAudit(ctx context.Context, entry *models.ReconciliationAuditLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("appending audit log: %w", err)
	}
	return nil
}
