package repository

import (
	"context"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
)

// CandidateScope bounds a candidate lookup to one account, a date window
// around the transaction date, and the transaction's sign.
type CandidateScope struct {
	BankAccountID     uuid.UUID
	Date              time.Time
	DateToleranceDays int
	Inflow            bool
}

// Window returns the inclusive [from, to] bounds of the date window.
func (s CandidateScope) Window() (time.Time, time.Time) {
	tol := time.Duration(s.DateToleranceDays) * 24 * time.Hour
	return s.Date.Add(-tol), s.Date.Add(tol)
}

// CandidateRepository reads match candidates from the four document
// families. Implementations are read-only and return an empty slice,
// not an error, when nothing is in scope.
type CandidateRepository interface {
	FindCandidates(ctx context.Context, scope CandidateScope) ([]models.MatchCandidate, error)
}

// BankTransactionRepository reads imported bank transactions.
type BankTransactionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error)
	// ListPendingUnproposed returns up to limit pending transactions for the
	// account that have no active (non-rejected) reconciliation row yet,
	// ordered by (transaction_date, id) so repeated batches make monotonic
	// progress.
	ListPendingUnproposed(ctx context.Context, bankAccountID uuid.UUID, limit int) ([]models.BankTransaction, error)
}

// RuleRepository reads active reconciliation rules, global ones included,
// ordered by priority.
type RuleRepository interface {
	ListActive(ctx context.Context, bankAccountID uuid.UUID) ([]models.ReconciliationRule, error)
}

// ReconciliationStore owns the BankReconciliation table. It enforces the
// at-most-one-active-row invariant at write time: a create that loses a
// race returns recerrors.ErrConcurrentModification.
type ReconciliationStore interface {
	CreateProposal(ctx context.Context, rec *models.BankReconciliation) error
	GetReconciliationByID(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error)
	ListByAccount(ctx context.Context, bankAccountID uuid.UUID, status models.ReconciliationStatus) ([]models.BankReconciliation, error)
	// ActiveByTransaction returns the single non-rejected row for the
	// transaction, or nil when there is none.
	ActiveByTransaction(ctx context.Context, txID uuid.UUID) (*models.BankReconciliation, error)
	// Confirm moves the row to confirmed and flips the owning transaction
	// to reconciled in one atomic unit.
	Confirm(ctx context.Context, id uuid.UUID, actor string, now time.Time) (*models.BankReconciliation, error)
	// Reject moves the row to rejected, leaving the transaction pending.
	Reject(ctx context.Context, id uuid.UUID, actor, notes string, now time.Time) (*models.BankReconciliation, error)
	AppendAudit(ctx context.Context, entry *models.ReconciliationAuditLog) error
}
