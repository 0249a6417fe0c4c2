package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/recerrors"

	"github.com/google/uuid"
)

// MemoryStore implements every repository interface with in-memory maps.
// It backs the test suite and local runs without Postgres, and enforces
// the same at-most-one-active-row invariant as the SQL store, under one
// mutex instead of a partial unique index.
type MemoryStore struct {
	mu sync.RWMutex

	transactions     map[uuid.UUID]*models.BankTransaction
	reconciliations  map[uuid.UUID]*models.BankReconciliation
	rules            map[uuid.UUID]*models.ReconciliationRule
	invoicesReceived map[uuid.UUID]*models.InvoiceReceived
	invoicesIssued   map[uuid.UUID]*models.InvoiceIssued
	entries          map[uuid.UUID]*models.AccountingEntry
	closures         map[uuid.UUID]*models.DailyClosure
	auditLog         []models.ReconciliationAuditLog
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions:     make(map[uuid.UUID]*models.BankTransaction),
		reconciliations:  make(map[uuid.UUID]*models.BankReconciliation),
		rules:            make(map[uuid.UUID]*models.ReconciliationRule),
		invoicesReceived: make(map[uuid.UUID]*models.InvoiceReceived),
		invoicesIssued:   make(map[uuid.UUID]*models.InvoiceIssued),
		entries:          make(map[uuid.UUID]*models.AccountingEntry),
		closures:         make(map[uuid.UUID]*models.DailyClosure),
	}
}

// Seed helpers used by tests and local runs.

func (m *MemoryStore) AddTransaction(tx models.BankTransaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactions[tx.ID] = &tx
}

func (m *MemoryStore) AddInvoiceReceived(inv models.InvoiceReceived) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoicesReceived[inv.ID] = &inv
}

func (m *MemoryStore) AddInvoiceIssued(inv models.InvoiceIssued) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoicesIssued[inv.ID] = &inv
}

func (m *MemoryStore) AddEntry(e models.AccountingEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = &e
}

func (m *MemoryStore) AddClosure(cl models.DailyClosure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closures[cl.ID] = &cl
}

func (m *MemoryStore) AddRule(r models.ReconciliationRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = &r
}

// AuditEntries returns a copy of the audit log.
func (m *MemoryStore) AuditEntries() []models.ReconciliationAuditLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ReconciliationAuditLog, len(m.auditLog))
	copy(out, m.auditLog)
	return out
}

// BankTransactionRepository

func (m *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, fmt.Errorf("bank transaction %s: %w", id, recerrors.ErrNotFound)
	}
	cp := *tx
	return &cp, nil
}

func (m *MemoryStore) ListPendingUnproposed(ctx context.Context, bankAccountID uuid.UUID, limit int) ([]models.BankTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var txs []models.BankTransaction
	for _, tx := range m.transactions {
		if tx.BankAccountID != bankAccountID || tx.Status != models.TransactionPending {
			continue
		}
		if m.activeLocked(tx.ID) != nil {
			continue
		}
		txs = append(txs, *tx)
	}
	sort.Slice(txs, func(i, j int) bool {
		if !txs[i].TransactionDate.Equal(txs[j].TransactionDate) {
			return txs[i].TransactionDate.Before(txs[j].TransactionDate)
		}
		return txs[i].ID.String() < txs[j].ID.String()
	})
	if limit > 0 && len(txs) > limit {
		txs = txs[:limit]
	}
	return txs, nil
}

// RuleRepository

func (m *MemoryStore) ListActive(ctx context.Context, bankAccountID uuid.UUID) ([]models.ReconciliationRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var rules []models.ReconciliationRule
	for _, r := range m.rules {
		if !r.Active {
			continue
		}
		if r.BankAccountID != nil && *r.BankAccountID != bankAccountID {
			continue
		}
		rules = append(rules, *r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID.String() < rules[j].ID.String()
	})
	return rules, nil
}

// CandidateRepository

func (m *MemoryStore) FindCandidates(ctx context.Context, scope CandidateScope) ([]models.MatchCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("candidate lookup: %w", recerrors.ErrUpstreamUnavailable)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	from, to := scope.Window()
	inWindow := func(d time.Time) bool {
		return !d.Before(from) && !d.After(to)
	}
	candidates := []models.MatchCandidate{}

	if scope.Inflow {
		for _, inv := range m.invoicesIssued {
			if inv.BankAccountID != scope.BankAccountID || !inWindow(inv.DueDate) {
				continue
			}
			if excludedStatus(inv.Status) || m.confirmedAgainstLocked(models.MatchedInvoiceIssued, inv.ID) {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				MatchedType: models.MatchedInvoiceIssued,
				MatchedID:   inv.ID,
				Date:        inv.DueDate,
				Amount:      inv.Amount,
				Label:       inv.CustomerName,
				Status:      inv.Status,
			})
		}
	} else {
		for _, inv := range m.invoicesReceived {
			if inv.BankAccountID != scope.BankAccountID || !inWindow(inv.DueDate) {
				continue
			}
			if excludedStatus(inv.Status) || m.confirmedAgainstLocked(models.MatchedInvoiceReceived, inv.ID) {
				continue
			}
			candidates = append(candidates, models.MatchCandidate{
				MatchedType: models.MatchedInvoiceReceived,
				MatchedID:   inv.ID,
				Date:        inv.DueDate,
				Amount:      inv.Amount,
				Label:       inv.SupplierName,
				Status:      inv.Status,
			})
		}
	}

	for _, e := range m.entries {
		if e.BankAccountID != scope.BankAccountID || !inWindow(e.EntryDate) {
			continue
		}
		if m.confirmedAgainstLocked(models.MatchedEntry, e.ID) {
			continue
		}
		candidates = append(candidates, models.MatchCandidate{
			MatchedType: models.MatchedEntry,
			MatchedID:   e.ID,
			Date:        e.EntryDate,
			Amount:      e.Amount,
			Label:       e.Description,
		})
	}

	for _, cl := range m.closures {
		if cl.BankAccountID != scope.BankAccountID || !inWindow(cl.ClosureDate) {
			continue
		}
		if m.confirmedAgainstLocked(models.MatchedDailyClosure, cl.ID) {
			continue
		}
		candidates = append(candidates, models.MatchCandidate{
			MatchedType: models.MatchedDailyClosure,
			MatchedID:   cl.ID,
			Date:        cl.ClosureDate,
			Amount:      cl.TotalAmount,
			Label:       cl.CenterName,
		})
	}

	return candidates, nil
}

func excludedStatus(status string) bool {
	switch status {
	case models.InvoiceVoid, models.InvoicePaid, models.InvoiceDraft:
		return true
	}
	return false
}

func (m *MemoryStore) confirmedAgainstLocked(matchedType models.MatchedType, id uuid.UUID) bool {
	for _, rec := range m.reconciliations {
		if rec.ReconciliationStatus == models.StatusConfirmed &&
			rec.MatchedType == matchedType &&
			rec.MatchedID != nil && *rec.MatchedID == id {
			return true
		}
	}
	return false
}

// ReconciliationStore

func (m *MemoryStore) CreateProposal(ctx context.Context, rec *models.BankReconciliation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ReconciliationStatus.Active() {
		if existing := m.activeLocked(rec.BankTransactionID); existing != nil {
			return fmt.Errorf("transaction %s already has an active reconciliation: %w",
				rec.BankTransactionID, recerrors.ErrConcurrentModification)
		}
	}
	cp := *rec
	m.reconciliations[rec.ID] = &cp
	return nil
}

func (m *MemoryStore) GetReconciliationByID(ctx context.Context, id uuid.UUID) (*models.BankReconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.reconciliations[id]
	if !ok {
		return nil, fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) ListByAccount(ctx context.Context, bankAccountID uuid.UUID, status models.ReconciliationStatus) ([]models.BankReconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recs := []models.BankReconciliation{}
	for _, rec := range m.reconciliations {
		tx, ok := m.transactions[rec.BankTransactionID]
		if !ok || tx.BankAccountID != bankAccountID {
			continue
		}
		if status != "" && rec.ReconciliationStatus != status {
			continue
		}
		recs = append(recs, *rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID.String() < recs[j].ID.String()
	})
	return recs, nil
}

func (m *MemoryStore) ActiveByTransaction(ctx context.Context, txID uuid.UUID) (*models.BankReconciliation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if rec := m.activeLocked(txID); rec != nil {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (m *MemoryStore) activeLocked(txID uuid.UUID) *models.BankReconciliation {
	for _, rec := range m.reconciliations {
		if rec.BankTransactionID == txID && rec.ReconciliationStatus.Active() {
			return rec
		}
	}
	return nil
}

func (m *MemoryStore) Confirm(ctx context.Context, id uuid.UUID, actor string, now time.Time) (*models.BankReconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reconciliations[id]
	if !ok {
		return nil, fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
	}
	if !rec.ReconciliationStatus.CanTransition(models.StatusConfirmed) {
		return nil, recerrors.NewInvalidTransition(string(rec.ReconciliationStatus), string(models.StatusConfirmed))
	}

	rec.ReconciliationStatus = models.StatusConfirmed
	rec.ReconciledBy = &actor
	rec.ReconciledAt = &now
	rec.UpdatedAt = now
	if tx, ok := m.transactions[rec.BankTransactionID]; ok {
		tx.Status = models.TransactionReconciled
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) Reject(ctx context.Context, id uuid.UUID, actor, notes string, now time.Time) (*models.BankReconciliation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.reconciliations[id]
	if !ok {
		return nil, fmt.Errorf("reconciliation %s: %w", id, recerrors.ErrNotFound)
	}
	if !rec.ReconciliationStatus.CanTransition(models.StatusRejected) {
		return nil, recerrors.NewInvalidTransition(string(rec.ReconciliationStatus), string(models.StatusRejected))
	}

	rec.ReconciliationStatus = models.StatusRejected
	rec.ReconciledBy = &actor
	rec.ReconciledAt = &now
	rec.Notes = &notes
	rec.UpdatedAt = now
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) AppendAudit(ctx context.Context, entry *models.ReconciliationAuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auditLog = append(m.auditLog, *entry)
	return nil
}
