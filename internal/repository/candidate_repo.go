package repository

import (
	"context"
	"fmt"
	"strings"

	"bank-reconciliation-backend/internal/models"

	"gorm.io/gorm"
)

// Invoice states that exclude a document from matching altogether.
var excludedInvoiceStatuses = []string{models.InvoiceVoid, models.InvoicePaid, models.InvoiceDraft}

// GormCandidateRepository reads candidates from the four document-family
// tables. Candidates already bound to a confirmed reconciliation are
// excluded; ones under a contestable suggested/matched link are kept.
type GormCandidateRepository struct {
	db *gorm.DB
}

func NewGormCandidateRepository(db *gorm.DB) *GormCandidateRepository {
	return &GormCandidateRepository{db: db}
}

func (r *GormCandidateRepository) FindCandidates(ctx context.Context, scope CandidateScope) ([]models.MatchCandidate, error) {
	from, to := scope.Window()
	candidates := []models.MatchCandidate{}

	// Invoices are sign-specific: issued invoices settle inflows,
	// received invoices settle outflows.
	if scope.Inflow {
		var issued []models.InvoiceIssued
		err := r.scoped(ctx, models.MatchedInvoiceIssued).
			Where("bank_account_id = ?", scope.BankAccountID).
			Where("due_date BETWEEN ? AND ?", from, to).
			Where("status NOT IN ?", excludedInvoiceStatuses).
			Find(&issued).Error
		if err != nil {
			return nil, fmt.Errorf("listing issued invoices: %w", err)
		}
		for _, inv := range issued {
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
		var received []models.InvoiceReceived
		err := r.scoped(ctx, models.MatchedInvoiceReceived).
			Where("bank_account_id = ?", scope.BankAccountID).
			Where("due_date BETWEEN ? AND ?", from, to).
			Where("status NOT IN ?", excludedInvoiceStatuses).
			Find(&received).Error
		if err != nil {
			return nil, fmt.Errorf("listing received invoices: %w", err)
		}
		for _, inv := range received {
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

	// Entries and daily closures are sign-agnostic.
	var entries []models.AccountingEntry
	err := r.scoped(ctx, models.MatchedEntry).
		Where("bank_account_id = ?", scope.BankAccountID).
		Where("entry_date BETWEEN ? AND ?", from, to).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing accounting entries: %w", err)
	}
	for _, e := range entries {
		candidates = append(candidates, models.MatchCandidate{
			MatchedType: models.MatchedEntry,
			MatchedID:   e.ID,
			Date:        e.EntryDate,
			Amount:      e.Amount,
			Label:       e.Description,
		})
	}

	var closures []models.DailyClosure
	err = r.scoped(ctx, models.MatchedDailyClosure).
		Where("bank_account_id = ?", scope.BankAccountID).
		Where("closure_date BETWEEN ? AND ?", from, to).
		Find(&closures).Error
	if err != nil {
		return nil, fmt.Errorf("listing daily closures: %w", err)
	}
	for _, cl := range closures {
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

// scoped starts a family query with the confirmed-reconciliation exclusion
// applied: a document already confirmed against some transaction must not
// be offered again.
func (r *GormCandidateRepository) scoped(ctx context.Context, matchedType models.MatchedType) *gorm.DB {
	table := familyTable(matchedType)
	sub := fmt.Sprintf(
		"NOT EXISTS (SELECT 1 FROM bank_reconciliations br WHERE br.matched_id = %s.id AND br.matched_type = ? AND br.reconciliation_status = ?)",
		table,
	)
	return r.db.WithContext(ctx).Table(table).
		Where(sub, matchedType, models.StatusConfirmed)
}

func familyTable(matchedType models.MatchedType) string {
	// gorm pluralizes snake_case struct names.
	switch matchedType {
	case models.MatchedInvoiceReceived:
		return "invoice_receiveds"
	case models.MatchedInvoiceIssued:
		return "invoice_issueds"
	case models.MatchedEntry:
		return "accounting_entries"
	case models.MatchedDailyClosure:
		return "daily_closures"
	}
	return strings.ToLower(string(matchedType)) + "s"
}
