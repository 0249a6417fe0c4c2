package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchedType identifies which document family a reconciliation points at.
type MatchedType string

const (
	MatchedInvoiceReceived MatchedType = "invoice_received"
	MatchedInvoiceIssued   MatchedType = "invoice_issued"
	MatchedEntry           MatchedType = "entry"
	MatchedDailyClosure    MatchedType = "daily_closure"
	MatchedManual          MatchedType = "manual"
)

// Valid reports whether t is one of the known document families.
func (t MatchedType) Valid() bool {
	switch t {
	case MatchedInvoiceReceived, MatchedInvoiceIssued, MatchedEntry, MatchedDailyClosure, MatchedManual:
		return true
	}
	return false
}

// MatchCandidate is a read-only projection over one of the four document
// families. It is never persisted by the core.
type MatchCandidate struct {
	MatchedType MatchedType     `json:"matched_type"`
	MatchedID   uuid.UUID       `json:"matched_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Label       string          `json:"label"`
	Status      string          `json:"status,omitempty"`
}

// Invoice statuses that exclude a document from candidate selection.
const (
	InvoiceVoid  = "void"
	InvoicePaid  = "paid"
	InvoiceDraft = "draft"
)

// InvoiceReceived is a supplier invoice (payable side, amounts negative).
type InvoiceReceived struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	SupplierName  string          `gorm:"index" json:"supplier_name"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	DueDate       time.Time       `gorm:"index" json:"due_date"`
	Status        string          `gorm:"index" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// InvoiceIssued is a customer invoice (receivable side, amounts positive).
type InvoiceIssued struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	CustomerName  string          `gorm:"index" json:"customer_name"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	DueDate       time.Time       `gorm:"index" json:"due_date"`
	Status        string          `gorm:"index" json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AccountingEntry is a manual ledger entry, sign-agnostic for matching.
type AccountingEntry struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	EntryDate     time.Time       `gorm:"index" json:"entry_date"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Description   string          `json:"description"`
	CreatedAt     time.Time       `json:"created_at"`
}

// DailyClosure is an aggregate cash closure for one business day.
type DailyClosure struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	ClosureDate   time.Time       `gorm:"index" json:"closure_date"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(14,2)" json:"total_amount"`
	CenterName    string          `json:"center_name"`
	CreatedAt     time.Time       `json:"created_at"`
}
