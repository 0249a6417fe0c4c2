package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bank transaction statuses.
const (
	TransactionPending    = "pending"
	TransactionReconciled = "reconciled"
)

// BankTransaction is an imported bank movement. Rows are immutable once
// imported except for the single Status flip to reconciled on confirm.
type BankTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID   uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	TransactionDate time.Time       `gorm:"column:transaction_date;index" json:"transaction_date"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	Description     string          `json:"description"`
	Status          string          `gorm:"index" json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Inflow reports whether the movement is money coming into the account.
func (t *BankTransaction) Inflow() bool {
	return t.Amount.Sign() >= 0
}
