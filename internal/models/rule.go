package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationRule pre-seeds high-confidence matches: when a transaction's
// description, account and amount fall inside the rule, the matching engine
// adds the rule's boost to candidates of the rule's target type. Rules are
// an accelerator only; matching works with none defined.
type ReconciliationRule struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	BankAccountID *uuid.UUID       `gorm:"type:uuid;index" json:"bank_account_id"`
	Pattern       string           `json:"pattern"`
	AmountMin     *decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount_min"`
	AmountMax     *decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount_max"`
	MatchedType   MatchedType      `json:"matched_type"`
	Boost         float64          `json:"boost"`
	Priority      int              `gorm:"index" json:"priority"`
	Active        bool             `gorm:"index" json:"active"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Matches reports whether the rule applies to the given transaction.
// The pattern is a case-insensitive substring over the description.
func (r *ReconciliationRule) Matches(tx *BankTransaction) bool {
	if !r.Active {
		return false
	}
	if r.BankAccountID != nil && *r.BankAccountID != tx.BankAccountID {
		return false
	}
	if r.Pattern != "" && !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(r.Pattern)) {
		return false
	}
	amount := tx.Amount.Abs()
	if r.AmountMin != nil && amount.LessThan(*r.AmountMin) {
		return false
	}
	if r.AmountMax != nil && amount.GreaterThan(*r.AmountMax) {
		return false
	}
	return true
}
