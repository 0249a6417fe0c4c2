package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReconciliationStatus is the state of one reconciliation row.
type ReconciliationStatus string

const (
	StatusPending   ReconciliationStatus = "pending"
	StatusSuggested ReconciliationStatus = "suggested"
	StatusMatched   ReconciliationStatus = "matched"
	StatusConfirmed ReconciliationStatus = "confirmed"
	StatusRejected  ReconciliationStatus = "rejected"
)

// legalTransitions is the full transition table. confirmed and rejected
// are terminal.
var legalTransitions = map[ReconciliationStatus][]ReconciliationStatus{
	StatusPending:   {StatusSuggested, StatusMatched},
	StatusRejected:  {StatusMatched},
	StatusSuggested: {StatusConfirmed, StatusRejected},
	StatusMatched:   {StatusConfirmed, StatusRejected},
}

// CanTransition reports whether moving from s to next is legal.
func (s ReconciliationStatus) CanTransition(next ReconciliationStatus) bool {
	for _, t := range legalTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Active reports whether the row still blocks other proposals for its
// transaction. Only rejected rows are inert.
func (s ReconciliationStatus) Active() bool {
	return s != StatusRejected
}

// BankReconciliation links one bank transaction to at most one active
// candidate document. Rejected rows are kept as the audit history; a
// partial unique index keeps everything else 1:1 with the transaction.
type BankReconciliation struct {
	ID                   uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	BankTransactionID    uuid.UUID            `gorm:"type:uuid;index:idx_active_reconciliation,unique,where:reconciliation_status <> 'rejected'" json:"bank_transaction_id"`
	MatchedType          MatchedType          `json:"matched_type"`
	MatchedID            *uuid.UUID           `gorm:"type:uuid" json:"matched_id"`
	ReconciliationStatus ReconciliationStatus `gorm:"index" json:"reconciliation_status"`
	ConfidenceScore      *float64             `json:"confidence_score"`
	RuleID               *uuid.UUID           `gorm:"type:uuid" json:"rule_id"`
	ReconciledBy         *string              `json:"reconciled_by"`
	ReconciledAt         *time.Time           `json:"reconciled_at"`
	Notes                *string              `json:"notes"`
	MatchDetails         datatypes.JSON       `json:"match_details"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}
