package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions recorded for analyst decisions.
const (
	AuditManualMatch = "manual_match"
	AuditConfirm     = "confirm"
	AuditReject      = "reject"
)

// ReconciliationAuditLog records every analyst action on a reconciliation.
type ReconciliationAuditLog struct {
	ID                uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	ReconciliationID  uuid.UUID            `gorm:"type:uuid;index" json:"reconciliation_id"`
	BankTransactionID uuid.UUID            `gorm:"type:uuid;index" json:"bank_transaction_id"`
	Action            string               `json:"action"`
	PreviousStatus    ReconciliationStatus `json:"previous_status"`
	NewStatus         ReconciliationStatus `json:"new_status"`
	PerformedBy       string               `json:"performed_by"`
	Notes             string               `json:"notes"`
	CreatedAt         time.Time            `json:"created_at"`
}
