package handler

import (
	"errors"
	"net/http"
	"strconv"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/recerrors"
	service "bank-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReconciliationHandler struct {
	service *service.ReconciliationService
}

func NewReconciliationHandler(s *service.ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{service: s}
}

// actor pulls the opaque analyst id from the request. Identity resolution
// belongs to the caller, not the core.
func actor(c *gin.Context) string {
	if id := c.GetHeader("X-Actor-Id"); id != "" {
		return id
	}
	return "unknown"
}

// AutoMatch runs one matching batch for an account.
func (h *ReconciliationHandler) AutoMatch(c *gin.Context) {
	var payload struct {
		BankAccountID string `json:"bank_account_id"`
		Limit         int    `json:"limit"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	accountID, err := uuid.Parse(payload.BankAccountID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank account ID"})
		return
	}

	result, err := h.service.AutoMatch(c.Request.Context(), accountID, payload.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  result.Errors,
	})
}

// List returns reconciliations for an account, optionally by status.
func (h *ReconciliationHandler) List(c *gin.Context) {
	accountID, err := uuid.Parse(c.Query("bank_account_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid bank account ID"})
		return
	}

	recs, err := h.service.List(c.Request.Context(), accountID, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": recs})
}

// CreateManualMatch records an analyst-chosen match with confidence 100.
func (h *ReconciliationHandler) CreateManualMatch(c *gin.Context) {
	var payload struct {
		TransactionID string `json:"transaction_id"`
		MatchedType   string `json:"matched_type"`
		MatchedID     string `json:"matched_id"`
		Notes         string `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	txID, err := uuid.Parse(payload.TransactionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}
	matchedID, err := uuid.Parse(payload.MatchedID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid matched ID"})
		return
	}

	rec, err := h.service.CreateManualMatch(c.Request.Context(), txID, models.MatchedType(payload.MatchedType), matchedID, actor(c), payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "manual match created", "reconciliation": rec})
}

// Confirm approves a proposal and flips the transaction to reconciled.
func (h *ReconciliationHandler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	rec, err := h.service.Confirm(c.Request.Context(), id, actor(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reconciliation confirmed", "reconciliation": rec})
}

// Reject declines a proposal; notes are mandatory.
func (h *ReconciliationHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid reconciliation ID"})
		return
	}

	var payload struct {
		Notes string `json:"notes"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	rec, err := h.service.Reject(c.Request.Context(), id, actor(c), payload.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "reconciliation rejected", "reconciliation": rec})
}

// SearchCandidates re-runs matching for one transaction with analyst
// tolerances.
func (h *ReconciliationHandler) SearchCandidates(c *gin.Context) {
	txID, err := uuid.Parse(c.Query("transaction_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction ID"})
		return
	}

	amountTol := 0.0
	if v := c.Query("amount_tolerance_pct"); v != "" {
		amountTol, err = strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount tolerance"})
			return
		}
	}
	dateTol := 0
	if v := c.Query("date_tolerance_days"); v != "" {
		dateTol, err = strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date tolerance"})
			return
		}
	}

	matches, err := h.service.SearchCandidates(c.Request.Context(), txID, amountTol, dateTol, c.Query("text"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": matches})
}

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case recerrors.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, recerrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case recerrors.IsInvalidTransition(err),
		errors.Is(err, recerrors.ErrAlreadyConfirmed),
		errors.Is(err, recerrors.ErrConcurrentModification):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, recerrors.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
