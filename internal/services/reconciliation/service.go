package reconciliation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"bank-reconciliation-backend/internal/models"
	"bank-reconciliation-backend/internal/recerrors"
	"bank-reconciliation-backend/internal/repository"
	"bank-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
)

const (
	defaultBatchLimit       = 100
	defaultCandidateTimeout = 5 * time.Second
)

// ReconciliationService drives automatic batch matching and handles
// analyst overrides. It is stateless between calls; all shared state
// lives in the ReconciliationStore.
type ReconciliationService struct {
	candidateRepo    repository.CandidateRepository
	transactionRepo  repository.BankTransactionRepository
	ruleRepo         repository.RuleRepository
	store            repository.ReconciliationStore
	cfg              matching.Config
	candidateTimeout time.Duration
	now              func() time.Time
}

func NewReconciliationService(
	candidateRepo repository.CandidateRepository,
	transactionRepo repository.BankTransactionRepository,
	ruleRepo repository.RuleRepository,
	store repository.ReconciliationStore,
) *ReconciliationService {
	return &ReconciliationService{
		candidateRepo:    candidateRepo,
		transactionRepo:  transactionRepo,
		ruleRepo:         ruleRepo,
		store:            store,
		cfg:              matching.DefaultConfig(),
		candidateTimeout: defaultCandidateTimeout,
		now:              time.Now,
	}
}

// WithConfig overrides the default matching configuration.
func (s *ReconciliationService) WithConfig(cfg matching.Config) *ReconciliationService {
	s.cfg = cfg
	return s
}

// WithClock overrides the time source; tests pin it.
func (s *ReconciliationService) WithClock(now func() time.Time) *ReconciliationService {
	s.now = now
	return s
}

// BatchError records one transaction that failed inside a batch without
// aborting it.
type BatchError struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Message       string    `json:"message"`
}

// BatchResult summarizes one auto-match run.
type BatchResult struct {
	Created []models.BankReconciliation `json:"created"`
	Skipped int                         `json:"skipped"`
	Errors  []BatchError                `json:"errors"`
}

// AutoMatch proposes reconciliations for up to limit pending transactions
// of the account, oldest first. Transactions that already carry an active
// row are excluded up front, so re-running the batch is idempotent. A
// failing transaction is collected and the batch moves on; a lost write
// race counts as skipped. Cancellation is checked once per transaction
// and leaves partial progress in place.
func (s *ReconciliationService) AutoMatch(ctx context.Context, bankAccountID uuid.UUID, limit int) (BatchResult, error) {
	result := BatchResult{Created: []models.BankReconciliation{}, Errors: []BatchError{}}

	if limit < 0 {
		return result, recerrors.NewValidation("limit", "must not be negative")
	}
	if limit == 0 {
		limit = defaultBatchLimit
	}

	txs, err := s.transactionRepo.ListPendingUnproposed(ctx, bankAccountID, limit)
	if err != nil {
		return result, fmt.Errorf("%v: %w", err, recerrors.ErrUpstreamUnavailable)
	}

	rules, err := s.ruleRepo.ListActive(ctx, bankAccountID)
	if err != nil {
		return result, fmt.Errorf("%v: %w", err, recerrors.ErrUpstreamUnavailable)
	}

	for i := range txs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		tx := &txs[i]

		matches, err := s.rankTransaction(ctx, tx, rules, s.cfg)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{TransactionID: tx.ID, Message: err.Error()})
			continue
		}
		if len(matches) == 0 {
			result.Skipped++
			continue
		}

		rec, err := s.proposalFromMatch(tx, matches[0])
		if err != nil {
			result.Errors = append(result.Errors, BatchError{TransactionID: tx.ID, Message: err.Error()})
			continue
		}

		if err := s.store.CreateProposal(ctx, rec); err != nil {
			if errors.Is(err, recerrors.ErrConcurrentModification) {
				log.Printf("auto-match: transaction %s taken by another writer, skipping", tx.ID)
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, BatchError{TransactionID: tx.ID, Message: err.Error()})
			continue
		}
		result.Created = append(result.Created, *rec)
	}

	log.Printf("auto-match: account=%s created=%d skipped=%d errors=%d",
		bankAccountID, len(result.Created), result.Skipped, len(result.Errors))
	return result, nil
}

func (s *ReconciliationService) rankTransaction(ctx context.Context, tx *models.BankTransaction, rules []models.ReconciliationRule, cfg matching.Config) ([]matching.Match, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.candidateTimeout)
	defer cancel()

	scope := repository.CandidateScope{
		BankAccountID:     tx.BankAccountID,
		Date:              tx.TransactionDate,
		DateToleranceDays: cfg.DateToleranceDays,
		Inflow:            tx.Inflow(),
	}
	candidates, err := s.candidateRepo.FindCandidates(lookupCtx, scope)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, recerrors.ErrUpstreamUnavailable)
	}
	return matching.Rank(tx, candidates, rules, cfg), nil
}

func (s *ReconciliationService) proposalFromMatch(tx *models.BankTransaction, m matching.Match) (*models.BankReconciliation, error) {
	status := models.StatusSuggested
	if m.Score.Confidence >= s.cfg.MatchedThreshold {
		status = models.StatusMatched
	}

	details, err := json.Marshal(m.Score)
	if err != nil {
		return nil, fmt.Errorf("encoding match details: %w", err)
	}

	confidence := m.Score.Confidence
	matchedID := m.Candidate.MatchedID
	now := s.now()
	return &models.BankReconciliation{
		ID:                   uuid.New(),
		BankTransactionID:    tx.ID,
		MatchedType:          m.Candidate.MatchedType,
		MatchedID:            &matchedID,
		ReconciliationStatus: status,
		ConfidenceScore:      &confidence,
		RuleID:               m.Score.RuleID,
		MatchDetails:         details,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// CreateManualMatch records an analyst-chosen match, bypassing scoring.
// It fails AlreadyConfirmed when a confirmed row exists, and refuses to
// displace a live proposal: the analyst must reject that first.
func (s *ReconciliationService) CreateManualMatch(ctx context.Context, txID uuid.UUID, matchedType models.MatchedType, matchedID uuid.UUID, actor, notes string) (*models.BankReconciliation, error) {
	if !matchedType.Valid() {
		return nil, recerrors.NewValidation("matched_type", fmt.Sprintf("unknown value %q", matchedType))
	}

	tx, err := s.transactionRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.ActiveByTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.ReconciliationStatus == models.StatusConfirmed {
			return nil, fmt.Errorf("transaction %s: %w", txID, recerrors.ErrAlreadyConfirmed)
		}
		return nil, recerrors.NewInvalidTransition(string(existing.ReconciliationStatus), string(models.StatusMatched))
	}

	confidence := 100.0
	now := s.now()
	rec := &models.BankReconciliation{
		ID:                   uuid.New(),
		BankTransactionID:    tx.ID,
		MatchedType:          matchedType,
		MatchedID:            &matchedID,
		ReconciliationStatus: models.StatusMatched,
		ConfidenceScore:      &confidence,
		ReconciledBy:         &actor,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if notes != "" {
		rec.Notes = &notes
	}

	if err := s.store.CreateProposal(ctx, rec); err != nil {
		// A racing writer is surfaced to the analyst, not swallowed.
		return nil, err
	}

	s.audit(ctx, rec, models.AuditManualMatch, models.StatusPending, actor, notes)
	return rec, nil
}

// Confirm approves a proposal. The reconciliation row and the owning
// transaction flip in one atomic store operation.
func (s *ReconciliationService) Confirm(ctx context.Context, reconciliationID uuid.UUID, actor string) (*models.BankReconciliation, error) {
	prev, err := s.store.GetReconciliationByID(ctx, reconciliationID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Confirm(ctx, reconciliationID, actor, s.now())
	if err != nil {
		return nil, err
	}

	s.audit(ctx, rec, models.AuditConfirm, prev.ReconciliationStatus, actor, "")
	return rec, nil
}

// Reject declines a proposal with a mandatory note. The transaction stays
// pending so a later batch can propose again.
func (s *ReconciliationService) Reject(ctx context.Context, reconciliationID uuid.UUID, actor, notes string) (*models.BankReconciliation, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, recerrors.NewValidation("notes", "required on reject")
	}

	prev, err := s.store.GetReconciliationByID(ctx, reconciliationID)
	if err != nil {
		return nil, err
	}

	rec, err := s.store.Reject(ctx, reconciliationID, actor, notes, s.now())
	if err != nil {
		return nil, err
	}

	s.audit(ctx, rec, models.AuditReject, prev.ReconciliationStatus, actor, notes)
	return rec, nil
}

// SearchCandidates re-runs the matching engine for one transaction with
// analyst-supplied tolerances, for manual lookup.
func (s *ReconciliationService) SearchCandidates(ctx context.Context, txID uuid.UUID, amountTolerancePct float64, dateToleranceDays int, freeText string) ([]matching.Match, error) {
	if amountTolerancePct < 0 {
		return nil, recerrors.NewValidation("amount_tolerance_pct", "must not be negative")
	}
	if dateToleranceDays < 0 {
		return nil, recerrors.NewValidation("date_tolerance_days", "must not be negative")
	}

	tx, err := s.transactionRepo.GetByID(ctx, txID)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg
	if amountTolerancePct > 0 {
		cfg.AmountTolerancePct = amountTolerancePct
	}
	if dateToleranceDays > 0 {
		cfg.DateToleranceDays = dateToleranceDays
	}

	rules, err := s.ruleRepo.ListActive(ctx, tx.BankAccountID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, recerrors.ErrUpstreamUnavailable)
	}

	matches, err := s.rankTransaction(ctx, tx, rules, cfg)
	if err != nil {
		return nil, err
	}

	if freeText == "" {
		return matches, nil
	}
	needle := strings.ToLower(freeText)
	filtered := []matching.Match{}
	for _, m := range matches {
		if strings.Contains(strings.ToLower(m.Candidate.Label), needle) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

// List returns reconciliations for an account, optionally filtered by
// status.
func (s *ReconciliationService) List(ctx context.Context, bankAccountID uuid.UUID, status string) ([]models.BankReconciliation, error) {
	if status != "" {
		switch models.ReconciliationStatus(status) {
		case models.StatusPending, models.StatusSuggested, models.StatusMatched, models.StatusConfirmed, models.StatusRejected:
		default:
			return nil, recerrors.NewValidation("status", fmt.Sprintf("unknown value %q", status))
		}
	}
	return s.store.ListByAccount(ctx, bankAccountID, models.ReconciliationStatus(status))
}

// audit appends a trail row. Audit failures are logged, not surfaced: the
// analyst action itself already committed.
func (s *ReconciliationService) audit(ctx context.Context, rec *models.BankReconciliation, action string, previous models.ReconciliationStatus, actor, notes string) {
	entry := &models.ReconciliationAuditLog{
		ID:                uuid.New(),
		ReconciliationID:  rec.ID,
		BankTransactionID: rec.BankTransactionID,
		Action:            action,
		PreviousStatus:    previous,
		NewStatus:         rec.ReconciliationStatus,
		PerformedBy:       actor,
		Notes:             notes,
		CreatedAt:         s.now(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		log.Printf("audit log append failed for reconciliation %s: %v", rec.ID, err)
	}
}
