package matching

import (
	"testing"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTx(amount string, date time.Time) *models.BankTransaction {
	return &models.BankTransaction{
		ID:              uuid.New(),
		BankAccountID:   uuid.New(),
		TransactionDate: date,
		Amount:          decimal.RequireFromString(amount),
		Description:     "TRANSFERENCIA PROVEEDOR CENTRAL",
		Status:          models.TransactionPending,
	}
}

func makeCandidate(t models.MatchedType, amount string, date time.Time) models.MatchCandidate {
	return models.MatchCandidate{
		MatchedType: t,
		MatchedID:   uuid.New(),
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Label:       "Proveedor Central SL",
	}
}

func TestScoreCandidate_ExactAmountAndDate(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1210.00", date)
	c := makeCandidate(models.MatchedInvoiceReceived, "1210.00", date)

	s := ScoreCandidate(tx, c, nil, DefaultConfig())

	assert.Equal(t, 55.0, s.AmountScore)
	assert.Equal(t, 25.0, s.DateScore)
	assert.Equal(t, 20.0, s.TypeScore)
	assert.GreaterOrEqual(t, s.Confidence, 95.0)
	assert.Equal(t, 100.0, s.Confidence)
}

func TestScoreCandidate_NearMatchLandsInSuggestedBand(t *testing.T) {
	// 0.8% off on amount, two days off on date.
	tx := makeTx("1210.00", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	c := makeCandidate(models.MatchedInvoiceReceived, "1200.00", time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC))

	s := ScoreCandidate(tx, c, nil, DefaultConfig())

	assert.GreaterOrEqual(t, s.Confidence, 50.0)
	assert.Less(t, s.Confidence, 85.0)
}

func TestScoreCandidate_AmountOutsideToleranceScoresZeroAmount(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("500.00", date)
	c := makeCandidate(models.MatchedEntry, "800.00", date)

	s := ScoreCandidate(tx, c, nil, DefaultConfig())

	assert.Equal(t, 0.0, s.AmountScore)
	assert.Less(t, s.Confidence, DefaultConfig().ConfidenceThreshold)
}

func TestScoreCandidate_SignConventionUsesAbsoluteAmounts(t *testing.T) {
	date := time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)
	tx := makeTx("-430.50", date)
	c := makeCandidate(models.MatchedInvoiceReceived, "-430.50", date)

	s := ScoreCandidate(tx, c, nil, DefaultConfig())
	assert.Equal(t, 55.0, s.AmountScore)
}

func TestScoreCandidate_EpsilonRounding(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("100.00", date)
	c := makeCandidate(models.MatchedEntry, "100.01", date)

	s := ScoreCandidate(tx, c, nil, DefaultConfig())
	assert.Equal(t, 55.0, s.AmountScore, "a cent inside epsilon is full credit")
}

func TestScoreCandidate_DailyClosureCarriesLowerPrior(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("320.00", date)
	entry := makeCandidate(models.MatchedEntry, "320.00", date)
	closure := makeCandidate(models.MatchedDailyClosure, "320.00", date)

	cfg := DefaultConfig()
	se := ScoreCandidate(tx, entry, nil, cfg)
	sc := ScoreCandidate(tx, closure, nil, cfg)

	assert.Greater(t, se.Confidence, sc.Confidence)
	assert.Equal(t, cfg.ClosurePrior, sc.TypeScore)
}

func TestScoreCandidate_RuleBoost(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1000.00", date)
	c := makeCandidate(models.MatchedEntry, "1010.00", date.AddDate(0, 0, 3))

	rule := models.ReconciliationRule{
		ID:          uuid.New(),
		Pattern:     "proveedor",
		MatchedType: models.MatchedEntry,
		Boost:       20,
		Priority:    10,
		Active:      true,
	}

	base := ScoreCandidate(tx, c, nil, DefaultConfig())
	boosted := ScoreCandidate(tx, c, []models.ReconciliationRule{rule}, DefaultConfig())

	require.NotNil(t, boosted.RuleID)
	assert.Equal(t, rule.ID, *boosted.RuleID)
	assert.Equal(t, base.Confidence+20, boosted.Confidence)
}

func TestScoreCandidate_RuleBoostCappedAt100(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1000.00", date)
	c := makeCandidate(models.MatchedEntry, "1000.00", date)

	rule := models.ReconciliationRule{
		ID:          uuid.New(),
		MatchedType: models.MatchedEntry,
		Boost:       20,
		Active:      true,
	}

	s := ScoreCandidate(tx, c, []models.ReconciliationRule{rule}, DefaultConfig())
	assert.Equal(t, 100.0, s.Confidence)
}

func TestScoreCandidate_RuleSkipsOtherFamilies(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1000.00", date)
	c := makeCandidate(models.MatchedEntry, "1000.00", date)

	rule := models.ReconciliationRule{
		ID:          uuid.New(),
		MatchedType: models.MatchedDailyClosure,
		Boost:       20,
		Active:      true,
	}

	s := ScoreCandidate(tx, c, []models.ReconciliationRule{rule}, DefaultConfig())
	assert.Nil(t, s.RuleID)
	assert.Equal(t, 0.0, s.RuleBoost)
}

func TestScoreCandidate_InactiveRuleIgnored(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1000.00", date)
	c := makeCandidate(models.MatchedEntry, "1000.00", date)

	rule := models.ReconciliationRule{
		ID:          uuid.New(),
		MatchedType: models.MatchedEntry,
		Boost:       20,
		Active:      false,
	}

	s := ScoreCandidate(tx, c, []models.ReconciliationRule{rule}, DefaultConfig())
	assert.Nil(t, s.RuleID)
}

func TestRank_DropsBelowThreshold(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("500.00", date)
	out := makeCandidate(models.MatchedEntry, "800.00", date)

	matches := Rank(tx, []models.MatchCandidate{out}, nil, DefaultConfig())
	assert.Empty(t, matches, "out-of-tolerance candidate is not returned at all")
}

func TestRank_OrdersByConfidenceDescending(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1210.00", date)

	exact := makeCandidate(models.MatchedInvoiceReceived, "1210.00", date)
	near := makeCandidate(models.MatchedInvoiceReceived, "1200.00", date.AddDate(0, 0, 2))

	matches := Rank(tx, []models.MatchCandidate{near, exact}, nil, DefaultConfig())
	require.Len(t, matches, 2)
	assert.Equal(t, exact.MatchedID, matches[0].Candidate.MatchedID)
	assert.Greater(t, matches[0].Score.Confidence, matches[1].Score.Confidence)
}

func TestRank_TieBreaksOnAmountThenDateThenID(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1000.00", date)

	// Identical scores, distinct ids: order must still be total.
	a := makeCandidate(models.MatchedEntry, "1000.00", date)
	b := makeCandidate(models.MatchedEntry, "1000.00", date)

	matches := Rank(tx, []models.MatchCandidate{a, b}, nil, DefaultConfig())
	require.Len(t, matches, 2)
	assert.Less(t, matches[0].Candidate.MatchedID.String(), matches[1].Candidate.MatchedID.String())
}

func TestRank_Deterministic(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1210.00", date)

	candidates := []models.MatchCandidate{
		makeCandidate(models.MatchedInvoiceReceived, "1210.00", date),
		makeCandidate(models.MatchedEntry, "1205.00", date.AddDate(0, 0, 1)),
		makeCandidate(models.MatchedDailyClosure, "1210.00", date.AddDate(0, 0, -3)),
	}

	first := Rank(tx, candidates, nil, DefaultConfig())
	second := Rank(tx, candidates, nil, DefaultConfig())
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Candidate.MatchedID, second[i].Candidate.MatchedID)
		assert.Equal(t, first[i].Score.Confidence, second[i].Score.Confidence)
	}
}

func TestRank_ExactMatchDominates(t *testing.T) {
	// Any candidate differing only by a larger amount or date gap must
	// not outrank the exact one.
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("750.00", date)
	exact := makeCandidate(models.MatchedEntry, "750.00", date)

	worse := []models.MatchCandidate{
		makeCandidate(models.MatchedEntry, "752.00", date),
		makeCandidate(models.MatchedEntry, "750.00", date.AddDate(0, 0, 4)),
		makeCandidate(models.MatchedEntry, "765.00", date.AddDate(0, 0, 6)),
	}

	cfg := DefaultConfig()
	best := ScoreCandidate(tx, exact, nil, cfg)
	for _, w := range worse {
		s := ScoreCandidate(tx, w, nil, cfg)
		assert.GreaterOrEqual(t, best.Confidence, s.Confidence)
	}
}

func TestRank_ThresholdConfigurable(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	tx := makeTx("1210.00", date)
	near := makeCandidate(models.MatchedInvoiceReceived, "1200.00", date.AddDate(0, 0, 2))

	cfg := DefaultConfig()
	require.Len(t, Rank(tx, []models.MatchCandidate{near}, nil, cfg), 1)

	cfg.ConfidenceThreshold = 90
	assert.Empty(t, Rank(tx, []models.MatchCandidate{near}, nil, cfg))
}
