// Package matching scores bank transactions against candidate documents.
//
// Scoring is an additive point model: amount closeness, date proximity and
// a per-family prior, plus an optional rule boost, summed and clamped to
// [0,100]. Everything is a pure function of its inputs so that re-running
// a batch yields identical rankings.
package matching

import (
	"math"
	"sort"
	"time"

	"bank-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Config carries the tunable weights and tolerances. The constants are
// calibration defaults, not physical ones; analysts override tolerances
// per search call.
type Config struct {
	// AmountWeight is the full credit for an exact amount match.
	AmountWeight float64
	// DateWeight is the full credit for a same-day match.
	DateWeight float64
	// DocumentPrior is the base weight for explicit documents
	// (invoices, accounting entries).
	DocumentPrior float64
	// ClosurePrior is the lower base weight for aggregate daily closures.
	ClosurePrior float64
	// AmountTolerancePct bounds the linear decay band as a percentage of
	// the transaction amount.
	AmountTolerancePct float64
	// DateToleranceDays bounds the date decay window.
	DateToleranceDays int
	// ConfidenceThreshold discards candidates scoring below it.
	ConfidenceThreshold float64
	// MatchedThreshold separates matched from suggested proposals.
	MatchedThreshold float64
}

// DefaultConfig returns the calibration defaults: 55/25/20 point split,
// ±5% amount band, ±7 day window, 50 discard threshold, 85 matched band.
func DefaultConfig() Config {
	return Config{
		AmountWeight:        55,
		DateWeight:          25,
		DocumentPrior:       20,
		ClosurePrior:        10,
		AmountTolerancePct:  5,
		DateToleranceDays:   7,
		ConfidenceThreshold: 50,
		MatchedThreshold:    85,
	}
}

// amountEpsilon is the rounding slack under which two amounts count as
// identical, in currency units.
var amountEpsilon = decimal.NewFromFloat(0.01)

// Score is the confidence breakdown for one transaction/candidate pair.
type Score struct {
	Confidence   float64         `json:"confidence"`
	AmountScore  float64         `json:"amount_score"`
	DateScore    float64         `json:"date_score"`
	TypeScore    float64         `json:"type_score"`
	RuleBoost    float64         `json:"rule_boost"`
	AmountDiff   decimal.Decimal `json:"amount_diff"`
	DateDiffDays int             `json:"date_diff_days"`
	RuleID       *uuid.UUID      `json:"rule_id,omitempty"`
}

// Match pairs a candidate with its score.
type Match struct {
	Candidate models.MatchCandidate `json:"candidate"`
	Score     Score                 `json:"score"`
}

// ScoreCandidate computes the confidence for one candidate. Rules must
// already be filtered to active ones and ordered by priority; the first
// rule that hits both the transaction and the candidate's family wins.
func ScoreCandidate(tx *models.BankTransaction, c models.MatchCandidate, rules []models.ReconciliationRule, cfg Config) Score {
	s := Score{
		AmountDiff:   tx.Amount.Abs().Sub(c.Amount.Abs()).Abs(),
		DateDiffDays: dateDiffDays(tx.TransactionDate, c.Date),
	}

	s.AmountScore = amountScore(tx.Amount, c.Amount, cfg)
	s.DateScore = dateScore(s.DateDiffDays, cfg)
	s.TypeScore = typePrior(c.MatchedType, cfg)

	for i := range rules {
		r := &rules[i]
		if r.MatchedType != c.MatchedType {
			continue
		}
		if r.Matches(tx) {
			s.RuleBoost = r.Boost
			id := r.ID
			s.RuleID = &id
			break
		}
	}

	s.Confidence = clamp(s.AmountScore+s.DateScore+s.TypeScore+s.RuleBoost, 0, 100)
	return s
}

// Rank scores every candidate, drops the ones below the confidence
// threshold and returns the rest ordered best-first. Ties break on the
// smaller amount difference, then the closer date, then candidate id,
// giving a total order.
func Rank(tx *models.BankTransaction, candidates []models.MatchCandidate, rules []models.ReconciliationRule, cfg Config) []Match {
	matches := []Match{}
	for _, c := range candidates {
		s := ScoreCandidate(tx, c, rules, cfg)
		if s.Confidence < cfg.ConfidenceThreshold {
			continue
		}
		matches = append(matches, Match{Candidate: c, Score: s})
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score.Confidence != b.Score.Confidence {
			return a.Score.Confidence > b.Score.Confidence
		}
		if !a.Score.AmountDiff.Equal(b.Score.AmountDiff) {
			return a.Score.AmountDiff.LessThan(b.Score.AmountDiff)
		}
		if a.Score.DateDiffDays != b.Score.DateDiffDays {
			return a.Score.DateDiffDays < b.Score.DateDiffDays
		}
		return a.Candidate.MatchedID.String() < b.Candidate.MatchedID.String()
	})

	return matches
}

func amountScore(txAmount, candidateAmount decimal.Decimal, cfg Config) float64 {
	ta := txAmount.Abs()
	ca := candidateAmount.Abs()
	diff := ta.Sub(ca).Abs()

	if diff.LessThanOrEqual(amountEpsilon) {
		return cfg.AmountWeight
	}

	band := ta.Mul(decimal.NewFromFloat(cfg.AmountTolerancePct)).Div(decimal.NewFromInt(100))
	if band.LessThanOrEqual(amountEpsilon) || diff.GreaterThanOrEqual(band) {
		return 0
	}

	ratio, _ := diff.Div(band).Float64()
	return cfg.AmountWeight * (1 - ratio)
}

func dateScore(diffDays int, cfg Config) float64 {
	if diffDays == 0 {
		return cfg.DateWeight
	}
	if cfg.DateToleranceDays <= 0 || diffDays >= cfg.DateToleranceDays {
		return 0
	}
	return cfg.DateWeight * (1 - float64(diffDays)/float64(cfg.DateToleranceDays))
}

func typePrior(t models.MatchedType, cfg Config) float64 {
	if t == models.MatchedDailyClosure {
		return cfg.ClosurePrior
	}
	return cfg.DocumentPrior
}

// dateDiffDays compares calendar dates, ignoring time-of-day and zone.
func dateDiffDays(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Abs(ad.Sub(bd).Hours() / 24))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
