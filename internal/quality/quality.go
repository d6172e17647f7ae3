// Package quality scores a normalized statement batch. The score is the
// ingestion pipeline's only gate against garbage entering the ledger:
// deterministic, rule-based, 100 minus fixed penalties per structural
// problem, floored at 0.
package quality

import (
	"fmt"
	"math"

	"github.com/pesobook/pesobook/internal/models"
)

// Penalty points per finding.
const (
	penaltyBadRow        = 8  // row dropped for an unparseable date or amount
	penaltyMissingColumn = 15 // row dropped because an expected column was absent
	penaltyNoBalance     = 20 // provider reports a running balance but none parsed
	penaltyBalanceGap    = 10 // running balance does not reconcile row to row
)

// Thresholds consumed by callers.
const (
	HighThreshold   = 80
	MediumThreshold = 60
)

const balanceTolerance = 0.015

// Shape describes the table the normalizer worked from.
type Shape struct {
	// ExpectBalance is true for providers that print a running balance.
	ExpectBalance bool
}

// Score rates a normalized batch 0..100.
func Score(records []models.Record, issues []models.ParseIssue, shape Shape) int {
	if len(records) == 0 {
		return 0
	}

	score := 100
	for _, issue := range issues {
		switch issue.Kind {
		case models.IssueMissingColumn:
			score -= penaltyMissingColumn
		case models.IssueBalanceGap:
			score -= penaltyBalanceGap
		default:
			score -= penaltyBadRow
		}
	}

	if shape.ExpectBalance {
		score -= balancePenalty(records)
	}

	if score < 0 {
		score = 0
	}
	return score
}

// balancePenalty checks the running balance column: absent where expected
// costs the most, then each row whose balance does not follow from the
// previous row's balance plus this row's amount.
func balancePenalty(records []models.Record) int {
	anyBalance := false
	for _, r := range records {
		if r.Balance != nil {
			anyBalance = true
			break
		}
	}
	if !anyBalance {
		return penaltyNoBalance
	}

	penalty := 0
	var prev *float64
	for _, r := range records {
		if r.Balance == nil {
			prev = nil
			continue
		}
		if prev != nil {
			expected := *prev + r.Amount
			if math.Abs(expected-*r.Balance) > balanceTolerance {
				penalty += penaltyBalanceGap
			}
		}
		prev = r.Balance
	}
	return penalty
}

// Level maps a score onto the policy bands.
func Level(score int) string {
	switch {
	case score >= HighThreshold:
		return "high"
	case score >= MediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// GateError is returned when a batch scores below the minimum threshold.
// The import aborts and the ledger is left untouched.
type GateError struct {
	Score   int
	Minimum int
	Issues  []models.ParseIssue
}

func (e *GateError) Error() string {
	return fmt.Sprintf("statement quality %d below minimum %d (%d structural issues); import rejected",
		e.Score, e.Minimum, len(e.Issues))
}

// Gate returns a *GateError if score is under min, nil otherwise.
func Gate(score, min int, issues []models.ParseIssue) error {
	if score < min {
		return &GateError{Score: score, Minimum: min, Issues: issues}
	}
	return nil
}
