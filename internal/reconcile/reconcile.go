// Package reconcile holds the pure reconciliation arithmetic shared by the
// ledger stores and the drawer service. No I/O, no state: every amount here
// is reproducible from its inputs, which is what keeps expected_amount an
// always-recomputable derived field rather than a hand-set one.
package reconcile

import (
	"github.com/shopspring/decimal"

	"cortepos/internal/model"
)

// Result is the outcome of comparing a counted drawer against expectations.
type Result struct {
	Expected   decimal.Decimal `json:"expected"`
	Counted    decimal.Decimal `json:"counted"`
	Difference decimal.Decimal `json:"difference"`
}

// ExpectedAmount returns opening plus the signed sum of entries: sales and
// adjustments add, expenses subtract. Entries are walked in insertion order;
// the order does not change the sum but is preserved for audit.
func ExpectedAmount(opening decimal.Decimal, entries []model.LedgerEntry) decimal.Decimal {
	expected := opening
	for _, e := range entries {
		switch e.Type {
		case model.EntryTypeExpense:
			expected = expected.Sub(e.Amount)
		default: // sale, adjustment
			expected = expected.Add(e.Amount)
		}
	}
	return expected
}

// Reconcile compares a counted closing amount against the expected amount.
// Difference is counted minus expected: negative means a shortage.
func Reconcile(expected, counted decimal.Decimal) Result {
	return Result{
		Expected:   expected,
		Counted:    counted,
		Difference: counted.Sub(expected),
	}
}
