package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"cortepos/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestExpectedAmountSignedSum(t *testing.T) {
	entries := []model.LedgerEntry{
		{Type: model.EntryTypeSale, Amount: dec("250.50")},
		{Type: model.EntryTypeExpense, Amount: dec("50.00")},
		{Type: model.EntryTypeAdjustment, Amount: dec("10.00")},
	}

	expected := ExpectedAmount(dec("1000"), entries)
	assert.True(t, expected.Equal(dec("1210.50")), "got %s", expected)
}

func TestExpectedAmountNoEntries(t *testing.T) {
	expected := ExpectedAmount(dec("500"), nil)
	assert.True(t, expected.Equal(dec("500")))
}

func TestExpectedAmountOrderIndependent(t *testing.T) {
	a := []model.LedgerEntry{
		{Type: model.EntryTypeSale, Amount: dec("100")},
		{Type: model.EntryTypeExpense, Amount: dec("40")},
	}
	b := []model.LedgerEntry{
		{Type: model.EntryTypeExpense, Amount: dec("40")},
		{Type: model.EntryTypeSale, Amount: dec("100")},
	}
	assert.True(t, ExpectedAmount(dec("0"), a).Equal(ExpectedAmount(dec("0"), b)))
}

func TestReconcileDifference(t *testing.T) {
	res := Reconcile(dec("1200.50"), dec("1195.25"))

	assert.True(t, res.Expected.Equal(dec("1200.50")))
	assert.True(t, res.Counted.Equal(dec("1195.25")))
	assert.True(t, res.Difference.Equal(dec("-5.25")), "got %s", res.Difference)
}

func TestReconcileExactMatch(t *testing.T) {
	res := Reconcile(dec("300"), dec("300"))
	assert.True(t, res.Difference.IsZero())
}

func TestReconcileOverage(t *testing.T) {
	res := Reconcile(dec("100"), dec("120.10"))
	assert.True(t, res.Difference.Equal(dec("20.10")))
}
