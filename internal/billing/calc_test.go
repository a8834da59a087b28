package billing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkroute/inkroute/internal/money"
)

func TestComputeTotalsFormula(t *testing.T) {
	items := []InvoiceItem{
		{Quantity: 3, UnitPrice: money.MustParse("33.33")},
		{Quantity: 1, UnitPrice: money.MustParse("0.03")},
	}
	payments := []Payment{
		{Amount: money.MustParse("50.00")},
		{Amount: money.MustParse("25.01")},
	}
	credits := []CreditNoteItem{
		{Quantity: 1, UnitPrice: money.MustParse("10.00")},
	}

	totals := ComputeTotals(items, payments, credits)
	require.Equal(t, "100.02", totals.Total.String())
	require.Equal(t, "75.01", totals.Paid.String())
	require.Equal(t, "10.00", totals.Credit.String())
	require.Equal(t, "15.01", totals.Balance.String())
}

func TestComputeTotalsNoFloatDrift(t *testing.T) {
	items := []InvoiceItem{{Quantity: 3, UnitPrice: money.MustParse("33.33")}}
	payments := []Payment{{Amount: money.MustParse("99.99")}}

	totals := ComputeTotals(items, payments, nil)
	require.True(t, totals.Balance.IsZero())
	require.Equal(t, "0.00", totals.Balance.String())
	require.Equal(t, StatusPaid, DeriveStatus(totals))
}

func TestComputeTotalsEmpty(t *testing.T) {
	totals := ComputeTotals(nil, nil, nil)
	require.Equal(t, "0.00", totals.Total.String())
	require.Equal(t, "0.00", totals.Balance.String())
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name                string
		total, paid, credit string
		want                InvoiceStatus
	}{
		{"untouched", "100.00", "0.00", "0.00", StatusUnpaid},
		{"partially paid", "100.00", "40.00", "0.00", StatusPartiallyPaid},
		{"fully paid", "100.00", "100.00", "0.00", StatusPaid},
		{"within tolerance", "100.00", "99.99", "0.00", StatusPaid},
		{"just outside tolerance", "100.00", "99.98", "0.00", StatusPartiallyPaid},
		{"settled by credit alone", "100.00", "0.00", "100.00", StatusPaid},
		{"partially credited", "100.00", "0.00", "60.00", StatusUnpaid},
		{"paid and credited", "100.00", "50.00", "50.00", StatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			totals := NewTotals(money.MustParse(tc.total), money.MustParse(tc.paid), money.MustParse(tc.credit))
			require.Equal(t, tc.want, DeriveStatus(totals))
		})
	}
}

func TestNewTotalsMatchesComputeTotals(t *testing.T) {
	// Bulk SQL aggregates and row-level recomputation must agree.
	items := []InvoiceItem{{Quantity: 2, UnitPrice: money.MustParse("45.50")}}
	payments := []Payment{{Amount: money.MustParse("20.00")}}
	credits := []CreditNoteItem{{Quantity: 1, UnitPrice: money.MustParse("45.50")}}

	fromRows := ComputeTotals(items, payments, credits)
	fromSums := NewTotals(money.MustParse("91.00"), money.MustParse("20.00"), money.MustParse("45.50"))
	require.Equal(t, fromSums, fromRows)
}
