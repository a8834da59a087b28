package billing

import "github.com/inkroute/inkroute/internal/money"

// Totals are the derived figures of one invoice. They are recomputed from
// source rows on every read and write; no stored annotation is ever trusted.
type Totals struct {
	Total   money.Money `json:"total_amount"`
	Paid    money.Money `json:"amount_paid"`
	Credit  money.Money `json:"credit_applied"`
	Balance money.Money `json:"balance_due"`
}

// NewTotals derives the balance from already-aggregated sums. Bulk paths
// (debtors, rollups) feed SQL aggregates through here so the formula lives
// in exactly one place.
func NewTotals(total, paid, credit money.Money) Totals {
	return Totals{
		Total:   total,
		Paid:    paid,
		Credit:  credit,
		Balance: total.Sub(paid).Sub(credit),
	}
}

// ComputeTotals derives an invoice's figures from its source rows.
func ComputeTotals(items []InvoiceItem, payments []Payment, creditItems []CreditNoteItem) Totals {
	total := money.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.MulInt(item.Quantity))
	}
	paid := money.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}
	credit := money.Zero
	for _, ci := range creditItems {
		credit = credit.Add(ci.UnitPrice.MulInt(ci.Quantity))
	}
	return NewTotals(total, paid, credit)
}

// DeriveStatus maps derived figures onto the invoice status machine:
// PAID when the balance is within rounding tolerance of zero, otherwise
// PARTIALLY_PAID once anything was paid, otherwise UNPAID.
func DeriveStatus(t Totals) InvoiceStatus {
	if t.Balance.LessThanOrEqual(money.Tolerance) {
		return StatusPaid
	}
	if t.Paid.IsPositive() {
		return StatusPartiallyPaid
	}
	return StatusUnpaid
}
