package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkroute/inkroute/internal/money"
)

// InvoiceStatus enumerates invoice settlement states.
type InvoiceStatus string

const (
	StatusUnpaid        InvoiceStatus = "UNPAID"
	StatusPartiallyPaid InvoiceStatus = "PARTIALLY_PAID"
	StatusPaid          InvoiceStatus = "PAID"
)

// Invoice model. Derived figures are never stored on it; see ComputeTotals.
type Invoice struct {
	ID           int64         `json:"id"`
	CustomerID   int64         `json:"customer_id"`
	CustomerName string        `json:"customer_name,omitempty"`
	InvoiceDate  time.Time     `json:"invoice_date"`
	DueDate      time.Time     `json:"due_date"`
	Status       InvoiceStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// InvoiceItem is a sold line. UnitPrice is frozen at sale time and stays
// independent of later changes to the book's master price.
type InvoiceItem struct {
	ID        int64       `json:"id"`
	InvoiceID int64       `json:"invoice_id"`
	BookID    int64       `json:"book_id"`
	BookTitle string      `json:"book_title,omitempty"`
	Quantity  int64       `json:"quantity"`
	UnitPrice money.Money `json:"unit_price"`
}

// Payment is an append-only settlement entry against an invoice.
type Payment struct {
	ID          int64       `json:"id"`
	InvoiceID   int64       `json:"invoice_id"`
	PaymentDate time.Time   `json:"payment_date"`
	Amount      money.Money `json:"amount"`
	Notes       string      `json:"notes,omitempty"`
}

// CreditNote records a return against an original invoice.
type CreditNote struct {
	ID                int64            `json:"id"`
	CustomerID        int64            `json:"customer_id"`
	OriginalInvoiceID int64            `json:"original_invoice_id"`
	Date              time.Time        `json:"date"`
	Reason            string           `json:"reason,omitempty"`
	Items             []CreditNoteItem `json:"items"`
}

// CreditNoteItem is a returned line. UnitPrice is the price credited back,
// independent of the book's current master price.
type CreditNoteItem struct {
	ID           int64       `json:"id"`
	CreditNoteID int64       `json:"credit_note_id"`
	BookID       int64       `json:"book_id"`
	BookTitle    string      `json:"book_title,omitempty"`
	Quantity     int64       `json:"quantity"`
	UnitPrice    money.Money `json:"unit_price"`
}

var (
	// ErrInvoiceNotFound indicates an unresolvable invoice id.
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	// ErrCreditNoteNotFound indicates an unresolvable credit note id.
	ErrCreditNoteNotFound = errors.New("billing: credit note not found")
	// ErrCustomerNotFound indicates an unresolvable customer reference.
	ErrCustomerNotFound = errors.New("billing: customer not found")
	// ErrInvalidAmount indicates a missing, non-numeric or non-positive payment amount.
	ErrInvalidAmount = errors.New("billing: a positive numeric amount is required")
	// ErrInvoiceAlreadyPaid indicates a payment attempt on a settled invoice.
	ErrInvoiceAlreadyPaid = errors.New("billing: invoice has already been fully paid")
	// ErrOverpayment is the match target for OverpaymentError.
	ErrOverpayment = errors.New("billing: payment exceeds balance due")
)

// OverpaymentError carries the rejected amount and the outstanding balance.
type OverpaymentError struct {
	Amount     money.Money
	BalanceDue money.Money
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("payment amount %s exceeds the balance due %s", e.Amount, e.BalanceDue)
}

func (e *OverpaymentError) Unwrap() error {
	return ErrOverpayment
}
