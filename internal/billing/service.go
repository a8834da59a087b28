package billing

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/money"
	"github.com/inkroute/inkroute/internal/platform/httpx"
	"github.com/inkroute/inkroute/internal/shared"
)

// RepositoryPort defines data access methods for billing.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetInvoice(ctx context.Context, id int64) (Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceListRow, int, error)
	ListItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	ListCreditNotes(ctx context.Context, invoiceID int64) ([]CreditNote, error)
	GetCreditNote(ctx context.Context, id int64) (CreditNote, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the invoice aggregate, payment recording and
// credit-note processing.
type Service struct {
	repo   RepositoryPort
	ledger *inventory.Ledger
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, ledger *inventory.Ledger, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		ledger: ledger,
		audit:  audit,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// InvoiceLine is one requested (book, quantity) pair.
type InvoiceLine struct {
	BookID   int64
	Quantity int64
}

// CreateInvoiceInput carries a validated invoice creation request.
type CreateInvoiceInput struct {
	CustomerID int64
	DueDate    time.Time
	Lines      []InvoiceLine
}

// InvoiceView is the full read model of one invoice.
type InvoiceView struct {
	Invoice
	Items       []InvoiceItem `json:"items"`
	Payments    []Payment     `json:"payments"`
	CreditNotes []CreditNote  `json:"credit_notes"`
	Totals
}

// CreateInvoice validates every line against the stock ledger before any
// mutation, then creates the invoice, its items (unit price snapshotted from
// the book's current master price) and the stock decrements in one
// transaction. Either everything is persisted or nothing is.
func (s *Service) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*InvoiceView, error) {
	if input.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer id required", httpx.ErrValidation)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date required", httpx.ErrValidation)
	}
	for _, line := range input.Lines {
		if line.BookID <= 0 || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: every line needs a book id and a positive quantity", httpx.ErrValidation)
		}
	}

	var view *InvoiceView
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCustomerNotFound
		}

		// Validate all lines before mutating anything. Books are locked in
		// ascending id order so concurrent multi-line invoices cannot
		// deadlock on each other.
		required := make(map[int64]int64)
		order := make([]int64, 0, len(input.Lines))
		for _, line := range input.Lines {
			if _, seen := required[line.BookID]; !seen {
				order = append(order, line.BookID)
			}
			required[line.BookID] += line.Quantity
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		for _, bookID := range order {
			book, err := tx.GetBookForUpdate(ctx, bookID)
			if err != nil {
				return fmt.Errorf("book %d: %w", bookID, err)
			}
			if required[bookID] > book.QuantityInStock {
				return &inventory.InsufficientStockError{
					BookID:    book.ID,
					Title:     book.Title,
					Requested: required[bookID],
					Available: book.QuantityInStock,
				}
			}
		}

		now := s.now()
		inv := Invoice{
			CustomerID:  input.CustomerID,
			InvoiceDate: now,
			DueDate:     input.DueDate,
			Status:      StatusUnpaid,
		}
		inv.ID, err = tx.InsertInvoice(ctx, input.CustomerID, now, input.DueDate, StatusUnpaid)
		if err != nil {
			return err
		}

		items := make([]InvoiceItem, 0, len(input.Lines))
		for _, line := range input.Lines {
			unitPrice, err := s.ledger.Reserve(ctx, tx, line.BookID, line.Quantity)
			if err != nil {
				return err
			}
			item := InvoiceItem{
				InvoiceID: inv.ID,
				BookID:    line.BookID,
				Quantity:  line.Quantity,
				UnitPrice: unitPrice,
			}
			item.ID, err = tx.InsertInvoiceItem(ctx, inv.ID, line.BookID, line.Quantity, unitPrice)
			if err != nil {
				return err
			}
			items = append(items, item)
		}

		view = &InvoiceView{
			Invoice: inv,
			Items:   items,
			Totals:  ComputeTotals(items, nil, nil),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "billing:invoice_created", "invoice", view.ID, map[string]any{
		"customer_id": input.CustomerID,
		"lines":       len(input.Lines),
		"total":       view.Total.String(),
	})
	return view, nil
}

// RecordPayment appends a payment to an invoice and drives the status
// transition. The balance check and the append run in one transaction with
// the invoice row locked, so concurrent payments cannot overshoot together.
func (s *Service) RecordPayment(ctx context.Context, invoiceID int64, rawAmount, notes string) (*InvoiceView, error) {
	amount, err := money.Parse(rawAmount)
	if err != nil || !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var view *InvoiceView
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetInvoiceForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == StatusPaid {
			return ErrInvoiceAlreadyPaid
		}

		items, err := tx.ListInvoiceItems(ctx, invoiceID)
		if err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, invoiceID)
		if err != nil {
			return err
		}
		credits, err := tx.ListCreditItemsForInvoice(ctx, invoiceID)
		if err != nil {
			return err
		}

		before := ComputeTotals(items, payments, credits)
		if amount.GreaterThan(before.Balance.Add(money.Tolerance)) {
			return &OverpaymentError{Amount: amount, BalanceDue: before.Balance}
		}

		payment, err := tx.InsertPayment(ctx, invoiceID, amount, notes, s.now())
		if err != nil {
			return err
		}
		payments = append(payments, payment)

		after := ComputeTotals(items, payments, credits)
		inv.Status = DeriveStatus(after)
		if err := tx.SetInvoiceStatus(ctx, invoiceID, inv.Status); err != nil {
			return err
		}

		view = &InvoiceView{
			Invoice:  inv,
			Items:    items,
			Payments: payments,
			Totals:   after,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "billing:payment_recorded", "invoice", invoiceID, map[string]any{
		"amount":  amount.String(),
		"status":  string(view.Status),
		"balance": view.Balance.String(),
	})
	return view, nil
}

// CreditLine is one returned (book, quantity, credited price) triple.
type CreditLine struct {
	BookID    int64
	Quantity  int64
	UnitPrice money.Money
}

// CreateCreditNoteInput carries a validated credit-note request.
type CreateCreditNoteInput struct {
	CustomerID        int64
	OriginalInvoiceID int64
	Reason            string
	Lines             []CreditLine
}

// CreateCreditNote applies a return against an original invoice: the credit
// note and its items are created, stock is released, and the invoice status
// is re-derived, all in one transaction. Every line is validated up front;
// an unknown book aborts the whole credit note.
func (s *Service) CreateCreditNote(ctx context.Context, input CreateCreditNoteInput) (*CreditNote, error) {
	if input.CustomerID <= 0 {
		return nil, fmt.Errorf("%w: customer id required", httpx.ErrValidation)
	}
	if input.OriginalInvoiceID <= 0 {
		return nil, fmt.Errorf("%w: original invoice id required", httpx.ErrValidation)
	}
	for _, line := range input.Lines {
		if line.BookID <= 0 || line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: every line needs a book id and a positive quantity", httpx.ErrValidation)
		}
		if line.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: credited unit price cannot be negative", httpx.ErrValidation)
		}
	}

	var note *CreditNote
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ok, err := tx.CustomerExists(ctx, input.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCustomerNotFound
		}
		// Locking the invoice serializes credit notes against concurrent
		// payments on the same invoice.
		inv, err := tx.GetInvoiceForUpdate(ctx, input.OriginalInvoiceID)
		if err != nil {
			return err
		}

		seen := make(map[int64]bool)
		order := make([]int64, 0, len(input.Lines))
		for _, line := range input.Lines {
			if !seen[line.BookID] {
				seen[line.BookID] = true
				order = append(order, line.BookID)
			}
		}
		sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
		for _, bookID := range order {
			if _, err := tx.GetBookForUpdate(ctx, bookID); err != nil {
				return fmt.Errorf("book %d: %w", bookID, err)
			}
		}

		now := s.now()
		cn := CreditNote{
			CustomerID:        input.CustomerID,
			OriginalInvoiceID: input.OriginalInvoiceID,
			Date:              now,
			Reason:            input.Reason,
		}
		cn.ID, err = tx.InsertCreditNote(ctx, input.CustomerID, input.OriginalInvoiceID, input.Reason, now)
		if err != nil {
			return err
		}

		for _, line := range input.Lines {
			item := CreditNoteItem{
				CreditNoteID: cn.ID,
				BookID:       line.BookID,
				Quantity:     line.Quantity,
				UnitPrice:    line.UnitPrice,
			}
			item.ID, err = tx.InsertCreditNoteItem(ctx, cn.ID, line.BookID, line.Quantity, line.UnitPrice)
			if err != nil {
				return err
			}
			if err := s.ledger.Release(ctx, tx, line.BookID, line.Quantity); err != nil {
				return err
			}
			cn.Items = append(cn.Items, item)
		}

		items, err := tx.ListInvoiceItems(ctx, input.OriginalInvoiceID)
		if err != nil {
			return err
		}
		payments, err := tx.ListPayments(ctx, input.OriginalInvoiceID)
		if err != nil {
			return err
		}
		credits, err := tx.ListCreditItemsForInvoice(ctx, input.OriginalInvoiceID)
		if err != nil {
			return err
		}
		totals := ComputeTotals(items, payments, credits)
		if status := DeriveStatus(totals); status != inv.Status {
			if err := tx.SetInvoiceStatus(ctx, input.OriginalInvoiceID, status); err != nil {
				return err
			}
		}

		note = &cn
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "billing:credit_note_created", "credit_note", note.ID, map[string]any{
		"customer_id":         input.CustomerID,
		"original_invoice_id": input.OriginalInvoiceID,
		"lines":               len(input.Lines),
	})
	return note, nil
}

// GetInvoice returns the full invoice read model with freshly recomputed
// figures.
func (s *Service) GetInvoice(ctx context.Context, id int64) (*InvoiceView, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, id)
	if err != nil {
		return nil, err
	}
	notes, err := s.repo.ListCreditNotes(ctx, id)
	if err != nil {
		return nil, err
	}
	var credits []CreditNoteItem
	for _, cn := range notes {
		credits = append(credits, cn.Items...)
	}
	return &InvoiceView{
		Invoice:     inv,
		Items:       items,
		Payments:    payments,
		CreditNotes: notes,
		Totals:      ComputeTotals(items, payments, credits),
	}, nil
}

// InvoiceSummary is one row of an invoice listing.
type InvoiceSummary struct {
	Invoice
	Totals
}

// ListInvoices returns invoice summaries, newest first.
func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceSummary, int, error) {
	rows, total, err := s.repo.ListInvoices(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	summaries := make([]InvoiceSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, InvoiceSummary{
			Invoice: row.Invoice,
			Totals:  NewTotals(row.Total, row.Paid, row.Credit),
		})
	}
	return summaries, total, nil
}

// GetCreditNote returns one credit note with its items.
func (s *Service) GetCreditNote(ctx context.Context, id int64) (*CreditNote, error) {
	cn, err := s.repo.GetCreditNote(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cn, nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
