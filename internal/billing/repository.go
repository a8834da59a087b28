package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/money"
	"github.com/inkroute/inkroute/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations used by the service.
// It embeds inventory.TxStock so stock effects share the billing transaction.
type TxRepository interface {
	inventory.TxStock

	CustomerExists(ctx context.Context, id int64) (bool, error)
	InsertInvoice(ctx context.Context, customerID int64, invoiceDate, dueDate time.Time, status InvoiceStatus) (int64, error)
	InsertInvoiceItem(ctx context.Context, invoiceID, bookID, qty int64, unitPrice money.Money) (int64, error)
	GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error)
	ListInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error)
	ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error)
	ListCreditItemsForInvoice(ctx context.Context, invoiceID int64) ([]CreditNoteItem, error)
	InsertPayment(ctx context.Context, invoiceID int64, amount money.Money, notes string, at time.Time) (Payment, error)
	SetInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error
	InsertCreditNote(ctx context.Context, customerID, invoiceID int64, reason string, at time.Time) (int64, error)
	InsertCreditNoteItem(ctx context.Context, creditNoteID, bookID, qty int64, unitPrice money.Money) (int64, error)
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// --- inventory.TxStock ---

func (r *txRepo) GetBookForUpdate(ctx context.Context, bookID int64) (inventory.Book, error) {
	var b inventory.Book
	err := r.tx.QueryRow(ctx, `
		SELECT id, title, author_id, publisher_id, price, quantity_in_stock
		FROM books
		WHERE id = $1
		FOR UPDATE`, bookID,
	).Scan(&b.ID, &b.Title, &b.AuthorID, &b.PublisherID, &b.Price, &b.QuantityInStock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Book{}, inventory.ErrBookNotFound
		}
		return inventory.Book{}, err
	}
	return b, nil
}

func (r *txRepo) SetBookStock(ctx context.Context, bookID int64, qty int64) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE books SET quantity_in_stock = $2, updated_at = NOW() WHERE id = $1`, bookID, qty)
	return err
}

// --- invoices ---

func (r *txRepo) CustomerExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *txRepo) InsertInvoice(ctx context.Context, customerID int64, invoiceDate, dueDate time.Time, status InvoiceStatus) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO invoices (customer_id, invoice_date, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id`,
		customerID, invoiceDate, dueDate, status,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertInvoiceItem(ctx context.Context, invoiceID, bookID, qty int64, unitPrice money.Money) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, book_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		invoiceID, bookID, qty, unitPrice,
	).Scan(&id)
	return id, err
}

func (r *txRepo) GetInvoiceForUpdate(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.tx.QueryRow(ctx, `
		SELECT id, customer_id, invoice_date, due_date, status, created_at, updated_at
		FROM invoices
		WHERE id = $1
		FOR UPDATE`, id,
	).Scan(&inv.ID, &inv.CustomerID, &inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *txRepo) ListInvoiceItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return queryInvoiceItems(ctx, r.tx, invoiceID)
}

func (r *txRepo) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return queryPayments(ctx, r.tx, invoiceID)
}

func (r *txRepo) ListCreditItemsForInvoice(ctx context.Context, invoiceID int64) ([]CreditNoteItem, error) {
	return queryCreditItemsForInvoice(ctx, r.tx, invoiceID)
}

func (r *txRepo) InsertPayment(ctx context.Context, invoiceID int64, amount money.Money, notes string, at time.Time) (Payment, error) {
	p := Payment{InvoiceID: invoiceID, Amount: amount, Notes: notes, PaymentDate: at}
	err := r.tx.QueryRow(ctx, `
		INSERT INTO payments (invoice_id, payment_date, amount, notes)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		invoiceID, at, amount, notes,
	).Scan(&p.ID)
	return p, err
}

func (r *txRepo) SetInvoiceStatus(ctx context.Context, invoiceID int64, status InvoiceStatus) error {
	_, err := r.tx.Exec(ctx,
		`UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, invoiceID, status)
	return err
}

func (r *txRepo) InsertCreditNote(ctx context.Context, customerID, invoiceID int64, reason string, at time.Time) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO credit_notes (customer_id, original_invoice_id, date, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		customerID, invoiceID, at, reason,
	).Scan(&id)
	return id, err
}

func (r *txRepo) InsertCreditNoteItem(ctx context.Context, creditNoteID, bookID, qty int64, unitPrice money.Money) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO credit_note_items (credit_note_id, book_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		creditNoteID, bookID, qty, unitPrice,
	).Scan(&id)
	return id, err
}

// --- read side ---

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetInvoice loads one invoice header with its customer name.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT i.id, i.customer_id, c.school_name, i.invoice_date, i.due_date, i.status, i.created_at, i.updated_at
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		WHERE i.id = $1`, id,
	).Scan(&inv.ID, &inv.CustomerID, &inv.CustomerName, &inv.InvoiceDate, &inv.DueDate, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

// InvoiceFilter narrows invoice listings.
type InvoiceFilter struct {
	Status     InvoiceStatus
	CustomerID int64
	Page       int
	PerPage    int
}

// InvoiceListRow pairs an invoice header with its SQL-aggregated sums.
type InvoiceListRow struct {
	Invoice
	Total  money.Money
	Paid   money.Money
	Credit money.Money
}

// ListInvoices returns invoice headers, newest first, with aggregated sums.
func (r *Repository) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]InvoiceListRow, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND i.status = $%d", len(args))
	}
	if filter.CustomerID > 0 {
		args = append(args, filter.CustomerID)
		where += fmt.Sprintf(" AND i.customer_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM invoices i"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	query := invoiceAggregateSelect + where +
		fmt.Sprintf(" ORDER BY i.invoice_date DESC, i.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []InvoiceListRow
	for rows.Next() {
		var row InvoiceListRow
		if err := rows.Scan(
			&row.ID, &row.CustomerID, &row.CustomerName, &row.InvoiceDate, &row.DueDate, &row.Status,
			&row.CreatedAt, &row.UpdatedAt, &row.Total, &row.Paid, &row.Credit,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, row)
	}
	return result, total, rows.Err()
}

// One pass per sum; the balance formula itself lives in NewTotals.
const invoiceAggregateSelect = `
	SELECT i.id, i.customer_id, c.school_name, i.invoice_date, i.due_date, i.status,
	       i.created_at, i.updated_at,
	       COALESCE(it.total, 0) AS total_amount,
	       COALESCE(pa.paid, 0) AS amount_paid,
	       COALESCE(cr.credit, 0) AS credit_applied
	FROM invoices i
	JOIN customers c ON c.id = i.customer_id
	LEFT JOIN (
		SELECT invoice_id, SUM(quantity * unit_price) AS total
		FROM invoice_items GROUP BY invoice_id
	) it ON it.invoice_id = i.id
	LEFT JOIN (
		SELECT invoice_id, SUM(amount) AS paid
		FROM payments GROUP BY invoice_id
	) pa ON pa.invoice_id = i.id
	LEFT JOIN (
		SELECT cn.original_invoice_id AS invoice_id, SUM(ci.quantity * ci.unit_price) AS credit
		FROM credit_notes cn
		JOIN credit_note_items ci ON ci.credit_note_id = cn.id
		GROUP BY cn.original_invoice_id
	) cr ON cr.invoice_id = i.id`

// ListItems loads an invoice's items with book titles.
func (r *Repository) ListItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return queryInvoiceItems(ctx, r.pool, invoiceID)
}

// ListPayments loads an invoice's payments in chronological order.
func (r *Repository) ListPayments(ctx context.Context, invoiceID int64) ([]Payment, error) {
	return queryPayments(ctx, r.pool, invoiceID)
}

// ListCreditNotes loads the credit notes referencing an invoice, items included.
func (r *Repository) ListCreditNotes(ctx context.Context, invoiceID int64) ([]CreditNote, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, customer_id, original_invoice_id, date, reason
		FROM credit_notes
		WHERE original_invoice_id = $1
		ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []CreditNote
	for rows.Next() {
		var cn CreditNote
		if err := rows.Scan(&cn.ID, &cn.CustomerID, &cn.OriginalInvoiceID, &cn.Date, &cn.Reason); err != nil {
			return nil, err
		}
		notes = append(notes, cn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range notes {
		items, err := r.listCreditNoteItems(ctx, notes[i].ID)
		if err != nil {
			return nil, err
		}
		notes[i].Items = items
	}
	return notes, nil
}

// GetCreditNote loads one credit note with its items.
func (r *Repository) GetCreditNote(ctx context.Context, id int64) (CreditNote, error) {
	var cn CreditNote
	err := r.pool.QueryRow(ctx, `
		SELECT id, customer_id, original_invoice_id, date, reason
		FROM credit_notes
		WHERE id = $1`, id,
	).Scan(&cn.ID, &cn.CustomerID, &cn.OriginalInvoiceID, &cn.Date, &cn.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CreditNote{}, ErrCreditNoteNotFound
		}
		return CreditNote{}, err
	}
	cn.Items, err = r.listCreditNoteItems(ctx, id)
	return cn, err
}

func (r *Repository) listCreditNoteItems(ctx context.Context, creditNoteID int64) ([]CreditNoteItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ci.id, ci.credit_note_id, ci.book_id, b.title, ci.quantity, ci.unit_price
		FROM credit_note_items ci
		JOIN books b ON b.id = ci.book_id
		WHERE ci.credit_note_id = $1
		ORDER BY ci.id`, creditNoteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CreditNoteItem
	for rows.Next() {
		var ci CreditNoteItem
		if err := rows.Scan(&ci.ID, &ci.CreditNoteID, &ci.BookID, &ci.BookTitle, &ci.Quantity, &ci.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	return items, rows.Err()
}

func queryInvoiceItems(ctx context.Context, q querier, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := q.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.book_id, b.title, ii.quantity, ii.unit_price
		FROM invoice_items ii
		JOIN books b ON b.id = ii.book_id
		WHERE ii.invoice_id = $1
		ORDER BY ii.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.BookID, &item.BookTitle, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func queryCreditItemsForInvoice(ctx context.Context, q querier, invoiceID int64) ([]CreditNoteItem, error) {
	rows, err := q.Query(ctx, `
		SELECT ci.id, ci.credit_note_id, ci.book_id, b.title, ci.quantity, ci.unit_price
		FROM credit_note_items ci
		JOIN credit_notes cn ON cn.id = ci.credit_note_id
		JOIN books b ON b.id = ci.book_id
		WHERE cn.original_invoice_id = $1
		ORDER BY ci.id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CreditNoteItem
	for rows.Next() {
		var ci CreditNoteItem
		if err := rows.Scan(&ci.ID, &ci.CreditNoteID, &ci.BookID, &ci.BookTitle, &ci.Quantity, &ci.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, ci)
	}
	return items, rows.Err()
}

func queryPayments(ctx context.Context, q querier, invoiceID int64) ([]Payment, error) {
	rows, err := q.Query(ctx, `
		SELECT id, invoice_id, payment_date, amount, notes
		FROM payments
		WHERE invoice_id = $1
		ORDER BY id`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.PaymentDate, &p.Amount, &p.Notes); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
