package insights

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkroute/inkroute/internal/billing"
	"github.com/inkroute/inkroute/internal/money"
)

// OpenInvoiceRow is one unsettled invoice with its SQL-aggregated sums.
type OpenInvoiceRow struct {
	InvoiceID    int64
	CustomerID   int64
	CustomerName string
	RouteAxis    string
	InvoiceDate  time.Time
	DueDate      time.Time
	Status       billing.InvoiceStatus
	Total        money.Money
	Paid         money.Money
	Credit       money.Money
}

// Repository provides the read-only aggregate queries behind the insight
// views. Every method is a single pass over the relevant tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListOpenInvoices returns every invoice not yet fully settled, aggregated
// sums included. Balance arithmetic stays in billing.NewTotals.
func (r *Repository) ListOpenInvoices(ctx context.Context) ([]OpenInvoiceRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.customer_id, c.school_name, COALESCE(ra.name, ''),
		       i.invoice_date, i.due_date, i.status,
		       COALESCE(it.total, 0), COALESCE(pa.paid, 0), COALESCE(cr.credit, 0)
		FROM invoices i
		JOIN customers c ON c.id = i.customer_id
		LEFT JOIN route_axes ra ON ra.id = c.route_axis_id
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
		) cr ON cr.invoice_id = i.id
		WHERE i.status <> $1
		ORDER BY i.due_date, i.id`, billing.StatusPaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []OpenInvoiceRow
	for rows.Next() {
		var row OpenInvoiceRow
		if err := rows.Scan(
			&row.InvoiceID, &row.CustomerID, &row.CustomerName, &row.RouteAxis,
			&row.InvoiceDate, &row.DueDate, &row.Status,
			&row.Total, &row.Paid, &row.Credit,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// TopCustomers ranks customers by lifetime payments received.
func (r *Repository) TopCustomers(ctx context.Context, limit int) ([]CustomerRevenue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.school_name, COALESCE(SUM(p.amount), 0) AS total_paid
		FROM customers c
		JOIN invoices i ON i.customer_id = c.id
		JOIN payments p ON p.invoice_id = i.id
		GROUP BY c.id, c.school_name
		ORDER BY total_paid DESC, c.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CustomerRevenue
	for rows.Next() {
		var cr CustomerRevenue
		if err := rows.Scan(&cr.CustomerID, &cr.CustomerName, &cr.TotalPaid); err != nil {
			return nil, err
		}
		result = append(result, cr)
	}
	return result, rows.Err()
}

// TopBooks ranks books by invoiced revenue.
func (r *Repository) TopBooks(ctx context.Context, limit int) ([]BookRevenue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.id, b.title, SUM(ii.quantity) AS qty, SUM(ii.quantity * ii.unit_price) AS revenue
		FROM books b
		JOIN invoice_items ii ON ii.book_id = b.id
		GROUP BY b.id, b.title
		ORDER BY revenue DESC, b.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BookRevenue
	for rows.Next() {
		var br BookRevenue
		if err := rows.Scan(&br.BookID, &br.Title, &br.Quantity, &br.Revenue); err != nil {
			return nil, err
		}
		result = append(result, br)
	}
	return result, rows.Err()
}

// StockExtremes returns the most and least stocked titles.
func (r *Repository) StockExtremes(ctx context.Context, limit int) (StockExtremes, error) {
	var extremes StockExtremes
	highest, err := r.queryStock(ctx, "DESC", limit)
	if err != nil {
		return extremes, err
	}
	lowest, err := r.queryStock(ctx, "ASC", limit)
	if err != nil {
		return extremes, err
	}
	extremes.Highest = highest
	extremes.Lowest = lowest
	return extremes, nil
}

func (r *Repository) queryStock(ctx context.Context, dir string, limit int) ([]BookStock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, title, quantity_in_stock
		FROM books
		ORDER BY quantity_in_stock `+dir+`, id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BookStock
	for rows.Next() {
		var bs BookStock
		if err := rows.Scan(&bs.BookID, &bs.Title, &bs.QuantityInStock); err != nil {
			return nil, err
		}
		result = append(result, bs)
	}
	return result, rows.Err()
}

// DashboardCounts returns the landing-page counters in one statement.
func (r *Repository) DashboardCounts(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers),
			(SELECT COUNT(*) FROM books),
			(SELECT COUNT(*) FROM invoices WHERE status <> $1)`, billing.StatusPaid,
	).Scan(&stats.Customers, &stats.Books, &stats.OpenInvoices)
	return stats, err
}
