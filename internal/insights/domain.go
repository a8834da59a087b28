package insights

import (
	"time"

	"github.com/inkroute/inkroute/internal/billing"
	"github.com/inkroute/inkroute/internal/money"
)

// Debtor is one open invoice annotated with its outstanding figures.
type Debtor struct {
	InvoiceID    int64                 `json:"invoice_id"`
	CustomerID   int64                 `json:"customer_id"`
	CustomerName string                `json:"customer_name"`
	RouteAxis    string                `json:"route_axis,omitempty"`
	InvoiceDate  time.Time             `json:"invoice_date"`
	DueDate      time.Time             `json:"due_date"`
	Status       billing.InvoiceStatus `json:"status"`
	billing.Totals
	DaysOverdue int64 `json:"days_overdue"`
}

// DebtorBalance ranks a customer by total outstanding balance.
type DebtorBalance struct {
	CustomerID   int64       `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	Balance      money.Money `json:"balance_due"`
	OpenInvoices int         `json:"open_invoices"`
}

// CustomerRevenue ranks a customer by lifetime payments received.
type CustomerRevenue struct {
	CustomerID   int64       `json:"customer_id"`
	CustomerName string      `json:"customer_name"`
	TotalPaid    money.Money `json:"total_paid"`
}

// BookRevenue ranks a book by invoiced revenue.
type BookRevenue struct {
	BookID   int64       `json:"book_id"`
	Title    string      `json:"title"`
	Quantity int64       `json:"quantity_sold"`
	Revenue  money.Money `json:"revenue"`
}

// BookStock is one entry of the stock extremes listing.
type BookStock struct {
	BookID          int64  `json:"book_id"`
	Title           string `json:"title"`
	QuantityInStock int64  `json:"quantity_in_stock"`
}

// StockExtremes lists the most and least stocked titles.
type StockExtremes struct {
	Highest []BookStock `json:"highest"`
	Lowest  []BookStock `json:"lowest"`
}

// Summary is the cached business overview.
type Summary struct {
	TopDebtors    []DebtorBalance   `json:"top_debtors"`
	TopCustomers  []CustomerRevenue `json:"top_customers"`
	TopBooks      []BookRevenue     `json:"top_books"`
	StockExtremes StockExtremes     `json:"stock_extremes"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

// DashboardStats carries the header counts of the back-office landing page.
type DashboardStats struct {
	Customers    int64 `json:"customers"`
	Books        int64 `json:"books"`
	OpenInvoices int64 `json:"open_invoices"`
}
