package insights

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/inkroute/inkroute/internal/billing"
	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// DebtorSort selects the debtors ordering column.
type DebtorSort string

const (
	SortDueDate  DebtorSort = "due_date"
	SortBalance  DebtorSort = "balance"
	SortCustomer DebtorSort = "customer"
)

const topN = 3
const stockN = 5

// RepositoryPort defines the aggregate queries the service reads from.
type RepositoryPort interface {
	ListOpenInvoices(ctx context.Context) ([]OpenInvoiceRow, error)
	TopCustomers(ctx context.Context, limit int) ([]CustomerRevenue, error)
	TopBooks(ctx context.Context, limit int) ([]BookRevenue, error)
	StockExtremes(ctx context.Context, limit int) (StockExtremes, error)
	DashboardCounts(ctx context.Context) (DashboardStats, error)
}

// Service assembles the read-only insight views.
type Service struct {
	repo     RepositoryPort
	cache    *Cache
	logger   *slog.Logger
	collator *collate.Collator
	now      func() time.Time
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    cache,
		logger:   logger,
		collator: collate.New(language.English, collate.Loose),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Debtors returns every open invoice with outstanding figures and overdue
// days, ordered by the requested column. Never cached: debt positions must
// reflect the latest payment.
func (s *Service) Debtors(ctx context.Context, sortBy DebtorSort, descending bool) ([]Debtor, error) {
	switch sortBy {
	case "", SortDueDate, SortBalance, SortCustomer:
	default:
		return nil, fmt.Errorf("%w: sort must be one of due_date, balance, customer", httpx.ErrValidation)
	}

	rows, err := s.repo.ListOpenInvoices(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().Truncate(24 * time.Hour)
	debtors := make([]Debtor, 0, len(rows))
	for _, row := range rows {
		d := Debtor{
			InvoiceID:    row.InvoiceID,
			CustomerID:   row.CustomerID,
			CustomerName: row.CustomerName,
			RouteAxis:    row.RouteAxis,
			InvoiceDate:  row.InvoiceDate,
			DueDate:      row.DueDate,
			Status:       row.Status,
			Totals:       billing.NewTotals(row.Total, row.Paid, row.Credit),
		}
		if overdue := today.Sub(row.DueDate.Truncate(24 * time.Hour)); overdue > 0 {
			d.DaysOverdue = int64(overdue / (24 * time.Hour))
		}
		debtors = append(debtors, d)
	}

	s.sortDebtors(debtors, sortBy, descending)
	return debtors, nil
}

func (s *Service) sortDebtors(debtors []Debtor, sortBy DebtorSort, descending bool) {
	var less func(a, b Debtor) bool
	switch sortBy {
	case SortBalance:
		less = func(a, b Debtor) bool { return a.Balance.Cmp(b.Balance) < 0 }
	case SortCustomer:
		less = func(a, b Debtor) bool {
			if cmp := s.collator.CompareString(a.CustomerName, b.CustomerName); cmp != 0 {
				return cmp < 0
			}
			return a.InvoiceID < b.InvoiceID
		}
	default:
		less = func(a, b Debtor) bool {
			if !a.DueDate.Equal(b.DueDate) {
				return a.DueDate.Before(b.DueDate)
			}
			return a.InvoiceID < b.InvoiceID
		}
	}
	sort.SliceStable(debtors, func(i, j int) bool {
		if descending {
			return less(debtors[j], debtors[i])
		}
		return less(debtors[i], debtors[j])
	})
}

// Summary returns the cached business overview: worst debtors, best
// customers, best-selling books and stock extremes.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	err := s.cache.FetchJSON(ctx, keySummary, &summary, func(ctx context.Context) (interface{}, error) {
		return s.buildSummary(ctx)
	})
	return summary, err
}

func (s *Service) buildSummary(ctx context.Context) (Summary, error) {
	var summary Summary

	debtors, err := s.Debtors(ctx, SortDueDate, false)
	if err != nil {
		return summary, err
	}
	summary.TopDebtors = rankDebtors(debtors, topN)

	if summary.TopCustomers, err = s.repo.TopCustomers(ctx, topN); err != nil {
		return summary, err
	}
	if summary.TopBooks, err = s.repo.TopBooks(ctx, topN); err != nil {
		return summary, err
	}
	if summary.StockExtremes, err = s.repo.StockExtremes(ctx, stockN); err != nil {
		return summary, err
	}
	summary.GeneratedAt = s.now()
	return summary, nil
}

// rankDebtors folds per-invoice balances into per-customer totals and keeps
// the worst n, positive balances only.
func rankDebtors(debtors []Debtor, n int) []DebtorBalance {
	byCustomer := make(map[int64]*DebtorBalance)
	order := make([]int64, 0)
	for _, d := range debtors {
		entry, ok := byCustomer[d.CustomerID]
		if !ok {
			entry = &DebtorBalance{CustomerID: d.CustomerID, CustomerName: d.CustomerName}
			byCustomer[d.CustomerID] = entry
			order = append(order, d.CustomerID)
		}
		entry.Balance = entry.Balance.Add(d.Balance)
		entry.OpenInvoices++
	}

	ranked := make([]DebtorBalance, 0, len(order))
	for _, id := range order {
		if byCustomer[id].Balance.IsPositive() {
			ranked = append(ranked, *byCustomer[id])
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Balance.Cmp(ranked[j].Balance) > 0
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// Dashboard returns the cached landing-page counters.
func (s *Service) Dashboard(ctx context.Context) (DashboardStats, error) {
	var stats DashboardStats
	err := s.cache.FetchJSON(ctx, keyDashboard, &stats, func(ctx context.Context) (interface{}, error) {
		return s.repo.DashboardCounts(ctx)
	})
	return stats, err
}

// Warm recomputes and stores the cached views. The cron worker calls this
// so the first dashboard hit after a quiet period stays fast.
func (s *Service) Warm(ctx context.Context) error {
	if err := s.cache.Invalidate(ctx, keySummary, keyDashboard); err != nil {
		return err
	}
	if _, err := s.Summary(ctx); err != nil {
		return err
	}
	if _, err := s.Dashboard(ctx); err != nil {
		return err
	}
	if s.logger != nil {
		s.logger.Info("insight caches warmed")
	}
	return nil
}
