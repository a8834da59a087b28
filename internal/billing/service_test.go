package billing

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkroute/inkroute/internal/inventory"
	"github.com/inkroute/inkroute/internal/money"
)

// memoryRepo implements RepositoryPort and TxRepository in memory. WithTx
// snapshots the state before the callback and restores it on error, matching
// the rollback behaviour of the real repository.
type memoryRepo struct {
	books       map[int64]inventory.Book
	customers   map[int64]bool
	invoices    map[int64]Invoice
	items       map[int64][]InvoiceItem
	payments    map[int64][]Payment
	creditNotes map[int64]CreditNote
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		books:       make(map[int64]inventory.Book),
		customers:   make(map[int64]bool),
		invoices:    make(map[int64]Invoice),
		items:       make(map[int64][]InvoiceItem),
		payments:    make(map[int64][]Payment),
		creditNotes: make(map[int64]CreditNote),
	}
}

func (m *memoryRepo) addBook(b inventory.Book) { m.books[b.ID] = b }

func (m *memoryRepo) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memoryRepo) snapshot() []byte {
	buf, err := json.Marshal(struct {
		Books       map[int64]inventory.Book
		Customers   map[int64]bool
		Invoices    map[int64]Invoice
		Items       map[int64][]InvoiceItem
		Payments    map[int64][]Payment
		CreditNotes map[int64]CreditNote
		NextID      int64
	}{m.books, m.customers, m.invoices, m.items, m.payments, m.creditNotes, m.nextID})
	if err != nil {
		panic(err)
	}
	return buf
}

func (m *memoryRepo) restore(buf []byte) {
	var state struct {
		Books       map[int64]inventory.Book
		Customers   map[int64]bool
		Invoices    map[int64]Invoice
		Items       map[int64][]InvoiceItem
		Payments    map[int64][]Payment
		CreditNotes map[int64]CreditNote
		NextID      int64
	}
	if err := json.Unmarshal(buf, &state); err != nil {
		panic(err)
	}
	m.books = state.Books
	m.customers = state.Customers
	m.invoices = state.Invoices
	m.items = state.Items
	m.payments = state.Payments
	m.creditNotes = state.CreditNotes
	m.nextID = state.NextID
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

// --- TxRepository ---

func (m *memoryRepo) GetBookForUpdate(_ context.Context, bookID int64) (inventory.Book, error) {
	b, ok := m.books[bookID]
	if !ok {
		return inventory.Book{}, inventory.ErrBookNotFound
	}
	return b, nil
}

func (m *memoryRepo) SetBookStock(_ context.Context, bookID, qty int64) error {
	b, ok := m.books[bookID]
	if !ok {
		return inventory.ErrBookNotFound
	}
	b.QuantityInStock = qty
	m.books[bookID] = b
	return nil
}

func (m *memoryRepo) CustomerExists(_ context.Context, id int64) (bool, error) {
	return m.customers[id], nil
}

func (m *memoryRepo) InsertInvoice(_ context.Context, customerID int64, invoiceDate, dueDate time.Time, status InvoiceStatus) (int64, error) {
	id := m.id()
	m.invoices[id] = Invoice{
		ID: id, CustomerID: customerID, InvoiceDate: invoiceDate, DueDate: dueDate, Status: status,
	}
	return id, nil
}

func (m *memoryRepo) InsertInvoiceItem(_ context.Context, invoiceID, bookID, qty int64, unitPrice money.Money) (int64, error) {
	id := m.id()
	m.items[invoiceID] = append(m.items[invoiceID], InvoiceItem{
		ID: id, InvoiceID: invoiceID, BookID: bookID, Quantity: qty, UnitPrice: unitPrice,
	})
	return id, nil
}

func (m *memoryRepo) GetInvoiceForUpdate(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) ListInvoiceItems(_ context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return m.items[invoiceID], nil
}

func (m *memoryRepo) ListPayments(_ context.Context, invoiceID int64) ([]Payment, error) {
	return m.payments[invoiceID], nil
}

func (m *memoryRepo) ListCreditItemsForInvoice(_ context.Context, invoiceID int64) ([]CreditNoteItem, error) {
	var items []CreditNoteItem
	for _, cn := range m.creditNotes {
		if cn.OriginalInvoiceID == invoiceID {
			items = append(items, cn.Items...)
		}
	}
	return items, nil
}

func (m *memoryRepo) InsertPayment(_ context.Context, invoiceID int64, amount money.Money, notes string, at time.Time) (Payment, error) {
	p := Payment{ID: m.id(), InvoiceID: invoiceID, Amount: amount, Notes: notes, PaymentDate: at}
	m.payments[invoiceID] = append(m.payments[invoiceID], p)
	return p, nil
}

func (m *memoryRepo) SetInvoiceStatus(_ context.Context, invoiceID int64, status InvoiceStatus) error {
	inv, ok := m.invoices[invoiceID]
	if !ok {
		return ErrInvoiceNotFound
	}
	inv.Status = status
	m.invoices[invoiceID] = inv
	return nil
}

func (m *memoryRepo) InsertCreditNote(_ context.Context, customerID, invoiceID int64, reason string, at time.Time) (int64, error) {
	id := m.id()
	m.creditNotes[id] = CreditNote{
		ID: id, CustomerID: customerID, OriginalInvoiceID: invoiceID, Date: at, Reason: reason,
	}
	return id, nil
}

func (m *memoryRepo) InsertCreditNoteItem(_ context.Context, creditNoteID, bookID, qty int64, unitPrice money.Money) (int64, error) {
	cn, ok := m.creditNotes[creditNoteID]
	if !ok {
		return 0, ErrCreditNoteNotFound
	}
	id := m.id()
	cn.Items = append(cn.Items, CreditNoteItem{
		ID: id, CreditNoteID: creditNoteID, BookID: bookID, Quantity: qty, UnitPrice: unitPrice,
	})
	m.creditNotes[creditNoteID] = cn
	return id, nil
}

// --- RepositoryPort read side ---

func (m *memoryRepo) GetInvoice(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, ErrInvoiceNotFound
	}
	return inv, nil
}

func (m *memoryRepo) ListInvoices(_ context.Context, filter InvoiceFilter) ([]InvoiceListRow, int, error) {
	var rows []InvoiceListRow
	for _, inv := range m.invoices {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.CustomerID > 0 && inv.CustomerID != filter.CustomerID {
			continue
		}
		credits, _ := m.ListCreditItemsForInvoice(context.Background(), inv.ID)
		totals := ComputeTotals(m.items[inv.ID], m.payments[inv.ID], credits)
		rows = append(rows, InvoiceListRow{
			Invoice: inv, Total: totals.Total, Paid: totals.Paid, Credit: totals.Credit,
		})
	}
	return rows, len(rows), nil
}

func (m *memoryRepo) ListItems(_ context.Context, invoiceID int64) ([]InvoiceItem, error) {
	return m.items[invoiceID], nil
}

func (m *memoryRepo) ListCreditNotes(_ context.Context, invoiceID int64) ([]CreditNote, error) {
	var notes []CreditNote
	for _, cn := range m.creditNotes {
		if cn.OriginalInvoiceID == invoiceID {
			notes = append(notes, cn)
		}
	}
	return notes, nil
}

func (m *memoryRepo) GetCreditNote(_ context.Context, id int64) (CreditNote, error) {
	cn, ok := m.creditNotes[id]
	if !ok {
		return CreditNote{}, ErrCreditNoteNotFound
	}
	return cn, nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, inventory.NewLedger(nil), nil, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func seedRepo() *memoryRepo {
	repo := newMemoryRepo()
	repo.customers[1] = true
	repo.addBook(inventory.Book{ID: 10, Title: "Standard Maths 5", Price: money.MustParse("25.00"), QuantityInStock: 100})
	repo.addBook(inventory.Book{ID: 11, Title: "English Reader 3", Price: money.MustParse("12.50"), QuantityInStock: 4})
	return repo
}

func dueDate() time.Time {
	return time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)
}

func TestCreateInvoiceSnapshotsPricesAndDecrementsStock(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	view, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		DueDate:    dueDate(),
		Lines: []InvoiceLine{
			{BookID: 10, Quantity: 4},
			{BookID: 11, Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, view.Status)
	require.Len(t, view.Items, 2)
	require.Equal(t, "25.00", view.Items[0].UnitPrice.String())
	require.Equal(t, "125.00", view.Total.String())
	require.Equal(t, "125.00", view.Balance.String())

	require.EqualValues(t, 96, repo.books[10].QuantityInStock)
	require.EqualValues(t, 2, repo.books[11].QuantityInStock)
}

func TestCreateInvoiceZeroItemsIsUnpaid(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	view, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		DueDate:    dueDate(),
	})
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, view.Status)
	require.Equal(t, "0.00", view.Total.String())
}

func TestCreateInvoiceInsufficientStockLeavesNothingBehind(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		DueDate:    dueDate(),
		Lines: []InvoiceLine{
			{BookID: 10, Quantity: 4},
			{BookID: 11, Quantity: 5},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var stockErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "English Reader 3", stockErr.Title)
	require.EqualValues(t, 4, stockErr.Available)

	require.Empty(t, repo.invoices)
	require.Empty(t, repo.items)
	require.EqualValues(t, 100, repo.books[10].QuantityInStock)
	require.EqualValues(t, 4, repo.books[11].QuantityInStock)
}

func TestCreateInvoiceAggregatesRepeatedBookLines(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	// Two lines for the same book must be checked against stock together.
	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		DueDate:    dueDate(),
		Lines: []InvoiceLine{
			{BookID: 11, Quantity: 3},
			{BookID: 11, Quantity: 3},
		},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	require.EqualValues(t, 4, repo.books[11].QuantityInStock)
}

func TestCreateInvoiceUnknownCustomer(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)

	_, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 99,
		DueDate:    dueDate(),
		Lines:      []InvoiceLine{{BookID: 10, Quantity: 1}},
	})
	require.ErrorIs(t, err, ErrCustomerNotFound)
	require.EqualValues(t, 100, repo.books[10].QuantityInStock)
}

func createInvoice(t *testing.T, svc *Service, lines ...InvoiceLine) *InvoiceView {
	t.Helper()
	view, err := svc.CreateInvoice(context.Background(), CreateInvoiceInput{
		CustomerID: 1,
		DueDate:    dueDate(),
		Lines:      lines,
	})
	require.NoError(t, err)
	return view
}

func TestRecordPaymentExactBalanceSettlesInvoice(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00

	view, err := svc.RecordPayment(context.Background(), inv.ID, "100.00", "bank transfer")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, view.Status)
	require.Equal(t, "0.00", view.Balance.String())
	require.Equal(t, StatusPaid, repo.invoices[inv.ID].Status)
}

func TestRecordPaymentPartialThenRemainder(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00

	view, err := svc.RecordPayment(context.Background(), inv.ID, "40.00", "")
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyPaid, view.Status)
	require.Equal(t, "60.00", view.Balance.String())

	view, err = svc.RecordPayment(context.Background(), inv.ID, "60.00", "")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, view.Status)
}

func TestRecordPaymentOverpaymentRejected(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00

	_, err := svc.RecordPayment(context.Background(), inv.ID, "150.00", "")
	require.ErrorIs(t, err, ErrOverpayment)

	var over *OverpaymentError
	require.ErrorAs(t, err, &over)
	require.Equal(t, "100.00", over.BalanceDue.String())

	require.Empty(t, repo.payments[inv.ID])
	require.Equal(t, StatusUnpaid, repo.invoices[inv.ID].Status)
}

func TestRecordPaymentWithinToleranceSettles(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00

	// One cent over the balance is accepted and the invoice is settled.
	view, err := svc.RecordPayment(context.Background(), inv.ID, "100.01", "")
	require.NoError(t, err)
	require.Equal(t, StatusPaid, view.Status)
}

func TestRecordPaymentOnPaidInvoiceRejected(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4})

	_, err := svc.RecordPayment(context.Background(), inv.ID, "100.00", "")
	require.NoError(t, err)

	_, err = svc.RecordPayment(context.Background(), inv.ID, "1.00", "")
	require.ErrorIs(t, err, ErrInvoiceAlreadyPaid)
}

func TestRecordPaymentValidation(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4})

	for _, raw := range []string{"", "abc", "0", "-5.00"} {
		_, err := svc.RecordPayment(context.Background(), inv.ID, raw, "")
		require.ErrorIs(t, err, ErrInvalidAmount, "amount %q", raw)
	}
	require.Empty(t, repo.payments[inv.ID])
}

func TestRecordPaymentUnknownInvoice(t *testing.T) {
	svc := newTestService(seedRepo())

	_, err := svc.RecordPayment(context.Background(), 404, "10.00", "")
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestCreateCreditNoteRestocksAndReducesBalance(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00
	require.EqualValues(t, 96, repo.books[10].QuantityInStock)

	note, err := svc.CreateCreditNote(context.Background(), CreateCreditNoteInput{
		CustomerID:        1,
		OriginalInvoiceID: inv.ID,
		Reason:            "damaged copies",
		Lines:             []CreditLine{{BookID: 10, Quantity: 2, UnitPrice: money.MustParse("25.00")}},
	})
	require.NoError(t, err)
	require.Len(t, note.Items, 1)
	require.EqualValues(t, 98, repo.books[10].QuantityInStock)

	view, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, "50.00", view.Credit.String())
	require.Equal(t, "50.00", view.Balance.String())
	require.Equal(t, StatusUnpaid, view.Status)
}

func TestCreateCreditNoteCanSettleInvoice(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4}) // 100.00

	_, err := svc.RecordPayment(context.Background(), inv.ID, "50.00", "")
	require.NoError(t, err)

	_, err = svc.CreateCreditNote(context.Background(), CreateCreditNoteInput{
		CustomerID:        1,
		OriginalInvoiceID: inv.ID,
		Lines:             []CreditLine{{BookID: 10, Quantity: 2, UnitPrice: money.MustParse("25.00")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, repo.invoices[inv.ID].Status)
}

func TestCreateCreditNoteUnknownBookAbortsWholeNote(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 4})

	_, err := svc.CreateCreditNote(context.Background(), CreateCreditNoteInput{
		CustomerID:        1,
		OriginalInvoiceID: inv.ID,
		Lines: []CreditLine{
			{BookID: 10, Quantity: 1, UnitPrice: money.MustParse("25.00")},
			{BookID: 404, Quantity: 1, UnitPrice: money.MustParse("9.99")},
		},
	})
	require.ErrorIs(t, err, inventory.ErrBookNotFound)

	require.Empty(t, repo.creditNotes)
	require.EqualValues(t, 96, repo.books[10].QuantityInStock)
}

func TestCreateCreditNoteUnknownInvoice(t *testing.T) {
	svc := newTestService(seedRepo())

	_, err := svc.CreateCreditNote(context.Background(), CreateCreditNoteInput{
		CustomerID:        1,
		OriginalInvoiceID: 404,
		Lines:             []CreditLine{{BookID: 10, Quantity: 1, UnitPrice: money.MustParse("25.00")}},
	})
	require.ErrorIs(t, err, ErrInvoiceNotFound)
}

func TestGetInvoiceRecomputesFigures(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc,
		InvoiceLine{BookID: 10, Quantity: 3}, // 75.00
		InvoiceLine{BookID: 11, Quantity: 2}, // 25.00
	)

	_, err := svc.RecordPayment(context.Background(), inv.ID, "30.00", "")
	require.NoError(t, err)

	view, err := svc.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, "100.00", view.Total.String())
	require.Equal(t, "30.00", view.Paid.String())
	require.Equal(t, "70.00", view.Balance.String())
	require.Equal(t, StatusPartiallyPaid, view.Status)
	require.Len(t, view.Items, 2)
	require.Len(t, view.Payments, 1)
}

func TestListInvoicesComputesSummaries(t *testing.T) {
	repo := seedRepo()
	svc := newTestService(repo)
	inv := createInvoice(t, svc, InvoiceLine{BookID: 10, Quantity: 2}) // 50.00
	createInvoice(t, svc, InvoiceLine{BookID: 11, Quantity: 1})        // 12.50

	_, err := svc.RecordPayment(context.Background(), inv.ID, "50.00", "")
	require.NoError(t, err)

	summaries, total, err := svc.ListInvoices(context.Background(), InvoiceFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, summaries, 2)

	paid, _, err := svc.ListInvoices(context.Background(), InvoiceFilter{Status: StatusPaid})
	require.NoError(t, err)
	require.Len(t, paid, 1)
	require.Equal(t, inv.ID, paid[0].ID)
	require.Equal(t, "0.00", paid[0].Balance.String())
}
