package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inkroute/inkroute/internal/money"
)

type memoryStock struct {
	books map[int64]Book
}

func newMemoryStock(books ...Book) *memoryStock {
	m := &memoryStock{books: make(map[int64]Book)}
	for _, b := range books {
		m.books[b.ID] = b
	}
	return m
}

func (m *memoryStock) GetBookForUpdate(_ context.Context, bookID int64) (Book, error) {
	b, ok := m.books[bookID]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return b, nil
}

func (m *memoryStock) SetBookStock(_ context.Context, bookID int64, qty int64) error {
	b, ok := m.books[bookID]
	if !ok {
		return ErrBookNotFound
	}
	b.QuantityInStock = qty
	m.books[bookID] = b
	return nil
}

func TestReserveSnapshotsPriceAndDecrements(t *testing.T) {
	stock := newMemoryStock(Book{ID: 1, Title: "Primary Maths 4", Price: money.MustParse("12.50"), QuantityInStock: 10})
	ledger := NewLedger(nil)

	price, err := ledger.Reserve(context.Background(), stock, 1, 4)
	require.NoError(t, err)
	require.Equal(t, "12.50", price.String())
	require.EqualValues(t, 6, stock.books[1].QuantityInStock)
}

func TestReserveInsufficientStock(t *testing.T) {
	stock := newMemoryStock(Book{ID: 1, Title: "Primary Maths 4", Price: money.MustParse("12.50"), QuantityInStock: 5})
	ledger := NewLedger(nil)

	_, err := ledger.Reserve(context.Background(), stock, 1, 6)
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.EqualValues(t, 5, stockErr.Available)
	require.EqualValues(t, 6, stockErr.Requested)
	require.Equal(t, "Primary Maths 4", stockErr.Title)

	// Failed reservation leaves stock untouched.
	require.EqualValues(t, 5, stock.books[1].QuantityInStock)
}

func TestReserveUnknownBook(t *testing.T) {
	ledger := NewLedger(nil)
	_, err := ledger.Reserve(context.Background(), newMemoryStock(), 99, 1)
	require.ErrorIs(t, err, ErrBookNotFound)
}

func TestReserveRejectsNonPositiveQty(t *testing.T) {
	stock := newMemoryStock(Book{ID: 1, QuantityInStock: 5})
	ledger := NewLedger(nil)

	for _, qty := range []int64{0, -3} {
		_, err := ledger.Reserve(context.Background(), stock, 1, qty)
		require.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestReleaseRestocksWithoutCap(t *testing.T) {
	stock := newMemoryStock(Book{ID: 1, QuantityInStock: 2})
	ledger := NewLedger(nil)

	require.NoError(t, ledger.Release(context.Background(), stock, 1, 50))
	require.EqualValues(t, 52, stock.books[1].QuantityInStock)

	require.ErrorIs(t, ledger.Release(context.Background(), stock, 99, 1), ErrBookNotFound)
}
