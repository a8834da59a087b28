package inventory

import (
	"context"
	"log/slog"

	"github.com/inkroute/inkroute/internal/money"
)

// TxStock is the transaction-scoped handle through which stock is mutated.
// Callers that need stock changes to commit or roll back with their own
// writes implement it on their transactional repository.
type TxStock interface {
	GetBookForUpdate(ctx context.Context, bookID int64) (Book, error)
	SetBookStock(ctx context.Context, bookID int64, qty int64) error
}

// Ledger owns the stock-movement rules. Stock is mutated only through
// Reserve (sale) and Release (return); it never goes negative.
type Ledger struct {
	logger *slog.Logger
}

// NewLedger builds a Ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	return &Ledger{logger: logger}
}

// Reserve decrements stock for a sale and returns the book's current unit
// price so the caller can snapshot it into the invoice item.
func (l *Ledger) Reserve(ctx context.Context, store TxStock, bookID, qty int64) (money.Money, error) {
	if qty <= 0 {
		return money.Zero, ErrInvalidQuantity
	}
	book, err := store.GetBookForUpdate(ctx, bookID)
	if err != nil {
		return money.Zero, err
	}
	if qty > book.QuantityInStock {
		return money.Zero, &InsufficientStockError{
			BookID:    book.ID,
			Title:     book.Title,
			Requested: qty,
			Available: book.QuantityInStock,
		}
	}
	if err := store.SetBookStock(ctx, bookID, book.QuantityInStock-qty); err != nil {
		return money.Zero, err
	}
	return book.Price, nil
}

// Release increments stock for a return. No upper bound is enforced.
func (l *Ledger) Release(ctx context.Context, store TxStock, bookID, qty int64) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	book, err := store.GetBookForUpdate(ctx, bookID)
	if err != nil {
		return err
	}
	if err := store.SetBookStock(ctx, bookID, book.QuantityInStock+qty); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Info("stock released",
			slog.Int64("book_id", bookID),
			slog.Int64("qty", qty),
			slog.Int64("balance", book.QuantityInStock+qty))
	}
	return nil
}
