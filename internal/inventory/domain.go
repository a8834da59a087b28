package inventory

import (
	"errors"
	"fmt"
	"time"

	"github.com/inkroute/inkroute/internal/money"
)

// Book is a catalog title with its master price and on-hand stock.
type Book struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	AuthorID        int64       `json:"author_id"`
	AuthorName      string      `json:"author_name,omitempty"`
	PublisherID     int64       `json:"publisher_id"`
	PublisherName   string      `json:"publisher_name,omitempty"`
	Price           money.Money `json:"price"`
	QuantityInStock int64       `json:"quantity_in_stock"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// BookFilter narrows catalog listings.
type BookFilter struct {
	Search      string
	AuthorID    int64
	PublisherID int64
	Page        int
	PerPage     int
}

var (
	// ErrBookNotFound indicates an unresolvable book id.
	ErrBookNotFound = errors.New("inventory: book not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrInsufficientStock is the match target for InsufficientStockError.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
)

// InsufficientStockError names the book and the quantity actually available.
type InsufficientStockError struct {
	BookID    int64
	Title     string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (book %d): requested %d, available %d",
		e.Title, e.BookID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
