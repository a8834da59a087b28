package inventory

import (
	"context"
	"fmt"

	"github.com/inkroute/inkroute/internal/money"
	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// RepositoryPort defines catalog data access used by the service.
type RepositoryPort interface {
	ListBooks(ctx context.Context, filter BookFilter) ([]Book, int, error)
	GetBook(ctx context.Context, id int64) (*Book, error)
	CreateBook(ctx context.Context, input BookInput) (*Book, error)
	UpdateBook(ctx context.Context, id int64, input BookInput) (*Book, error)
}

// Service handles catalog business logic. Stock movements caused by sales
// and returns go through Ledger, not through here.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a catalog page.
func (s *Service) List(ctx context.Context, filter BookFilter) ([]Book, int, error) {
	return s.repo.ListBooks(ctx, filter)
}

// Get returns one book.
func (s *Service) Get(ctx context.Context, id int64) (*Book, error) {
	return s.repo.GetBook(ctx, id)
}

// Create validates and inserts a catalog entry.
func (s *Service) Create(ctx context.Context, input BookInput) (*Book, error) {
	if err := validateBookInput(&input); err != nil {
		return nil, err
	}
	return s.repo.CreateBook(ctx, input)
}

// Update validates and replaces a catalog entry.
func (s *Service) Update(ctx context.Context, id int64, input BookInput) (*Book, error) {
	if err := validateBookInput(&input); err != nil {
		return nil, err
	}
	return s.repo.UpdateBook(ctx, id, input)
}

func validateBookInput(input *BookInput) error {
	if input.Title == "" {
		return fmt.Errorf("%w: title required", httpx.ErrValidation)
	}
	if input.AuthorID <= 0 || input.PublisherID <= 0 {
		return fmt.Errorf("%w: author and publisher required", httpx.ErrValidation)
	}
	price, err := money.Parse(input.Price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("%w: price must be a non-negative amount", httpx.ErrValidation)
	}
	if input.QuantityInStock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", httpx.ErrValidation)
	}
	input.Price = price.String()
	return nil
}
