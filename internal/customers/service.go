package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// RepositoryPort defines data access methods for customers.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, input Input) (Customer, error)
	Update(ctx context.Context, id int64, input Input) (Customer, error)
}

// Service guards the customer table.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Customer, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, input Input) (Customer, error) {
	cleaned, err := normalizeInput(input)
	if err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, cleaned)
}

func (s *Service) Update(ctx context.Context, id int64, input Input) (Customer, error) {
	cleaned, err := normalizeInput(input)
	if err != nil {
		return Customer{}, err
	}
	if cleaned.ReferredByID != nil && *cleaned.ReferredByID == id {
		return Customer{}, fmt.Errorf("%w: a customer cannot refer itself", httpx.ErrValidation)
	}
	return s.repo.Update(ctx, id, cleaned)
}

func normalizeInput(input Input) (Input, error) {
	input.SchoolName = strings.TrimSpace(input.SchoolName)
	input.PhoneNumber = strings.TrimSpace(input.PhoneNumber)
	input.Address = strings.TrimSpace(input.Address)
	input.ContactPerson = strings.TrimSpace(input.ContactPerson)

	if input.SchoolName == "" {
		return Input{}, fmt.Errorf("%w: school name is required", httpx.ErrValidation)
	}
	if input.PhoneNumber == "" {
		return Input{}, fmt.Errorf("%w: phone number is required", httpx.ErrValidation)
	}
	if input.ReferredByID != nil && *input.ReferredByID <= 0 {
		return Input{}, fmt.Errorf("%w: referred_by_id must be a valid customer id", httpx.ErrValidation)
	}
	return input, nil
}
