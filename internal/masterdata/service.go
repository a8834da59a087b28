package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// RepositoryPort defines data access methods for the reference tables.
type RepositoryPort interface {
	ListAuthors(ctx context.Context, filter ListFilter) ([]Author, int, error)
	GetAuthor(ctx context.Context, id int64) (Author, error)
	CreateAuthor(ctx context.Context, name string) (Author, error)

	ListPublishers(ctx context.Context, filter ListFilter) ([]Publisher, int, error)
	GetPublisher(ctx context.Context, id int64) (Publisher, error)
	CreatePublisher(ctx context.Context, name string) (Publisher, error)

	ListRouteAxes(ctx context.Context, filter ListFilter) ([]RouteAxis, int, error)
	GetRouteAxis(ctx context.Context, id int64) (RouteAxis, error)
	CreateRouteAxis(ctx context.Context, name, description string) (RouteAxis, error)
}

// Service guards the reference tables. No derived state lives here; the
// billing core only resolves references against these rows.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	if len(name) > 255 {
		return "", fmt.Errorf("%w: name exceeds 255 characters", httpx.ErrValidation)
	}
	return name, nil
}

func (s *Service) ListAuthors(ctx context.Context, filter ListFilter) ([]Author, int, error) {
	return s.repo.ListAuthors(ctx, filter)
}

func (s *Service) GetAuthor(ctx context.Context, id int64) (Author, error) {
	return s.repo.GetAuthor(ctx, id)
}

func (s *Service) CreateAuthor(ctx context.Context, name string) (Author, error) {
	name, err := cleanName(name)
	if err != nil {
		return Author{}, err
	}
	return s.repo.CreateAuthor(ctx, name)
}

func (s *Service) ListPublishers(ctx context.Context, filter ListFilter) ([]Publisher, int, error) {
	return s.repo.ListPublishers(ctx, filter)
}

func (s *Service) GetPublisher(ctx context.Context, id int64) (Publisher, error) {
	return s.repo.GetPublisher(ctx, id)
}

func (s *Service) CreatePublisher(ctx context.Context, name string) (Publisher, error) {
	name, err := cleanName(name)
	if err != nil {
		return Publisher{}, err
	}
	return s.repo.CreatePublisher(ctx, name)
}

func (s *Service) ListRouteAxes(ctx context.Context, filter ListFilter) ([]RouteAxis, int, error) {
	return s.repo.ListRouteAxes(ctx, filter)
}

func (s *Service) GetRouteAxis(ctx context.Context, id int64) (RouteAxis, error) {
	return s.repo.GetRouteAxis(ctx, id)
}

func (s *Service) CreateRouteAxis(ctx context.Context, name, description string) (RouteAxis, error) {
	name, err := cleanName(name)
	if err != nil {
		return RouteAxis{}, err
	}
	return s.repo.CreateRouteAxis(ctx, name, strings.TrimSpace(description))
}
