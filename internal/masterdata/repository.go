package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for the reference
// tables. All three tables share the same shape apart from the route-axis
// description, so the queries are generated per table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilter narrows reference listings.
type ListFilter struct {
	Search  string
	Page    int
	PerPage int
}

func (f ListFilter) limits() (perPage, offset int) {
	perPage = f.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	return perPage, (page - 1) * perPage
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: name already exists", httpx.ErrDuplicate)
	}
	return err
}

func (r *Repository) listNames(ctx context.Context, table string, filter ListFilter) (pgx.Rows, int, error) {
	where := ""
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage, offset := filter.limits()
	args = append(args, perPage, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT id, name, created_at FROM %s%s ORDER BY name LIMIT $%d OFFSET $%d",
		table, where, len(args)-1, len(args)), args...)
	return rows, total, err
}

// ListAuthors returns authors ordered by name.
func (r *Repository) ListAuthors(ctx context.Context, filter ListFilter) ([]Author, int, error) {
	rows, total, err := r.listNames(ctx, "authors", filter)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var authors []Author
	for rows.Next() {
		var a Author
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		authors = append(authors, a)
	}
	return authors, total, rows.Err()
}

// GetAuthor loads one author.
func (r *Repository) GetAuthor(ctx context.Context, id int64) (Author, error) {
	var a Author
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM authors WHERE id = $1`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Author{}, ErrAuthorNotFound
	}
	return a, err
}

// CreateAuthor inserts an author; duplicate names map to httpx.ErrDuplicate.
func (r *Repository) CreateAuthor(ctx context.Context, name string) (Author, error) {
	var a Author
	err := r.pool.QueryRow(ctx,
		`INSERT INTO authors (name, created_at) VALUES ($1, NOW()) RETURNING id, name, created_at`, name,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		return Author{}, translateUnique(err)
	}
	return a, nil
}

// ListPublishers returns publishers ordered by name.
func (r *Repository) ListPublishers(ctx context.Context, filter ListFilter) ([]Publisher, int, error) {
	rows, total, err := r.listNames(ctx, "publishers", filter)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var publishers []Publisher
	for rows.Next() {
		var p Publisher
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, 0, err
		}
		publishers = append(publishers, p)
	}
	return publishers, total, rows.Err()
}

// GetPublisher loads one publisher.
func (r *Repository) GetPublisher(ctx context.Context, id int64) (Publisher, error) {
	var p Publisher
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM publishers WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Publisher{}, ErrPublisherNotFound
	}
	return p, err
}

// CreatePublisher inserts a publisher; duplicate names map to httpx.ErrDuplicate.
func (r *Repository) CreatePublisher(ctx context.Context, name string) (Publisher, error) {
	var p Publisher
	err := r.pool.QueryRow(ctx,
		`INSERT INTO publishers (name, created_at) VALUES ($1, NOW()) RETURNING id, name, created_at`, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err != nil {
		return Publisher{}, translateUnique(err)
	}
	return p, nil
}

// ListRouteAxes returns route axes ordered by name.
func (r *Repository) ListRouteAxes(ctx context.Context, filter ListFilter) ([]RouteAxis, int, error) {
	where := ""
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where = " WHERE name ILIKE $1"
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM route_axes"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage, offset := filter.limits()
	args = append(args, perPage, offset)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT id, name, COALESCE(description, ''), created_at FROM route_axes%s ORDER BY name LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var axes []RouteAxis
	for rows.Next() {
		var ra RouteAxis
		if err := rows.Scan(&ra.ID, &ra.Name, &ra.Description, &ra.CreatedAt); err != nil {
			return nil, 0, err
		}
		axes = append(axes, ra)
	}
	return axes, total, rows.Err()
}

// GetRouteAxis loads one route axis.
func (r *Repository) GetRouteAxis(ctx context.Context, id int64) (RouteAxis, error) {
	var ra RouteAxis
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, COALESCE(description, ''), created_at FROM route_axes WHERE id = $1`, id,
	).Scan(&ra.ID, &ra.Name, &ra.Description, &ra.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RouteAxis{}, ErrRouteAxisNotFound
	}
	return ra, err
}

// CreateRouteAxis inserts a route axis; duplicate names map to httpx.ErrDuplicate.
func (r *Repository) CreateRouteAxis(ctx context.Context, name, description string) (RouteAxis, error) {
	var ra RouteAxis
	err := r.pool.QueryRow(ctx, `
		INSERT INTO route_axes (name, description, created_at)
		VALUES ($1, NULLIF($2, ''), NOW())
		RETURNING id, name, COALESCE(description, ''), created_at`,
		name, description,
	).Scan(&ra.ID, &ra.Name, &ra.Description, &ra.CreatedAt)
	if err != nil {
		return RouteAxis{}, translateUnique(err)
	}
	return ra, nil
}
