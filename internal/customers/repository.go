package customers

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkroute/inkroute/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for customers.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerSelect = `
	SELECT c.id, c.school_name, COALESCE(c.route_axis_id, 0), COALESCE(ra.name, ''),
	       COALESCE(c.address, ''), COALESCE(c.contact_person, ''), c.phone_number,
	       c.referred_by_id, COALESCE(ref.school_name, ''),
	       c.created_at, c.updated_at
	FROM customers c
	LEFT JOIN route_axes ra ON ra.id = c.route_axis_id
	LEFT JOIN customers ref ON ref.id = c.referred_by_id`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.SchoolName, &c.RouteAxisID, &c.RouteAxisName,
		&c.Address, &c.ContactPerson, &c.PhoneNumber,
		&c.ReferredByID, &c.ReferredByName,
		&c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

// List returns customers matching the filter, ordered by school name.
func (r *Repository) List(ctx context.Context, filter Filter) ([]Customer, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND (c.school_name ILIKE $%d OR c.contact_person ILIKE $%d)", len(args), len(args))
	}
	if filter.RouteAxisID > 0 {
		args = append(args, filter.RouteAxisID)
		where += fmt.Sprintf(" AND c.route_axis_id = $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM customers c"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 50
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.pool.Query(ctx, customerSelect+where+
		fmt.Sprintf(" ORDER BY c.school_name LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

// Get loads one customer with its route axis and referrer names.
func (r *Repository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, customerSelect+" WHERE c.id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Customer{}, ErrCustomerNotFound
	}
	return c, err
}

// Input carries the writable customer fields.
type Input struct {
	SchoolName    string
	RouteAxisID   int64
	Address       string
	ContactPerson string
	PhoneNumber   string
	ReferredByID  *int64
}

// Create inserts a customer. Foreign-key and unique violations map to the
// package sentinels so the handler can report them as client faults.
func (r *Repository) Create(ctx context.Context, input Input) (Customer, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO customers (school_name, route_axis_id, address, contact_person, phone_number, referred_by_id, created_at, updated_at)
		VALUES ($1, NULLIF($2, 0), NULLIF($3, ''), NULLIF($4, ''), $5, $6, NOW(), NOW())
		RETURNING id`,
		input.SchoolName, input.RouteAxisID, input.Address, input.ContactPerson, input.PhoneNumber, input.ReferredByID,
	).Scan(&id)
	if err != nil {
		return Customer{}, translateConstraint(err)
	}
	return r.Get(ctx, id)
}

// Update overwrites a customer's writable fields.
func (r *Repository) Update(ctx context.Context, id int64, input Input) (Customer, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE customers
		SET school_name = $2, route_axis_id = NULLIF($3, 0), address = NULLIF($4, ''),
		    contact_person = NULLIF($5, ''), phone_number = $6, referred_by_id = $7, updated_at = NOW()
		WHERE id = $1`,
		id, input.SchoolName, input.RouteAxisID, input.Address, input.ContactPerson, input.PhoneNumber, input.ReferredByID)
	if err != nil {
		return Customer{}, translateConstraint(err)
	}
	if tag.RowsAffected() == 0 {
		return Customer{}, ErrCustomerNotFound
	}
	return r.Get(ctx, id)
}

func translateConstraint(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		return fmt.Errorf("%w: phone number already registered", httpx.ErrDuplicate)
	case "23503":
		switch pgErr.ConstraintName {
		case "customers_route_axis_id_fkey":
			return ErrRouteAxisNotFound
		case "customers_referred_by_id_fkey":
			return ErrReferrerNotFound
		}
	}
	return err
}
