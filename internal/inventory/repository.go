package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the book catalog.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const bookColumns = `
	b.id, b.title, b.author_id, a.name, b.publisher_id, p.name,
	b.price, b.quantity_in_stock, b.created_at, b.updated_at`

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.Title, &b.AuthorID, &b.AuthorName, &b.PublisherID, &b.PublisherName,
		&b.Price, &b.QuantityInStock, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// ListBooks returns a filtered catalog page plus the unfiltered match count.
func (r *Repository) ListBooks(ctx context.Context, filter BookFilter) ([]Book, int, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += fmt.Sprintf(" AND b.title ILIKE $%d", len(args))
	}
	if filter.AuthorID > 0 {
		args = append(args, filter.AuthorID)
		where += fmt.Sprintf(" AND b.author_id = $%d", len(args))
	}
	if filter.PublisherID > 0 {
		args = append(args, filter.PublisherID)
		where += fmt.Sprintf(" AND b.publisher_id = $%d", len(args))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM books b" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
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
	query := `SELECT` + bookColumns + `
		FROM books b
		JOIN authors a ON a.id = b.author_id
		JOIN publishers p ON p.id = b.publisher_id` +
		where + fmt.Sprintf(" ORDER BY b.title LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, err
		}
		books = append(books, b)
	}
	return books, total, rows.Err()
}

// GetBook loads one catalog entry.
func (r *Repository) GetBook(ctx context.Context, id int64) (*Book, error) {
	query := `SELECT` + bookColumns + `
		FROM books b
		JOIN authors a ON a.id = b.author_id
		JOIN publishers p ON p.id = b.publisher_id
		WHERE b.id = $1`
	b, err := scanBook(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

// BookInput carries fields for creating or updating a catalog entry.
type BookInput struct {
	Title           string
	AuthorID        int64
	PublisherID     int64
	Price           string
	QuantityInStock int64
}

// CreateBook inserts a catalog entry.
func (r *Repository) CreateBook(ctx context.Context, input BookInput) (*Book, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO books (title, author_id, publisher_id, price, quantity_in_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id`,
		input.Title, input.AuthorID, input.PublisherID, input.Price, input.QuantityInStock,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetBook(ctx, id)
}

// UpdateBook replaces the mutable catalog fields.
func (r *Repository) UpdateBook(ctx context.Context, id int64, input BookInput) (*Book, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE books
		SET title = $2, author_id = $3, publisher_id = $4, price = $5, quantity_in_stock = $6, updated_at = NOW()
		WHERE id = $1`,
		id, input.Title, input.AuthorID, input.PublisherID, input.Price, input.QuantityInStock,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrBookNotFound
	}
	return r.GetBook(ctx, id)
}
