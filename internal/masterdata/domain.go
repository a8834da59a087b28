package masterdata

import (
	"errors"
	"time"
)

// Author of a catalogued book.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Publisher of a catalogued book.
type Publisher struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RouteAxis is a delivery route grouping customers geographically.
type RouteAxis struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	// ErrAuthorNotFound indicates an unresolvable author id.
	ErrAuthorNotFound = errors.New("masterdata: author not found")
	// ErrPublisherNotFound indicates an unresolvable publisher id.
	ErrPublisherNotFound = errors.New("masterdata: publisher not found")
	// ErrRouteAxisNotFound indicates an unresolvable route axis id.
	ErrRouteAxisNotFound = errors.New("masterdata: route axis not found")
)
