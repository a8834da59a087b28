package customers

import (
	"errors"
	"time"
)

// Customer is a school buying from the distributor. ReferredBy points at
// the customer that introduced this one, when known.
type Customer struct {
	ID             int64     `json:"id"`
	SchoolName     string    `json:"school_name"`
	RouteAxisID    int64     `json:"route_axis_id,omitempty"`
	RouteAxisName  string    `json:"route_axis,omitempty"`
	Address        string    `json:"address,omitempty"`
	ContactPerson  string    `json:"contact_person,omitempty"`
	PhoneNumber    string    `json:"phone_number"`
	ReferredByID   *int64    `json:"referred_by_id,omitempty"`
	ReferredByName string    `json:"referred_by,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Filter narrows customer listings.
type Filter struct {
	Search      string
	RouteAxisID int64
	Page        int
	PerPage     int
}

var (
	// ErrCustomerNotFound indicates an unresolvable customer id.
	ErrCustomerNotFound = errors.New("customers: customer not found")
	// ErrRouteAxisNotFound indicates an unresolvable route axis reference.
	ErrRouteAxisNotFound = errors.New("customers: route axis not found")
	// ErrReferrerNotFound indicates an unresolvable referred_by reference.
	ErrReferrerNotFound = errors.New("customers: referring customer not found")
)
