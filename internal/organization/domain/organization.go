package domain

import (
	"errors"
	"strings"
	"time"
)

// Org represents an organization (gym), the unit of tenant isolation.
type Org struct {
	ID      string
	Name    string
	Address Address
	// Active is false for gyms that are closed or suspended; inactive gyms grant no access.
	Active    bool
	CreatedAt time.Time
}

// Address is the postal address of a gym.
type Address struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
