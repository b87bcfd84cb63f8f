package repository

import "errors"

var (
	// ErrProductNotFound is returned when the watchlist has no entry with
	// the requested ID.
	ErrProductNotFound = errors.New("product not found")

	// ErrStateNotFound is returned when no notification state is stored
	// for the requested key.
	ErrStateNotFound = errors.New("notification state not found")
)
