package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotOpen      = errors.New("database is not open")
	ErrInvalidLimit = errors.New("invalid attendance limit")
)
