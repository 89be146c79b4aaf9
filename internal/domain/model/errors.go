package model

import "errors"

// Sentinel kinds shared across the domain packages.
var (
	ErrInvalidVector = errors.New("invalid feature vector")
)
