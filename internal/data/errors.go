package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// ErrProfileRequired is returned when Create receives no profile id.
	ErrProfileRequired = errors.New("profile id is required")
)
