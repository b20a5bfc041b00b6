package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped)
// so services can translate them into domain errors exactly once.
var (
	ErrNotFound  = errors.New("not found")
	ErrEmailUsed = errors.New("email already used")
)
