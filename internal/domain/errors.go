package domain

import "errors"

// Error taxonomy shared by the core packages. Callers wrap these with
// fmt.Errorf("%w: ...") and classify with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrStockConflict    = errors.New("insufficient stock")
	ErrPersistence      = errors.New("persistence failure")
	ErrPermissionDenied = errors.New("permission denied")
)
