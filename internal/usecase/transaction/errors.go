package transaction

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
)

var (
	ErrNoItems          = fmt.Errorf("%w: transaction has no items", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidMethod    = fmt.Errorf("%w: invalid payment method", ErrValidation)
	ErrInsufficientCash = fmt.Errorf("%w: cash received is less than total", ErrValidation)
	ErrNegativeTotal    = fmt.Errorf("%w: discount exceeds subtotal", ErrValidation)
	ErrTotalsMismatch   = fmt.Errorf("%w: submitted totals do not match items", ErrValidation)
	ErrMissingStudent   = fmt.Errorf("%w: student is required", ErrValidation)

	ErrStudentMissing     = fmt.Errorf("%w: student", ErrNotFound)
	ErrTransactionMissing = fmt.Errorf("%w: transaction", ErrNotFound)

	ErrCodeConflict = fmt.Errorf("%w: transaction code already used", ErrConflict)
)
