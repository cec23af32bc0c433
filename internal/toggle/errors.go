package toggle

import "errors"

// Error classes. Handlers map these to HTTP status codes.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

var (
	ErrMissingFields         = validationError("Invalid request")
	ErrInvalidDateTimeFormat = validationError("Invalid date format. Please use YYYY-MM-DD HH:MM:SS")
	ErrInvalidDayFormat      = validationError("Invalid date format. Please use YYYY-MM-DD")
	ErrInvalidDateOrdering   = validationError("Beginning date must be before expiration date")
	ErrInvalidRange          = validationError("Start date must be before end date")
	ErrMissingRange          = validationError("Both start_date and end_date are required")
	ErrNoFieldsProvided      = validationError("No dates provided to update")
	ErrNoValidFields         = validationError("No valid fields provided to update")

	ErrNamespaceNotFound = notFoundError("Package not found")
	ErrToggleNotFound    = notFoundError("Feature toggle not found")
)

type validationError string

func (e validationError) Error() string { return string(e) }

func (e validationError) Is(target error) bool { return target == ErrValidation }

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

func (e notFoundError) Is(target error) bool { return target == ErrNotFound }
