package toggle

import "time"

// IsActiveAt reports whether instant falls inside the toggle's validity
// window. Both ends are inclusive.
func IsActiveAt(t *Toggle, instant time.Time) bool {
	return !instant.Before(t.BeginningDate) && !instant.After(t.ExpirationDate)
}

// Overlaps reports whether the toggle's window intersects [start, end].
func Overlaps(t *Toggle, start, end time.Time) (bool, error) {
	if start.After(end) {
		return false, ErrInvalidRange
	}
	return !t.BeginningDate.After(end) && !t.ExpirationDate.Before(start), nil
}

// ValidateWindow checks that beginning does not come after expiration.
func ValidateWindow(beginning, expiration time.Time) error {
	if beginning.After(expiration) {
		return ErrInvalidDateOrdering
	}
	return nil
}

// ReconcileDates applies a partial date edit to a copy of t.
//
// A single supplied date is checked against the stored value of the other
// one. When both are supplied only the new pair is compared; the stored
// window is not consulted, so a combined edit may be accepted where the same
// edit split into two single-field updates would be rejected.
//
// The caller owns UpdatedAt.
func ReconcileDates(t *Toggle, beginning, expiration *time.Time) (*Toggle, error) {
	out := *t
	switch {
	case beginning == nil && expiration == nil:
		return nil, ErrNoFieldsProvided
	case beginning != nil && expiration != nil:
		if err := ValidateWindow(*beginning, *expiration); err != nil {
			return nil, err
		}
		out.BeginningDate = *beginning
		out.ExpirationDate = *expiration
	case expiration != nil:
		if expiration.Before(t.BeginningDate) {
			return nil, ErrInvalidDateOrdering
		}
		out.ExpirationDate = *expiration
	default:
		if beginning.After(t.ExpirationDate) {
			return nil, ErrInvalidDateOrdering
		}
		out.BeginningDate = *beginning
	}
	return &out, nil
}
