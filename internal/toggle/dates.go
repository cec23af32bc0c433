package toggle

import "time"

// Layouts accepted on the wire.
const (
	DateTimeLayout = "2006-01-02 15:04:05"
	DayLayout      = "2006-01-02"
)

// ParseDateTime parses a 'YYYY-MM-DD HH:MM:SS' value as UTC.
func ParseDateTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDateTimeFormat
	}
	return t, nil
}

// ParseDay parses a 'YYYY-MM-DD' value as midnight UTC of that day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDayFormat
	}
	return t, nil
}

// FormatDateTime is the inverse of ParseDateTime. Zero times render empty.
func FormatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateTimeLayout)
}
