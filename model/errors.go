package model

import (
	"fmt"
	"time"
)

// Domain failures surfaced to the request boundary. The controller maps them
// to stable error codes; everything else is treated as a persistence failure.
var (
	ErrInvalidReference  = fmt.Errorf("referenced record does not exist or is not yours")
	ErrInvalidDateFormat = fmt.Errorf("invalid date format, use YYYY-MM-DD")
	ErrImmutableInvoice  = fmt.Errorf("paid invoices cannot be modified or deleted")
	ErrNoBillableWork    = fmt.Errorf("no unbilled billable time entries found")
	ErrInvalidStatus     = fmt.Errorf("unknown invoice status, use draft, sent or paid")
	ErrClientHasProjects = fmt.Errorf("client still owns projects")
	ErrEntryInvoiced     = fmt.Errorf("invoiced time entries cannot be changed")

	ErrInvalidPassword = fmt.Errorf("invalid password")
	ErrTokenExpired    = fmt.Errorf("token expired")
	ErrTokenInvalid    = fmt.Errorf("token invalid")
	ErrTokenNotFound   = fmt.Errorf("token not found")
	ErrTokenDisabled   = fmt.Errorf("token disabled")
	ErrUnauthorized    = fmt.Errorf("unauthorized")
)

// DateLayout is the only calendar-date form accepted or emitted by the API.
const DateLayout = "2006-01-02"

// ParseDate parses a strict YYYY-MM-DD calendar date. The zero string is not
// accepted; callers decide whether a field is optional.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}

// FormatDate renders a calendar date, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
