package anbima

import (
	"errors"
	"fmt"
)

// ErrTokenMissing means a fetch was attempted before EnsureToken; that is
// a caller bug, not a vendor failure.
var ErrTokenMissing = errors.New("access token is not set, call EnsureToken first")

// AuthError is a non-success response from the token endpoint. Fatal for
// the run.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("anbima token request: http %d: %s", e.StatusCode, e.Body)
}

// FetchError is a non-200 response from the market-data endpoint for a
// given date. Fatal for the run; the caller does not retry.
type FetchError struct {
	Date       string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("anbima market data for %s: http %d: %s", e.Date, e.StatusCode, e.Body)
}
