package shop

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrIdentifierRequired  = errors.New("tenant identifier required")
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantNotConfigured = errors.New("tenant not configured with shop domain/access token")
	ErrMissingHeaders      = errors.New("missing shopify headers")
	ErrInvalidPayload      = errors.New("invalid webhook payload")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)

// FetchError is returned for any failed call to the platform API.
type FetchError struct {
	Kind    Kind
	Domain  string
	Status  int // 0 when the request never got a response
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("fetch %s from %s: timeout: %v", e.Kind, e.Domain, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s from %s: unexpected status %d", e.Kind, e.Domain, e.Status)
	default:
		return fmt.Sprintf("fetch %s from %s: %v", e.Kind, e.Domain, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request may succeed.
func (e *FetchError) Retryable() bool {
	return e.Timeout || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsConfigError reports errors that are fatal to one tenant only.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrTenantNotConfigured)
}
