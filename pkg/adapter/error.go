package adapter

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProviderError wraps provider errors with status metadata and the
// human-readable detail string the service supplied, when it did.
type ProviderError struct {
	Status    int
	Temporary bool
	Detail    string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Detail != "" {
		return e.Detail
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("provider error (status=%d)", e.Status)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Detail extracts the service-supplied detail message from an error chain,
// or "" when the provider gave none.
func Detail(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Detail
	}
	return ""
}

// IsTransient reports whether an error looks safe to retry manually.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		if provErr.Temporary {
			return true
		}
		if provErr.Status == 429 || (provErr.Status >= 500 && provErr.Status <= 599) {
			return true
		}
	}
	return false
}
