package provider

import (
	"errors"
	"fmt"
)

// AuthError indicates that authentication with the mail service failed:
// missing configuration, invalid or expired credentials, or a revoked grant.
type AuthError struct {
	Transport string
	Message   string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Transport, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ProviderError wraps a transport failure during search or fetch.
type ProviderError struct {
	Transport string
	Op        string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s %s error: %v", e.Transport, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsProviderError reports whether err (or any error in its chain) is a
// ProviderError.
func IsProviderError(err error) bool {
	var provErr *ProviderError
	return errors.As(err, &provErr)
}
