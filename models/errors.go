package models

import "fmt"

// ValidationError reports bad input shape, caught before any I/O
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ProviderError reports an upstream fetch that failed, timed out or returned
// malformed data. Raw transport errors never escape a provider client.
type ProviderError struct {
	Provider  string
	Operation string
	Symbol    string
	Cause     error
}

func (e *ProviderError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("%s %s failed for %s: %v", e.Provider, e.Operation, e.Symbol, e.Cause)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// NotInitializedError reports use of a service before its provider
// credentials are configured. Surfaced loudly so operators can tell
// "misconfigured" apart from "no data".
type NotInitializedError struct {
	Service string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s not initialized", e.Service)
}

// AuthenticationError reports an invalid or expired connection credential
type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Message)
}
