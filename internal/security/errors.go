package security

import (
	"errors"
	"fmt"
)

// ErrorSeverity represents the severity level of security errors
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityCritical
)

func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// TokenError represents errors related to token operations
type TokenError struct {
	Operation string
	Message   string
	Err       error
}

func NewTokenError(operation, message string) *TokenError {
	return &TokenError{
		Operation: operation,
		Message:   message,
	}
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token %s failed: %s", e.Operation, e.Message)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

func (e *TokenError) WithCause(err error) *TokenError {
	e.Err = err
	return e
}

// CryptoError represents errors from cryptographic operations
type CryptoError struct {
	Operation string
	Message   string
	Err       error
}

func NewCryptoError(operation, message string) *CryptoError {
	return &CryptoError{
		Operation: operation,
		Message:   message,
	}
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("crypto %s failed: %s", e.Operation, e.Message)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

func (e *CryptoError) WithCause(err error) *CryptoError {
	e.Err = err
	return e
}

// AuthFlowError represents errors during an OAuth authorization flow
type AuthFlowError struct {
	Flow        string // "browser" or "device"
	Code        string // OAuth error code, e.g. "access_denied"
	Description string
	Err         error
}

func NewAuthFlowError(flow, code, description string) *AuthFlowError {
	return &AuthFlowError{
		Flow:        flow,
		Code:        code,
		Description: description,
	}
}

func (e *AuthFlowError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s flow failed: %s - %s", e.Flow, e.Code, e.Description)
	}
	return fmt.Sprintf("%s flow failed: %s", e.Flow, e.Code)
}

func (e *AuthFlowError) Unwrap() error {
	return e.Err
}

func (e *AuthFlowError) WithCause(err error) *AuthFlowError {
	e.Err = err
	return e
}

// IsUserDenied reports whether the user rejected the consent screen.
func (e *AuthFlowError) IsUserDenied() bool {
	return e.Code == "access_denied"
}

// ConfigError represents configuration validation errors
type ConfigError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("config validation failed for %s=%s: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("config validation failed for %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) WithCause(err error) *ConfigError {
	e.Err = err
	return e
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%s: %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// IsCriticalError determines if an error requires immediate attention
func IsCriticalError(err error) bool {
	// Crypto errors indicate data corruption or key problems
	var cryptoErr *CryptoError
	return errors.As(err, &cryptoErr)
}
