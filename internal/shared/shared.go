package shared

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/exp/constraints"
)

// Error taxonomy of the engine. Producers wrap these with fmt.Errorf("...: %w", ...)
// and the HTTP layer maps them to status codes with errors.Is.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotConfigured    = errors.New("service not configured")
	ErrNotFound         = errors.New("not found")
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrUpstreamDegraded = errors.New("upstream degraded")
)

// ValidationError describes a rejected input field in both supported locales.
type ValidationError struct {
	Field     string
	Message   string
	MessageAr string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a field-level ValidationError.
func NewValidationError(field, message, messageAr string) error {
	return &ValidationError{Field: field, Message: message, MessageAr: messageAr}
}

// NormalizeAddress lower-cases a hex wallet address so lookups are case-insensitive.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsWalletAddress reports whether s is a 20-byte hex EVM address.
func IsWalletAddress(s string) bool {
	return common.IsHexAddress(strings.TrimSpace(s))
}

// Clamp bounds v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
