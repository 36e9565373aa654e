package domain

import (
	"errors"
	"fmt"
	"os"
)

// Domain errors
var (
	ErrSourceNotFound   = errors.New("the specified log source was not found")
	ErrProviderFault    = errors.New("log provider fault")
	ErrAccessDenied     = errors.New("access denied")
	ErrDecode           = errors.New("cannot decode event record")
	ErrCancelled        = errors.New("the operation was canceled")
	ErrInvalidSource    = errors.New("invalid log source")
	ErrInvalidPattern   = errors.New("invalid filter pattern")
	ErrInvalidTimeRange = errors.New("invalid time range")
	ErrConfigNotFound   = errors.New("config file not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Error codes for API responses
const (
	ErrCodeSourceNotFound   = "SOURCE_NOT_FOUND"
	ErrCodeProviderFault    = "PROVIDER_FAULT"
	ErrCodeAccessDenied     = "ACCESS_DENIED"
	ErrCodeDecode           = "DECODE_FAULT"
	ErrCodeCancelled        = "CANCELLED"
	ErrCodeInvalidSource    = "INVALID_SOURCE"
	ErrCodeInvalidPattern   = "INVALID_PATTERN"
	ErrCodeInvalidTimeRange = "INVALID_TIME_RANGE"

	// API-only, no sentinel errors as they are only used for HTTP response formatting
	ErrCodeStreamingNotSupported = "STREAMING_NOT_SUPPORTED"
)

// accessDeniedMessage is shown instead of the raw permission error
const accessDeniedMessage = "Unauthorized access to the log source. Try running with elevated privileges (sudo or Administrator)."

// ErrorCode returns the API error code for a domain error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSourceNotFound):
		return ErrCodeSourceNotFound
	case errors.Is(err, ErrAccessDenied):
		return ErrCodeAccessDenied
	case errors.Is(err, ErrDecode):
		return ErrCodeDecode
	case errors.Is(err, ErrProviderFault):
		return ErrCodeProviderFault
	case errors.Is(err, ErrCancelled):
		return ErrCodeCancelled
	case errors.Is(err, ErrInvalidSource):
		return ErrCodeInvalidSource
	case errors.Is(err, ErrInvalidPattern):
		return ErrCodeInvalidPattern
	case errors.Is(err, ErrInvalidTimeRange):
		return ErrCodeInvalidTimeRange
	default:
		return "INTERNAL_ERROR"
	}
}

// UserMessage renders an error for the terminal batch of a read
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAccessDenied):
		return accessDeniedMessage
	case errors.Is(err, ErrCancelled):
		return ErrCancelled.Error()
	default:
		return err.Error()
	}
}

// ClassifyFSError maps a filesystem error onto the domain taxonomy.
// Errors that are neither "not exist" nor "permission" become provider faults.
func ClassifyFSError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return fmt.Errorf("%w: %w", ErrProviderFault, err)
	}
}
