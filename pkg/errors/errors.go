package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents timeouts, resets and other transport failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeParse represents structural parse failures (expected markup absent)
	ErrorTypeParse ErrorType = "parse"
	// ErrorTypeAuth represents rejected credentials or a CAPTCHA challenge
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeRateLimit represents a source telling us to back off
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypePersistence represents storage failures other than duplicate-key races
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeValidation represents rejected input
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// ErrUnsupportedSourceType is returned by the adapter factory for unknown tags.
var ErrUnsupportedSourceType = errors.New("unsupported source type")

// CrawlError represents a crawl-specific error
type CrawlError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *CrawlError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlError) Unwrap() error {
	return e.Err
}

// FallsThrough reports whether the error abandons the current extraction
// strategy and moves on to the next one, rather than failing the whole job.
func (e *CrawlError) FallsThrough() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeParse, ErrorTypeAuth, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new CrawlError
func New(errType ErrorType, source, message string, err error) *CrawlError {
	return &CrawlError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(source, message string, err error) *CrawlError {
	return New(ErrorTypeNetwork, source, message, err)
}

// NewParse creates a new parse error
func NewParse(source, message string, err error) *CrawlError {
	return New(ErrorTypeParse, source, message, err)
}

// NewAuth creates a new authentication error
func NewAuth(source, message string, err error) *CrawlError {
	return New(ErrorTypeAuth, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *CrawlError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewPersistence creates a new persistence error
func NewPersistence(source, message string, err error) *CrawlError {
	return New(ErrorTypePersistence, source, message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *CrawlError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlError {
	return New(ErrorTypeConfiguration, "", message, err)
}
