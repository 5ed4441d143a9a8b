package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeRasterization ErrorType = "rasterization"
	ErrorTypeTransport     ErrorType = "transport"
	ErrorTypeHTTPStatus    ErrorType = "http_status"
	ErrorTypeMalformed     ErrorType = "malformed_response"
	ErrorTypeDecode        ErrorType = "decode"
	ErrorTypeAPI           ErrorType = "api"
	ErrorTypeConfig        ErrorType = "config"
	ErrorTypeIO            ErrorType = "io"
)

// Sentinels matched with errors.Is.
var (
	// ErrNoRenderablePage means the document produced no page image.
	ErrNoRenderablePage = errors.New("no renderable page")
	// ErrNoChoices means the model answered 2xx without a usable choice.
	ErrNoChoices = errors.New("no choices in model response")
	// ErrFailureCeiling means the run stopped because too many documents failed.
	ErrFailureCeiling = errors.New("failure ceiling reached")
)

// DomainError represents a domain-specific error with context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// IsType reports whether err wraps a DomainError of the given type.
func IsType(err error, errType ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == errType {
			return true
		}
		err = de.Err
	}
	return false
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

// RasterizationError always wraps ErrNoRenderablePage so callers can treat every
// rendering failure as the "no image" outcome.
func RasterizationError(message string, err error) *DomainError {
	if err == nil {
		err = ErrNoRenderablePage
	} else if !errors.Is(err, ErrNoRenderablePage) {
		err = fmt.Errorf("%w: %w", ErrNoRenderablePage, err)
	}
	return NewError(ErrorTypeRasterization, message, err)
}

func TransportError(message string, err error) *DomainError {
	return NewError(ErrorTypeTransport, message, err)
}

func MalformedResponseError(message string, err error) *DomainError {
	return NewError(ErrorTypeMalformed, message, err)
}

func DecodeError(message string, err error) *DomainError {
	return NewError(ErrorTypeDecode, message, err)
}

func APIError(message string, err error) *DomainError {
	return NewError(ErrorTypeAPI, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}
