// Package errors provides structured error handling for noteseek.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Decoding errors (encrypted files)
//   - 4XX: Selection/resolution errors
//   - 5XX: Internal errors
package errors

import "fmt"

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryDecode indicates encrypted-file decoding errors.
	CategoryDecode Category = "DECODE"
	// CategorySelection indicates selector and resolution errors.
	CategorySelection Category = "SELECTION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// IO errors (200-299)
	ErrCodeFileNotFound   = "ERR_201_FILE_NOT_FOUND"
	ErrCodeFilePermission = "ERR_202_FILE_PERMISSION"
	ErrCodeFileRead       = "ERR_203_FILE_READ"

	// Decoding errors (300-399)
	ErrCodeUnrecognizedFormat = "ERR_301_UNRECOGNIZED_FORMAT"
	ErrCodeUnsupportedMethod  = "ERR_302_UNSUPPORTED_METHOD"
	ErrCodeMissingPassword    = "ERR_303_MISSING_PASSWORD"

	// Selection errors (400-499)
	ErrCodeIndexOutOfRange = "ERR_401_INDEX_OUT_OF_RANGE"
	ErrCodeSelectorFailed  = "ERR_402_SELECTOR_FAILED"
	ErrCodeNoSelector      = "ERR_403_NO_SELECTOR"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// Error is the structured error type for noteseek. It carries a stable
// code so the CLI can tell "some files were unreadable" apart from
// "the tool itself is broken".
type Error struct {
	// Code is the unique error code (e.g. "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is derived from the code.
	Category Category

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates an Error with the given code and message.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates an Error from an existing error, reusing its message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// GetCode extracts the error code, or "" if err is not an *Error.
func GetCode(err error) string {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// categoryFromCode extracts the category from the numeric range of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryDecode
	case '4':
		return CategorySelection
	default:
		return CategoryInternal
	}
}
