// Package errors defines stable error codes for tokopt failure modes.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// CacheCorrupt indicates the on-disk cache document could not be decoded
	CacheCorrupt ErrorCode = "CACHE_CORRUPT"
	// CacheUnwritable indicates the cache document could not be persisted
	CacheUnwritable ErrorCode = "CACHE_UNWRITABLE"
	// FileUnreadable indicates a source file could not be read or hashed
	FileUnreadable ErrorCode = "FILE_UNREADABLE"
	// AnalysisFailed indicates the analyzer could not process a file
	AnalysisFailed ErrorCode = "ANALYSIS_FAILED"
	// EntryNotFound indicates no cache entry matched a lookup
	EntryNotFound ErrorCode = "ENTRY_NOT_FOUND"
	// EntryAmbiguous indicates a lookup matched more than one cache entry
	EntryAmbiguous ErrorCode = "ENTRY_AMBIGUOUS"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// CacheError represents a tokopt error with a stable code and optional cause.
type CacheError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error
}

// New creates a new CacheError
func New(code ErrorCode, message string, cause error) *CacheError {
	return &CacheError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *CacheError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *CacheError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *CacheError) WithDetails(details interface{}) *CacheError {
	e.Details = details
	return e
}

// CodeOf extracts the error code from err, or InternalError for foreign errors.
func CodeOf(err error) ErrorCode {
	if ce, ok := err.(*CacheError); ok {
		return ce.Code
	}
	return InternalError
}
