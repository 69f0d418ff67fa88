package archive

import (
	"errors"
)

var (
	// Date range errors
	ErrInvalidDateRange = errors.New("invalid date range")

	// Per-stage errors; recorded on outcomes, never fatal to a run
	ErrList          = errors.New("object listing failed")
	ErrDownload      = errors.New("download failed")
	ErrVerification  = errors.New("download verification failed")
	ErrDecompression = errors.New("decompression failed")

	// Structural validation errors
	ErrMalformedContent    = errors.New("content does not parse")
	ErrUnexpectedShape     = errors.New("content is not a keyed mapping")
	ErrMissingRecordsField = errors.New("records field missing")
	ErrRecordsNotSequence  = errors.New("records field is not a sequence")

	// Key validation errors
	ErrEmptyKey   = errors.New("object key cannot be empty")
	ErrKeyTooLong = errors.New("object key exceeds maximum length")
	ErrUnsafeKey  = errors.New("object key contains unsafe elements")

	// Report errors
	ErrReportWrite = errors.New("report write failed")
)
