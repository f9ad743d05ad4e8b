package apperrors

import (
	"errors"
	"fmt"
)

// Error codes surfaced in JSON responses.
const (
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeZipNotFound      = "ZIP_NOT_FOUND"
	CodeUpstreamError    = "UPSTREAM_ERROR"
	CodeDatastoreError   = "DATASTORE_ERROR"
	CodeAnalyticsError   = "ANALYTICS_ERROR"
)

// InvalidInputError marks malformed caller input (bad ZIP, out-of-range
// window). Always a client error, never retried.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// CoverageGapError marks a well-formed ZIP with no mapping row. This is a
// data-completeness defect, not a user error; it is recorded for the import
// backlog instead of being defaulted to a guessed territory.
type CoverageGapError struct {
	ZipCode string
}

func (e *CoverageGapError) Error() string {
	return fmt.Sprintf("no utility territory mapping for ZIP %s", e.ZipCode)
}

// UpstreamFetchError marks a failed call to the pricing API (network error,
// non-2xx status, or empty result set).
type UpstreamFetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *UpstreamFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("pricing API %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("pricing API %s returned status %d", e.Endpoint, e.Status)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// DatastoreError wraps a failed database operation.
type DatastoreError struct {
	Op  string
	Err error
}

func (e *DatastoreError) Error() string {
	return fmt.Sprintf("datastore %s failed: %v", e.Op, e.Err)
}

func (e *DatastoreError) Unwrap() error {
	return e.Err
}

func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

func IsCoverageGap(err error) bool {
	var target *CoverageGapError
	return errors.As(err, &target)
}

func IsUpstreamFetch(err error) bool {
	var target *UpstreamFetchError
	return errors.As(err, &target)
}

func IsDatastore(err error) bool {
	var target *DatastoreError
	return errors.As(err, &target)
}
