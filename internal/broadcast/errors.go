package broadcast

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTenant rejects a request without a tenant before any
	// directory access.
	ErrInvalidTenant    = errors.New("invalid_bot_name: tenant id is required")
	ErrInvalidRequest   = errors.New("invalid broadcast request")
	ErrPermissionDenied = errors.New("initiator does not administer tenant")
	ErrDirectoryQuery   = errors.New("recipient directory query failed")
	ErrTenantBusy       = errors.New("tenant already has an active broadcast")
	ErrQueueFull        = errors.New("broadcast queue is full")
	ErrServiceStopped   = errors.New("broadcast service is not running")

	// ErrMediaDegraded marks a photo run that fell back to the placeholder.
	ErrMediaDegraded = errors.New("media reference unusable; placeholder used")
	// ErrMediaUnavailable aborts a photo run that has neither a usable
	// reference nor a placeholder.
	ErrMediaUnavailable = errors.New("media reference unusable and no placeholder configured")
	ErrSummaryDelivery  = errors.New("run summary could not be delivered")
)

// DirectoryQueryError wraps a failed directory read. It matches
// ErrDirectoryQuery with errors.Is.
type DirectoryQueryError struct {
	TenantID string
	Op       string
	Err      error
}

func (e *DirectoryQueryError) Error() string {
	return fmt.Sprintf("%s for %q: %s: %v", ErrDirectoryQuery, e.TenantID, e.Op, e.Err)
}

func (e *DirectoryQueryError) Unwrap() error { return e.Err }

func (e *DirectoryQueryError) Is(target error) bool { return target == ErrDirectoryQuery }
