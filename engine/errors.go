/*
errors.go - Centralized error types for the allocation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is against the sentinels below.

ERROR CATEGORIES:
  1. Validation errors  - Missing or malformed required fields
  2. Not-found errors   - Referenced resource/project/allocation is missing
  3. Utilization errors - The 100% cap would be violated
  4. Transaction errors - Unexpected database failures during multi-step writes

PROPAGATION POLICY:
  Validation, not-found, and utilization errors are expected, recoverable
  conditions: the caller (UI or import report) decides presentation. A
  transaction error is unexpected; it rolls the whole write back and is
  surfaced as a generic failure.

SEE ALSO:
  - allocation.go: Primary producer of these errors
  - importer.go:   Converts per-row expected errors into report entries
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrResourceNotFound is returned when a referenced resource doesn't exist.
	ErrResourceNotFound = errors.New("resource not found")

	// ErrProjectNotFound is returned when a referenced project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")

	// ErrAllocationNotFound is returned when a referenced allocation doesn't exist.
	ErrAllocationNotFound = errors.New("allocation not found")

	// ErrUtilizationExceeded is returned when the candidate allocation would
	// push a resource's overlapping utilization past 100%.
	ErrUtilizationExceeded = errors.New("utilization exceeds capacity")

	// ErrResourceHasAllocations is returned when deleting a resource that
	// still owns allocations.
	ErrResourceHasAllocations = errors.New("resource has allocations")

	// ErrTransactionFailed is returned when a multi-step write cannot be
	// committed for an unexpected reason.
	ErrTransactionFailed = errors.New("transaction failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports which field failed and why.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UtilizationExceededError carries the current overlapping total so callers
// can display how much capacity remains.
type UtilizationExceededError struct {
	ResourceID   ResourceID
	CurrentTotal int
	Requested    int
}

func (e *UtilizationExceededError) Error() string {
	return fmt.Sprintf("resource %s is at %d%% utilization for the requested period; adding %d%% would exceed 100%%",
		e.ResourceID, e.CurrentTotal, e.Requested)
}

func (e *UtilizationExceededError) Unwrap() error { return ErrUtilizationExceeded }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrResourceNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrAllocationNotFound)
}

// IsClientError returns true if the error is recoverable by the caller
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUtilizationExceeded) ||
		errors.Is(err, ErrResourceHasAllocations) ||
		IsNotFound(err)
}
