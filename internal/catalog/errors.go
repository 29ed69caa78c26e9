package catalog

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog failures
var (
	// ErrPermission indicates the library denied access
	ErrPermission = errors.New("permission denied")

	// ErrNotFound indicates an asset id is no longer in the catalog
	ErrNotFound = errors.New("asset not found")

	// ErrStore indicates a failure in the underlying store
	ErrStore = errors.New("store failure")
)

// CancelledOrAmbiguousError wraps a failure from a collaborator that cannot
// distinguish user cancellation from an underlying error. The distinction is
// not modeled because the platform does not surface it; callers get exactly
// this one variant either way.
type CancelledOrAmbiguousError struct {
	Err error
}

func (e *CancelledOrAmbiguousError) Error() string {
	return fmt.Sprintf("cancelled or failed: %v", e.Err)
}

func (e *CancelledOrAmbiguousError) Unwrap() error {
	return e.Err
}

// CancelledOrError wraps err as the single terminal failure variant.
// Returns nil for a nil err.
func CancelledOrError(err error) error {
	if err == nil {
		return nil
	}
	return &CancelledOrAmbiguousError{Err: err}
}

// IsCancelledOrAmbiguous reports whether err is the terminal failure variant
func IsCancelledOrAmbiguous(err error) bool {
	var ce *CancelledOrAmbiguousError
	return errors.As(err, &ce)
}
