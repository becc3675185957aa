package graph

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline failure classes. ReadError and
// StoreUnavailable are fatal for the document / load; everything else is
// recovered locally and surfaced through ExtractionResult.Errors.
var (
	// ErrRead wraps document-reader failures. Nothing is written to the
	// graph store when this is returned.
	ErrRead = errors.New("document read failed")

	// ErrStoreUnavailable wraps graph-store connectivity failures. The
	// whole load is retryable because upserts are idempotent.
	ErrStoreUnavailable = errors.New("graph store unavailable")
)

// ReadError marks err as a fatal document-reader failure.
func ReadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}

// StoreError marks err as a graph-store failure, leaving the document job
// retryable.
func StoreError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}
