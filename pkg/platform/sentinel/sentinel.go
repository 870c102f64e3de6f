package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and loaders return these
// (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record or catalog entry does not exist
//   - ErrUnavailable: backing store or broker temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
