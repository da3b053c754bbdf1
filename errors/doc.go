// Package errors provides structured error types for the typerep library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the argument path, the datatype involved and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConstruct, errors.KindInvalidArgument).
//		Path("blocklengths", "3").
//		Type("hindexed").
//		Detail("negative block length %d", -1).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.InvalidArgument(errors.PhaseConstruct, path, "count must be non-negative")
//	err := errors.InvalidOffset(errors.PhasePack, 130, 128)
//
// All errors implement the standard error interface and support errors.Is/As.
// The Err* sentinels match any phase:
//
//	if errors.Is(err, typerrors.ErrNotCommitted) { ... }
package errors
