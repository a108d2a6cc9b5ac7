// Package errors provides structured error types for the ndbridge library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type carries the value path, Go and foreign type names,
// a cause chain, and for translated foreign errors the merged stack trace.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindOverflow).
//		GoType("int8").
//		Value(200).
//		Detail("200 is outside the valid range of int8 [-128, 127]").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.State(errors.PhaseCursor, "Iterator is past the end")
//	err := errors.OutOfBounds(errors.PhaseCursor, nil, 10, 6)
//
// Kind sentinels match regardless of phase:
//
//	if errors.Is(err, errors.ErrOverflow) { ... }
package errors
