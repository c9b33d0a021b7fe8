// Package errors provides structured error types for the executor.
//
// Errors carry a Phase (where processing failed) and a Kind (what went
// wrong), plus an optional path, value and cause. The public entry points
// of the executor collapse these into flat status codes; the structured
// form exists for load-time failures, host-side tooling and tests.
//
// Construct errors with the convenience constructors, or the builder for
// less common shapes:
//
//	errors.Truncated(errors.PhaseLoad, "header", 10, 24)
//
//	errors.New(errors.PhaseDecode, errors.KindInvalidData).
//	    Path("commands", "7").
//	    Detail("unknown opcode 0x%02x", op).
//	    Build()
package errors
