// Package errors provides the error classification shared by the catalog
// services and the gateway. Every failure that crosses a component boundary is
// either an absence, an invalid request, a transient transport problem, or a
// fatal fault.
//
// # Overview
//
// Failures in the library API fall into four classes:
//
//   - NotFound: the addressed book, magazine or audiovisual does not exist
//   - Invalid: malformed identity, missing required field, bad configuration
//   - Transient: backend unreachable, deadline exceeded, rate limited
//   - Fatal: store faults and anything else the caller cannot correct
//
// The facades translate the class into an external outcome (404, 400, 503 or
// 500 over REST; NOT_FOUND, INVALID_INPUT, SERVICE_UNAVAILABLE or
// INTERNAL_ERROR over GraphQL). Nothing in the system retries.
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// Classification-aware wrappers attach a class while keeping the chain intact:
//
//	errors.WrapNotFound(errors.ErrNotFound, "sqlstore", "Get", "select book")
//	errors.WrapInvalid(err, "gateway", "Invoke", "parse identity")
//	errors.WrapTransient(err, "gateway", "Invoke", "call book service")
//	errors.WrapFatal(err, "sqlstore", "Create", "insert book")
//
// Callers inspect the class with IsNotFound, IsInvalid, IsTransient, IsFatal or
// Classify, and the standard sentinels with errors.Is.
package errors
