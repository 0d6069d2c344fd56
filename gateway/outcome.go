package gateway

import (
	"context"
	stderrors "errors"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// ErrorCode is the stable, client-facing name of a failure. Both facades
// report the same code for the same failure.
type ErrorCode string

// Error codes
const (
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidInput    ErrorCode = "INVALID_INPUT"
	CodeRequestTooLarge ErrorCode = "REQUEST_TOO_LARGE"
	CodeRateLimited     ErrorCode = "RATE_LIMITED"
	CodeUnavailable     ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// Code maps a classified error to its external code.
func Code(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeInternal
	case errors.IsNotFound(err):
		return CodeNotFound
	case stderrors.Is(err, errors.ErrRequestTooLong):
		return CodeRequestTooLarge
	case stderrors.Is(err, errors.ErrRateLimited):
		return CodeRateLimited
	case errors.IsInvalid(err):
		return CodeInvalidInput
	case errors.IsTransient(err):
		if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, errors.ErrConnectionTimeout) {
			return CodeTimeout
		}
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// safeReasons are the validation sentinels whose text may reach a client.
var safeReasons = []error{
	errors.ErrInvalidID,
	errors.ErrMissingField,
	errors.ErrUnknownField,
	errors.ErrParsingFailed,
	errors.ErrInvalidData,
}

// PublicMessage returns a message safe to show a client. Internal error
// details are logged but never returned from here.
func PublicMessage(err error) string {
	switch Code(err) {
	case CodeNotFound:
		return "resource not found"
	case CodeInvalidInput:
		for _, reason := range safeReasons {
			if stderrors.Is(err, reason) {
				return "invalid request: " + reason.Error()
			}
		}
		return "invalid request"
	case CodeRequestTooLarge:
		return "request body too large"
	case CodeRateLimited:
		return "too many requests"
	case CodeTimeout:
		return "request timeout"
	case CodeUnavailable:
		return "service temporarily unavailable"
	default:
		return "internal server error"
	}
}
