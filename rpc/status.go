package rpc

import (
	"context"
	stderrors "errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// InternalMessage is the only text a store fault carries across the wire.
const InternalMessage = "internal error"

// ToStatus converts a handler error into the status sent to the caller.
// Faults collapse into codes.Internal with a fixed message; their detail
// stays on the service side.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch errors.Classify(err) {
	case errors.ErrorNotFound:
		return status.Error(codes.NotFound, "not found")
	case errors.ErrorInvalid:
		return status.Error(codes.InvalidArgument, invalidMessage(err))
	default:
		if stderrors.Is(err, context.Canceled) {
			return status.Error(codes.Canceled, "canceled")
		}
		if stderrors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, "deadline exceeded")
		}
		return status.Error(codes.Internal, InternalMessage)
	}
}

// invalidMessage keeps only the sentinel text of a validation error so the
// caller learns which rule failed and nothing about the request path.
func invalidMessage(err error) string {
	for _, sentinel := range []error{
		errors.ErrInvalidID,
		errors.ErrMissingField,
		errors.ErrUnknownField,
		errors.ErrInvalidData,
	} {
		if stderrors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return errors.ErrInvalidData.Error()
}

// FromStatus classifies an error returned by a call to method.
func FromStatus(err error, method string) error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return errors.WrapTransient(err, "rpc", method, "call")
	}

	switch st.Code() {
	case codes.NotFound:
		return errors.WrapNotFound(errors.ErrNotFound, "rpc", method, "call")
	case codes.InvalidArgument:
		return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrInvalidData, st.Message()), "rpc", method, "call")
	case codes.Unavailable:
		return errors.WrapTransient(fmt.Errorf("%w: %s", errors.ErrUnavailable, st.Message()), "rpc", method, "call")
	case codes.DeadlineExceeded:
		return errors.WrapTransient(context.DeadlineExceeded, "rpc", method, "call")
	case codes.Canceled:
		return errors.WrapTransient(context.Canceled, "rpc", method, "call")
	default:
		return errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrInternal, st.Code()), "rpc", method, "call")
	}
}
