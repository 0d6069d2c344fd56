package graphql

import (
	stderrors "errors"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
)

// Codes for documents rejected before any resolver runs. Resolver failures
// carry the shared gateway codes instead.
const (
	CodeParseFailed      = "GRAPHQL_PARSE_FAILED"
	CodeValidationFailed = "GRAPHQL_VALIDATION_FAILED"
)

// fieldError converts a dispatch failure on field into a GraphQL error. The
// message is the public one; the classified error stays on Err for logging.
func fieldError(err error, field *ast.Field, path ast.Path) *gqlerror.Error {
	if err == nil {
		return nil
	}
	return &gqlerror.Error{
		Err:       err,
		Message:   gateway.PublicMessage(err),
		Path:      path,
		Locations: locations(field),
		Extensions: map[string]interface{}{
			"code":      string(gateway.Code(err)),
			"operation": field.Name,
		},
	}
}

// requestError reports a failure that rejected the whole request, such as an
// oversized body or an exhausted rate limit.
func requestError(err error) *gqlerror.Error {
	return &gqlerror.Error{
		Err:     err,
		Message: gateway.PublicMessage(err),
		Extensions: map[string]interface{}{
			"code": string(gateway.Code(err)),
		},
	}
}

// documentErrors tags parser or validator output with code.
func documentErrors(list gqlerror.List, code string) gqlerror.List {
	for _, e := range list {
		if e.Extensions == nil {
			e.Extensions = map[string]interface{}{}
		}
		e.Extensions["code"] = code
	}
	return list
}

// asDocumentError converts a parser or variable coercion error.
func asDocumentError(err error, code string) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if !stderrors.As(err, &gqlErr) {
		gqlErr = gqlerror.Wrap(err)
	}
	gqlErr.Extensions = map[string]interface{}{"code": code}
	return gqlErr
}

// documentError builds a single validation failure.
func documentError(format string, args ...interface{}) *gqlerror.Error {
	e := gqlerror.Errorf(format, args...)
	e.Extensions = map[string]interface{}{"code": CodeValidationFailed}
	return e
}

func locations(field *ast.Field) []gqlerror.Location {
	if field == nil || field.Position == nil {
		return nil
	}
	return []gqlerror.Location{{Line: field.Position.Line, Column: field.Position.Column}}
}
