package graphql

import (
	"context"
	"time"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
)

// resolver makes the dispatch call behind every root field. It is the same
// call the REST route for the operation makes.
type resolver struct {
	invoker gateway.Invoker
	metrics *metric.Metrics
}

func (r *resolver) dispatch(ctx context.Context, rf rootField, payload map[string]string) (*gateway.Result, error) {
	start := time.Now()
	res, err := r.invoker.Invoke(ctx, rf.schema.Kind, rf.op, payload)
	r.metrics.RecordGatewayRequest(facadeName, string(rf.schema.Kind), string(rf.op), err, time.Since(start))
	return res, err
}

// complete shapes a dispatch outcome for field f.
//
// Absence reads as null for a lookup, as null plus a NOT_FOUND error for an
// update, and as {success: false} plus a NOT_FOUND error for a delete.
func (e *executor) complete(rf rootField, f *ast.Field, path ast.Path, res *gateway.Result, err error) (interface{}, *gqlerror.Error) {
	switch rf.op {
	case catalog.OpGet:
		if err != nil {
			if errors.IsNotFound(err) {
				return nil, nil
			}
			return nil, fieldError(err, f, path)
		}
		return e.entity(rf.schema, res.Record(), f), nil

	case catalog.OpList:
		if err != nil {
			return nil, fieldError(err, f, path)
		}
		list := make([]interface{}, 0, len(res.Records))
		for _, rec := range res.Records {
			list = append(list, e.entity(rf.schema, rec, f))
		}
		return list, nil

	case catalog.OpDelete:
		if err != nil {
			if errors.IsNotFound(err) {
				return e.deleteResponse(false, f), fieldError(err, f, path)
			}
			return nil, fieldError(err, f, path)
		}
		return e.deleteResponse(res.Deleted, f), nil

	default: // create and update
		if err != nil {
			return nil, fieldError(err, f, path)
		}
		return e.entity(rf.schema, res.Record(), f), nil
	}
}

func (e *executor) entity(schema catalog.Schema, rec catalog.Record, f *ast.Field) object {
	return e.selectObject(schema.TypeName, f, func(name string) (interface{}, bool) {
		if name == catalog.IDField {
			return rec.ID, true
		}
		v, ok := rec.Fields[name]
		return v, ok
	})
}

func (e *executor) deleteResponse(success bool, f *ast.Field) object {
	return e.selectObject("DeleteResponse", f, func(name string) (interface{}, bool) {
		if name == "success" {
			return success, true
		}
		return nil, false
	})
}
