package graphql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"golang.org/x/sync/errgroup"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// member is one key of an object.
type member struct {
	key   string
	value interface{}
}

// object is a JSON object that keeps its keys in selection order.
type object []member

// MarshalJSON encodes the members in order.
func (o object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// executor runs one validated operation.
type executor struct {
	resolver *resolver
	vars     map[string]interface{}
}

// execute resolves every root field of op. Query fields resolve concurrently,
// mutation fields one after another in document order. It returns nil data
// when a non-null root field failed.
func (e *executor) execute(ctx context.Context, op *ast.OperationDefinition) (interface{}, gqlerror.List) {
	rootType := "Query"
	if op.Operation == ast.Mutation {
		rootType = "Mutation"
	}
	fields := e.collectFields(op.SelectionSet, rootType)

	values := make([]interface{}, len(fields))
	errs := make([]*gqlerror.Error, len(fields))
	resolve := func(i int) {
		values[i], errs[i] = e.resolveRoot(ctx, rootType, fields[i])
	}

	if op.Operation == ast.Mutation {
		for i := range fields {
			resolve(i)
		}
	} else {
		var g errgroup.Group
		for i := range fields {
			g.Go(func() error {
				resolve(i)
				return nil
			})
		}
		_ = g.Wait()
	}

	var list gqlerror.List
	nullData := false
	data := make(object, 0, len(fields))
	for i, f := range fields {
		if errs[i] != nil {
			list = append(list, errs[i])
			if values[i] == nil && f.Definition != nil && f.Definition.Type.NonNull {
				nullData = true
			}
		}
		data = append(data, member{key: responseKey(f), value: values[i]})
	}
	if nullData {
		return nil, list
	}
	return data, list
}

func (e *executor) resolveRoot(ctx context.Context, rootType string, f *ast.Field) (interface{}, *gqlerror.Error) {
	path := ast.Path{ast.PathName(responseKey(f))}

	switch f.Name {
	case "__typename":
		return rootType, nil
	case "__schema", "__type":
		err := documentError("introspection is not supported")
		err.Path = path
		err.Locations = locations(f)
		return nil, err
	}

	rf, ok := rootFields[f.Name]
	if !ok {
		err := documentError("cannot query field %q on type %q", f.Name, rootType)
		err.Path = path
		return nil, err
	}

	payload, err := argumentPayload(f.ArgumentMap(e.vars))
	if err != nil {
		return nil, fieldError(errors.WrapInvalid(err, "GraphQL", f.Name, "read arguments"), f, path)
	}

	res, err := e.resolver.dispatch(ctx, rf, payload)
	return e.complete(rf, f, path, res, err)
}

// selectObject shapes the selection of f over a value lookup.
func (e *executor) selectObject(typeName string, f *ast.Field, value func(name string) (interface{}, bool)) object {
	fields := e.collectFields(f.SelectionSet, typeName)
	out := make(object, 0, len(fields))
	for _, sub := range fields {
		var v interface{}
		if sub.Name == "__typename" {
			v = typeName
		} else if got, ok := value(sub.Name); ok {
			v = got
		} else if sub.Definition != nil && sub.Definition.Type.NonNull && sub.Definition.Type.NamedType == "String" {
			v = ""
		}
		out = append(out, member{key: responseKey(sub), value: v})
	}
	return out
}

// collectFields flattens a selection set for an object type, applying
// @skip/@include and fragment type conditions. Fields sharing a response key
// are merged.
func (e *executor) collectFields(set ast.SelectionSet, typeName string) []*ast.Field {
	var order []string
	byKey := make(map[string]*ast.Field)

	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch sel := sel.(type) {
			case *ast.Field:
				if !e.included(sel.Directives) {
					continue
				}
				key := responseKey(sel)
				if prev, ok := byKey[key]; ok {
					merged := *prev
					merged.SelectionSet = append(append(ast.SelectionSet{}, prev.SelectionSet...), sel.SelectionSet...)
					byKey[key] = &merged
					continue
				}
				order = append(order, key)
				byKey[key] = sel
			case *ast.InlineFragment:
				if e.included(sel.Directives) && applies(sel.TypeCondition, typeName) {
					walk(sel.SelectionSet)
				}
			case *ast.FragmentSpread:
				if e.included(sel.Directives) && sel.Definition != nil && applies(sel.Definition.TypeCondition, typeName) {
					walk(sel.Definition.SelectionSet)
				}
			}
		}
	}
	walk(set)

	fields := make([]*ast.Field, len(order))
	for i, key := range order {
		fields[i] = byKey[key]
	}
	return fields
}

func (e *executor) included(directives ast.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(e.vars)["if"].(bool); skip {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(e.vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

// applies reports whether a fragment on condition applies to typeName. The
// schema has no interfaces or unions, so only exact matches apply.
func applies(condition, typeName string) bool {
	return condition == "" || condition == typeName
}

func responseKey(f *ast.Field) string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// selectionDepth returns the nesting depth of set, following fragments.
func selectionDepth(set ast.SelectionSet, visiting map[string]bool) int {
	deepest := 0
	for _, sel := range set {
		d := 0
		switch sel := sel.(type) {
		case *ast.Field:
			d = 1 + selectionDepth(sel.SelectionSet, visiting)
		case *ast.InlineFragment:
			d = selectionDepth(sel.SelectionSet, visiting)
		case *ast.FragmentSpread:
			if sel.Definition == nil || visiting[sel.Name] {
				continue
			}
			visiting[sel.Name] = true
			d = selectionDepth(sel.Definition.SelectionSet, visiting)
			delete(visiting, sel.Name)
		}
		if d > deepest {
			deepest = d
		}
	}
	return deepest
}

// argumentPayload converts coerced field arguments into a dispatch payload.
// Null arguments are left out, which leaves optional fields unset.
func argumentPayload(args map[string]interface{}) (map[string]string, error) {
	payload := make(map[string]string, len(args))
	for name, raw := range args {
		switch v := raw.(type) {
		case nil:
			continue
		case string:
			payload[name] = v
		case bool:
			payload[name] = strconv.FormatBool(v)
		default:
			n, err := toInt64(v)
			if err != nil {
				return nil, fmt.Errorf("%w: argument %s", errors.ErrInvalidData, name)
			}
			payload[name] = strconv.FormatInt(n, 10)
		}
	}
	return payload, nil
}

// toInt64 accepts the integer shapes produced by literals and decoded
// variables.
func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, errors.ErrInvalidData
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	default:
		return 0, errors.ErrInvalidData
	}
}
