package testutil

import (
	"context"
	"sync"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
)

// MockInvoker is an in-memory gateway.Invoker that follows the Dispatcher
// contract: identities per kind start at 1, absence is a not-found error for
// get, update and delete, and create and update validate against the schema.
type MockInvoker struct {
	mu     sync.Mutex
	nextID map[catalog.Kind]int64
	rows   map[catalog.Kind]map[int64]map[string]string

	fault error
	calls int
	last  map[string]string
}

// NewMockInvoker creates an empty invoker.
func NewMockInvoker() *MockInvoker {
	return &MockInvoker{
		nextID: make(map[catalog.Kind]int64),
		rows:   make(map[catalog.Kind]map[int64]map[string]string),
	}
}

// SetFault makes every following call fail with err. Pass nil to clear it.
func (m *MockInvoker) SetFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = err
}

// Calls returns the number of Invoke calls.
func (m *MockInvoker) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPayload returns the payload of the most recent call.
func (m *MockInvoker) LastPayload() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Invoke performs op on the in-memory rows of kind.
func (m *MockInvoker) Invoke(_ context.Context, kind catalog.Kind, op catalog.Operation, payload map[string]string) (*gateway.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = payload

	if m.fault != nil {
		return nil, m.fault
	}
	schema, err := catalog.Lookup(kind)
	if err != nil {
		return nil, errors.WrapInvalid(err, "MockInvoker", "Invoke", "route")
	}
	if m.rows[kind] == nil {
		m.rows[kind] = make(map[int64]map[string]string)
	}
	rows := m.rows[kind]

	var id int64
	if op != catalog.OpList && op != catalog.OpCreate {
		id, err = gateway.ParseID(payload[catalog.IDField])
		if err != nil {
			return nil, errors.WrapInvalid(err, "MockInvoker", "Invoke", "parse identity")
		}
	}
	fields := make(map[string]string, len(payload))
	for k, v := range payload {
		if k != catalog.IDField {
			fields[k] = v
		}
	}
	if op == catalog.OpCreate || op == catalog.OpUpdate {
		if err := schema.Validate(fields); err != nil {
			return nil, errors.WrapInvalid(err, "MockInvoker", "Invoke", "validate fields")
		}
	}
	absent := errors.WrapNotFound(errors.ErrNotFound, "MockInvoker", "Invoke", "locate")

	switch op {
	case catalog.OpCreate:
		m.nextID[kind]++
		rows[m.nextID[kind]] = fields
		return &gateway.Result{Records: []catalog.Record{{ID: m.nextID[kind], Fields: fields}}}, nil
	case catalog.OpGet:
		f, ok := rows[id]
		if !ok {
			return nil, absent
		}
		return &gateway.Result{Records: []catalog.Record{{ID: id, Fields: f}}}, nil
	case catalog.OpList:
		res := &gateway.Result{Records: []catalog.Record{}}
		for i := int64(1); i <= m.nextID[kind]; i++ {
			if f, ok := rows[i]; ok {
				res.Records = append(res.Records, catalog.Record{ID: i, Fields: f})
			}
		}
		return res, nil
	case catalog.OpUpdate:
		if _, ok := rows[id]; !ok {
			return nil, absent
		}
		rows[id] = fields
		return &gateway.Result{Records: []catalog.Record{{ID: id, Fields: fields}}}, nil
	default:
		if _, ok := rows[id]; !ok {
			return nil, absent
		}
		delete(rows, id)
		return &gateway.Result{Deleted: true}, nil
	}
}

var _ gateway.Invoker = (*MockInvoker)(nil)
