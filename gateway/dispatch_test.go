package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
)

// fakeBackend answers every call with a canned reply and records requests.
type fakeBackend struct {
	schema  catalog.Schema
	reply   *rpc.Reply
	err     error
	serving bool
	block   bool

	mu       sync.Mutex
	requests []map[string]string
	closed   bool
}

func (f *fakeBackend) Schema() catalog.Schema { return f.schema }

func (f *fakeBackend) Call(ctx context.Context, _ catalog.Operation, req *rpc.Request) (*rpc.Reply, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req.Fields)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, errors.WrapTransient(ctx.Err(), "fake", "Call", "wait")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.reply == nil {
		return &rpc.Reply{}, nil
	}
	return f.reply, nil
}

func (f *fakeBackend) Check(context.Context) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.serving, nil
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func (f *fakeBackend) lastRequest() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return nil
	}
	return f.requests[len(f.requests)-1]
}

func newFakes() map[catalog.Kind]*fakeBackend {
	fakes := make(map[catalog.Kind]*fakeBackend)
	for _, s := range catalog.All() {
		fakes[s.Kind] = &fakeBackend{schema: s, serving: true}
	}
	return fakes
}

func newTestDispatcher(t *testing.T, fakes map[catalog.Kind]*fakeBackend, opts ...Option) *Dispatcher {
	t.Helper()
	backends := make([]Backend, 0, len(fakes))
	for _, f := range fakes {
		backends = append(backends, f)
	}
	d, err := NewDispatcher(backends, opts...)
	require.NoError(t, err)
	return d
}

func TestNewDispatcher_RequiresEveryKind(t *testing.T) {
	_, err := NewDispatcher([]Backend{&fakeBackend{schema: catalog.Book}})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewDispatcher([]Backend{
		&fakeBackend{schema: catalog.Book},
		&fakeBackend{schema: catalog.Book},
	})
	require.Error(t, err)
}

func TestInvoke_TranslatesIdentity(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindMagazine].reply = &rpc.Reply{Records: []map[string]string{
		{"magazine_id": "12", "title": "Wired", "category": "Tech", "summary": "Monthly"},
	}}
	d := newTestDispatcher(t, fakes)

	res, err := d.Invoke(context.Background(), catalog.KindMagazine, catalog.OpGet, map[string]string{"id": "12"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"magazine_id": "12"}, fakes[catalog.KindMagazine].lastRequest())
	rec := res.Record()
	assert.Equal(t, int64(12), rec.ID)
	assert.Equal(t, "Wired", rec.Fields["title"])
	assert.NotContains(t, rec.Fields, "magazine_id")
}

func TestInvoke_List(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindBook].reply = &rpc.Reply{Records: []map[string]string{
		{"book_id": "1", "title": "Dune"},
		{"book_id": "2", "title": "Emma"},
	}}
	d := newTestDispatcher(t, fakes)

	res, err := d.Invoke(context.Background(), catalog.KindBook, catalog.OpList, nil)
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, int64(1), res.Records[0].ID)
	assert.Equal(t, int64(2), res.Records[1].ID)
}

func TestInvoke_CreateEchoesFields(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindBook].reply = &rpc.Reply{Records: []map[string]string{{"book_id": "7"}}, RowsAffected: 1}
	d := newTestDispatcher(t, fakes)

	payload := map[string]string{"title": "Dune", "author": "Herbert", "description": "Spice"}
	res, err := d.Invoke(context.Background(), catalog.KindBook, catalog.OpCreate, payload)
	require.NoError(t, err)

	rec := res.Record()
	assert.Equal(t, int64(7), rec.ID)
	assert.Equal(t, payload, rec.Fields)
	assert.Equal(t, payload, fakes[catalog.KindBook].lastRequest())
}

func TestInvoke_UpdateEchoesFields(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindAudiovisual].reply = &rpc.Reply{RowsAffected: 1}
	d := newTestDispatcher(t, fakes)

	res, err := d.Invoke(context.Background(), catalog.KindAudiovisual, catalog.OpUpdate, map[string]string{
		"id": "3", "title": "Alien", "format": "DVD", "content": "Film",
	})
	require.NoError(t, err)

	rec := res.Record()
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, map[string]string{"title": "Alien", "format": "DVD", "content": "Film"}, rec.Fields)
	assert.Equal(t, "3", fakes[catalog.KindAudiovisual].lastRequest()["audiovisual_id"])
}

func TestInvoke_Absence(t *testing.T) {
	tests := []struct {
		name    string
		op      catalog.Operation
		payload map[string]string
		reply   *rpc.Reply
		err     error
	}{
		{"get not found status", catalog.OpGet, map[string]string{"id": "999"}, nil,
			errors.WrapNotFound(errors.ErrNotFound, "rpc", "GetMagazine", "call")},
		{"get empty reply", catalog.OpGet, map[string]string{"id": "999"}, &rpc.Reply{}, nil},
		{"update no rows", catalog.OpUpdate, map[string]string{"id": "999", "title": "t", "category": "c", "summary": "s"},
			&rpc.Reply{RowsAffected: 0}, nil},
		{"delete no rows", catalog.OpDelete, map[string]string{"id": "999"}, &rpc.Reply{RowsAffected: 0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakes := newFakes()
			fakes[catalog.KindMagazine].reply = tt.reply
			fakes[catalog.KindMagazine].err = tt.err
			d := newTestDispatcher(t, fakes)

			_, err := d.Invoke(context.Background(), catalog.KindMagazine, tt.op, tt.payload)
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err), "expected absence, got %v", err)
			assert.False(t, errors.IsFatal(err))
		})
	}
}

func TestInvoke_Delete(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindBook].reply = &rpc.Reply{RowsAffected: 1}
	d := newTestDispatcher(t, fakes)

	res, err := d.Invoke(context.Background(), catalog.KindBook, catalog.OpDelete, map[string]string{"id": "4"})
	require.NoError(t, err)
	assert.True(t, res.Deleted)
}

func TestInvoke_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		kind     catalog.Kind
		op       catalog.Operation
		payload  map[string]string
		sentinel error
	}{
		{"non-numeric id", catalog.KindBook, catalog.OpGet, map[string]string{"id": "abc"}, errors.ErrInvalidID},
		{"missing id", catalog.KindBook, catalog.OpDelete, map[string]string{}, errors.ErrInvalidID},
		{"negative id", catalog.KindBook, catalog.OpGet, map[string]string{"id": "-1"}, errors.ErrInvalidID},
		{"zero id", catalog.KindMagazine, catalog.OpUpdate,
			map[string]string{"id": "0", "title": "t", "category": "c", "summary": "s"}, errors.ErrInvalidID},
		{"missing required field", catalog.KindBook, catalog.OpCreate, map[string]string{"title": "Dune"}, errors.ErrMissingField},
		{"blank required field", catalog.KindBook, catalog.OpUpdate,
			map[string]string{"id": "1", "title": " ", "author": "a", "description": "d"}, errors.ErrMissingField},
		{"unknown field", catalog.KindAudiovisual, catalog.OpCreate,
			map[string]string{"title": "t", "format": "f", "content": "c", "rating": "5"}, errors.ErrUnknownField},
		{"unknown kind", catalog.Kind("podcast"), catalog.OpList, nil, errors.ErrUnknownKind},
		{"unknown operation", catalog.KindBook, catalog.Operation("purge"), nil, errors.ErrUnknownOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakes := newFakes()
			d := newTestDispatcher(t, fakes)

			_, err := d.Invoke(context.Background(), tt.kind, tt.op, tt.payload)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.ErrorIs(t, err, tt.sentinel)
			for _, f := range fakes {
				assert.Nil(t, f.lastRequest(), "invalid requests never reach a backend")
			}
		})
	}
}

func TestInvoke_FaultsKeepClass(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"fatal", errors.WrapFatal(fmt.Errorf("%w: Internal", errors.ErrInternal), "rpc", "GetBook", "call"), errors.IsFatal},
		{"transient", errors.WrapTransient(errors.ErrUnavailable, "rpc", "GetBook", "call"), errors.IsTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakes := newFakes()
			fakes[catalog.KindBook].err = tt.err
			d := newTestDispatcher(t, fakes)

			_, err := d.Invoke(context.Background(), catalog.KindBook, catalog.OpGet, map[string]string{"id": "1"})
			require.Error(t, err)
			assert.True(t, tt.check(err))
		})
	}
}

func TestInvoke_CallTimeout(t *testing.T) {
	fakes := newFakes()
	fakes[catalog.KindBook].block = true
	d := newTestDispatcher(t, fakes, WithCallTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := d.Invoke(context.Background(), catalog.KindBook, catalog.OpList, nil)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDispatcher_Health(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	fakes := newFakes()
	d := newTestDispatcher(t, fakes, WithMetrics(registry))

	st := d.Health(context.Background())
	assert.True(t, st.IsHealthy())
	assert.Len(t, st.SubStatuses, 3)
	assert.Equal(t, 1.0, testutil.ToFloat64(registry.CoreMetrics().BackendUp.WithLabelValues("book")))

	fakes[catalog.KindMagazine].serving = false
	assert.True(t, d.Health(context.Background()).IsDegraded())

	fakes[catalog.KindBook].err = errors.WrapTransient(errors.ErrUnavailable, "rpc", "Check", "call")
	st = d.Health(context.Background())
	assert.True(t, st.IsUnhealthy())
	assert.Equal(t, 0.0, testutil.ToFloat64(registry.CoreMetrics().BackendUp.WithLabelValues("book")))
}

func TestDispatcher_Close(t *testing.T) {
	fakes := newFakes()
	d := newTestDispatcher(t, fakes)

	require.NoError(t, d.Close())
	for _, f := range fakes {
		assert.True(t, f.closed)
	}
}

func TestRateLimiter(t *testing.T) {
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("rest"))

	disabled, err := NewRateLimiter(RateLimitConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, disabled)

	registry := metric.NewMetricsRegistry()
	l, err := NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 2}, registry)
	require.NoError(t, err)

	assert.True(t, l.Allow("rest"))
	assert.True(t, l.Allow("graphql"))
	assert.False(t, l.Allow("rest"))
	assert.Equal(t, 1.0, testutil.ToFloat64(l.rejected.WithLabelValues("rest")))

	_, err = NewRateLimiter(RateLimitConfig{Enabled: true, RequestsPerSecond: 1}, registry)
	require.Error(t, err, "duplicate registration is rejected")
}
