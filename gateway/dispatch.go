package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/health"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/tlsutil"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
)

// Result is the normalized outcome of a dispatched call. Records carry
// external identities; Deleted is set by a successful delete.
type Result struct {
	Records []catalog.Record
	Deleted bool
}

// Record returns the single record of a get, create or update.
func (r *Result) Record() catalog.Record {
	if r == nil || len(r.Records) == 0 {
		return catalog.Record{}
	}
	return r.Records[0]
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger for dispatch faults
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithMetrics records backend health
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(d *Dispatcher) {
		d.metrics = registry.CoreMetrics()
	}
}

// WithCallTimeout bounds every backend call
func WithCallTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.callTimeout = timeout
		}
	}
}

// Dispatcher translates facade requests into calls on the catalog services.
// It holds one Backend per kind and no entity logic beyond the identity
// translation and required-field checks shared by both facades.
type Dispatcher struct {
	backends    map[catalog.Kind]Backend
	monitor     *health.Monitor
	callTimeout time.Duration
	logger      *slog.Logger
	metrics     *metric.Metrics
}

// NewDispatcher creates a dispatcher over one backend per kind.
func NewDispatcher(backends []Backend, opts ...Option) (*Dispatcher, error) {
	d := &Dispatcher{
		backends:    make(map[catalog.Kind]Backend, len(backends)),
		monitor:     health.NewMonitor(),
		callTimeout: 5 * time.Second,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "dispatcher")

	for _, b := range backends {
		kind := b.Schema().Kind
		if _, dup := d.backends[kind]; dup {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Dispatcher", "NewDispatcher",
				fmt.Sprintf("duplicate backend for %s", kind))
		}
		d.backends[kind] = b
	}
	for _, schema := range catalog.All() {
		if _, ok := d.backends[schema.Kind]; !ok {
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Dispatcher", "NewDispatcher",
				fmt.Sprintf("no backend for %s", schema.Kind))
		}
	}
	return d, nil
}

// Dial opens a client for every backend in cfg. The connections are lazy, so
// an unreachable service surfaces as a transient failure on first use.
func Dial(cfg Config, opts ...grpc.DialOption) ([]Backend, error) {
	backends := make([]Backend, 0, len(catalog.All()))
	closeAll := func() {
		for _, b := range backends {
			_ = b.Close()
		}
	}

	for _, schema := range catalog.All() {
		bc, ok := cfg.Backends[string(schema.Kind)]
		if !ok || bc.Address == "" {
			closeAll()
			return nil, errors.WrapInvalid(errors.ErrMissingConfig, "gateway", "Dial",
				fmt.Sprintf("address for %s", schema.Kind))
		}

		creds, err := tlsutil.ClientCredentials(bc.TLS)
		if err != nil {
			closeAll()
			return nil, errors.Wrap(err, "gateway", "Dial", fmt.Sprintf("load TLS for %s", schema.Kind))
		}

		dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)
		client, err := rpc.NewClient(bc.Address, schema, dialOpts...)
		if err != nil {
			closeAll()
			return nil, err
		}
		backends = append(backends, client)
	}
	return backends, nil
}

// Close closes every backend connection.
func (d *Dispatcher) Close() error {
	var first error
	for _, b := range d.backends {
		if err := b.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Invoke performs op on kind. The payload uses external keys: "id" carries
// the identity for get, update and delete, and the remaining keys are entity
// fields for create and update.
//
// Absence is reported as a not-found error for get, update and delete alike,
// whether the service answered NotFound or affected no rows.
func (d *Dispatcher) Invoke(ctx context.Context, kind catalog.Kind, op catalog.Operation, payload map[string]string) (*Result, error) {
	backend, ok := d.backends[kind]
	if !ok {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownKind, kind), "Dispatcher", "Invoke", "route")
	}
	schema := backend.Schema()
	method := schema.MethodName(op)
	if method == "" {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %q", errors.ErrUnknownOp, op), "Dispatcher", "Invoke", "route")
	}

	wire := make(map[string]string, len(payload))
	var id int64
	if op == catalog.OpGet || op == catalog.OpUpdate || op == catalog.OpDelete {
		parsed, err := ParseID(payload[catalog.IDField])
		if err != nil {
			return nil, errors.WrapInvalid(err, "Dispatcher", method, "parse identity")
		}
		id = parsed
		wire[schema.IDKey] = strconv.FormatInt(id, 10)
	}

	var fields map[string]string
	if op == catalog.OpCreate || op == catalog.OpUpdate {
		fields = make(map[string]string, len(payload))
		for k, v := range payload {
			if k != catalog.IDField {
				fields[k] = v
			}
		}
		if err := schema.Validate(fields); err != nil {
			return nil, errors.WrapInvalid(err, "Dispatcher", method, "validate fields")
		}
		for k, v := range fields {
			wire[k] = v
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	reply, err := backend.Call(callCtx, op, rpc.NewRequest(wire))
	if err != nil {
		if !errors.IsNotFound(err) && !errors.IsInvalid(err) {
			d.logger.Debug("backend call failed", "kind", string(kind), "method", method, "error", err)
		}
		return nil, errors.Wrap(err, "Dispatcher", method, "call "+schema.Service)
	}

	switch op {
	case catalog.OpGet:
		if len(reply.Records) == 0 {
			return nil, d.absent(method, kind, id)
		}
		rec, err := fromWire(schema, reply.Records[0])
		if err != nil {
			return nil, errors.Wrap(err, "Dispatcher", method, "decode reply")
		}
		return &Result{Records: []catalog.Record{rec}}, nil

	case catalog.OpList:
		out := &Result{Records: make([]catalog.Record, 0, len(reply.Records))}
		for _, raw := range reply.Records {
			rec, err := fromWire(schema, raw)
			if err != nil {
				return nil, errors.Wrap(err, "Dispatcher", method, "decode reply")
			}
			out.Records = append(out.Records, rec)
		}
		return out, nil

	case catalog.OpCreate:
		if len(reply.Records) == 0 {
			return nil, errors.WrapFatal(errors.ErrInternal, "Dispatcher", method, "read new identity")
		}
		newID, err := ParseID(reply.Records[0][schema.IDKey])
		if err != nil {
			return nil, errors.WrapFatal(err, "Dispatcher", method, "read new identity")
		}
		return &Result{Records: []catalog.Record{{ID: newID, Fields: fields}}}, nil

	case catalog.OpUpdate:
		if reply.RowsAffected == 0 {
			return nil, d.absent(method, kind, id)
		}
		return &Result{Records: []catalog.Record{{ID: id, Fields: fields}}}, nil

	default: // catalog.OpDelete
		if reply.RowsAffected == 0 {
			return nil, d.absent(method, kind, id)
		}
		return &Result{Deleted: true}, nil
	}
}

func (d *Dispatcher) absent(method string, kind catalog.Kind, id int64) error {
	return errors.WrapNotFound(fmt.Errorf("%s %d: %w", kind, id, errors.ErrNotFound), "Dispatcher", method, "locate")
}

// ParseID parses an external identity. Identities are positive.
func ParseID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing", errors.ErrInvalidID)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %q", errors.ErrInvalidID, raw)
	}
	return id, nil
}

func fromWire(schema catalog.Schema, raw map[string]string) (catalog.Record, error) {
	id, err := ParseID(raw[schema.IDKey])
	if err != nil {
		return catalog.Record{}, errors.WrapFatal(err, "Dispatcher", "fromWire", "parse "+schema.IDKey)
	}
	return catalog.Record{ID: id, Fields: schema.Project(raw)}, nil
}

// Health probes every backend concurrently with the gRPC health protocol and
// returns the aggregate.
func (d *Dispatcher) Health(ctx context.Context) health.Status {
	g, gctx := errgroup.WithContext(ctx)
	for kind, backend := range d.backends {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, d.callTimeout)
			defer cancel()

			start := time.Now()
			serving, err := backend.Check(probeCtx)
			st := health.FromProbe(string(kind), serving, err, time.Since(start))

			d.monitor.Update(string(kind), st)
			d.metrics.RecordBackendHealth(string(kind), st.IsHealthy())
			return nil
		})
	}
	_ = g.Wait()
	return d.monitor.AggregateHealth("api-gateway")
}
