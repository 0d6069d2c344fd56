package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/storage"
)

var _ storage.Repository = (*Adapter)(nil)

// Adapter implements storage.Repository over a Store. The SQL is derived from
// the store's schema, so one implementation serves every kind.
type Adapter struct {
	db      *sqlx.DB
	schema  catalog.Schema
	logger  *slog.Logger
	metrics *metric.Metrics

	insertSQL string
	selectSQL string
	listSQL   string
	updateSQL string
	deleteSQL string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the logger used for mutation trace lines.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics records every store operation.
func WithMetrics(m *metric.Metrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// NewAdapter creates the CRUD adapter for the store's kind.
func NewAdapter(store *Store, opts ...Option) *Adapter {
	schema := store.Schema()
	a := &Adapter{
		db:     store.DB(),
		schema: schema,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "sqlstore", "kind", string(schema.Kind))

	names := schema.FieldNames()
	binds := make([]string, len(names))
	sets := make([]string, len(names))
	for i, n := range names {
		binds[i] = ":" + n
		sets[i] = n + " = :" + n
	}
	cols := strings.Join(names, ", ")

	a.insertSQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", schema.Table, cols, strings.Join(binds, ", "))
	a.selectSQL = fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ?", cols, schema.Table)
	a.listSQL = fmt.Sprintf("SELECT id, %s FROM %s ORDER BY id", cols, schema.Table)
	a.updateSQL = fmt.Sprintf("UPDATE %s SET %s WHERE id = :id", schema.Table, strings.Join(sets, ", "))
	a.deleteSQL = fmt.Sprintf("DELETE FROM %s WHERE id = ?", schema.Table)
	return a
}

// Schema returns the kind descriptor.
func (a *Adapter) Schema() catalog.Schema {
	return a.schema
}

// namedArgs binds every schema column; absent optional fields become NULL.
func (a *Adapter) namedArgs(fields map[string]string) map[string]interface{} {
	args := make(map[string]interface{}, len(a.schema.Fields)+1)
	for _, f := range a.schema.Fields {
		if v, ok := fields[f.Name]; ok {
			args[f.Name] = v
		} else {
			args[f.Name] = nil
		}
	}
	return args
}

// Create inserts a new row and returns its identity.
func (a *Adapter) Create(ctx context.Context, fields map[string]string) (int64, error) {
	res, err := a.db.NamedExecContext(ctx, a.insertSQL, a.namedArgs(fields))
	if err != nil {
		return 0, a.fault(err, "Create", "insert "+a.schema.Table)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, a.fault(err, "Create", "read inserted id")
	}

	a.metrics.RecordStoreOperation(string(a.schema.Kind), "create", nil)
	a.logger.Info(a.schema.TypeName+" added", "id", id)
	return id, nil
}

// Get returns the row with the given identity.
func (a *Adapter) Get(ctx context.Context, id int64) (catalog.Record, error) {
	row := a.db.QueryRowxContext(ctx, a.selectSQL, id)
	rec, err := a.scan(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		a.metrics.RecordStoreOperation(string(a.schema.Kind), "get", errors.ErrNotFound)
		return catalog.Record{}, errors.WrapNotFound(
			fmt.Errorf("%s %d: %w", a.schema.Kind, id, errors.ErrNotFound),
			"sqlstore", "Get", "select "+a.schema.Table)
	}
	if err != nil {
		return catalog.Record{}, a.fault(err, "Get", "select "+a.schema.Table)
	}

	a.metrics.RecordStoreOperation(string(a.schema.Kind), "get", nil)
	return rec, nil
}

// List returns all rows ordered by identity.
func (a *Adapter) List(ctx context.Context) ([]catalog.Record, error) {
	rows, err := a.db.QueryxContext(ctx, a.listSQL)
	if err != nil {
		return nil, a.fault(err, "List", "select "+a.schema.Table)
	}
	defer rows.Close()

	records := make([]catalog.Record, 0)
	for rows.Next() {
		rec, err := a.scan(rows)
		if err != nil {
			return nil, a.fault(err, "List", "scan "+a.schema.Table)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, a.fault(err, "List", "iterate "+a.schema.Table)
	}

	a.metrics.RecordStoreOperation(string(a.schema.Kind), "list", nil)
	return records, nil
}

// Update replaces every mutable column of the row.
func (a *Adapter) Update(ctx context.Context, id int64, fields map[string]string) (int64, error) {
	args := a.namedArgs(fields)
	args["id"] = id

	res, err := a.db.NamedExecContext(ctx, a.updateSQL, args)
	if err != nil {
		return 0, a.fault(err, "Update", "update "+a.schema.Table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, a.fault(err, "Update", "read rows affected")
	}

	a.metrics.RecordStoreOperation(string(a.schema.Kind), "update", nil)
	if n > 0 {
		a.logger.Info(a.schema.TypeName+" updated", "id", id)
	}
	return n, nil
}

// Delete removes the row.
func (a *Adapter) Delete(ctx context.Context, id int64) (int64, error) {
	res, err := a.db.ExecContext(ctx, a.deleteSQL, id)
	if err != nil {
		return 0, a.fault(err, "Delete", "delete from "+a.schema.Table)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, a.fault(err, "Delete", "read rows affected")
	}

	a.metrics.RecordStoreOperation(string(a.schema.Kind), "delete", nil)
	if n > 0 {
		a.logger.Info(a.schema.TypeName+" deleted", "id", id)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (a *Adapter) scan(row scanner) (catalog.Record, error) {
	var id int64
	values := make([]sql.NullString, len(a.schema.Fields))
	dest := make([]interface{}, 0, len(values)+1)
	dest = append(dest, &id)
	for i := range values {
		dest = append(dest, &values[i])
	}

	if err := row.Scan(dest...); err != nil {
		return catalog.Record{}, err
	}

	rec := catalog.Record{ID: id, Fields: make(map[string]string, len(values))}
	for i, f := range a.schema.Fields {
		if values[i].Valid {
			rec.Fields[f.Name] = values[i].String
		}
	}
	return rec, nil
}

func (a *Adapter) fault(err error, method, action string) error {
	wrapped := errors.WrapFatal(err, "sqlstore", method, action)
	a.metrics.RecordStoreOperation(string(a.schema.Kind), strings.ToLower(method), wrapped)
	return wrapped
}
