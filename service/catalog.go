package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
	"github.com/yasminebenbraiek/multimedia-library-api/storage"
)

var _ rpc.Handler = (*CatalogService)(nil)

// CatalogService exposes a Repository as the kind's RPC service. It holds no
// per-call state; concurrent calls go straight to the repository.
type CatalogService struct {
	repo    storage.Repository
	schema  catalog.Schema
	logger  *slog.Logger
	metrics *metric.Metrics
}

// NewCatalogService creates the RPC handler for repo's kind.
func NewCatalogService(repo storage.Repository, logger *slog.Logger, metrics *metric.Metrics) *CatalogService {
	if logger == nil {
		logger = slog.Default()
	}
	schema := repo.Schema()
	return &CatalogService{
		repo:    repo,
		schema:  schema,
		logger:  logger.With("component", "catalog-service", "kind", string(schema.Kind)),
		metrics: metrics,
	}
}

// Handle serves one call. Store faults are logged here and leave as an opaque
// Internal status.
func (s *CatalogService) Handle(ctx context.Context, op catalog.Operation, req *rpc.Request) (*rpc.Reply, error) {
	switch op {
	case catalog.OpGet:
		id, err := s.id(req, op)
		if err != nil {
			return nil, err
		}
		rec, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, s.fail(op, err)
		}
		return &rpc.Reply{Records: []map[string]string{s.toWire(rec)}}, nil

	case catalog.OpList:
		recs, err := s.repo.List(ctx)
		if err != nil {
			return nil, s.fail(op, err)
		}
		reply := &rpc.Reply{Records: make([]map[string]string, 0, len(recs))}
		for _, rec := range recs {
			reply.Records = append(reply.Records, s.toWire(rec))
		}
		return reply, nil

	case catalog.OpCreate:
		id, err := s.repo.Create(ctx, s.schema.Project(req.Fields))
		if err != nil {
			return nil, s.fail(op, err)
		}
		return &rpc.Reply{
			Records:      []map[string]string{{s.schema.IDKey: strconv.FormatInt(id, 10)}},
			RowsAffected: 1,
		}, nil

	case catalog.OpUpdate:
		id, err := s.id(req, op)
		if err != nil {
			return nil, err
		}
		n, err := s.repo.Update(ctx, id, s.schema.Project(req.Fields))
		if err != nil {
			return nil, s.fail(op, err)
		}
		return &rpc.Reply{RowsAffected: n}, nil

	case catalog.OpDelete:
		id, err := s.id(req, op)
		if err != nil {
			return nil, err
		}
		n, err := s.repo.Delete(ctx, id)
		if err != nil {
			return nil, s.fail(op, err)
		}
		return &rpc.Reply{RowsAffected: n}, nil

	default:
		return nil, rpc.ToStatus(errors.WrapInvalid(errors.ErrUnknownOp, "CatalogService", "Handle", string(op)))
	}
}

func (s *CatalogService) id(req *rpc.Request, op catalog.Operation) (int64, error) {
	id, err := req.ID(s.schema.IDKey)
	if err != nil {
		return 0, rpc.ToStatus(errors.WrapInvalid(err, "CatalogService", s.schema.MethodName(op), "parse identity"))
	}
	return id, nil
}

func (s *CatalogService) fail(op catalog.Operation, err error) error {
	if !errors.IsNotFound(err) {
		s.logger.Error("store operation failed", "method", s.schema.MethodName(op), "error", err)
		s.metrics.RecordError("catalog-service", err)
	}
	return rpc.ToStatus(err)
}

func (s *CatalogService) toWire(rec catalog.Record) map[string]string {
	out := make(map[string]string, len(rec.Fields)+1)
	for k, v := range rec.Fields {
		out[k] = v
	}
	out[s.schema.IDKey] = strconv.FormatInt(rec.ID, 10)
	return out
}
