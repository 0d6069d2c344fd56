// Package http provides the REST facade of the library API.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/health"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
)

const (
	facadeName  = "rest"
	corsMethods = "GET, POST, PUT, DELETE, OPTIONS"
)

// HealthFunc reports aggregated backend health
type HealthFunc func(ctx context.Context) health.Status

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the logger for faults and request tracing
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records every request
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(g *Gateway) {
		g.metrics = registry.CoreMetrics()
	}
}

// WithRateLimiter rejects requests over the configured rate
func WithRateLimiter(l *gateway.RateLimiter) Option {
	return func(g *Gateway) {
		g.limiter = l
	}
}

// WithHealth serves aggregated backend health on /health
func WithHealth(fn HealthFunc) Option {
	return func(g *Gateway) {
		g.health = fn
	}
}

// Gateway serves the REST collections /books, /magazines and /audiovisuals
type Gateway struct {
	invoker gateway.Invoker
	config  gateway.Config
	limiter *gateway.RateLimiter
	health  HealthFunc
	logger  *slog.Logger
	metrics *metric.Metrics
}

var _ gateway.HTTPHandler = (*Gateway)(nil)

// NewGateway creates the REST facade over invoker
func NewGateway(invoker gateway.Invoker, config gateway.Config, opts ...Option) (*Gateway, error) {
	if invoker == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "Gateway", "NewGateway",
			"dispatcher is required")
	}
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Gateway", "NewGateway", "config validation")
	}

	g := &Gateway{
		invoker: invoker,
		config:  config,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "rest-gateway")
	return g, nil
}

// Handler returns a standalone router serving the facade at "/"
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	g.RegisterHTTPHandlers("/", r)
	return r
}

// RegisterHTTPHandlers mounts one collection per kind under prefix
func (g *Gateway) RegisterHTTPHandlers(prefix string, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(gateway.RequestIDMiddleware, gateway.CORSMiddleware(g.config, corsMethods), g.rateLimitMiddleware)

		base := prefix
		if len(base) > 0 && base[len(base)-1] == '/' {
			base = base[:len(base)-1]
		}

		if g.health != nil {
			r.Get(base+"/health", g.handleHealth)
		}

		for _, schema := range catalog.All() {
			r.Route(base+"/"+schema.Collection, func(r chi.Router) {
				r.Get("/", g.route(schema, catalog.OpList))
				r.Post("/", g.route(schema, catalog.OpCreate))
				r.Get("/{id}", g.route(schema, catalog.OpGet))
				r.Put("/{id}", g.route(schema, catalog.OpUpdate))
				r.Delete("/{id}", g.route(schema, catalog.OpDelete))
			})
		}
	})
}

// route creates the handler for one operation on one collection
func (g *Gateway) route(schema catalog.Schema, op catalog.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		defer r.Body.Close()

		res, err := g.serve(r, schema, op)
		g.metrics.RecordGatewayRequest(facadeName, string(schema.Kind), string(op), err, time.Since(start))
		if err != nil {
			g.fail(w, r, schema, op, err)
			return
		}

		switch op {
		case catalog.OpDelete:
			w.WriteHeader(http.StatusNoContent)
		case catalog.OpList:
			out := make([]map[string]any, 0, len(res.Records))
			for _, rec := range res.Records {
				out = append(out, entity(schema, rec))
			}
			g.writeJSON(w, http.StatusOK, out)
		default:
			g.writeJSON(w, http.StatusOK, entity(schema, res.Record()))
		}
	}
}

func (g *Gateway) serve(r *http.Request, schema catalog.Schema, op catalog.Operation) (*gateway.Result, error) {
	payload := make(map[string]string)

	if op == catalog.OpCreate || op == catalog.OpUpdate {
		body, err := g.readBody(r)
		if err != nil {
			return nil, err
		}
		fields, err := decodeFields(body)
		if err != nil {
			return nil, err
		}
		for k, v := range fields {
			payload[k] = v
		}
	}

	if op == catalog.OpGet || op == catalog.OpUpdate || op == catalog.OpDelete {
		// The path identity wins over any "id" in the body
		payload[catalog.IDField] = chi.URLParam(r, "id")
	} else {
		delete(payload, catalog.IDField)
	}

	return g.invoker.Invoke(r.Context(), schema.Kind, op, payload)
}

// readBody reads the request body with size limit + 1 to detect if request exceeds limit
func (g *Gateway) readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize+1))
	if err != nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrParsingFailed, err),
			"Gateway", "readBody", "read request body")
	}
	if int64(len(body)) > g.config.MaxRequestSize {
		return nil, errors.WrapInvalid(errors.ErrRequestTooLong, "Gateway", "readBody",
			fmt.Sprintf("body exceeds %d bytes", g.config.MaxRequestSize))
	}
	return body, nil
}

// decodeFields accepts a JSON object of scalar values. Numbers keep their
// literal text and null leaves a field unset.
func decodeFields(body []byte) (map[string]string, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || dec.Decode(&struct{}{}) != io.EOF {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: body is not a JSON object", errors.ErrParsingFailed),
			"Gateway", "decodeFields", "decode body")
	}
	if raw == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("%w: body is not a JSON object", errors.ErrParsingFailed),
			"Gateway", "decodeFields", "decode body")
	}

	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		default:
			return nil, errors.WrapInvalid(fmt.Errorf("%w: %s must be a string", errors.ErrInvalidData, k),
				"Gateway", "decodeFields", "decode body")
		}
	}
	return fields, nil
}

// entity renders a record with every field of its kind; unset optional
// fields are null.
func entity(schema catalog.Schema, rec catalog.Record) map[string]any {
	out := make(map[string]any, len(schema.Fields)+1)
	out[catalog.IDField] = rec.ID
	for _, f := range schema.Fields {
		if v, ok := rec.Fields[f.Name]; ok {
			out[f.Name] = v
		} else {
			out[f.Name] = nil
		}
	}
	return out
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := g.health(r.Context())
	code := http.StatusOK
	if st.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	g.writeJSON(w, code, st)
}

// fail logs the full error internally and writes the sanitized envelope
func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, schema catalog.Schema, op catalog.Operation, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		g.logger.Error("request failed",
			"request_id", gateway.RequestID(r.Context()),
			"kind", string(schema.Kind),
			"operation", string(op),
			"status", status,
			"error", err)
	} else {
		g.logger.Debug("request rejected",
			"request_id", gateway.RequestID(r.Context()),
			"kind", string(schema.Kind),
			"operation", string(op),
			"status", status,
			"error", err)
	}
	g.writeError(w, status, err)
}

// mapErrorToHTTPStatus maps classified errors to HTTP status codes
func mapErrorToHTTPStatus(err error) int {
	switch gateway.Code(err) {
	case gateway.CodeNotFound:
		return http.StatusNotFound
	case gateway.CodeInvalidInput:
		return http.StatusBadRequest
	case gateway.CodeRequestTooLarge:
		return http.StatusRequestEntityTooLarge
	case gateway.CodeRateLimited:
		return http.StatusTooManyRequests
	case gateway.CodeTimeout:
		return http.StatusGatewayTimeout
	case gateway.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an error response
func (g *Gateway) writeError(w http.ResponseWriter, statusCode int, err error) {
	g.writeJSON(w, statusCode, map[string]any{
		"error":  gateway.PublicMessage(err),
		"code":   string(gateway.Code(err)),
		"status": statusCode,
	})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.Error("encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(data); err != nil {
		g.logger.Debug("write response", "error", err)
	}
}

func (g *Gateway) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.limiter.Allow(facadeName) {
			err := errors.WrapTransient(errors.ErrRateLimited, "Gateway", "rateLimit", "admit request")
			g.writeError(w, http.StatusTooManyRequests, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}
