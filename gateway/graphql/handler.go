package graphql

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
)

const (
	facadeName  = "graphql"
	corsMethods = "GET, POST, OPTIONS"
)

// Request is a GraphQL request as sent in a POST body.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// response is the GraphQL response envelope. Data is omitted when the
// request failed before execution and is null when execution failed on a
// non-null root field.
type response struct {
	Data   interface{}   `json:"data,omitempty"`
	Errors gqlerror.List `json:"errors,omitempty"`
}

var nullData = json.RawMessage("null")

// Option configures a Gateway
type Option func(*Gateway)

// WithLogger sets the logger for faults
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetrics records every resolved root field
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

// Gateway serves the graph facade on a single endpoint
type Gateway struct {
	invoker gateway.Invoker
	config  gateway.Config
	limiter *gateway.RateLimiter
	logger  *slog.Logger
	metrics *metric.Metrics
}

var _ gateway.HTTPHandler = (*Gateway)(nil)

// NewGateway creates the graph facade over invoker
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
	g.logger = g.logger.With("component", "graphql-gateway")
	return g, nil
}

// Handler returns a standalone router serving the endpoint at the configured
// GraphQL path
func (g *Gateway) Handler() http.Handler {
	r := chi.NewRouter()
	g.RegisterHTTPHandlers(g.config.GraphQLPath, r)
	return r
}

// RegisterHTTPHandlers mounts the endpoint at prefix
func (g *Gateway) RegisterHTTPHandlers(prefix string, r chi.Router) {
	if prefix == "" {
		prefix = g.config.GraphQLPath
	}
	r.Group(func(r chi.Router) {
		r.Use(gateway.RequestIDMiddleware, gateway.CORSMiddleware(g.config, corsMethods))
		r.Get(prefix, g.ServeHTTP)
		r.Post(prefix, g.ServeHTTP)
		r.Options(prefix, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusMethodNotAllowed)
		})
	})
}

// ServeHTTP executes one GraphQL request
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	if !g.limiter.Allow(facadeName) {
		err := errors.WrapTransient(errors.ErrRateLimited, "Gateway", "ServeHTTP", "admit request")
		g.writeResponse(w, http.StatusTooManyRequests, response{Errors: gqlerror.List{requestError(err)}})
		return
	}

	req, err := g.readRequest(r)
	if err != nil {
		status := http.StatusBadRequest
		if gateway.Code(err) == gateway.CodeRequestTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		g.writeResponse(w, status, response{Errors: gqlerror.List{requestError(err)}})
		return
	}

	op, vars, errs := g.prepare(req)
	if len(errs) > 0 {
		g.writeResponse(w, http.StatusOK, response{Errors: errs})
		return
	}
	if op.Operation == ast.Mutation && r.Method == http.MethodGet {
		g.writeResponse(w, http.StatusMethodNotAllowed, response{Errors: gqlerror.List{
			documentError("mutations are only accepted over POST"),
		}})
		return
	}

	exec := &executor{
		resolver: &resolver{invoker: g.invoker, metrics: g.metrics},
		vars:     vars,
	}
	data, errs := exec.execute(r.Context(), op)
	g.logFaults(r, errs)

	resp := response{Data: data, Errors: errs}
	if data == nil {
		resp.Data = nullData
	}
	g.writeResponse(w, http.StatusOK, resp)
}

// readRequest decodes a POST body or GET query parameters.
func (g *Gateway) readRequest(r *http.Request) (*Request, error) {
	var req Request

	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if raw := q.Get("variables"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &req.Variables); err != nil {
				return nil, errors.WrapInvalid(errors.ErrParsingFailed, "Gateway", "readRequest", "decode variables")
			}
		}
	} else {
		body, err := io.ReadAll(io.LimitReader(r.Body, g.config.MaxRequestSize+1))
		if err != nil {
			return nil, errors.WrapInvalid(errors.ErrParsingFailed, "Gateway", "readRequest", "read body")
		}
		if int64(len(body)) > g.config.MaxRequestSize {
			return nil, errors.WrapInvalid(errors.ErrRequestTooLong, "Gateway", "readRequest", "read body")
		}
		dec := json.NewDecoder(bytes.NewReader(body))
		if err := dec.Decode(&req); err != nil || dec.Decode(&struct{}{}) != io.EOF {
			return nil, errors.WrapInvalid(errors.ErrParsingFailed, "Gateway", "readRequest", "decode body")
		}
	}

	if req.Query == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingField, "Gateway", "readRequest", "query")
	}
	return &req, nil
}

// prepare parses and validates the document, selects the operation and
// coerces its variables.
func (g *Gateway) prepare(req *Request) (*ast.OperationDefinition, map[string]interface{}, gqlerror.List) {
	doc, err := parser.ParseQuery(&ast.Source{Name: "query", Input: req.Query})
	if err != nil {
		return nil, nil, gqlerror.List{asDocumentError(err, CodeParseFailed)}
	}
	if errs := validator.Validate(Schema, doc); len(errs) > 0 {
		return nil, nil, documentErrors(errs, CodeValidationFailed)
	}

	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		if req.OperationName == "" {
			return nil, nil, gqlerror.List{documentError("operationName is required when the document has several operations")}
		}
		return nil, nil, gqlerror.List{documentError("unknown operation %q", req.OperationName)}
	}

	if depth := selectionDepth(op.SelectionSet, map[string]bool{}); depth > g.config.GraphQLMaxDepth {
		return nil, nil, gqlerror.List{documentError("query depth %d exceeds the limit of %d", depth, g.config.GraphQLMaxDepth)}
	}

	vars, verr := validator.VariableValues(Schema, op, req.Variables)
	if verr != nil {
		return nil, nil, gqlerror.List{asDocumentError(verr, CodeValidationFailed)}
	}
	return op, vars, nil
}

// logFaults logs server-side failures with their detail. Clients only see
// the public message.
func (g *Gateway) logFaults(r *http.Request, errs gqlerror.List) {
	for _, e := range errs {
		if e.Err == nil {
			continue
		}
		switch gateway.Code(e.Err) {
		case gateway.CodeInternal, gateway.CodeUnavailable, gateway.CodeTimeout:
			g.logger.Error("resolver failed",
				"request_id", gateway.RequestID(r.Context()),
				"path", e.Path.String(),
				"error", e.Err)
		default:
			g.logger.Debug("resolver rejected",
				"request_id", gateway.RequestID(r.Context()),
				"path", e.Path.String(),
				"error", e.Err)
		}
	}
}

func (g *Gateway) writeResponse(w http.ResponseWriter, statusCode int, resp response) {
	data, err := json.Marshal(resp)
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
