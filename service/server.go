package service

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"path"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/health"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/security"
	"github.com/yasminebenbraiek/multimedia-library-api/pkg/tlsutil"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
)

// Status represents the current status of a server
type Status int

// Possible server statuses
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Option is a functional option for configuring Server
type Option func(*Server)

// Server runs one catalog service over gRPC together with the standard health
// service.
type Server struct {
	addr    string
	schema  catalog.Schema
	handler rpc.Handler
	tls     security.ServerTLSConfig
	lis     net.Listener

	metrics *metric.Metrics
	logger  *slog.Logger

	grpcServer *grpc.Server
	health     *grpchealth.Server

	status    atomic.Value // Status
	startTime atomic.Value // time.Time
	served    chan struct{}
	stopped   bool // a grpc.Server cannot serve again after Stop
	mu        sync.Mutex
}

// WithLogger sets a custom logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records RPC handling and lifecycle status
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(s *Server) {
		s.metrics = registry.CoreMetrics()
	}
}

// WithTLS serves over TLS with the given configuration
func WithTLS(cfg security.ServerTLSConfig) Option {
	return func(s *Server) {
		s.tls = cfg
	}
}

// WithListener serves on an existing listener instead of binding addr
func WithListener(lis net.Listener) Option {
	return func(s *Server) {
		s.lis = lis
	}
}

// NewServer creates the server for handler's kind listening on addr.
func NewServer(addr string, schema catalog.Schema, handler rpc.Handler, opts ...Option) (*Server, error) {
	s := &Server{
		addr:    addr,
		schema:  schema,
		handler: handler,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "grpc-server", "service", schema.Service)

	creds, err := tlsutil.ServerCredentials(s.tls)
	if err != nil {
		return nil, errors.Wrap(err, "Server", "NewServer", "load TLS credentials")
	}

	serverOpts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(s.observe)}
	if creds != nil {
		serverOpts = append(serverOpts, grpc.Creds(creds))
	}

	s.grpcServer = grpc.NewServer(serverOpts...)
	rpc.Register(s.grpcServer, schema, handler)

	s.health = grpchealth.NewServer()
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus(schema.Service, healthpb.HealthCheckResponse_NOT_SERVING)

	s.setStatus(StatusStopped)
	s.startTime.Store(time.Time{})
	return s, nil
}

// Name returns the served RPC service name
func (s *Server) Name() string {
	return s.schema.Service
}

// Status returns the current server status
func (s *Server) Status() Status {
	return s.status.Load().(Status)
}

func (s *Server) setStatus(st Status) {
	s.status.Store(st)
	s.metrics.RecordServiceStatus(string(s.schema.Kind), int(st))
}

// Addr returns the address the server is listening on
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lis != nil {
		return s.lis.Addr().String()
	}
	return s.addr
}

// Start binds the listener and serves in the background. The server stops
// when ctx is canceled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.Status(); current == StatusRunning || current == StatusStarting {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Server", "Start", "start "+s.schema.Service)
	}
	if s.stopped {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Server", "Start", "start "+s.schema.Service)
	}
	s.setStatus(StatusStarting)

	if s.lis == nil {
		lis, err := net.Listen("tcp", s.addr)
		if err != nil {
			s.setStatus(StatusStopped)
			return errors.WrapFatal(err, "Server", "Start", fmt.Sprintf("listen on %s", s.addr))
		}
		s.lis = lis
	}

	s.served = make(chan struct{})
	go func(lis net.Listener, served chan struct{}) {
		defer close(served)
		if err := s.grpcServer.Serve(lis); err != nil {
			s.logger.Error("gRPC server stopped", "error", err)
		}
	}(s.lis, s.served)

	go func(served chan struct{}) {
		select {
		case <-ctx.Done():
			_ = s.Stop(5 * time.Second)
		case <-served:
		}
	}(s.served)

	s.health.SetServingStatus(s.schema.Service, healthpb.HealthCheckResponse_SERVING)
	s.startTime.Store(time.Now())
	s.setStatus(StatusRunning)
	s.logger.Info("catalog service listening", "addr", s.lis.Addr().String())
	return nil
}

// Stop drains in-flight calls, forcing the server closed after timeout.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.Status(); current == StatusStopped || current == StatusStopping {
		return nil
	}
	s.setStatus(StatusStopping)
	s.health.Shutdown()

	if timeout == 0 {
		timeout = 5 * time.Second
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(timeout):
		s.logger.Warn("graceful stop timed out, forcing close", "timeout", timeout)
		s.grpcServer.Stop()
	}

	if s.served != nil {
		<-s.served
	}
	s.stopped = true
	s.setStatus(StatusStopped)
	s.logger.Info("catalog service stopped")
	return nil
}

// Health reports the server's lifecycle state as a health status
func (s *Server) Health() health.Status {
	name := string(s.schema.Kind)
	var st health.Status
	switch s.Status() {
	case StatusRunning:
		st = health.NewHealthy(name, "Service operating normally")
	case StatusStarting:
		st = health.NewDegraded(name, "Service is starting")
	case StatusStopping:
		st = health.NewDegraded(name, "Service is stopping")
	default:
		st = health.NewUnhealthy(name, "Service is stopped")
	}

	if start := s.startTime.Load().(time.Time); !start.IsZero() && s.Status() == StatusRunning {
		st = st.WithMetrics(&health.Metrics{Uptime: time.Since(start)})
	}
	return st
}

// observe records every handled call.
func (s *Server) observe(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	method := path.Base(info.FullMethod)
	code := status.Code(err).String()
	s.metrics.RecordRPC(s.schema.Service, method, code, elapsed)
	s.logger.Debug("rpc handled", "method", method, "code", code, "duration", elapsed)
	return resp, err
}
