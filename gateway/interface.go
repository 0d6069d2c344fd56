package gateway

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
)

// Backend is the gateway's view of one catalog service. *rpc.Client
// implements it over a long-lived gRPC connection.
//
// Call returns errors already classified: absence as not-found, rejected input
// as invalid, transport problems as transient, and everything else as fatal.
type Backend interface {
	Schema() catalog.Schema
	Call(ctx context.Context, op catalog.Operation, req *rpc.Request) (*rpc.Reply, error)
	Check(ctx context.Context) (bool, error)
	Close() error
}

var _ Backend = (*rpc.Client)(nil)

// HTTPHandler is implemented by the facades. Each one registers its routes on
// the gateway's router.
//
// The prefix parameter is the mount path for the facade, e.g. "/" for the
// REST collections or "/graphql" for the graph endpoint.
type HTTPHandler interface {
	RegisterHTTPHandlers(prefix string, r chi.Router)
}

// Invoker is the dispatch surface the facades depend on.
type Invoker interface {
	Invoke(ctx context.Context, kind catalog.Kind, op catalog.Operation, payload map[string]string) (*Result, error)
}

var _ Invoker = (*Dispatcher)(nil)
