package testutil

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	"github.com/yasminebenbraiek/multimedia-library-api/rpc"
	"github.com/yasminebenbraiek/multimedia-library-api/service"
	"github.com/yasminebenbraiek/multimedia-library-api/storage/sqlstore"
)

const bufSize = 1 << 20

// Cluster is the three catalog services running in-process on bufconn
// listeners, each over its own SQLite file, with a Dispatcher in front.
type Cluster struct {
	Dispatcher *gateway.Dispatcher
	Registry   *metric.MetricsRegistry
	Servers    map[catalog.Kind]*service.Server
}

// NewCluster starts a cluster for the duration of t. Everything is torn down
// through t.Cleanup.
func NewCluster(t *testing.T) *Cluster {
	t.Helper()

	registry := metric.NewMetricsRegistry()
	c := &Cluster{
		Registry: registry,
		Servers:  make(map[catalog.Kind]*service.Server, len(catalog.All())),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dir := t.TempDir()
	backends := make([]gateway.Backend, 0, len(catalog.All()))
	for _, schema := range catalog.All() {
		store, err := sqlstore.Open(filepath.Join(dir, schema.Table+".db"), schema)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		lis := bufconn.Listen(bufSize)
		handler := service.NewCatalogService(
			sqlstore.NewAdapter(store, sqlstore.WithMetrics(registry.CoreMetrics())),
			nil, registry.CoreMetrics())
		srv, err := service.NewServer("bufnet-"+string(schema.Kind), schema, handler,
			service.WithListener(lis), service.WithMetrics(registry))
		require.NoError(t, err)
		require.NoError(t, srv.Start(ctx))
		t.Cleanup(func() { _ = srv.Stop(time.Second) })
		c.Servers[schema.Kind] = srv

		client, err := rpc.NewClient("passthrough:///bufnet-"+string(schema.Kind), schema,
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
			grpc.WithTransportCredentials(insecure.NewCredentials()),
		)
		require.NoError(t, err)
		backends = append(backends, client)
	}

	d, err := gateway.NewDispatcher(backends, gateway.WithMetrics(registry), gateway.WithCallTimeout(2*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	c.Dispatcher = d
	return c
}

// StopService stops one kind's service so calls to it fail as unavailable.
func (c *Cluster) StopService(t *testing.T, kind catalog.Kind) {
	t.Helper()
	srv, ok := c.Servers[kind]
	require.True(t, ok, "no server for %s", kind)
	require.NoError(t, srv.Stop(time.Second))
}
