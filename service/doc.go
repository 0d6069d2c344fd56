// Package service runs the catalog services: one gRPC server per entity kind,
// each backed by its own Repository.
//
// # Components
//
// CatalogService adapts a storage.Repository to rpc.Handler. It translates the
// five operations onto the store and converts failures into gRPC statuses:
// absence becomes NotFound, a malformed identity becomes InvalidArgument, and
// every store fault becomes an opaque Internal status. Fault details are logged
// here and never leave the process.
//
// Server owns the gRPC server lifecycle:
//
//	Stopped → Starting → Running → Stopping → Stopped
//
// It registers the kind's service descriptor next to the standard gRPC health
// service, which reports SERVING only while the server is Running. Every
// handled call is recorded through a unary interceptor.
//
// # Usage
//
//	store, err := sqlstore.Open("books.db", catalog.Book)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	handler := service.NewCatalogService(sqlstore.NewAdapter(store), logger, metrics.CoreMetrics())
//	srv, err := service.NewServer(":50051", catalog.Book, handler,
//	    service.WithLogger(logger),
//	    service.WithMetrics(metrics),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := srv.Start(ctx); err != nil {
//	    return err
//	}
//	defer srv.Stop(5 * time.Second)
//
// Canceling the context passed to Start stops the server as well.
package service
