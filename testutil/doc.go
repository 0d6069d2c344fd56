// Package testutil provides test doubles and fixtures for the library API.
//
// MockInvoker is an in-memory gateway.Invoker for facade tests. It follows
// the Dispatcher contract (per-kind identities starting at 1, absence as a
// not-found error, schema validation on create and update) and can inject a
// fault into every call.
//
// Cluster runs the three catalog services in-process over bufconn, each on a
// SQLite file under t.TempDir, with a Dispatcher connected to them. It is the
// fixture for end-to-end tests that cross the gRPC boundary without opening
// network ports:
//
//	c := testutil.NewCluster(t)
//	res, err := c.Dispatcher.Invoke(ctx, catalog.KindBook, catalog.OpList, nil)
//
// StopService takes one kind offline to exercise unavailability.
package testutil
