// Package library is an API gateway over a multimedia library catalog.
//
// Three catalog services each own one entity kind (books, magazines and
// audiovisuals) and its SQLite table, and expose create, get, list, update
// and delete over gRPC. The gateway puts two facades in front of them:
//
//   - REST: /books, /magazines and /audiovisuals collections with
//     /{collection}/{id} members, plus /health
//   - GraphQL: a single endpoint (default /graphql) with one query and three
//     mutations per kind
//
// Both facades share one dispatcher, so identity parsing, required-field
// checks and absence handling behave the same everywhere.
//
// # Architecture
//
//	REST ─┐                     ┌─ book.BookService ──────────── books.db
//	      ├─ gateway.Dispatcher ┼─ magazine.MagazineService ──── magazines.db
//	GQL ──┘                     └─ audiovisual.AudiovisualService ─ audiovisuals.db
//
// # Packages
//
//   - catalog: entity kinds, field sets and RPC method names
//   - rpc: wire codec, messages, service descriptors, client and status mapping
//   - storage, storage/sqlstore: the repository contract and its SQLite adapter
//   - service: the catalog service and its gRPC server lifecycle
//   - gateway: dispatcher, outcome codes, middleware, rate limiting and the
//     HTTP server
//   - gateway/http, gateway/graphql: the two facades
//   - config: layered JSON/YAML configuration with environment overrides
//   - metric, health, errors: ambient infrastructure
//   - pkg/cli, pkg/security, pkg/tlsutil: binary plumbing and TLS
//   - testutil: MockInvoker and an in-process Cluster for end-to-end tests
//
// # Binaries
//
//	cmd/catalog-service  -kind=book|magazine|audiovisual
//	cmd/api-gateway      both facades on one listener
//	cmd/schema-exporter  OpenAPI, JSON Schema and GraphQL SDL contracts
//
// # Error Handling
//
// Every failure carries a class from package errors (invalid, not_found,
// transient, fatal). The facades map classes to public codes and messages;
// internal details such as SQL text or backend addresses are logged but never
// returned to clients.
package library
