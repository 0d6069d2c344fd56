// Package gateway provides the dispatch core shared by the library API's
// facades.
//
// External clients reach the three catalog services through two facades: a
// REST facade (gateway/http) and a GraphQL facade (gateway/graphql). Both
// translate their request shapes into the same Dispatcher call, so the two
// surfaces cannot disagree about an outcome.
//
// # Architecture
//
//	┌───────────────────────────┐
//	│  REST / GraphQL client    │  GET /books/1, { book(id: 1) { title } }
//	└────────────┬──────────────┘
//	             ↓
//	┌───────────────────────────┐
//	│  Facade (http | graphql)  │
//	└────────────┬──────────────┘
//	             ↓ Dispatcher.Invoke(kind, op, payload)
//	┌───────────────────────────┐
//	│  Dispatcher               │  one gRPC connection per kind
//	└────────────┬──────────────┘
//	             ↓ book.BookService/GetBook
//	┌───────────────────────────┐
//	│  Catalog service (SQLite) │
//	└───────────────────────────┘
//
// # Identity Translation
//
// Facades speak external keys ("id", "title", ...). The Dispatcher rewrites
// "id" to the service's identity key ("book_id", "magazine_id",
// "audiovisual_id") on the way out and back on the way in.
//
// # Outcomes
//
// Invoke returns classified errors (see the errors package):
//
//   - not-found: the entity does not exist, including update or delete
//     affecting no rows
//   - invalid: malformed identity, missing required field, unknown field
//   - transient: backend unreachable or the call deadline expired
//   - fatal: the backend reported an internal fault
//
// Every call runs under Config.CallTimeout derived from the caller's context,
// so a disconnected client cancels its in-flight call. Nothing is retried.
//
// # Example Configuration
//
//	{
//	  "gateway": {
//	    "listen_addr": ":4000",
//	    "graphql_path": "/graphql",
//	    "call_timeout": "5s",
//	    "enable_cors": true,
//	    "cors_origins": ["https://library.example.com"],
//	    "rate_limit": {"enabled": true, "requests_per_second": 50, "burst": 100},
//	    "backends": {
//	      "book":        {"address": "localhost:50051"},
//	      "magazine":    {"address": "localhost:50052"},
//	      "audiovisual": {"address": "localhost:50053"}
//	    }
//	  }
//	}
//
// # Security
//
// Backend links support TLS and mTLS (pkg/tlsutil). Facades support CORS,
// request size limits and token-bucket rate limiting. Fault details are
// logged by the gateway and never serialized to clients.
package gateway
