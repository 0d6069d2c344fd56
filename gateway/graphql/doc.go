// Package graphql provides the GraphQL facade of the library API.
//
// The facade serves one endpoint (default "/graphql") over the same dispatcher
// as the REST facade. Documents are parsed and validated against an embedded
// schema with gqlparser, and the validated selection set is executed directly:
// every root field is one dispatch call, and entity fields are projected from
// the returned record.
//
// # Schema
//
//	type Query {
//	  book(id: Int!): Book
//	  books: [Book!]!
//	  magazine(id: Int!): Magazine
//	  magazines: [Magazine!]!
//	  audiovisual(id: Int!): Audiovisual
//	  audiovisuals: [Audiovisual!]!
//	}
//
// Mutations are createX, updateX and deleteX for each of Book, Magazine and
// Audiovisual. Deletes return DeleteResponse { success: Boolean! }.
//
// # Requests
//
// POST a JSON body {"query", "variables", "operationName"}, or GET with the
// same names as query parameters. Mutations are rejected over GET. Aliases,
// named and inline fragments, @skip, @include and __typename are supported;
// introspection is not.
//
// # Absence and errors
//
// Absence is never a fault:
//
//	book(id: 999)         -> null, no error
//	updateBook(id: 999)   -> null, error with code NOT_FOUND
//	deleteBook(id: 999)   -> {success: false}, error with code NOT_FOUND
//
// Each error carries extensions.code with the code shared with the REST
// facade (INVALID_INPUT, SERVICE_UNAVAILABLE, TIMEOUT, INTERNAL_ERROR, ...).
// Messages are public text only; backend detail is logged with the request ID
// and never serialized. Documents that fail to parse or validate are reported
// with GRAPHQL_PARSE_FAILED or GRAPHQL_VALIDATION_FAILED and no data.
//
// # Example
//
//	mutation {
//	  createBook(title: "Dune", author: "Herbert", description: "Spice") {
//	    id
//	    title
//	  }
//	}
package graphql
