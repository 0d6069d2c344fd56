package graphql

import (
	_ "embed"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

//go:embed schema.graphql
var schemaSDL string

// Schema is the parsed graph schema served by the facade.
var Schema = gqlparser.MustLoadSchema(&ast.Source{
	Name:    "schema.graphql",
	Input:   schemaSDL,
	BuiltIn: false,
})

// rootField binds a Query or Mutation field to one dispatch call.
type rootField struct {
	schema catalog.Schema
	op     catalog.Operation
}

// rootFields maps each root field name to its kind and operation, e.g.
// "book" to get, "books" to list and "deleteBook" to delete.
var rootFields = buildRootFields()

func buildRootFields() map[string]rootField {
	fields := make(map[string]rootField, len(catalog.All())*len(catalog.Operations()))
	for _, s := range catalog.All() {
		fields[lowerFirst(s.TypeName)] = rootField{schema: s, op: catalog.OpGet}
		fields[s.Collection] = rootField{schema: s, op: catalog.OpList}
		fields["create"+s.TypeName] = rootField{schema: s, op: catalog.OpCreate}
		fields["update"+s.TypeName] = rootField{schema: s, op: catalog.OpUpdate}
		fields["delete"+s.TypeName] = rootField{schema: s, op: catalog.OpDelete}
	}
	return fields
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// SDL returns the schema definition served by the facade
func SDL() string {
	return schemaSDL
}
