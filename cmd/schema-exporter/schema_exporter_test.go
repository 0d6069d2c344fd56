package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

func TestExport(t *testing.T) {
	dir := t.TempDir()
	schemasDir := filepath.Join(dir, "schemas")
	openapiPath := filepath.Join(dir, "specs", "openapi.v3.yaml")
	graphqlPath := filepath.Join(dir, "specs", "schema.graphql")

	require.NoError(t, export(schemasDir, openapiPath, graphqlPath, "http://localhost:4000"))

	for _, schema := range catalog.All() {
		assert.FileExists(t, filepath.Join(schemasDir, string(schema.Kind)+".v1.json"))
	}

	sdl, err := os.ReadFile(graphqlPath)
	require.NoError(t, err)
	assert.Contains(t, string(sdl), "type Audiovisual")

	data, err := os.ReadFile(openapiPath)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])

	paths := doc["paths"].(map[string]any)
	for _, p := range []string{"/health", "/books", "/books/{id}", "/magazines", "/magazines/{id}", "/audiovisuals", "/audiovisuals/{id}"} {
		assert.Contains(t, paths, p)
	}

	books := paths["/books/{id}"].(map[string]any)
	del := books["delete"].(map[string]any)
	assert.Equal(t, "DeleteBook", del["operationId"])
	assert.Contains(t, del["responses"], "204")
	assert.Contains(t, del["responses"], "404")
}

// TestExportedSchemasMatchCatalog reads the written schemas back and compares
// them with what the catalog currently describes.
func TestExportedSchemasMatchCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, export(dir, filepath.Join(dir, "openapi.yaml"), filepath.Join(dir, "schema.graphql"), "http://localhost:4000"))

	for _, schema := range catalog.All() {
		t.Run(string(schema.Kind), func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join(dir, string(schema.Kind)+".v1.json"))
			require.NoError(t, err)

			var committed EntitySchema
			require.NoError(t, json.Unmarshal(data, &committed))
			if diff := cmp.Diff(committed, entitySchema(schema)); diff != "" {
				t.Errorf("schema mismatch for %s (-exported +catalog):\n%s", schema.Kind, diff)
			}
		})
	}
}

func TestEntitySchema(t *testing.T) {
	doc := entitySchema(catalog.Magazine)
	assert.Equal(t, "magazine.v1.json", doc.ID)
	assert.Equal(t, []string{"id", "title", "category", "summary"}, doc.Required)
	assert.Equal(t, []string{"string", "null"}, doc.Properties["issue"].Type)
	assert.Equal(t, "magazine.MagazineService", doc.Metadata.Service)

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	require.NoError(t, err)

	tests := []struct {
		name  string
		doc   map[string]any
		valid bool
	}{
		{"complete", map[string]any{"id": 3, "title": "Wired", "category": "Tech", "summary": "Monthly", "issue": "42"}, true},
		{"null optional", map[string]any{"id": 3, "title": "Wired", "category": "Tech", "summary": "Monthly", "issue": nil}, true},
		{"missing required", map[string]any{"id": 3, "title": "Wired", "summary": "Monthly"}, false},
		{"unknown field", map[string]any{"id": 3, "title": "Wired", "category": "Tech", "summary": "Monthly", "isbn": "x"}, false},
		{"zero identity", map[string]any{"id": 0, "title": "Wired", "category": "Tech", "summary": "Monthly"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := compiled.Validate(gojsonschema.NewGoLoader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid(), result.Errors())
		})
	}
}

func TestValidateSchema_AllKinds(t *testing.T) {
	for _, schema := range catalog.All() {
		assert.NoError(t, validateSchema(entitySchema(schema), schema), schema.Kind)
	}
}
