// Package main exports the public contracts of the library API: a JSON
// Schema per entity kind, the OpenAPI document of the REST facade and the
// GraphQL schema of the graph facade.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway/graphql"
)

func main() {
	outDir := flag.String("out", "./schemas", "Output directory for entity schemas")
	openapiOut := flag.String("openapi", "./specs/openapi.v3.yaml", "Output path for the OpenAPI document")
	graphqlOut := flag.String("graphql", "./specs/schema.graphql", "Output path for the GraphQL schema")
	serverURL := flag.String("server", "http://localhost:4000", "Server URL advertised in the OpenAPI document")
	flag.Parse()

	log.Printf("Schema Exporter")
	log.Printf("  Output dir: %s", *outDir)
	log.Printf("  OpenAPI spec: %s", *openapiOut)
	log.Printf("  GraphQL schema: %s", *graphqlOut)

	if err := export(*outDir, *openapiOut, *graphqlOut, *serverURL); err != nil {
		log.Fatalf("Schema export failed: %v", err)
	}
	log.Printf("Schema generation complete")
}

// export writes every contract. Empty output paths are skipped.
func export(outDir, openapiOut, graphqlOut, serverURL string) error {
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		for _, schema := range catalog.All() {
			doc := entitySchema(schema)
			if err := validateSchema(doc, schema); err != nil {
				return fmt.Errorf("schema for %s: %w", schema.Kind, err)
			}

			outFile := filepath.Join(outDir, doc.ID)
			if err := writeJSONFile(outFile, doc); err != nil {
				return fmt.Errorf("write schema for %s: %w", schema.Kind, err)
			}
			log.Printf("  Generated: %s", outFile)
		}
	}

	if openapiOut != "" {
		if err := os.MkdirAll(filepath.Dir(openapiOut), 0755); err != nil {
			return fmt.Errorf("create OpenAPI directory: %w", err)
		}
		if err := writeYAMLFile(openapiOut, generateOpenAPISpec(catalog.All(), serverURL)); err != nil {
			return fmt.Errorf("write OpenAPI spec: %w", err)
		}
		log.Printf("  Generated OpenAPI spec: %s", openapiOut)
	}

	if graphqlOut != "" {
		if err := os.MkdirAll(filepath.Dir(graphqlOut), 0755); err != nil {
			return fmt.Errorf("create GraphQL directory: %w", err)
		}
		if err := os.WriteFile(graphqlOut, []byte(graphql.SDL()), 0644); err != nil {
			return fmt.Errorf("write GraphQL schema: %w", err)
		}
		log.Printf("  Generated GraphQL schema: %s", graphqlOut)
	}
	return nil
}

func writeJSONFile(filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func writeYAMLFile(filename string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
