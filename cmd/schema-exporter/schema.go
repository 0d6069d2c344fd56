package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

// EntitySchema is the JSON Schema of an entity as the REST facade returns it
type EntitySchema struct {
	Schema      string                    `json:"$schema"`
	ID          string                    `json:"$id"`
	Type        string                    `json:"type"`
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Properties  map[string]PropertySchema `json:"properties"`
	Required    []string                  `json:"required"`
	Additional  bool                      `json:"additionalProperties"`
	Metadata    EntityMetadata            `json:"x-entity-metadata"`
}

// EntityMetadata links the schema to its collection and RPC service
type EntityMetadata struct {
	Kind       string `json:"kind"`
	Collection string `json:"collection"`
	Service    string `json:"service"`
	Version    string `json:"version"`
}

// PropertySchema is a JSON Schema property definition
type PropertySchema struct {
	Type        []string `json:"type"`
	Description string   `json:"description,omitempty"`
	Minimum     *int     `json:"minimum,omitempty"`
}

// entitySchema describes the entity of one kind: the integer identity, the
// required fields as strings and the optional fields as nullable strings.
func entitySchema(schema catalog.Schema) EntitySchema {
	one := 1
	properties := map[string]PropertySchema{
		catalog.IDField: {
			Type:        []string{"integer"},
			Description: "Identity assigned by the " + schema.Service,
			Minimum:     &one,
		},
	}
	required := []string{catalog.IDField}

	for _, f := range schema.Fields {
		prop := PropertySchema{Type: []string{"string"}}
		if f.Required {
			required = append(required, f.Name)
		} else {
			prop.Type = append(prop.Type, "null")
			prop.Description = "Null when unset"
		}
		properties[f.Name] = prop
	}

	return EntitySchema{
		Schema:      "http://json-schema.org/draft-07/schema#",
		ID:          fmt.Sprintf("%s.v1.json", schema.Kind),
		Type:        "object",
		Title:       schema.TypeName,
		Description: fmt.Sprintf("A %s in the %s collection", strings.ToLower(schema.TypeName), schema.Collection),
		Properties:  properties,
		Required:    required,
		Additional:  false,
		Metadata: EntityMetadata{
			Kind:       string(schema.Kind),
			Collection: schema.Collection,
			Service:    schema.Service,
			Version:    "v1",
		},
	}
}

// validateSchema compiles doc and checks it against a sample entity of its
// kind, so a malformed schema never reaches the output directory.
func validateSchema(doc EntitySchema, schema catalog.Schema) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for validation: %w", err)
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	sample := map[string]any{catalog.IDField: 1}
	for _, f := range schema.Fields {
		if f.Required {
			sample[f.Name] = "sample"
		} else {
			sample[f.Name] = nil
		}
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(sample))
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", desc.Field(), desc.Description()))
		}
		return fmt.Errorf("sample entity rejected: %s", strings.Join(msgs, "; "))
	}
	return nil
}
