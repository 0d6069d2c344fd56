package main

import (
	"fmt"
	"strings"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
)

// OpenAPIDocument represents the complete OpenAPI 3.0 specification
type OpenAPIDocument struct {
	OpenAPI    string              `yaml:"openapi"`
	Info       InfoObject          `yaml:"info"`
	Servers    []ServerObject      `yaml:"servers"`
	Paths      map[string]PathItem `yaml:"paths"`
	Components ComponentsObject    `yaml:"components"`
	Tags       []TagObject         `yaml:"tags"`
}

// InfoObject contains API metadata
type InfoObject struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// ServerObject defines an API server
type ServerObject struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// ComponentsObject holds reusable objects
type ComponentsObject struct {
	Schemas map[string]any `yaml:"schemas"`
}

// TagObject defines an API tag
type TagObject struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// PathItem describes operations available on a path
type PathItem struct {
	Get    *Operation `yaml:"get,omitempty"`
	Post   *Operation `yaml:"post,omitempty"`
	Put    *Operation `yaml:"put,omitempty"`
	Delete *Operation `yaml:"delete,omitempty"`
}

// Operation describes a single API operation
type Operation struct {
	Summary     string              `yaml:"summary"`
	OperationID string              `yaml:"operationId,omitempty"`
	Tags        []string            `yaml:"tags,omitempty"`
	Parameters  []Parameter         `yaml:"parameters,omitempty"`
	RequestBody *RequestBody        `yaml:"requestBody,omitempty"`
	Responses   map[string]Response `yaml:"responses"`
}

// Parameter describes an operation parameter
type Parameter struct {
	Name        string    `yaml:"name"`
	In          string    `yaml:"in"` // "query", "path", "header"
	Required    bool      `yaml:"required,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Schema      SchemaRef `yaml:"schema"`
}

// RequestBody describes an operation's body
type RequestBody struct {
	Required bool                 `yaml:"required"`
	Content  map[string]MediaType `yaml:"content"`
}

// Response describes an operation response
type Response struct {
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content,omitempty"`
}

// MediaType describes a media type and schema
type MediaType struct {
	Schema SchemaRef `yaml:"schema"`
}

// SchemaRef references a schema
type SchemaRef struct {
	Ref   string     `yaml:"$ref,omitempty"`
	Type  string     `yaml:"type,omitempty"`
	Items *SchemaRef `yaml:"items,omitempty"`
}

// generateOpenAPISpec describes the REST facade: one collection per kind
// plus the health endpoint.
func generateOpenAPISpec(schemas []catalog.Schema, serverURL string) OpenAPIDocument {
	doc := OpenAPIDocument{
		OpenAPI: "3.0.3",
		Info: InfoObject{
			Title:       "Library API",
			Description: "REST facade over the book, magazine and audiovisual catalog services",
			Version:     "1.0.0",
		},
		Servers: []ServerObject{
			{URL: serverURL, Description: "API gateway"},
		},
		Paths: map[string]PathItem{
			"/health": {
				Get: &Operation{
					Summary:     "Aggregated backend health",
					OperationID: "getHealth",
					Tags:        []string{"Health"},
					Responses: map[string]Response{
						"200": {Description: "Every catalog service is serving"},
						"503": {Description: "At least one catalog service is unhealthy"},
					},
				},
			},
		},
		Components: ComponentsObject{
			Schemas: map[string]any{
				"Error": map[string]any{
					"type":     "object",
					"required": []string{"error", "code", "status"},
					"properties": map[string]any{
						"error":  map[string]any{"type": "string"},
						"code":   map[string]any{"type": "string"},
						"status": map[string]any{"type": "integer"},
					},
				},
			},
		},
		Tags: []TagObject{
			{Name: "Health", Description: "Gateway and backend health"},
		},
	}

	for _, schema := range schemas {
		tag := schema.TypeName
		doc.Tags = append(doc.Tags, TagObject{
			Name:        tag,
			Description: fmt.Sprintf("%s collection served by %s", schema.TypeName, schema.Service),
		})
		doc.Components.Schemas[schema.TypeName] = componentSchema(schema, true)
		doc.Components.Schemas[schema.TypeName+"Input"] = componentSchema(schema, false)

		entity := jsonContent(SchemaRef{Ref: "#/components/schemas/" + schema.TypeName})
		input := &RequestBody{
			Required: true,
			Content:  jsonContent(SchemaRef{Ref: "#/components/schemas/" + schema.TypeName + "Input"}),
		}
		idParam := []Parameter{{
			Name:        "id",
			In:          "path",
			Required:    true,
			Description: schema.TypeName + " identity",
			Schema:      SchemaRef{Type: "integer"},
		}}

		doc.Paths["/"+schema.Collection] = PathItem{
			Get: &Operation{
				Summary:     "List " + schema.Collection,
				OperationID: schema.MethodName(catalog.OpList),
				Tags:        []string{tag},
				Responses: withErrors(map[string]Response{
					"200": {
						Description: "Every " + strings.ToLower(schema.TypeName) + " in identity order",
						Content:     jsonContent(SchemaRef{Type: "array", Items: &SchemaRef{Ref: "#/components/schemas/" + schema.TypeName}}),
					},
				}),
			},
			Post: &Operation{
				Summary:     "Create a " + strings.ToLower(schema.TypeName),
				OperationID: schema.MethodName(catalog.OpCreate),
				Tags:        []string{tag},
				RequestBody: input,
				Responses: withErrors(map[string]Response{
					"200": {Description: "The created entity with its new identity", Content: entity},
					"400": {Description: "Missing required or unknown field", Content: errorContent()},
					"413": {Description: "Request body too large", Content: errorContent()},
				}),
			},
		}

		doc.Paths["/"+schema.Collection+"/{id}"] = PathItem{
			Get: &Operation{
				Summary:     "Get a " + strings.ToLower(schema.TypeName),
				OperationID: schema.MethodName(catalog.OpGet),
				Tags:        []string{tag},
				Parameters:  idParam,
				Responses: withErrors(map[string]Response{
					"200": {Description: "The entity", Content: entity},
					"404": {Description: "No entity with this identity", Content: errorContent()},
				}),
			},
			Put: &Operation{
				Summary:     "Replace a " + strings.ToLower(schema.TypeName),
				OperationID: schema.MethodName(catalog.OpUpdate),
				Tags:        []string{tag},
				Parameters:  idParam,
				RequestBody: input,
				Responses: withErrors(map[string]Response{
					"200": {Description: "The entity after the update", Content: entity},
					"400": {Description: "Missing required or unknown field", Content: errorContent()},
					"404": {Description: "No entity with this identity", Content: errorContent()},
					"413": {Description: "Request body too large", Content: errorContent()},
				}),
			},
			Delete: &Operation{
				Summary:     "Delete a " + strings.ToLower(schema.TypeName),
				OperationID: schema.MethodName(catalog.OpDelete),
				Tags:        []string{tag},
				Parameters:  idParam,
				Responses: withErrors(map[string]Response{
					"204": {Description: "Deleted"},
					"404": {Description: "No entity with this identity", Content: errorContent()},
				}),
			},
		}
	}
	return doc
}

// componentSchema is the OpenAPI object for an entity, or for its input body
// when withID is false.
func componentSchema(schema catalog.Schema, withID bool) map[string]any {
	properties := map[string]any{}
	var required []string
	if withID {
		properties[catalog.IDField] = map[string]any{"type": "integer", "minimum": 1}
		required = append(required, catalog.IDField)
	}
	for _, f := range schema.Fields {
		prop := map[string]any{"type": "string"}
		if f.Required {
			required = append(required, f.Name)
		} else {
			prop["nullable"] = true
		}
		properties[f.Name] = prop
	}
	return map[string]any{
		"type":                 "object",
		"required":             required,
		"properties":           properties,
		"additionalProperties": false,
	}
}

// withErrors adds the failures every operation can produce
func withErrors(responses map[string]Response) map[string]Response {
	common := map[string]string{
		"400": "Invalid identity or request",
		"429": "Rate limit exceeded",
		"500": "Internal server error",
		"503": "Catalog service unavailable",
		"504": "Catalog service timed out",
	}
	for code, desc := range common {
		if _, ok := responses[code]; !ok {
			responses[code] = Response{Description: desc, Content: errorContent()}
		}
	}
	return responses
}

func jsonContent(ref SchemaRef) map[string]MediaType {
	return map[string]MediaType{"application/json": {Schema: ref}}
}

func errorContent() map[string]MediaType {
	return jsonContent(SchemaRef{Ref: "#/components/schemas/Error"})
}
