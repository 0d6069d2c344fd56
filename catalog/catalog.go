// Package catalog describes the three entity kinds served by the library API.
//
// A Schema is the single descriptor that the store adapter, the domain service,
// the RPC layer and both facades are parameterized by, so the CRUD machinery is
// written once and instantiated per kind.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

// Kind names an entity kind.
type Kind string

// Entity kinds.
const (
	KindBook        Kind = "book"
	KindMagazine    Kind = "magazine"
	KindAudiovisual Kind = "audiovisual"
)

// IDField is the external name of the identity field.
const IDField = "id"

// Field is one mutable attribute of an entity.
type Field struct {
	Name     string
	Required bool
}

// Schema describes an entity kind.
type Schema struct {
	Kind       Kind
	Collection string // external plural, e.g. "books"
	Table      string
	TypeName   string // GraphQL object type, e.g. "Book"
	IDKey      string // identity key on the RPC wire, e.g. "book_id"
	Service    string // RPC service name, e.g. "book.BookService"
	Fields     []Field
}

// Record is a single entity snapshot. An optional field that is null is
// absent from Fields.
type Record struct {
	ID     int64
	Fields map[string]string
}

var (
	// Book is the schema for books.
	Book = Schema{
		Kind:       KindBook,
		Collection: "books",
		Table:      "books",
		TypeName:   "Book",
		IDKey:      "book_id",
		Service:    "book.BookService",
		Fields: []Field{
			{Name: "title", Required: true},
			{Name: "author", Required: true},
			{Name: "description", Required: true},
			{Name: "language"},
			{Name: "publisher"},
		},
	}

	// Magazine is the schema for magazines.
	Magazine = Schema{
		Kind:       KindMagazine,
		Collection: "magazines",
		Table:      "magazines",
		TypeName:   "Magazine",
		IDKey:      "magazine_id",
		Service:    "magazine.MagazineService",
		Fields: []Field{
			{Name: "title", Required: true},
			{Name: "category", Required: true},
			{Name: "summary", Required: true},
			{Name: "issue"},
			{Name: "publisher"},
			{Name: "language"},
		},
	}

	// Audiovisual is the schema for audiovisual works.
	Audiovisual = Schema{
		Kind:       KindAudiovisual,
		Collection: "audiovisuals",
		Table:      "audiovisuals",
		TypeName:   "Audiovisual",
		IDKey:      "audiovisual_id",
		Service:    "audiovisual.AudiovisualService",
		Fields: []Field{
			{Name: "title", Required: true},
			{Name: "format", Required: true},
			{Name: "content", Required: true},
			{Name: "production"},
			{Name: "language"},
		},
	}
)

// Operation is one of the five CRUD operations every kind supports.
type Operation string

// Operations.
const (
	OpGet    Operation = "get"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations returns every operation in a stable order.
func Operations() []Operation {
	return []Operation{OpGet, OpList, OpCreate, OpUpdate, OpDelete}
}

// MethodName returns the RPC method name for op, e.g. "GetBook" or "GetAllBooks".
func (s Schema) MethodName(op Operation) string {
	switch op {
	case OpGet:
		return "Get" + s.TypeName
	case OpList:
		return "GetAll" + s.TypeName + "s"
	case OpCreate:
		return "Create" + s.TypeName
	case OpUpdate:
		return "Update" + s.TypeName
	case OpDelete:
		return "Delete" + s.TypeName
	default:
		return ""
	}
}

// FullMethod returns the fully qualified RPC method, e.g. "/book.BookService/GetBook".
func (s Schema) FullMethod(op Operation) string {
	return "/" + s.Service + "/" + s.MethodName(op)
}

// All returns the schemas of every kind in a stable order.
func All() []Schema {
	return []Schema{Book, Magazine, Audiovisual}
}

// Lookup returns the schema for kind.
func Lookup(kind Kind) (Schema, error) {
	for _, s := range All() {
		if s.Kind == kind {
			return s, nil
		}
	}
	return Schema{}, fmt.Errorf("%w: %q", errors.ErrUnknownKind, kind)
}

// ParseKind converts a kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	s, err := Lookup(Kind(strings.ToLower(strings.TrimSpace(name))))
	if err != nil {
		return "", err
	}
	return s.Kind, nil
}

// FieldNames returns the mutable field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// HasField reports whether name is a mutable field of the kind.
func (s Schema) HasField(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Validate checks a submitted field set: every required field must be present
// and non-empty, and no field outside the schema may appear.
func (s Schema) Validate(fields map[string]string) error {
	var unknown []string
	for name := range fields {
		if !s.HasField(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", errors.ErrUnknownField, strings.Join(unknown, ", "))
	}

	var missing []string
	for _, f := range s.Fields {
		if f.Required && strings.TrimSpace(fields[f.Name]) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", errors.ErrMissingField, strings.Join(missing, ", "))
	}
	return nil
}

// Project keeps only the schema's fields from fields.
func (s Schema) Project(fields map[string]string) map[string]string {
	out := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		if v, ok := fields[f.Name]; ok {
			out[f.Name] = v
		}
	}
	return out
}
