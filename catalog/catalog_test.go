package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yasminebenbraiek/multimedia-library-api/errors"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		kind    Kind
		table   string
		idKey   string
		service string
	}{
		{KindBook, "books", "book_id", "book.BookService"},
		{KindMagazine, "magazines", "magazine_id", "magazine.MagazineService"},
		{KindAudiovisual, "audiovisuals", "audiovisual_id", "audiovisual.AudiovisualService"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			s, err := Lookup(tt.kind)
			require.NoError(t, err)
			assert.Equal(t, tt.table, s.Table)
			assert.Equal(t, tt.idKey, s.IDKey)
			assert.Equal(t, tt.service, s.Service)
		})
	}

	_, err := Lookup("newspaper")
	assert.ErrorIs(t, err, errors.ErrUnknownKind)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Magazine ")
	require.NoError(t, err)
	assert.Equal(t, KindMagazine, k)

	_, err = ParseKind("")
	assert.Error(t, err)
}

func TestSchema_FieldNames(t *testing.T) {
	assert.Equal(t, []string{"title", "author", "description", "language", "publisher"}, Book.FieldNames())
	assert.Equal(t, []string{"title", "category", "summary", "issue", "publisher", "language"}, Magazine.FieldNames())
	assert.Equal(t, []string{"title", "format", "content", "production", "language"}, Audiovisual.FieldNames())
}

func TestSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		fields  map[string]string
		wantErr error
	}{
		{
			name:   "required only",
			fields: map[string]string{"title": "Dune", "author": "Herbert", "description": "Sci-fi"},
		},
		{
			name: "with optional",
			fields: map[string]string{
				"title": "Dune", "author": "Herbert", "description": "Sci-fi",
				"language": "en", "publisher": "Chilton",
			},
		},
		{
			name:    "missing author",
			fields:  map[string]string{"title": "Dune", "description": "Sci-fi"},
			wantErr: errors.ErrMissingField,
		},
		{
			name:    "blank title",
			fields:  map[string]string{"title": "  ", "author": "Herbert", "description": "Sci-fi"},
			wantErr: errors.ErrMissingField,
		},
		{
			name:    "unknown field",
			fields:  map[string]string{"title": "Dune", "author": "Herbert", "description": "Sci-fi", "isbn": "x"},
			wantErr: errors.ErrUnknownField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Book.Validate(tt.fields)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestSchema_MethodName(t *testing.T) {
	tests := []struct {
		schema Schema
		op     Operation
		want   string
	}{
		{Book, OpGet, "/book.BookService/GetBook"},
		{Book, OpList, "/book.BookService/GetAllBooks"},
		{Magazine, OpCreate, "/magazine.MagazineService/CreateMagazine"},
		{Magazine, OpUpdate, "/magazine.MagazineService/UpdateMagazine"},
		{Audiovisual, OpDelete, "/audiovisual.AudiovisualService/DeleteAudiovisual"},
		{Audiovisual, OpList, "/audiovisual.AudiovisualService/GetAllAudiovisuals"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schema.FullMethod(tt.op))
		})
	}

	assert.Empty(t, Book.MethodName("archive"))
}

func TestSchema_Project(t *testing.T) {
	got := Audiovisual.Project(map[string]string{"title": "Alien", "format": "DVD", "id": "4", "extra": "x"})
	assert.Equal(t, map[string]string{"title": "Alien", "format": "DVD"}, got)
}
