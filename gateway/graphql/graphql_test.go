package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/yasminebenbraiek/multimedia-library-api/errors"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/metric"
	libtestutil "github.com/yasminebenbraiek/multimedia-library-api/testutil"
)

type gqlResponse struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func newTestHandler(t *testing.T, inv gateway.Invoker, mutate func(*gateway.Config), opts ...Option) http.Handler {
	t.Helper()
	cfg := gateway.DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := NewGateway(inv, cfg, opts...)
	require.NoError(t, err)
	return g.Handler()
}

func post(t *testing.T, h http.Handler, query string, vars map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(Request{Query: query, Variables: vars})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) gqlResponse {
	t.Helper()
	var out gqlResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGraphQL_DuneScenario(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)

	rec := post(t, h, `mutation {
		createBook(title: "Dune", author: "Herbert", description: "Spice") { id title language }
	}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"createBook":{"id":1,"title":"Dune","language":null}}}`, rec.Body.String())

	rec = post(t, h, `{ book(id: 1) { id title author description } }`, nil)
	assert.JSONEq(t, `{"data":{"book":{"id":1,"title":"Dune","author":"Herbert","description":"Spice"}}}`, rec.Body.String())

	rec = post(t, h, `mutation {
		updateBook(id: 1, title: "Dune Messiah", author: "Herbert", description: "Sequel", language: "en") { id title language }
	}`, nil)
	assert.JSONEq(t, `{"data":{"updateBook":{"id":1,"title":"Dune Messiah","language":"en"}}}`, rec.Body.String())

	rec = post(t, h, `{ books { id title } }`, nil)
	assert.JSONEq(t, `{"data":{"books":[{"id":1,"title":"Dune Messiah"}]}}`, rec.Body.String())

	rec = post(t, h, `mutation { deleteBook(id: 1) { success } }`, nil)
	assert.JSONEq(t, `{"data":{"deleteBook":{"success":true}}}`, rec.Body.String())

	rec = post(t, h, `{ book(id: 1) { id } }`, nil)
	assert.JSONEq(t, `{"data":{"book":null}}`, rec.Body.String())

	rec = post(t, h, `mutation { deleteBook(id: 1) { success } }`, nil)
	resp := decode(t, rec)
	assert.JSONEq(t, `{"success":false}`, string(resp.Data["deleteBook"]))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
}

func TestGraphQL_AbsenceConventions(t *testing.T) {
	tests := []struct {
		typeName string
		get      string
		update   string
	}{
		{"Book", "book", `updateBook(id: 999, title: "t", author: "a", description: "d")`},
		{"Magazine", "magazine", `updateMagazine(id: 999, title: "t", category: "c", summary: "s")`},
		{"Audiovisual", "audiovisual", `updateAudiovisual(id: 999, title: "t", format: "f", content: "c")`},
	}

	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			inv := libtestutil.NewMockInvoker()
			h := newTestHandler(t, inv, nil)

			rec := post(t, h, fmt.Sprintf(`{ %s(id: 999) { id } }`, tt.get), nil)
			assert.JSONEq(t, fmt.Sprintf(`{"data":{"%s":null}}`, tt.get), rec.Body.String())

			resp := decode(t, post(t, h, fmt.Sprintf(`mutation { %s { id } }`, tt.update), nil))
			assert.Equal(t, "null", string(resp.Data["update"+tt.typeName]))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])
			assert.Equal(t, "resource not found", resp.Errors[0].Message)
			assert.Equal(t, []any{"update" + tt.typeName}, resp.Errors[0].Path)

			resp = decode(t, post(t, h, fmt.Sprintf(`mutation { delete%s(id: 999) { success } }`, tt.typeName), nil))
			assert.JSONEq(t, `{"success":false}`, string(resp.Data["delete"+tt.typeName]))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, "NOT_FOUND", resp.Errors[0].Extensions["code"])

			// Update of a missing identity must not create a row.
			rec = post(t, h, fmt.Sprintf(`{ %ss { id } }`, tt.get), nil)
			assert.JSONEq(t, fmt.Sprintf(`{"data":{"%ss":[]}}`, tt.get), rec.Body.String())
		})
	}
}

func TestGraphQL_Variables(t *testing.T) {
	inv := libtestutil.NewMockInvoker()
	h := newTestHandler(t, inv, nil)

	rec := post(t, h, `mutation Add($title: String!, $category: String!, $summary: String!, $issue: String) {
		createMagazine(title: $title, category: $category, summary: $summary, issue: $issue) { id issue }
	}`, map[string]any{"title": "Wired", "category": "Tech", "summary": "Monthly", "issue": nil})
	assert.JSONEq(t, `{"data":{"createMagazine":{"id":1,"issue":null}}}`, rec.Body.String())
	assert.NotContains(t, inv.LastPayload(), "issue")

	rec = post(t, h, `query Get($id: Int!) { magazine(id: $id) { title } }`, map[string]any{"id": 1})
	assert.JSONEq(t, `{"data":{"magazine":{"title":"Wired"}}}`, rec.Body.String())
	assert.Equal(t, "1", inv.LastPayload()["id"])
}

func TestGraphQL_SelectionFeatures(t *testing.T) {
	inv := libtestutil.NewMockInvoker()
	h := newTestHandler(t, inv, nil)

	post(t, h, `mutation { createAudiovisual(title: "Alien", format: "DVD", content: "Film") { id } }`, nil)

	rec := post(t, h, `
		query Shelf($withFormat: Boolean!) {
			__typename
			first: audiovisual(id: 1) { ...core format @include(if: $withFormat) }
			again: audiovisual(id: 1) { ... on Audiovisual { kind: __typename } content @skip(if: true) }
		}
		fragment core on Audiovisual { id title }
	`, map[string]any{"withFormat": true})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		`{"data":{"__typename":"Query","first":{"id":1,"title":"Alien","format":"DVD"},"again":{"kind":"Audiovisual"}}}`,
		rec.Body.String())
}

func TestGraphQL_MutationsRunInOrder(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)

	rec := post(t, h, `mutation {
		a: createBook(title: "A", author: "x", description: "d") { id }
		b: createBook(title: "B", author: "y", description: "d") { id }
		gone: deleteBook(id: 1) { success }
	}`, nil)
	assert.Equal(t, `{"data":{"a":{"id":1},"b":{"id":2},"gone":{"success":true}}}`, rec.Body.String())
}

func TestGraphQL_FaultsSanitized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"fatal", pkgerrors.WrapFatal(fmt.Errorf("%w: SQLITE_CORRUPT at /var/lib/books.db", pkgerrors.ErrInternal), "rpc", "GetBook", "call"), "INTERNAL_ERROR"},
		{"unavailable", pkgerrors.WrapTransient(fmt.Errorf("%w: dial tcp 10.0.0.4:50051", pkgerrors.ErrUnavailable), "rpc", "GetBook", "call"), "SERVICE_UNAVAILABLE"},
		{"timeout", pkgerrors.WrapTransient(context.DeadlineExceeded, "rpc", "GetBook", "call"), "TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := libtestutil.NewMockInvoker()
			inv.SetFault(tt.err)
			h := newTestHandler(t, inv, nil)

			rec := post(t, h, `{ book(id: 1) { id } }`, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode(t, rec)
			assert.Equal(t, "null", string(resp.Data["book"]))
			require.Len(t, resp.Errors, 1)
			assert.Equal(t, tt.code, resp.Errors[0].Extensions["code"])
			assert.Equal(t, "book", resp.Errors[0].Extensions["operation"])

			body := rec.Body.String()
			for _, leak := range []string{"SQLITE", "/var/lib", "10.0.0.4", "50051", "GetBook"} {
				assert.NotContains(t, body, leak)
			}
		})
	}
}

func TestGraphQL_NonNullFailureNullsData(t *testing.T) {
	inv := libtestutil.NewMockInvoker()
	inv.SetFault(pkgerrors.WrapFatal(pkgerrors.ErrInternal, "rpc", "GetAllBooks", "call"))
	h := newTestHandler(t, inv, nil)

	rec := post(t, h, `{ books { id } }`, nil)
	assert.Contains(t, rec.Body.String(), `"data":null`)
	resp := decode(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "internal server error", resp.Errors[0].Message)
	assert.Equal(t, []any{"books"}, resp.Errors[0].Path)
	assert.Equal(t, "INTERNAL_ERROR", resp.Errors[0].Extensions["code"])
}

func TestGraphQL_InvalidInput(t *testing.T) {
	inv := libtestutil.NewMockInvoker()
	h := newTestHandler(t, inv, nil)

	resp := decode(t, post(t, h, `mutation { createBook(title: "", author: "a", description: "d") { id } }`, nil))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "INVALID_INPUT", resp.Errors[0].Extensions["code"])
	assert.Equal(t, "invalid request: missing required field", resp.Errors[0].Message)
}

func TestGraphQL_NonPositiveIdentity(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)

	for _, query := range []string{
		`{ book(id: -3) { id } }`,
		`mutation { deleteMagazine(id: 0) { success } }`,
	} {
		resp := decode(t, post(t, h, query, nil))
		require.Len(t, resp.Errors, 1, query)
		assert.Equal(t, "INVALID_INPUT", resp.Errors[0].Extensions["code"], query)
	}
}

func TestGraphQL_DocumentErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		code  string
	}{
		{"syntax", `{ book(id: 1) { id }`, CodeParseFailed},
		{"unknown field", `{ book(id: 1) { isbn } }`, CodeValidationFailed},
		{"missing argument", `{ book { id } }`, CodeValidationFailed},
		{"wrong argument type", `{ book(id: "one") { id } }`, CodeValidationFailed},
		{"introspection", `{ __schema { queryType { name } } }`, CodeValidationFailed},
	}

	inv := libtestutil.NewMockInvoker()
	h := newTestHandler(t, inv, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, tt.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			resp := decode(t, rec)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tt.code, resp.Errors[0].Extensions["code"])
		})
	}
	assert.Zero(t, inv.Calls())
}

func TestGraphQL_VariableErrors(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)

	rec := post(t, h, `query Get($id: Int!) { book(id: $id) { id } }`, nil)
	resp := decode(t, rec)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeValidationFailed, resp.Errors[0].Extensions["code"])
	assert.NotContains(t, rec.Body.String(), `"data"`)
}

func TestGraphQL_DepthLimit(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), func(c *gateway.Config) { c.GraphQLMaxDepth = 1 })

	resp := decode(t, post(t, h, `{ books { id } }`, nil))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, CodeValidationFailed, resp.Errors[0].Extensions["code"])
	assert.Contains(t, resp.Errors[0].Message, "depth")

	rec := post(t, h, `{ __typename }`, nil)
	assert.JSONEq(t, `{"data":{"__typename":"Query"}}`, rec.Body.String())
}

func TestGraphQL_GET(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)

	get := func(query, vars string) *httptest.ResponseRecorder {
		params := url.Values{"query": {query}}
		if vars != "" {
			params.Set("variables", vars)
		}
		req := httptest.NewRequest(http.MethodGet, "/graphql?"+params.Encode(), nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := get(`query Get($id: Int!) { book(id: $id) { id } }`, `{"id": 7}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"book":null}}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = get(`mutation { deleteBook(id: 1) { success } }`, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGraphQL_RequestLimits(t *testing.T) {
	t.Run("body too large", func(t *testing.T) {
		h := newTestHandler(t, libtestutil.NewMockInvoker(), func(c *gateway.Config) { c.MaxRequestSize = 64 })
		rec := post(t, h, `{ books { id title author description language publisher } }`, nil)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		resp := decode(t, rec)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "REQUEST_TOO_LARGE", resp.Errors[0].Extensions["code"])
	})

	t.Run("malformed body", func(t *testing.T) {
		h := newTestHandler(t, libtestutil.NewMockInvoker(), nil)
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":`))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", decode(t, rec).Errors[0].Extensions["code"])
	})

	t.Run("trailing data", func(t *testing.T) {
		inv := libtestutil.NewMockInvoker()
		h := newTestHandler(t, inv, nil)
		body := `{"query":"mutation { createBook(title: \"a\", author: \"b\", description: \"c\") { id } }"} trailing`
		req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_INPUT", decode(t, rec).Errors[0].Extensions["code"])
		assert.Zero(t, inv.Calls())
	})

	t.Run("rate limited", func(t *testing.T) {
		limiter, err := gateway.NewRateLimiter(gateway.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}, nil)
		require.NoError(t, err)
		h := newTestHandler(t, libtestutil.NewMockInvoker(), nil, WithRateLimiter(limiter))

		assert.Equal(t, http.StatusOK, post(t, h, `{ books { id } }`, nil).Code)
		rec := post(t, h, `{ books { id } }`, nil)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "RATE_LIMITED", decode(t, rec).Errors[0].Extensions["code"])
	})
}

func TestGraphQL_CORSPreflight(t *testing.T) {
	h := newTestHandler(t, libtestutil.NewMockInvoker(), func(c *gateway.Config) {
		c.EnableCORS = true
		c.CORSOrigins = []string{"https://library.example"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	req.Header.Set("Origin", "https://library.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://library.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestGraphQL_Metrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	h := newTestHandler(t, libtestutil.NewMockInvoker(), nil, WithMetrics(registry))

	post(t, h, `{ book(id: 1) { id } books { id } }`, nil)

	requests := registry.CoreMetrics().GatewayRequests
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("graphql", "book", "get", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(requests.WithLabelValues("graphql", "book", "list", "ok")))
}

func TestNewGateway_RequiresInvoker(t *testing.T) {
	_, err := NewGateway(nil, gateway.DefaultConfig())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsFatal(err))
}
