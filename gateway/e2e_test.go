package gateway_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/yasminebenbraiek/multimedia-library-api/catalog"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway"
	"github.com/yasminebenbraiek/multimedia-library-api/gateway/graphql"
	resthttp "github.com/yasminebenbraiek/multimedia-library-api/gateway/http"
	libtestutil "github.com/yasminebenbraiek/multimedia-library-api/testutil"
)

// EndToEndSuite drives both facades against real catalog services backed by
// SQLite.
type EndToEndSuite struct {
	suite.Suite
	cluster *libtestutil.Cluster
	server  *httptest.Server
}

func (s *EndToEndSuite) SetupTest() {
	s.cluster = libtestutil.NewCluster(s.T())

	cfg := gateway.DefaultConfig()
	rest, err := resthttp.NewGateway(s.cluster.Dispatcher, cfg,
		resthttp.WithMetrics(s.cluster.Registry),
		resthttp.WithHealth(s.cluster.Dispatcher.Health))
	s.Require().NoError(err)
	gql, err := graphql.NewGateway(s.cluster.Dispatcher, cfg, graphql.WithMetrics(s.cluster.Registry))
	s.Require().NoError(err)

	srv, err := gateway.NewServer(cfg, []gateway.Mount{
		{Prefix: "/", Handler: rest},
		{Prefix: cfg.GraphQLPath, Handler: gql},
	}, nil)
	s.Require().NoError(err)

	s.server = httptest.NewServer(srv.Handler())
	s.T().Cleanup(s.server.Close)
}

func (s *EndToEndSuite) rest(method, path, body string) (int, []byte) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reader)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, data
}

func (s *EndToEndSuite) graphql(query string, vars map[string]any) map[string]any {
	payload, err := json.Marshal(map[string]any{"query": query, "variables": vars})
	s.Require().NoError(err)
	resp, err := http.Post(s.server.URL+"/graphql", "application/json", bytes.NewReader(payload))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	var out map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (s *EndToEndSuite) TestBookRoundTripAcrossFacades() {
	code, body := s.rest(http.MethodPost, "/books", `{"title":"Dune","author":"Herbert","description":"Spice"}`)
	s.Require().Equal(http.StatusOK, code, string(body))
	s.JSONEq(`{"id":1,"title":"Dune","author":"Herbert","description":"Spice","language":null,"publisher":null}`, string(body))

	out := s.graphql(`{ book(id: 1) { id title language } }`, nil)
	s.Nil(out["errors"])
	s.Equal(map[string]any{"book": map[string]any{"id": 1.0, "title": "Dune", "language": nil}}, out["data"])

	out = s.graphql(`mutation($id: Int!) { updateBook(id: $id, title: "Dune Messiah", author: "Herbert", description: "Sequel", language: "en") { id language } }`,
		map[string]any{"id": 1})
	s.Nil(out["errors"])
	s.Equal(map[string]any{"updateBook": map[string]any{"id": 1.0, "language": "en"}}, out["data"])

	code, body = s.rest(http.MethodGet, "/books/1", "")
	s.Require().Equal(http.StatusOK, code)
	s.JSONEq(`{"id":1,"title":"Dune Messiah","author":"Herbert","description":"Sequel","language":"en","publisher":null}`, string(body))

	out = s.graphql(`mutation { deleteBook(id: 1) { success } }`, nil)
	s.Equal(map[string]any{"deleteBook": map[string]any{"success": true}}, out["data"])

	code, _ = s.rest(http.MethodGet, "/books/1", "")
	s.Equal(http.StatusNotFound, code)

	out = s.graphql(`{ book(id: 1) { id } }`, nil)
	s.Nil(out["errors"])
	s.Equal(map[string]any{"book": nil}, out["data"])
}

func (s *EndToEndSuite) TestKindsHaveIndependentIdentities() {
	code, body := s.rest(http.MethodPost, "/magazines", `{"title":"Wired","category":"Tech","summary":"Monthly","issue":"42"}`)
	s.Require().Equal(http.StatusOK, code, string(body))
	code, body = s.rest(http.MethodPost, "/audiovisuals", `{"title":"Koyaanisqatsi","format":"DVD","content":"Film"}`)
	s.Require().Equal(http.StatusOK, code, string(body))

	out := s.graphql(`{ magazines { id issue } audiovisuals { id format } books { id } }`, nil)
	s.Nil(out["errors"])
	s.Equal(map[string]any{
		"magazines":    []any{map[string]any{"id": 1.0, "issue": "42"}},
		"audiovisuals": []any{map[string]any{"id": 1.0, "format": "DVD"}},
		"books":        []any{},
	}, out["data"])
}

func (s *EndToEndSuite) TestAbsenceOnUpdateAndDelete() {
	code, _ := s.rest(http.MethodPut, "/audiovisuals/7", `{"title":"X","format":"VHS","content":"Y"}`)
	s.Equal(http.StatusNotFound, code)
	code, _ = s.rest(http.MethodDelete, "/audiovisuals/7", "")
	s.Equal(http.StatusNotFound, code)

	out := s.graphql(`mutation { deleteAudiovisual(id: 7) { success } }`, nil)
	s.Equal(map[string]any{"deleteAudiovisual": map[string]any{"success": false}}, out["data"])
	errs, ok := out["errors"].([]any)
	s.Require().True(ok)
	s.Require().Len(errs, 1)
	ext := errs[0].(map[string]any)["extensions"].(map[string]any)
	s.Equal("NOT_FOUND", ext["code"])

	code, body := s.rest(http.MethodGet, "/audiovisuals", "")
	s.Equal(http.StatusOK, code)
	s.JSONEq(`[]`, string(body))
}

func (s *EndToEndSuite) TestHealthyCluster() {
	code, body := s.rest(http.MethodGet, "/health", "")
	s.Require().Equal(http.StatusOK, code, string(body))

	var st map[string]any
	s.Require().NoError(json.Unmarshal(body, &st))
	s.Equal("healthy", st["status"])
	s.Len(st["sub_statuses"], len(catalog.All()))
}

func (s *EndToEndSuite) TestStoppedServiceIsUnavailable() {
	s.cluster.StopService(s.T(), catalog.KindMagazine)

	code, body := s.rest(http.MethodGet, "/magazines", "")
	s.Equal(http.StatusServiceUnavailable, code, string(body))
	s.NotContains(string(body), "bufnet")

	// Other kinds keep working
	code, _ = s.rest(http.MethodGet, "/books", "")
	s.Equal(http.StatusOK, code)

	code, _ = s.rest(http.MethodGet, "/health", "")
	s.Equal(http.StatusServiceUnavailable, code)

	out := s.graphql(`{ magazines { id } }`, nil)
	s.Nil(out["data"])
	errs := out["errors"].([]any)
	s.Require().Len(errs, 1)
	ext := errs[0].(map[string]any)["extensions"].(map[string]any)
	s.Equal("SERVICE_UNAVAILABLE", ext["code"])
}

func (s *EndToEndSuite) TestMetricsAcrossLayers() {
	code, _ := s.rest(http.MethodPost, "/books", `{"title":"Dune","author":"Herbert","description":"Spice"}`)
	s.Require().Equal(http.StatusOK, code)
	s.graphql(`{ books { id } }`, nil)

	m := s.cluster.Registry.CoreMetrics()
	s.Equal(1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("rest", "book", "create", "ok")))
	s.Equal(1.0, testutil.ToFloat64(m.GatewayRequests.WithLabelValues("graphql", "book", "list", "ok")))
	s.Equal(1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("book.BookService", "CreateBook", "OK")))
}

func TestEndToEndSuite(t *testing.T) {
	suite.Run(t, new(EndToEndSuite))
}
