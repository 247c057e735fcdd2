package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/suite"

	"github.com/flarexio/ragblade"
	"github.com/flarexio/ragblade/persistence/chromem"
	"github.com/flarexio/ragblade/vector"
	"github.com/flarexio/ragblade/vector/vectortest"

	mcpE "github.com/flarexio/ragblade/mcp"
)

type httpTransportTestSuite struct {
	suite.Suite
	router *gin.Engine
}

func (suite *httpTransportTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	cfg := ragblade.Config{
		Backend: ragblade.BackendChromem,
		Vector: vector.Config{
			Collection: "docs",
			Dimension:  64,
		},
	}

	db, err := chromem.NewChromemVectorDB(chromem.Config{Vector: cfg.Vector})
	suite.Require().NoError(err)

	svc, err := ragblade.NewService(context.Background(), cfg, db, &vectortest.BagOfWords{Dimension: 64})
	suite.Require().NoError(err)

	r := gin.New()
	AddRouters(r, ragblade.MakeEndpoints(svc))
	AddMetricsRouter(r)

	endpoints := make(map[mcp.MCPMethod]mcpE.MCPEndpoint)
	endpoints[mcp.MethodPing] = mcpE.PingEndpoint(svc)
	endpoints[mcp.MethodToolsList] = mcpE.ListToolsEndpoint(svc)
	AddStreamableRouters(r, endpoints)

	suite.router = r
}

func (suite *httpTransportTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *httpTransportTestSuite) addDocuments() {
	w := suite.do(http.MethodPost, "/api/documents", `{
	  "documents": [
	    {"id": "a", "content": "hello world", "metadata": {"source": "greeting"}},
	    {"id": "b", "content": "goodbye moon"}
	  ]
	}`)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
}

func (suite *httpTransportTestSuite) TestAddDocuments() {
	suite.addDocuments()

	w := suite.do(http.MethodPost, "/api/documents", `{"documents": [{"id": "a", "content": "hello world"}]}`)
	suite.Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"ids": []}`, w.Body.String())

	w = suite.do(http.MethodPost, "/api/documents", `{"documents": [{"content": ""}]}`)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/documents", `not json`)
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTransportTestSuite) TestQuery() {
	suite.addDocuments()

	w := suite.do(http.MethodGet, "/api/query?q=hello&k=1", "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.JSONEq(`{"results": ["hello world"]}`, w.Body.String())

	where := url.QueryEscape(`{"source": "greeting"}`)
	w = suite.do(http.MethodGet, "/api/query?q=moon&where="+where, "")
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	suite.JSONEq(`{"results": ["hello world"]}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/query", "")
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodGet, "/api/query?q=hello&where=%7B", "")
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *httpTransportTestSuite) TestListIDsAndCount() {
	suite.addDocuments()

	w := suite.do(http.MethodGet, "/api/documents/ids", "")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"ids": ["a", "b"]}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/documents/ids?ids=b&ids=missing", "")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"ids": ["b"]}`, w.Body.String())

	w = suite.do(http.MethodGet, "/api/count", "")
	suite.Require().Equal(http.StatusOK, w.Code)
	suite.JSONEq(`{"count": 2}`, w.Body.String())
}

func (suite *httpTransportTestSuite) TestReset() {
	suite.addDocuments()

	w := suite.do(http.MethodPost, "/api/reset", `{"confirm": false}`)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPut, "/api/collection", `{"name": ""}`)
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPut, "/api/collection", `{"name": "archive"}`)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodPost, "/api/reset", `{"confirm": true}`)
	suite.Equal(http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/api/count", "")
	suite.JSONEq(`{"count": 0}`, w.Body.String())
}

func (suite *httpTransportTestSuite) TestMetrics() {
	w := suite.do(http.MethodGet, "/metrics", "")
	suite.Equal(http.StatusOK, w.Code)
}

func (suite *httpTransportTestSuite) TestMCPStreamable() {
	w := suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 7, "method": "tools/list"}`)
	suite.Require().Equal(http.StatusOK, w.Code)

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}

	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Equal(7, resp.ID)
	suite.Len(resp.Result.Tools, 4)

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "id": 8, "method": "resources/list"}`)
	suite.Equal(http.StatusNotFound, w.Code)

	w = suite.do(http.MethodPost, "/mcp/", `{"jsonrpc": "2.0", "method": "notifications/initialized"}`)
	suite.Equal(http.StatusAccepted, w.Code)
}

func TestHTTPTransportTestSuite(t *testing.T) {
	suite.Run(t, new(httpTransportTestSuite))
}
