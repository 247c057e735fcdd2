package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/ragblade"

	mcpE "github.com/flarexio/ragblade/mcp"
)

func AddRouters(r *gin.Engine, endpoints *ragblade.EndpointSet) {
	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/documents", AddDocumentsHandler(endpoints.AddDocuments))
		api.GET("/documents/ids", ListIDsHandler(endpoints.ListIDs))
		api.GET("/query", QueryHandler(endpoints.Query))
		api.GET("/count", CountHandler(endpoints.Count))
		api.POST("/reset", ResetHandler(endpoints.Reset))
		api.PUT("/collection", SetCollectionHandler(endpoints.SetCollection))
	}
}

func AddMetricsRouter(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
