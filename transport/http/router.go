package http

import (
	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flarexio/chattube"

	mcpE "github.com/flarexio/chattube/mcp"
)

func AddRouters(r *gin.Engine, endpoints chattube.EndpointSet) {
	r.GET("/", RootHandler())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// RESTful API routes
	api := r.Group("/api")
	{
		api.POST("/load_video", LoadVideoHandler(endpoints.LoadVideo))
		api.POST("/chat", ChatHandler(endpoints.Chat))
		api.GET("/sessions/:session_id/history", HistoryHandler(endpoints.History))
		api.DELETE("/sessions/:session_id", EndSessionHandler(endpoints.EndSession))
	}
}

func AddStreamableRouters(r *gin.Engine, endpoints map[mcp.MCPMethod]mcpE.MCPEndpoint) {
	mcp := r.Group("/mcp")
	{
		mcp.POST("/", MCPStreamableHandler(endpoints))
	}
}
