package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Query   *QueryHandler
	Health  *HealthHandler
	Logs    *LogsHandler
	Webhook *WebhookHandler

	// Applied to /api/v1 only; the webhook must stay unthrottled or Meta
	// redeliveries pile up.
	APIMiddlewares []gin.HandlerFunc
}

func RegisterRoutes(engine *gin.Engine, deps RouterDeps) {
	api := engine.Group("/api/v1")
	api.Use(deps.APIMiddlewares...)
	api.POST("/query", deps.Query.Query)
	api.GET("/health", deps.Health.Health)
	api.GET("/logs/messages", deps.Logs.List)
	api.GET("/logs/stats", deps.Logs.Stats)

	engine.GET("/webhook", deps.Webhook.Verify)
	engine.POST("/webhook", deps.Webhook.Receive)
}
