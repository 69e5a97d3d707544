package routes

import (
	"notify-service/internal/api/handlers"
	"notify-service/internal/api/middleware"
	"notify-service/internal/websocket"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Router struct {
	engine         *gin.Engine
	wsHandler      *handlers.WSHandler
	statsHandler   *handlers.StatsHandler
	publishHandler *handlers.PublishHandler
	jwtSecret      string
}

func NewRouter(dispatcher *websocket.Dispatcher, jwtSecret string) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS())
	engine.Use(middleware.LogApi())

	return &Router{
		engine:         engine,
		wsHandler:      handlers.NewWSHandler(dispatcher),
		statsHandler:   handlers.NewStatsHandler(dispatcher),
		publishHandler: handlers.NewPublishHandler(dispatcher),
		jwtSecret:      jwtSecret,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// WebSocket endpoint; auth resolves the user when a JWT secret is set
	api.GET("/ws",
		middleware.WSAuth(r.jwtSecret),
		r.wsHandler.HandleWebSocket,
	)

	// Operational stats for dashboards and debugging
	api.GET("/stats", r.statsHandler.GetStats)

	// Producer-facing publish surface for sibling services
	api.POST("/notify", r.publishHandler.Publish)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
