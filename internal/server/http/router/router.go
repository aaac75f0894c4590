package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/pulperia/internal/server/http/handlers"
	"github.com/polkiloo/pulperia/internal/server/http/middleware"
)

const sessionPath = "/api/ws"

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.Facade, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest())
	engine.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{sessionPath})))

	orderHandler := handlers.NewOrderHandler(facade)
	pulperiaHandler := handlers.NewPulperiaHandler(facade)
	sessionHandler := handlers.NewSessionHandler(facade, logger)
	healthHandler := handlers.NewHealthHandler(facade)

	engine.GET(middleware.HealthPath, healthHandler.Check)

	api := engine.Group("/api")

	authed := api.Group("", middleware.AuthRequired(facade))
	authed.GET("/ws", sessionHandler.Serve)
	authed.POST("/orders", orderHandler.Create)
	authed.GET("/orders", orderHandler.List)
	authed.POST("/orders/:id/transition", orderHandler.Transition)
	authed.PUT("/pulperias/me/status", pulperiaHandler.SetStatus)
	authed.GET("/pulperias/:id/status", pulperiaHandler.Status)

	return engine
}
