package routes

import (
	"net/http"
	"time"

	"participant-import-backend/internal/config"
	handler "participant-import-backend/internal/handlers"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the engine with middleware and every API route.
func NewRouter(cfg config.ServerConfig, h *handler.ImportRequestHandler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handler.RequestIDMiddleware())
	r.Use(handler.LoggingMiddleware())
	r.Use(cors.New(corsConfig(cfg.CorsOrigins)))
	r.Use(handler.TimeoutMiddleware(cfg.RequestTimeout))

	RegisterRoutes(r, h)
	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
	} else {
		c.AllowOrigins = origins
	}
	return c
}

func RegisterRoutes(r *gin.Engine, h *handler.ImportRequestHandler) {
	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Event scoped routes
	events := api.Group("/events/:eventId/import-requests")
	events.POST("", h.Create)
	events.POST("/preview", h.Preview)
	events.GET("", h.ListByEvent)
	events.GET("/stats", h.Stats)

	// Request lifecycle
	requests := api.Group("/import-requests")
	requests.GET("", h.ListAll)
	requests.GET("/:id", h.Get)
	requests.POST("/:id/approve", h.Approve)
	requests.POST("/:id/reject", h.Reject)
	requests.POST("/:id/complete", h.Complete)

	api.GET("/empresas/:empresaId/import-requests", h.ListByEmpresa)
}
