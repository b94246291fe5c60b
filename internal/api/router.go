package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dshills/roomservice/internal/service"
)

// NewRouter registers all routes under /api. Login and health are open;
// everything else sits behind the passphrase gate.
func NewRouter(svc *service.Service, gate *Gate, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{svc: svc, gate: gate, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	api := r.Group("/api")
	api.POST("/login", h.login)
	api.GET("/health", h.health)

	authed := api.Group("", gate.Middleware())
	// Menu
	authed.GET("/menu", h.getMenu)
	authed.POST("/menu", h.publishMenu)
	// Orders
	authed.GET("/orders", h.listOrders)
	authed.POST("/orders", h.createOrder)
	authed.GET("/orders/:id", h.getOrder)
	authed.PATCH("/orders/:id", h.updateOrder)
	authed.POST("/orders/:id/items", h.addItems)
	authed.PUT("/orders/:id/items/:key", h.updateItemQuantity)
	authed.DELETE("/orders/:id/items/:key", h.removeItem)
	// Kitchen and billing
	authed.POST("/orders/:id/whatsapp", h.notifyKitchen)
	authed.GET("/orders/:id/print", h.printBill)
	authed.GET("/export", h.exportCSV)

	return r
}

// requestLogger writes one structured record per request
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= 500 {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "http request",
			"action", "http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds())
	}
}
