package handlers

import (
	"printwatch/internal/logger"
	"printwatch/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "printwatch/docs" // generated swagger registration
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Minimal WebSocket connection (HTTP upgrade) — same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerPrinterRoutes(api)
		h.registerFileRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerPrinterRoutes(api *gin.RouterGroup) {
	p := api.Group("/printer")
	{
		p.GET("/status", h.getStatus)
		// Body example: {"command":"led_on"}
		p.POST("/control", h.control)
		// Body example: {"target":"nozzle","value":210}
		p.POST("/temperature", h.setTemperature)
		p.GET("/position", h.getPosition)
		p.POST("/reconnect", h.reconnect)
		p.POST("/notifications/test", h.testNotification)
	}
}

func (h *Handler) registerFileRoutes(api *gin.RouterGroup) {
	files := api.Group("/files")
	{
		files.GET("/", h.listFiles)
		files.POST("/upload", h.uploadFile)
		files.POST("/print", h.startPrint)
		files.POST("/delete", h.deleteFile)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
