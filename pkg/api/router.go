package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"aircast/pkg/api/handlers"
	"aircast/pkg/api/schema"
	"aircast/pkg/bluetooth"
	"aircast/pkg/session"
	"aircast/pkg/store"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine      *gin.Engine
	store       store.Store
	coordinator *session.Coordinator
	registry    *bluetooth.Registry
	validator   *schema.Validator
}

// NewRouter creates a new API router
func NewRouter(st store.Store, coordinator *session.Coordinator, registry *bluetooth.Registry, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:      engine,
		store:       st,
		coordinator: coordinator,
		registry:    registry,
		validator:   validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(301, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler()
	r.engine.GET("/health", healthHandler.Health)

	api := r.engine.Group("/api")
	{
		api.GET("/health", healthHandler.Health)

		// Persisted device records
		devicesHandler := handlers.NewDevicesHandler(r.store, r.validator)
		devices := api.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.POST("", devicesHandler.CreateDevice)
			devices.GET("/:id", devicesHandler.GetDevice)
			devices.PUT("/:id", devicesHandler.UpdateDevice)
			devices.DELETE("/:id", devicesHandler.DeleteDevice)
			devices.GET("/:id/sessions", devicesHandler.DeviceSessions)
		}

		// Recorded capture sessions
		sessionsHandler := handlers.NewSessionsHandler(r.store, r.validator)
		sessions := api.Group("/sessions")
		{
			sessions.GET("", sessionsHandler.ListSessions)
			sessions.POST("", sessionsHandler.CreateSession)
			sessions.GET("/active", sessionsHandler.ActiveSessions)
			sessions.GET("/:id", sessionsHandler.GetSession)
			sessions.PUT("/:id", sessionsHandler.UpdateSession)
		}

		// Live Bluetooth and capture control
		controlHandler := handlers.NewControlHandler(r.coordinator, r.registry)
		bt := api.Group("/bluetooth")
		{
			bt.GET("/devices", controlHandler.BluetoothDevices)
			bt.POST("/scan", controlHandler.Scan)
			bt.POST("/devices/:id/connect", controlHandler.Connect)
			bt.POST("/devices/:id/disconnect", controlHandler.Disconnect)
			bt.PUT("/devices/:id/volume", controlHandler.DeviceVolume)
		}
		capture := api.Group("/capture")
		{
			capture.GET("", controlHandler.CaptureStatus)
			capture.POST("/start", controlHandler.StartCapture)
			capture.POST("/stop", controlHandler.StopCapture)
			capture.PUT("/volume", controlHandler.MasterVolume)
		}

		// Event stream
		eventsHandler := handlers.NewEventsHandler(r.registry)
		api.GET("/events", eventsHandler.Events)
	}
}

// Handler exposes the underlying engine for serving and tests.
func (r *Router) Handler() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
