package api

import (
	"github.com/gin-gonic/gin"
	"github.com/gracehq/chms/internal/api/handler"
	"github.com/gracehq/chms/internal/api/middleware"
	"github.com/gracehq/chms/internal/export"
	"github.com/gracehq/chms/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	exports *export.Service,
	log *logger.Logger,
	mode string,
	cors middleware.CORSConfig,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	exportHandler := handler.NewExportHandler(exports, log)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Static routes must be registered before the :id param routes
		v1.GET("/export/options", exportHandler.GetOptions)
		v1.GET("/export/history", exportHandler.History)

		v1.POST("/export", exportHandler.CreateExport)
		v1.GET("/export/:id", exportHandler.GetStatus)
		v1.GET("/export/:id/download", exportHandler.Download)
		v1.DELETE("/export/:id", exportHandler.DeleteExport)
	}

	return r
}
