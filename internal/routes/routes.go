package routes

import (
	"health-analysis-server/internal/analysis"
	"health-analysis-server/internal/config"
	"health-analysis-server/internal/handlers"
	"health-analysis-server/internal/ingest"
	"health-analysis-server/internal/middleware"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config,
	svc *analysis.Service, engine *analysis.Engine, chat *analysis.ChatService, processor *ingest.Processor) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg)
	reportHandler := handlers.NewReportHandler(db, svc, engine, chat, processor)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg)) // Apply JWT authentication middleware
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Report routes: every read and mutation is scoped to the owning user
		reportRoutes := private.Group("/reports")
		{
			reportRoutes.POST("/analyze", reportHandler.Analyze)
			reportRoutes.GET("", reportHandler.GetReports)
			reportRoutes.GET("/patient/:name", reportHandler.GetReportsByPatient)
			reportRoutes.POST("/compare", reportHandler.CompareReports)
			reportRoutes.POST("/summarize", reportHandler.Summarize)
			reportRoutes.GET("/:id", reportHandler.GetReportByID)
			reportRoutes.DELETE("/:id", reportHandler.DeleteReport)
		}

		private.POST("/chat", reportHandler.ChatMessage)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
