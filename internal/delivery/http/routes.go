package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tastemap/backend/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		recommendations := v1.Group("/recommendations")
		{
			recommendations.POST("/vendors", handler.GenerateRecommendations)
			recommendations.DELETE("/cache", handler.ClearCache)
		}

		posts := v1.Group("/posts")
		{
			posts.POST("/rank", handler.RankPosts)
			posts.POST("/:postId/shown", handler.MarkPostShown)
		}

		preferences := v1.Group("/preferences")
		{
			preferences.GET("", handler.GetPreferences)
			preferences.POST("/learn", handler.LearnFromPost)
			preferences.POST("/vendors", handler.LearnFromVendor)
			preferences.PUT("/vendor-profile", handler.SetVendorProfile)
		}
	}

	return router
}
