package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/tessera-studio/provenance-api/internal/api/middleware"
	"github.com/tessera-studio/provenance-api/internal/ratelimit"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, limiter ratelimit.Limiter) {
	// Health check endpoint (no rate limit, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes, throttled per client IP
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimit(limiter))
	{
		// Token endpoints (public read access)
		v1.GET("/tokens/:token_id/provenance", handler.GetProvenance)
		v1.GET("/tokens/:token_id/metadata", handler.GetMetadata)

		// Ownership verification via wallet signature
		v1.POST("/ownership/verify", handler.VerifyOwnership)
	}
}
