package api

import (
	"github.com/RishiKendai/labscan/internal/config"
	"github.com/RishiKendai/labscan/internal/plagiarism"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(cfg *config.Config, engine *plagiarism.Engine) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// Create handler
	handler := NewHandler(cfg, engine)

	// Create rate limiter
	rateLimiter := NewRateLimiter(cfg.RateLimitRPS, int(cfg.RateLimitRPS*2))

	// Middleware
	router.Use(MetricsMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// Health endpoint (no auth)
	router.GET("/health", handler.Health)

	// API routes (with auth and rate limiting)
	api := router.Group("/api/v1")
	api.Use(JWTAuthMiddleware(cfg.JWTSecret, cfg.JWTIssuer))
	api.Use(RateLimitMiddleware(rateLimiter))
	{
		labs := api.Group("/labs/:labId")
		labs.POST("/duplicate-check", handler.DuplicateCheck)
		labs.GET("/status", handler.Status)
		labs.GET("/runs", handler.ListRuns)
		labs.GET("/runs/:runId", handler.GetRun)
		labs.GET("/runs/:runId/comparisons/:index", handler.GetReportEntry)
	}

	return router
}
