package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"violation-dashboard/config"
	"violation-dashboard/handlers"
	"violation-dashboard/middleware"
	"violation-dashboard/services"
	"violation-dashboard/upstream"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	// Client for the violation-detection backend
	client := upstream.NewClient(cfg.BackendURL, cfg.RequestTimeout)

	dashboardService := services.NewDashboardService(client)

	// WebSocket hub and the poller feeding it fresh violations
	websocketHub := services.NewWebSocketHub()
	go websocketHub.Start()
	defer websocketHub.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	poller := services.NewViolationPoller(client, websocketHub, cfg.PollInterval)
	go poller.Start(ctx)

	dashboardHandler := handlers.NewDashboardHandler(dashboardService, client)
	websocketHandler := handlers.NewWebSocketHandler(websocketHub)

	r := gin.Default()

	// CORS middleware for Gin
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Health endpoint (public)
	r.GET("/health", dashboardHandler.HealthHandler)

	// Protected routes
	protected := r.Group("/")
	protected.Use(middleware.AuthMiddleware(cfg.AuthServiceURL))
	{
		protected.GET("/violations", dashboardHandler.ViolationsHandler)
		protected.DELETE("/violations/:id", dashboardHandler.DeleteViolationHandler)
		protected.GET("/users", dashboardHandler.UsersHandler)
		protected.DELETE("/users/:id", dashboardHandler.DeleteUserHandler)
		protected.GET("/analytics", dashboardHandler.AnalyticsHandler)
		protected.GET("/map", dashboardHandler.MapHandler)

		protected.POST("/view/tab", dashboardHandler.SelectTabHandler)
		protected.POST("/view/page", dashboardHandler.GoToPageHandler)
		protected.POST("/view/filters", dashboardHandler.SetFiltersHandler)
		protected.POST("/view/filters/reset", dashboardHandler.ResetFiltersHandler)
		protected.POST("/view/dialog/violation", dashboardHandler.OpenViolationDialogHandler)
		protected.PUT("/view/dialog/violation", dashboardHandler.EditViolationDialogHandler)
		protected.POST("/view/dialog/save", dashboardHandler.SaveViolationDialogHandler)
		protected.POST("/view/dialog/close", dashboardHandler.CloseDialogHandler)

		protected.GET("/wizard", dashboardHandler.WizardStateHandler)
		protected.POST("/wizard/groups", dashboardHandler.AddWizardGroupHandler)
		protected.POST("/wizard/groups/:id/files", dashboardHandler.AttachWizardFileHandler)
		protected.POST("/wizard/analyze", dashboardHandler.AnalyzeWizardHandler)
		protected.POST("/wizard/reset", dashboardHandler.ResetWizardHandler)

		protected.POST("/media/image", dashboardHandler.DetectImageHandler)
		protected.POST("/media/video/estimate", dashboardHandler.EstimateVideoHandler)

		protected.GET("/ws/violations", websocketHandler.ListenViolations)
		protected.GET("/ws/health", websocketHandler.HealthCheck)
	}

	log.Printf("Starting Violation Dashboard service on %s:%s", cfg.Host, cfg.Port)
	log.Printf("Detection backend: %s", cfg.BackendURL)
	r.Run(cfg.Host + ":" + cfg.Port)
}
