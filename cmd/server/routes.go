package main

import (
	"github.com/gin-gonic/gin"

	"github.com/guildhall/tabletop/backend/internal/middleware"
	"github.com/guildhall/tabletop/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Rate limiter for unauthenticated registration routes
	guestLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	r.GET("/health", svc.healthHandler.CheckHealth)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/login", svc.authHandler.Login)
			auth.GET("/config", svc.authHandler.GetAuthConfig)
		}

		// Public table routes. OptionalAuth lets admins see drafts and
		// members get member-aware probe answers.
		public := api.Group("", middleware.OptionalAuth())
		{
			public.GET("/tables", svc.tableHandler.List)
			public.GET("/tables/:id", svc.tableHandler.Get)
			public.GET("/tables/:id/capacity", svc.tableHandler.Snapshot)
			public.GET("/tables/:id/can-register", svc.registrationHandler.CanRegister)
		}

		// Guest self-service (public, rate limited)
		guest := api.Group("", guestLimiter.Middleware())
		{
			guest.POST("/tables/:id/register-guest", svc.registrationHandler.RegisterGuest)
			guest.POST("/registrations/cancel-by-token", svc.registrationHandler.CancelByToken)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired())
		{
			// Auth
			protected.GET("/auth/me", svc.authHandler.GetCurrentUser)
			protected.POST("/auth/logout", svc.authHandler.Logout)

			// Registration self-service
			protected.POST("/tables/:id/register", svc.registrationHandler.Register)
			protected.POST("/participants/:id/cancel", svc.registrationHandler.Cancel)
			protected.GET("/tables/:id/participants", svc.tableHandler.Participants)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Table management
			admin.POST("/tables", svc.tableHandler.Create)
			admin.PUT("/tables/:id", svc.tableHandler.Update)
			admin.POST("/tables/:id/publish", svc.tableHandler.Publish)
			admin.POST("/tables/:id/cancel", svc.tableHandler.Cancel)

			// Participant moderation
			admin.POST("/participants/:id/confirm", svc.registrationHandler.Confirm)
			admin.POST("/participants/:id/reject", svc.registrationHandler.Reject)
			admin.POST("/participants/:id/no-show", svc.registrationHandler.MarkNoShow)
		}
	}
}
