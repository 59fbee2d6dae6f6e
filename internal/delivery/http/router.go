package http

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/podlove/podlove-backend/internal/delivery/http/handler"
	"github.com/podlove/podlove-backend/internal/delivery/http/middleware"
	"github.com/podlove/podlove-backend/internal/domain"
	"github.com/podlove/podlove-backend/internal/infrastructure/metrics"
)

type Router struct {
	authHandler     *handler.AuthHandler
	profileHandler  *handler.ProfileHandler
	matchHandler    *handler.MatchHandler
	podcastHandler  *handler.PodcastHandler
	billingHandler  *handler.BillingHandler
	presenceHandler *handler.PresenceHandler
	authMiddleware  *middleware.AuthMiddleware
	metrics         *metrics.Metrics
}

func NewRouter(
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	matchHandler *handler.MatchHandler,
	podcastHandler *handler.PodcastHandler,
	billingHandler *handler.BillingHandler,
	presenceHandler *handler.PresenceHandler,
	authMiddleware *middleware.AuthMiddleware,
	m *metrics.Metrics,
) *Router {
	return &Router{
		authHandler:     authHandler,
		profileHandler:  profileHandler,
		matchHandler:    matchHandler,
		podcastHandler:  podcastHandler,
		billingHandler:  billingHandler,
		presenceHandler: presenceHandler,
		authMiddleware:  authMiddleware,
		metrics:         m,
	}
}

func (r *Router) Setup() *gin.Engine {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("plan", func(fl validator.FieldLevel) bool {
			return domain.Plan(fl.Field().String()).Valid()
		})
	}

	router := gin.Default()

	// Health check (supports both GET and HEAD)
	healthHandler := func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.metrics.Registry(), promhttp.HandlerOpts{})))

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Auth routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.GET("/me", r.authMiddleware.RequireAuth(), r.authHandler.Me)
		}

		// Billing webhook (authenticated at the gateway, not per-user)
		v1.POST("/billing/subscription-paid", r.billingHandler.SubscriptionPaid)

		// Protected routes
		protected := v1.Group("")
		protected.Use(r.authMiddleware.RequireAuth())
		{
			// Profile routes
			profile := protected.Group("/profile")
			{
				profile.GET("/me", r.profileHandler.GetMyProfile)
				profile.PUT("/me", r.profileHandler.UpdateMyProfile)
				profile.DELETE("/me", r.profileHandler.DeleteMe)
			}

			// Matchmaking routes
			match := protected.Group("/match")
			{
				match.POST("/find", r.matchHandler.FindMatches)
				match.GET("/candidates", r.matchHandler.Candidates)
			}

			// Podcast group routes
			podcasts := protected.Group("/podcasts")
			{
				podcasts.GET("", r.podcastHandler.ListMyGroups)
				podcasts.GET("/current", r.podcastHandler.GetOpenGroup)
				podcasts.GET("/:group_id", r.podcastHandler.GetGroup)
				podcasts.POST("/:group_id/request", r.podcastHandler.SendRequest)
				podcasts.PUT("/:group_id/schedule", r.podcastHandler.SetSchedule)
				podcasts.POST("/:group_id/start", r.podcastHandler.Start)
				podcasts.PUT("/:group_id/recording", r.podcastHandler.UpdateRecording)
			}

			// Presence routes
			presence := protected.Group("/presence")
			{
				presence.POST("/connect", r.presenceHandler.Connect)
				presence.DELETE("", r.presenceHandler.Disconnect)
			}

			// Admin maintenance
			protected.POST("/admin/embeddings/rebuild", r.profileHandler.RebuildEmbeddings)
		}
	}

	return router
}
