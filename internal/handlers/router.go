package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/consultant-worklog/internal/constants"
	"github.com/yukikurage/consultant-worklog/internal/middleware"
	"github.com/yukikurage/consultant-worklog/internal/services"
)

// RouterDeps holds what the HTTP API is assembled from.
type RouterDeps struct {
	Auth         *services.AuthService
	Documents    *services.DocumentService
	SessionStore sessions.Store
	Logger       zerolog.Logger
}

// NewRouter builds the gin engine serving the auth and document APIs.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(deps.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, deps.SessionStore))

	authHandler := NewAuthHandler(deps.Auth)
	documentHandler := NewDocumentHandler(deps.Documents)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Worklog API is running",
		})
	})

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
			auth.PATCH("/me", middleware.RequireAuth(), authHandler.UpdateCurrentUser)
		}

		// Document routes (protected)
		docs := api.Group("/v1/:collection")
		docs.Use(middleware.RequireAuth(), middleware.RequireCollection())
		{
			docs.POST("", documentHandler.Create)
			docs.GET("", documentHandler.List)
			docs.GET("/:id", documentHandler.Get)
			docs.PATCH("/:id", documentHandler.Update)
			docs.DELETE("/:id", documentHandler.Delete)
		}
	}

	return r
}
