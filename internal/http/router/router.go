package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
	"avatarlab.app/studio/internal/http/handler/webhook"
	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/service"
)

type RouterConfig struct {
	AppURL       string
	MediaDir     string
	IsProduction bool
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authService := services.Auth()
	authHandler := handler.NewAuthHandler(authService, cfg.AppURL, cfg.IsProduction)
	AuthRouter(router.Group("/auth"), authHandler, authService)

	webhookHandler := webhook.NewGenerationWebhookHandler(services.Completion())
	router.POST("/webhooks/generation", webhookHandler.HandleCompletion)

	if cfg.MediaDir != "" {
		router.Static("/media", cfg.MediaDir)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireAuth(authService))
	{
		jobHandler := handler.NewJobHandler(services.Jobs())
		JobRouter(v1.Group("/jobs"), jobHandler)

		generationHandler := handler.NewGenerationHandler(services.Generation())
		v1.POST("/generations", generationHandler.Generate)

		imageHandler := handler.NewImageHandler(services.Images())
		ImageRouter(v1.Group("/images"), imageHandler)

		folderHandler := handler.NewFolderHandler(services.Folders())
		FolderRouter(v1.Group("/folders"), folderHandler)

		characterHandler := handler.NewCharacterHandler(services.Characters())
		CharacterRouter(v1.Group("/characters"), characterHandler)

		eventsHandler := handler.NewEventsHandler(
			services.Images(), services.Folders(), services.Characters(), services.Bus())
		v1.GET("/events", eventsHandler.Stream)
	}
}
