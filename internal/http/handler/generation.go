package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/dto"
	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/service"
)

type GenerationHandler struct {
	generationService service.GenerationService
}

func NewGenerationHandler(generationService service.GenerationService) *GenerationHandler {
	return &GenerationHandler{generationService: generationService}
}

func (h *GenerationHandler) Generate(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	job, err := h.generationService.Generate(ctx, user.ID, service.GenerationParams{
		Prompt:      req.Prompt,
		Width:       req.Width,
		Height:      req.Height,
		Seed:        req.Seed,
		CharacterID: req.CharacterID,
		FolderID:    req.FolderID,
		NSFW:        req.NSFW,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyPrompt):
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		case errors.Is(err, service.ErrCharacterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		case errors.Is(err, service.ErrFolderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		case errors.Is(err, service.ErrGeneratorUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "image generation is not available"})
		default:
			slog.ErrorContext(ctx, "failed to dispatch generation", "error", err, "user_id", user.ID)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to start generation"})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.ToJobResponse(job))
}
