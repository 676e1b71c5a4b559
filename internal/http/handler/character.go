package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/dto"
	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/service"
)

type CharacterHandler struct {
	characterService service.CharacterService
}

func NewCharacterHandler(characterService service.CharacterService) *CharacterHandler {
	return &CharacterHandler{characterService: characterService}
}

func (h *CharacterHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	var req dto.CreateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	character, err := h.characterService.Create(ctx, user.ID, req.Name, req.Description, req.NSFW)
	if err != nil {
		if errors.Is(err, service.ErrEmptyName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}
		slog.ErrorContext(ctx, "failed to create character", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create character"})
		return
	}

	c.JSON(http.StatusCreated, dto.ToCharacterResponse(character))
}

func (h *CharacterHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	characterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	character, err := h.characterService.Get(ctx, user.ID, characterID)
	if err != nil {
		if errors.Is(err, service.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get character", "error", err, "character_id", characterID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get character"})
		return
	}

	c.JSON(http.StatusOK, dto.ToCharacterResponse(character))
}

func (h *CharacterHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	characterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	var req dto.UpdateCharacterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	character, err := h.characterService.Update(ctx, user.ID, characterID, service.CharacterUpdate{
		Name:        req.Name,
		Description: req.Description,
		AvatarURL:   req.AvatarURL,
		NSFW:        req.NSFW,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be empty"})
		case errors.Is(err, service.ErrCharacterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		default:
			slog.ErrorContext(ctx, "failed to update character", "error", err, "character_id", characterID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update character"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToCharacterResponse(character))
}

func (h *CharacterHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	characterID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid character id"})
		return
	}

	if err := h.characterService.Delete(ctx, user.ID, characterID); err != nil {
		if errors.Is(err, service.ErrCharacterNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete character", "error", err, "character_id", characterID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete character"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CharacterHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	characters, err := h.characterService.List(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list characters", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list characters"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"characters": dto.ToCharacterResponses(characters)})
}
