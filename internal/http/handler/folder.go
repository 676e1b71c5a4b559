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

type FolderHandler struct {
	folderService service.FolderService
}

func NewFolderHandler(folderService service.FolderService) *FolderHandler {
	return &FolderHandler{folderService: folderService}
}

func (h *FolderHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	var req dto.CreateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	folder, err := h.folderService.Create(ctx, user.ID, req.Name, req.CharacterID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		case errors.Is(err, service.ErrCharacterNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "character not found"})
		default:
			slog.ErrorContext(ctx, "failed to create folder", "error", err, "user_id", user.ID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create folder"})
		}
		return
	}

	c.JSON(http.StatusCreated, dto.ToFolderResponse(folder))
}

func (h *FolderHandler) Rename(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	folderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	var req dto.RenameFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	folder, err := h.folderService.Rename(ctx, user.ID, folderID, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyName):
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		case errors.Is(err, service.ErrFolderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		default:
			slog.ErrorContext(ctx, "failed to rename folder", "error", err, "folder_id", folderID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to rename folder"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToFolderResponse(folder))
}

func (h *FolderHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	folderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid folder id"})
		return
	}

	if err := h.folderService.Delete(ctx, user.ID, folderID); err != nil {
		if errors.Is(err, service.ErrFolderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete folder", "error", err, "folder_id", folderID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete folder"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *FolderHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	folders, err := h.folderService.List(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list folders", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list folders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"folders": dto.ToFolderResponses(folders)})
}
