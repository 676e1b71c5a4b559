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
	"avatarlab.app/studio/internal/view"
)

type ImageHandler struct {
	imageService service.ImageService
}

func NewImageHandler(imageService service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

// List returns the filtered image collection plus its total count. The
// query parameters mirror the view filter the realtime reconciler applies,
// so the initial load and subsequent events agree on membership:
// character_id, folder ("unfiled", a folder id, or absent), favorites.
func (h *ImageHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	filter, err := parseImageFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	limit := parseInt32(c.Query("limit"), 50)
	offset := parseInt32(c.Query("offset"), 0)

	images, totalCount, err := h.imageService.List(ctx, user.ID, filter, limit, offset)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list images", "error", err, "user_id", user.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list images"})
		return
	}

	c.JSON(http.StatusOK, dto.ToListImagesResponse(images, totalCount))
}

func (h *ImageHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	image, err := h.imageService.Get(ctx, user.ID, imageID)
	if err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to get image", "error", err, "image_id", imageID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get image"})
		return
	}

	c.JSON(http.StatusOK, dto.ToImageResponse(image))
}

func (h *ImageHandler) SetFavorite(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	var req dto.SetFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Favorite == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "favorite is required"})
		return
	}

	image, err := h.imageService.SetFavorite(ctx, user.ID, imageID, *req.Favorite)
	if err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to update favorite", "error", err, "image_id", imageID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update image"})
		return
	}

	c.JSON(http.StatusOK, dto.ToImageResponse(image))
}

func (h *ImageHandler) Move(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	var req dto.MoveImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	image, err := h.imageService.Move(ctx, user.ID, imageID, req.FolderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrImageNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		case errors.Is(err, service.ErrFolderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "folder not found"})
		default:
			slog.ErrorContext(ctx, "failed to move image", "error", err, "image_id", imageID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to move image"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToImageResponse(image))
}

func (h *ImageHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()
	user := middleware.GetUser(ctx)

	imageID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image id"})
		return
	}

	if err := h.imageService.Delete(ctx, user.ID, imageID); err != nil {
		if errors.Is(err, service.ErrImageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to delete image", "error", err, "image_id", imageID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func parseImageFilter(c *gin.Context) (view.Filter, error) {
	var filter view.Filter

	if raw := c.Query("character_id"); raw != "" {
		characterID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return view.Filter{}, errors.New("invalid character_id")
		}
		filter.CharacterID = &characterID
	}

	switch raw := c.Query("folder"); raw {
	case "":
		filter.Folder = view.AnyFolder()
	case "unfiled":
		filter.Folder = view.UnfiledFolder()
	default:
		folderID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return view.Filter{}, errors.New("invalid folder")
		}
		filter.Folder = view.InFolder(folderID)
	}

	filter.FavoritesOnly = c.Query("favorites") == "true"
	return filter, nil
}
