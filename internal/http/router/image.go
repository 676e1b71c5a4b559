package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
)

func ImageRouter(rg *gin.RouterGroup, h *handler.ImageHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id/favorite", h.SetFavorite)
	rg.PATCH("/:id/folder", h.Move)
	rg.DELETE("/:id", h.Delete)
}
