package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
)

func FolderRouter(rg *gin.RouterGroup, h *handler.FolderHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.PATCH("/:id", h.Rename)
	rg.DELETE("/:id", h.Delete)
}
