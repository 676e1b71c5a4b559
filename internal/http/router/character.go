package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
)

func CharacterRouter(rg *gin.RouterGroup, h *handler.CharacterHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}
