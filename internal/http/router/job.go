package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
)

func JobRouter(rg *gin.RouterGroup, h *handler.JobHandler) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PATCH("/external-id", h.AttachExternalID)
}
