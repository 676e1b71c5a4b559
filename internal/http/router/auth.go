package router

import (
	"github.com/gin-gonic/gin"

	"avatarlab.app/studio/internal/http/handler"
	"avatarlab.app/studio/internal/http/middleware"
	"avatarlab.app/studio/internal/service"
)

func AuthRouter(rg *gin.RouterGroup, h *handler.AuthHandler, authService service.AuthService) {
	rg.GET("/login", h.Login)
	rg.GET("/callback", h.Callback)
	rg.POST("/logout", h.Logout)
	rg.GET("/me", middleware.RequireAuth(authService), h.Me)
}
