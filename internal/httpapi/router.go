package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/auth"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"github.com/suPer8Hu/gemini-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gemini-chat/internal/httpapi/middleware"
	"go.uber.org/zap"
)

func NewRouter(h *handlers.Handler, signer *auth.Signer, policy auth.AdminPolicy, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/", h.Health)
	r.GET("/health", h.Health)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authed := r.Group("/")
	authed.Use(middleware.AuthRequired(signer, policy))

	authed.GET("/auth/me", h.Me)

	authed.POST("/sessions", h.CreateSession)
	authed.GET("/sessions", h.ListSessions)
	authed.GET("/sessions/:id", h.GetSession)
	authed.PATCH("/sessions/:id", h.PatchSession)

	authed.GET("/messages/:sessionId", h.ListMessages)
	authed.POST("/messages/send", h.SendMessage)
	authed.POST("/messages/send/async", h.SendMessageAsync)
	authed.GET("/jobs/:id", h.GetJob)

	authed.GET("/prompts", h.ListPrompts)
	authed.POST("/prompts", h.CreatePrompt)
	authed.PUT("/prompts/:id", h.UpdatePrompt)
	authed.DELETE("/prompts/:id", h.DeletePrompt)
	authed.POST("/prompts/:id/render", h.RenderPrompt)

	authed.GET("/models", h.ListModels)
	authed.POST("/models/refresh", h.RefreshModels)

	return r
}
