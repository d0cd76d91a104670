package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"github.com/suPer8Hu/gemini-chat/internal/auth"
	"github.com/suPer8Hu/gemini-chat/internal/chat"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"github.com/suPer8Hu/gemini-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/gemini-chat/internal/prompt"
	"go.uber.org/zap"
)

// JobPublisher hands queued job ids to the worker.
type JobPublisher interface {
	PublishJob(ctx context.Context, jobID string) error
}

// ModelCache is the resolver surface the HTTP layer needs.
type ModelCache interface {
	Resolve(ctx context.Context) (string, error)
	Invalidate()
}

type Handler struct {
	Auth       *auth.Service
	Chat       *chat.Service
	Dispatcher *chat.Dispatcher
	Prompts    *prompt.Service

	// Catalog and Models are nil when no provider key is configured.
	Catalog ai.Catalog
	Models  ModelCache
	// Jobs is nil when async send is disabled.
	Jobs JobPublisher

	ServiceName string
	// ExposeDetail adds the error text to 5xx bodies.
	ExposeDetail bool
	Logger       *zap.Logger
}

func (h *Handler) identity(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	return id, ok
}

// fail answers with err and logs server-side failures.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	if common.HTTPStatus(err) >= http.StatusInternalServerError {
		h.Logger.Error(fallback,
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.Error(err),
		)
	}
	common.FailErr(c, err, fallback, h.ExposeDetail)
}

func badJSON(c *gin.Context) {
	common.Fail(c, http.StatusBadRequest, "invalid json")
}
