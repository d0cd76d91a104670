package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/ai"
	"github.com/suPer8Hu/gemini-chat/internal/common"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"service": h.ServiceName,
		"model":   h.Chat.DefaultModel(),
	})
}

// ListModels shows the Gemini models the configured key can see.
func (h *Handler) ListModels(c *gin.Context) {
	if _, ok := h.identity(c); !ok {
		return
	}
	if h.Catalog == nil {
		h.fail(c, fmt.Errorf("%w: GEMINI_API_KEY is not configured on the server", common.ErrMisconfigured), "Failed to list models")
		return
	}
	all, err := h.Catalog.ListModels(c.Request.Context())
	if err != nil {
		h.fail(c, fmt.Errorf("%w: list models: %w", common.ErrUpstream, err), "Failed to list models")
		return
	}
	out := make([]ai.ModelInfo, 0, len(all))
	for _, m := range all {
		if strings.Contains(m.ID, "gemini") {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

// RefreshModels drops the resolved model and resolves again. Admins only.
func (h *Handler) RefreshModels(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	if !id.IsAdmin {
		common.Fail(c, http.StatusForbidden, "admin only")
		return
	}
	if h.Models == nil {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	h.Models.Invalidate()
	model, err := h.Models.Resolve(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to resolve model")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "model": model})
}
