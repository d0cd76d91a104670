package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/prompt"
)

func (h *Handler) ListPrompts(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	out, err := h.Prompts.List(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to list prompts")
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreatePrompt(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var in prompt.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	p, err := h.Prompts.Create(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err, "Failed to create prompt")
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) UpdatePrompt(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var in prompt.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badJSON(c)
		return
	}
	p, err := h.Prompts.Update(c.Request.Context(), id, c.Param("id"), in)
	if err != nil {
		h.fail(c, err, "Failed to update prompt")
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePrompt(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	if err := h.Prompts.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
		h.fail(c, err, "Failed to delete prompt")
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type renderReq struct {
	Values map[string]string `json:"values"`
}

func (h *Handler) RenderPrompt(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req renderReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
	}
	out, err := h.Prompts.Render(c.Request.Context(), id, c.Param("id"), req.Values)
	if err != nil {
		h.fail(c, err, "Failed to render prompt")
		return
	}
	c.JSON(http.StatusOK, out)
}
