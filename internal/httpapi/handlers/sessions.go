package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/chat"
)

type createSessionReq struct {
	Title *string `json:"title"`
	Model string  `json:"model"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req createSessionReq
	// an empty body means all defaults
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badJSON(c)
			return
		}
	}
	s, err := h.Chat.CreateSession(c.Request.Context(), id.UserID, req.Title, req.Model)
	if err != nil {
		h.fail(c, err, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *Handler) ListSessions(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	sessions, err := h.Chat.ListSessions(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *Handler) GetSession(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	s, msgs, err := h.Chat.GetSession(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load session")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": s, "messages": msgs})
}

func (h *Handler) PatchSession(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req chat.SessionPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	s, err := h.Chat.PatchSession(c.Request.Context(), id.UserID, c.Param("id"), req)
	if err != nil {
		h.fail(c, err, "Failed to update session")
		return
	}
	c.JSON(http.StatusOK, s)
}
