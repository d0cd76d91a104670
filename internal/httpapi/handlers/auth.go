package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.Auth.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Registration failed")
		return
	}
	c.JSON(http.StatusCreated, res)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Login failed")
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Me(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	u, err := h.Auth.Me(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Failed to load user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u, "isAdmin": id.IsAdmin})
}
