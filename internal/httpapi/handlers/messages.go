package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/gemini-chat/internal/chat"
	"github.com/suPer8Hu/gemini-chat/internal/common"
	"go.uber.org/zap"
)

func (h *Handler) ListMessages(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	msgs, err := h.Chat.ListMessages(c.Request.Context(), id.UserID, c.Param("sessionId"))
	if err != nil {
		h.fail(c, err, "Failed to list messages")
		return
	}
	c.JSON(http.StatusOK, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.Dispatcher.Send(c.Request.Context(), id.UserID, req)
	if err != nil {
		h.fail(c, err, "Failed to get AI response")
		return
	}
	c.JSON(http.StatusOK, res)
}

// SendMessageAsync queues the send and answers 202 with the job id.
// Replaying an Idempotency-Key returns the original job without
// queueing it again.
func (h *Handler) SendMessageAsync(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	if h.Jobs == nil {
		common.Fail(c, http.StatusServiceUnavailable, "async send is disabled")
		return
	}
	var req chat.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}

	ctx := c.Request.Context()
	job, created, err := h.Chat.SubmitJob(ctx, id.UserID, req, c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.fail(c, err, "Failed to queue message")
		return
	}

	if created {
		if err := h.Jobs.PublishJob(ctx, job.ID); err != nil {
			h.Logger.Error("publish job",
				zap.String("job_id", job.ID),
				zap.Uint64("user_id", id.UserID),
				zap.Error(err),
			)
			if aerr := h.Chat.AbandonJob(ctx, job.ID, "enqueue failed"); aerr != nil {
				h.Logger.Warn("abandon job", zap.String("job_id", job.ID), zap.Error(aerr))
			}
			common.Fail(c, http.StatusInternalServerError, "enqueue failed")
			return
		}
	}
	c.JSON(http.StatusAccepted, gin.H{"jobId": job.ID})
}

func (h *Handler) GetJob(c *gin.Context) {
	id, ok := h.identity(c)
	if !ok {
		return
	}
	job, err := h.Chat.GetJob(c.Request.Context(), id.UserID, c.Param("id"))
	if err != nil {
		h.fail(c, err, "Failed to load job")
		return
	}
	c.JSON(http.StatusOK, job)
}
