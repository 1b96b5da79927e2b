package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// UpdateConversationStatusController archives, closes or reactivates a conversation
type UpdateConversationStatusController struct {
	UC    *usecase.UpdateConversationStatusUseCase
	guard participantGuard
}

func NewUpdateConversationStatusController(repo repository.ChatRepository) *UpdateConversationStatusController {
	return &UpdateConversationStatusController{
		UC:    usecase.NewUpdateConversationStatusUseCase(repo),
		guard: participantGuard{check: usecase.NewCheckParticipantUseCase(repo)},
	}
}

type updateConversationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *UpdateConversationStatusController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, conv, ok := h.guard.authorize(c)
		if !ok {
			return
		}

		var req updateConversationStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		updated, err := h.UC.Execute(c.Request.Context(), usecase.UpdateConversationStatusInput{
			ConversationID: conv.ID,
			Status:         req.Status,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}
