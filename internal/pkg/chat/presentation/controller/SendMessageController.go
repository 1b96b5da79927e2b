package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// SendMessageController handles the send-message endpoint only (one controller per endpoint)
type SendMessageController struct {
	UC    *usecase.SendMessageUseCase
	guard participantGuard
}

func NewSendMessageController(repo repository.ChatRepository, events usecase.EventSink) *SendMessageController {
	return &SendMessageController{
		UC:    usecase.NewSendMessageUseCase(repo, events),
		guard: participantGuard{check: usecase.NewCheckParticipantUseCase(repo)},
	}
}

// sendMessageRequest is the DTO for the HTTP request body. ClientID is the caller's
// optimistic temp id, echoed back so it can swap the entry for the stored message.
type sendMessageRequest struct {
	Content  string `json:"content" binding:"required"`
	ClientID string `json:"client_id"`
}

func (h *SendMessageController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, conv, ok := h.guard.authorize(c)
		if !ok {
			return
		}

		var req sendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := h.UC.Execute(c.Request.Context(), usecase.SendMessageInput{
			ConversationID: conv.ID,
			SenderID:       viewer.UserID,
			Content:        req.Content,
		})
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message":   msg,
			"client_id": req.ClientID,
		})
	}
}
