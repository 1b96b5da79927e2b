package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

type MarkMessagesAsReadController struct {
	UC    *usecase.MarkMessagesAsReadUseCase
	guard participantGuard
}

func NewMarkMessagesAsReadController(repo repository.ChatRepository, events usecase.EventSink) *MarkMessagesAsReadController {
	return &MarkMessagesAsReadController{
		UC:    usecase.NewMarkMessagesAsReadUseCase(repo, events),
		guard: participantGuard{check: usecase.NewCheckParticipantUseCase(repo)},
	}
}

func (h *MarkMessagesAsReadController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, conv, ok := h.guard.authorize(c)
		if !ok {
			return
		}

		n, err := h.UC.Execute(c.Request.Context(), usecase.MarkMessagesAsReadInput{
			ConversationID: conv.ID,
			UserID:         viewer.UserID,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conv.ID,
			"read_count":      n,
		})
	}
}
