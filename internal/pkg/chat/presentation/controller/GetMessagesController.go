package controller

import (
	"net/http"
	"strconv"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// GetMessagesController handles fetching the tail of a conversation (one controller per endpoint)
type GetMessagesController struct {
	UC    *usecase.GetMessagesUseCase
	guard participantGuard
}

func NewGetMessagesController(repo repository.ChatRepository) *GetMessagesController {
	return &GetMessagesController{
		UC:    usecase.NewGetMessagesUseCase(repo),
		guard: participantGuard{check: usecase.NewCheckParticipantUseCase(repo)},
	}
}

func (h *GetMessagesController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, conv, ok := h.guard.authorize(c)
		if !ok {
			return
		}

		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
				return
			}
			limit = n
		}

		msgs, err := h.UC.Execute(c.Request.Context(), usecase.GetMessagesInput{ConversationID: conv.ID, Limit: limit})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"messages": msgs,
			"count":    len(msgs),
		})
	}
}
