package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

type GetConversationController struct {
	UC    *usecase.GetConversationUseCase
	guard participantGuard
}

func NewGetConversationController(repo repository.ChatRepository) *GetConversationController {
	return &GetConversationController{
		UC:    usecase.NewGetConversationUseCase(repo),
		guard: participantGuard{check: usecase.NewCheckParticipantUseCase(repo)},
	}
}

func (h *GetConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, conv, ok := h.guard.authorize(c)
		if !ok {
			return
		}

		summary, err := h.UC.Execute(c.Request.Context(), usecase.GetConversationInput{ConversationID: conv.ID})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}
