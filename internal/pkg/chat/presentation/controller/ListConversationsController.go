package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// ListConversationsController serves the caller's inbox (one controller per endpoint)
type ListConversationsController struct {
	UC *usecase.ListConversationsUseCase
}

func NewListConversationsController(repo repository.ChatRepository) *ListConversationsController {
	return &ListConversationsController{UC: usecase.NewListConversationsUseCase(repo)}
}

func (h *ListConversationsController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerOrAbort(c)
		if !ok {
			return
		}

		summaries, err := h.UC.Execute(c.Request.Context(), usecase.ListConversationsInput{Viewer: viewer})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"conversations": summaries,
			"count":         len(summaries),
		})
	}
}
