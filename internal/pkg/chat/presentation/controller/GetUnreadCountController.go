package controller

import (
	"net/http"

	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// GetUnreadCountController backs the unread badge. The use case soft-fails, so this
// endpoint answers 200 even when the store is unavailable.
type GetUnreadCountController struct {
	UC *usecase.GetUnreadMessageCountUseCase
}

func NewGetUnreadCountController(repo repository.ChatRepository) *GetUnreadCountController {
	return &GetUnreadCountController{UC: usecase.NewGetUnreadMessageCountUseCase(repo)}
}

func (h *GetUnreadCountController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerOrAbort(c)
		if !ok {
			return
		}

		n, err := h.UC.Execute(c.Request.Context(), usecase.GetUnreadMessageCountInput{Viewer: viewer})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unread_count": n})
	}
}
