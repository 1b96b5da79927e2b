package controller

import (
	"net/http"

	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
)

// CreateConversationController lets an adopter open a thread with a shelter
type CreateConversationController struct {
	UC *usecase.CreateConversationUseCase
}

func NewCreateConversationController(repo repository.ChatRepository, events usecase.EventSink) *CreateConversationController {
	return &CreateConversationController{UC: usecase.NewCreateConversationUseCase(repo, events)}
}

type createConversationRequest struct {
	ShelterID      string  `json:"shelter_id" binding:"required"`
	PetID          *string `json:"pet_id"`
	InitialMessage string  `json:"initial_message" binding:"required"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerOrAbort(c)
		if !ok {
			return
		}
		if viewer.Role != chat.RoleAdopter {
			c.JSON(http.StatusForbidden, gin.H{"error": "only adopters can start conversations"})
			return
		}

		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !validUUID(req.ShelterID) || (req.PetID != nil && !validUUID(*req.PetID)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shelter_id and pet_id must be UUIDs"})
			return
		}

		summary, err := h.UC.Execute(c.Request.Context(), usecase.CreateConversationInput{
			AdopterID:      viewer.UserID,
			ShelterID:      req.ShelterID,
			PetID:          req.PetID,
			InitialMessage: req.InitialMessage,
		})
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, summary)
	}
}
