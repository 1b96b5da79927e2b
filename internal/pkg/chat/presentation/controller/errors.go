package controller

import (
	"errors"
	"net/http"

	"petchat/internal/infrastructure/logger"
	"petchat/internal/middleware"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const conversationParam = "conversationId"

// statusFor maps use case errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, chat.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrValidation),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidMessage),
		errors.Is(err, chat.ErrInvalidStatus),
		errors.Is(err, chat.ErrInvalidViewer),
		errors.Is(err, chat.ErrInvalidConversationKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("route", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func validUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// participantGuard resolves the caller and checks they belong to the conversation in
// the path. Every conversation-scoped endpoint goes through it.
type participantGuard struct {
	check *usecase.CheckParticipantUseCase
}

func (g participantGuard) authorize(c *gin.Context) (chat.Viewer, *chat.Conversation, bool) {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return chat.Viewer{}, nil, false
	}

	conversationID := c.Param(conversationParam)
	if !validUUID(conversationID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversationId must be a UUID"})
		return chat.Viewer{}, nil, false
	}

	conv, err := g.check.Execute(c.Request.Context(), usecase.CheckParticipantInput{
		ConversationID: conversationID,
		Viewer:         viewer,
	})
	if err != nil {
		writeError(c, err)
		return chat.Viewer{}, nil, false
	}
	return viewer, conv, true
}

func viewerOrAbort(c *gin.Context) (chat.Viewer, bool) {
	viewer, ok := middleware.ViewerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
	}
	return viewer, ok
}
