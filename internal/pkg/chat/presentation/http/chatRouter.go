package http

import (
	"time"

	"petchat/internal/infrastructure/realtime"
	"petchat/internal/middleware"
	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"
	"petchat/internal/pkg/chat/presentation/controller"

	"github.com/gin-gonic/gin"
)

// Dependencies are the collaborators the messaging endpoints are built from.
type Dependencies struct {
	Repo           repository.ChatRepository
	Events         usecase.EventSink
	Router         *realtime.Router
	JWTSecret      string
	AllowedOrigins []string
	RequestTimeout time.Duration
	RateLimiter    *middleware.KeyedRateLimiter
}

// RegisterRoutes registers messaging HTTP endpoints under the given router group.
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, deps Dependencies) {
	events := deps.Events
	if events == nil {
		events = usecase.NopEventSink{}
	}

	listCtl := controller.NewListConversationsController(deps.Repo)
	createCtl := controller.NewCreateConversationController(deps.Repo, events)
	getCtl := controller.NewGetConversationController(deps.Repo)
	statusCtl := controller.NewUpdateConversationStatusController(deps.Repo)
	getMsgCtl := controller.NewGetMessagesController(deps.Repo)
	sendMsgCtl := controller.NewSendMessageController(deps.Repo, events)
	readCtl := controller.NewMarkMessagesAsReadController(deps.Repo, events)
	unreadCtl := controller.NewGetUnreadCountController(deps.Repo)
	socketCtl := controller.NewChatSocketController(deps.Repo, events, deps.Router, deps.AllowedOrigins)

	authed := g.Group("", middleware.Auth(deps.JWTSecret))
	if deps.RateLimiter != nil {
		authed.Use(middleware.RateLimit(deps.RateLimiter))
	}

	// Websocket sessions outlive any request timeout.
	authed.GET("/ws", socketCtl.Handle())

	rest := authed.Group("")
	if deps.RequestTimeout > 0 {
		rest.Use(middleware.Timeout(deps.RequestTimeout))
	}

	// GET /api/v1/conversations -> inbox of the caller
	rest.GET("/conversations", listCtl.Handle())
	// POST /api/v1/conversations -> adopter opens (or reopens) a conversation
	rest.POST("/conversations", createCtl.Handle())
	rest.GET("/conversations/:conversationId", getCtl.Handle())
	rest.PATCH("/conversations/:conversationId/status", statusCtl.Handle())
	rest.GET("/conversations/:conversationId/messages", getMsgCtl.Handle())
	rest.POST("/conversations/:conversationId/messages", sendMsgCtl.Handle())
	rest.POST("/conversations/:conversationId/read", readCtl.Handle())
	// GET /api/v1/messages/unread-count -> unread badge, never fails
	rest.GET("/messages/unread-count", unreadCtl.Handle())
}
