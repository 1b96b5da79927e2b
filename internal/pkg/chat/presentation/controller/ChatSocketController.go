package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"petchat/internal/infrastructure/logger"
	"petchat/internal/infrastructure/realtime"
	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/usecase"
	repository "petchat/internal/pkg/chat/persistence/repository/port"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Inserted messages reach room members through the event pipeline and the realtime
// bridge, never directly from this controller, so every node delivers the same way.
type ChatSocketController struct {
	router          *realtime.Router
	sendMessageUC   *usecase.SendMessageUseCase
	markReadUC      *usecase.MarkMessagesAsReadUseCase
	checkUC         *usecase.CheckParticipantUseCase
	upgrader        websocket.Upgrader
	inflightTimeout time.Duration
}

func NewChatSocketController(repo repository.ChatRepository, events usecase.EventSink, router *realtime.Router, allowedOrigins []string) *ChatSocketController {
	return &ChatSocketController{
		router:        router,
		sendMessageUC: usecase.NewSendMessageUseCase(repo, events),
		markReadUC:    usecase.NewMarkMessagesAsReadUseCase(repo, events),
		checkUC:       usecase.NewCheckParticipantUseCase(repo),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		inflightTimeout: 5 * time.Second,
	}
}

// originChecker accepts non-browser clients (no Origin header), the configured
// origins, and anything when "*" is configured.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") || slices.Contains(allowed, origin) {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

const (
	frameJoin    = "join"
	frameLeave   = "leave"
	frameMessage = "message"
	frameRead    = "read"
)

type inboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Content        string `json:"content,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
}

type errorFrame struct {
	Type           string `json:"type"`
	Code           string `json:"code"`
	Error          string `json:"error"`
	ConversationID string `json:"conversation_id,omitempty"`
	ClientID       string `json:"client_id,omitempty"`
}

type ackFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

type messageAckFrame struct {
	Type     string        `json:"type"`
	ClientID string        `json:"client_id,omitempty"`
	Message  *chat.Message `json:"message"`
}

type readAckFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	ReadCount      int64  `json:"read_count"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer, ok := viewerOrAbort(c)
		if !ok {
			return
		}

		ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response.
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		conn := realtime.NewConnection(viewer.UserID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(64 << 10)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		send(conn, ackFrame{Type: "connected", UserID: viewer.UserID})

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				logger.Debug().Err(err).Str("user_id", viewer.UserID).Msg("websocket read failed")
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				replyError(conn, errorFrame{Code: "bad_request", Error: "invalid payload"})
				continue
			}
			ctl.dispatch(c.Request.Context(), conn, viewer, frame)
		}
	}
}

func (ctl *ChatSocketController) dispatch(ctx context.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	if frame.ConversationID == "" && frame.Type != "" {
		replyError(conn, errorFrame{Code: "bad_request", Error: "conversation_id is required", ClientID: frame.ClientID})
		return
	}

	switch frame.Type {
	case frameJoin:
		ctl.handleJoin(ctx, conn, viewer, frame)
	case frameLeave:
		ctl.router.Leave(frame.ConversationID, conn)
		send(conn, ackFrame{Type: "left", ConversationID: frame.ConversationID})
	case frameMessage:
		ctl.handleMessage(ctx, conn, viewer, frame)
	case frameRead:
		ctl.handleRead(ctx, conn, viewer, frame)
	default:
		replyError(conn, errorFrame{Code: "unsupported_type", Error: "unknown frame type"})
	}
}

func (ctl *ChatSocketController) authorize(ctx context.Context, viewer chat.Viewer, conversationID string) error {
	if !validUUID(conversationID) {
		return fmt.Errorf("%w: conversation_id must be a UUID", usecase.ErrValidation)
	}
	_, err := ctl.checkUC.Execute(ctx, usecase.CheckParticipantInput{ConversationID: conversationID, Viewer: viewer})
	return err
}

func (ctl *ChatSocketController) handleJoin(ctx context.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	if err := ctl.authorize(ctx, viewer, frame.ConversationID); err != nil {
		replyUseCaseError(conn, frame, err)
		return
	}
	if !ctl.router.Join(frame.ConversationID, conn) {
		return
	}
	send(conn, ackFrame{Type: "joined", ConversationID: frame.ConversationID})
}

func (ctl *ChatSocketController) handleMessage(ctx context.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	if err := ctl.authorize(ctx, viewer, frame.ConversationID); err != nil {
		replyUseCaseError(conn, frame, err)
		return
	}

	msg, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ConversationID: frame.ConversationID,
		SenderID:       viewer.UserID,
		Content:        frame.Content,
	})
	if err != nil {
		replyUseCaseError(conn, frame, err)
		return
	}
	send(conn, messageAckFrame{Type: "message.ack", ClientID: frame.ClientID, Message: msg})
}

func (ctl *ChatSocketController) handleRead(ctx context.Context, conn *realtime.Connection, viewer chat.Viewer, frame inboundFrame) {
	ctx, cancel := context.WithTimeout(ctx, ctl.inflightTimeout)
	defer cancel()

	if err := ctl.authorize(ctx, viewer, frame.ConversationID); err != nil {
		replyUseCaseError(conn, frame, err)
		return
	}

	n, err := ctl.markReadUC.Execute(ctx, usecase.MarkMessagesAsReadInput{
		ConversationID: frame.ConversationID,
		UserID:         viewer.UserID,
	})
	if err != nil {
		replyUseCaseError(conn, frame, err)
		return
	}
	send(conn, readAckFrame{Type: "read.ack", ConversationID: frame.ConversationID, ReadCount: n})
}

func replyUseCaseError(conn *realtime.Connection, frame inboundFrame, err error) {
	out := errorFrame{ConversationID: frame.ConversationID, ClientID: frame.ClientID}
	switch statusFor(err) {
	case http.StatusNotFound:
		out.Code, out.Error = "not_found", "conversation not found"
	case http.StatusForbidden:
		out.Code, out.Error = "forbidden", "user is not a participant in this conversation"
	case http.StatusBadRequest:
		out.Code, out.Error = "bad_request", err.Error()
	default:
		logger.Error().Err(err).Str("conversation_id", frame.ConversationID).Msg("websocket frame failed")
		out.Code, out.Error = "internal_error", "unexpected persistence error"
	}
	replyError(conn, out)
}

func replyError(conn *realtime.Connection, frame errorFrame) {
	frame.Type = "error"
	send(conn, frame)
}

func send(conn *realtime.Connection, v any) {
	if payload, err := json.Marshal(v); err == nil {
		_ = conn.Send(payload)
	}
}
