package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	chat "petchat/internal/pkg/chat/application/domain"
	"petchat/internal/pkg/chat/application/timeline"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type socketFrame struct {
	Type           string        `json:"type"`
	ConversationID string        `json:"conversation_id,omitempty"`
	Content        string        `json:"content,omitempty"`
	ClientID       string        `json:"client_id,omitempty"`
	UserID         string        `json:"user_id,omitempty"`
	Code           string        `json:"code,omitempty"`
	Error          string        `json:"error,omitempty"`
	Message        *chat.Message `json:"message,omitempty"`
	ReadCount      int64         `json:"read_count,omitempty"`
}

func newTailCommand() *cobra.Command {
	var (
		limit       int
		interactive bool
	)
	cmd := &cobra.Command{
		Use:   "tail <conversation-id>",
		Short: "Follow a conversation live; with -i, lines typed on stdin are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client()
			if err != nil {
				return err
			}
			var in io.Reader
			if interactive {
				in = os.Stdin
			}
			return tail(cmd.Context(), c, args[0], limit, in, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "history to load before following")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "send stdin lines as messages")
	return cmd
}

func tail(ctx context.Context, c *apiClient, conversationID string, limit int, in io.Reader, out io.Writer) error {
	summary, err := c.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}

	wsURL, err := c.socketURL()
	if err != nil {
		return err
	}
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	defer ws.Close()

	var hello socketFrame
	if err := ws.ReadJSON(&hello); err != nil {
		return fmt.Errorf("websocket: %w", err)
	}
	if hello.Type != "connected" {
		return fmt.Errorf("websocket: unexpected greeting %q", hello.Type)
	}

	// Join before loading history so nothing sent in between is missed; the
	// timeline drops the overlap.
	if err := ws.WriteJSON(socketFrame{Type: "join", ConversationID: conversationID}); err != nil {
		return err
	}

	tl := timeline.New(hello.UserID, *summary)
	history, err := c.GetMessages(ctx, conversationID, limit)
	if err != nil {
		return err
	}
	tl.Load(history)
	for _, m := range tl.Messages() {
		printMessage(out, summary, m)
	}

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	lines := make(chan string)
	if in != nil {
		go func() {
			defer close(lines)
			sc := bufio.NewScanner(in)
			for sc.Scan() {
				if text := strings.TrimSpace(sc.Text()); text != "" {
					lines <- text
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			_ = ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err

		case text, ok := <-lines:
			if !ok {
				lines = nil
				continue
			}
			tempID := tl.AddOptimistic(text)
			if err := ws.WriteJSON(socketFrame{
				Type:           "message",
				ConversationID: conversationID,
				Content:        text,
				ClientID:       tempID,
			}); err != nil {
				tl.Rollback(tempID)
				return err
			}

		case data := <-frames:
			handleFrame(out, tl, summary, data)
		}
	}
}

func handleFrame(out io.Writer, tl *timeline.Timeline, summary *chat.ConversationSummary, data []byte) {
	var f socketFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}

	switch f.Type {
	case string(chat.EventMessageInserted), string(chat.EventMessagesRead):
		var e chat.Event
		if err := json.Unmarshal(data, &e); err != nil {
			return
		}
		if !tl.ApplyEvent(e) {
			return
		}
		if e.Message != nil {
			printMessage(out, summary, *e.Message)
		} else {
			fmt.Fprintf(out, "-- %d message(s) read\n", e.ReadCount)
		}
	case "message.ack":
		if f.Message != nil {
			tl.Confirm(f.ClientID, *f.Message)
		}
	case "error":
		if f.ClientID != "" && tl.Pending(f.ClientID) {
			tl.Rollback(f.ClientID)
		}
		fmt.Fprintf(out, "!! %s: %s\n", f.Code, f.Error)
	}
}

func printMessage(out io.Writer, summary *chat.ConversationSummary, m chat.Message) {
	fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("15:04:05"), senderName(summary, m), m.Content)
}

func senderName(summary *chat.ConversationSummary, m chat.Message) string {
	switch {
	case m.Sender != nil && m.Sender.Name != "":
		return m.Sender.Name
	case m.SenderID == summary.AdopterID:
		return summary.Adopter.Name
	}
	return summary.Shelter.Name
}
