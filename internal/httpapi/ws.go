package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/dorothy/internal/protocol"
	"github.com/antoniostano/dorothy/internal/responder"
)

// handleChatWS runs the realtime chat gateway. Frames are parsed into
// protocol messages, each handled on its own goroutine so a slow completion
// does not block the read loop; all websocket writes go through a single
// writer goroutine.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	outbound := make(chan any, 64)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-outbound:
				if !ok {
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	send := func(msg any) {
		select {
		case <-ctx.Done():
		case outbound <- msg:
		}
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			send(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}
		msg, ok := parsed.(protocol.ChatMessage)
		if !ok {
			continue
		}
		if msg.ConversationID == "" {
			msg.ConversationID = uuid.NewString()
		}

		go func(msg protocol.ChatMessage) {
			reply, err := s.resp.HandleMessage(ctx, responder.Inbound{
				ConversationKey: msg.ConversationID,
				AuthorID:        msg.AuthorID,
				AuthorName:      msg.AuthorName,
				Private:         msg.Private,
				Content:         msg.Text,
			})
			if err != nil {
				log.Printf("completion failed for %s: %v", msg.ConversationID, err)
				send(protocol.ErrorEvent{
					Type:           protocol.TypeErrorEvent,
					ConversationID: msg.ConversationID,
					Code:           "completion_failed",
					Detail:         responder.FailureReply,
				})
				return
			}
			send(protocol.ChatReply{
				Type:           protocol.TypeChatReply,
				ConversationID: msg.ConversationID,
				Reply:          reply,
			})
		}(msg)
	}

	cancel()
	<-writerDone
}
