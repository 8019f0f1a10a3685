package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeChatMessage MessageType = "chat_message"
	TypeChatReply   MessageType = "chat_reply"
	TypeErrorEvent  MessageType = "error_event"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// ChatMessage is one inbound human message. ConversationID may be empty on
// the first message; the server assigns one and echoes it back.
type ChatMessage struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	AuthorID       string      `json:"author_id"`
	AuthorName     string      `json:"author_name"`
	Private        bool        `json:"private"`
	Text           string      `json:"text"`
}

type ChatReply struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id"`
	Reply          string      `json:"reply"`
}

type ErrorEvent struct {
	Type           MessageType `json:"type"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Code           string      `json:"code"`
	Detail         string      `json:"detail"`
}

// ParseClientMessage validates a raw websocket frame and returns the typed
// variant.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch env.Type {
	case TypeChatMessage:
		var msg ChatMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, err
		}
		if strings.TrimSpace(msg.AuthorID) == "" || strings.TrimSpace(msg.AuthorName) == "" {
			return nil, errors.New("invalid chat_message: missing author")
		}
		if strings.TrimSpace(msg.Text) == "" {
			return nil, errors.New("invalid chat_message: missing text")
		}
		return msg, nil
	default:
		return nil, ErrUnsupportedType
	}
}
