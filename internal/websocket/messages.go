package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/radiocaption/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeTranscript    MessageType = "transcript"
	MessageTypeSessionStatus MessageType = "session_status"
	MessageTypeSubscribe     MessageType = "subscribe"
	MessageTypePing          MessageType = "ping"
	MessageTypePong          MessageType = "pong"
	MessageTypeError         MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
}

// TranscriptMessage carries one partial or final caption
type TranscriptMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
	Partial   bool   `json:"partial"`
	Text      string `json:"text"`
}

// SessionStatusMessage is pushed when a session starts, ends, or on the
// periodic status tick while it runs
type SessionStatusMessage struct {
	BaseMessage
	SessionID string                 `json:"session_id"`
	Status    entities.SessionStatus `json:"status"`
	StreamURL string                 `json:"stream_url"`
	Language  string                 `json:"language"`
	EndReason string                 `json:"end_reason,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Stats     entities.SessionStats  `json:"stats"`
}

// SubscribeMessage narrows a client to one session. An empty SessionID
// subscribes to every session.
type SubscribeMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator validates messages sent by subscribers
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage decodes an incoming message into its typed form
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	// First parse as base message to get type
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeSubscribe:
		var msg SubscribeMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid subscribe message: %w", err)
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func newBase(t MessageType, at time.Time) BaseMessage {
	return BaseMessage{Type: t, Timestamp: at.Format(time.RFC3339)}
}

// NewTranscriptMessage converts a recognition event for the wire
func NewTranscriptMessage(e entities.TranscriptEvent) *TranscriptMessage {
	return &TranscriptMessage{
		BaseMessage: newBase(MessageTypeTranscript, e.ReceivedAt),
		SessionID:   e.SessionID,
		Partial:     e.Partial,
		Text:        e.Text,
	}
}

// NewSessionStatusMessage snapshots a session for the wire
func NewSessionStatusMessage(s *entities.CaptionSession) *SessionStatusMessage {
	return &SessionStatusMessage{
		BaseMessage: newBase(MessageTypeSessionStatus, time.Now()),
		SessionID:   s.ID,
		Status:      s.Status,
		StreamURL:   s.StreamURL,
		Language:    s.Language,
		EndReason:   s.EndReason,
		Error:       s.Error,
		Stats:       s.Stats,
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError, time.Now()),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong, time.Now()),
		Data:        data,
	}
}
