package websocket

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/satriahrh/radiocaption/domain/entities"
)

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name        string
		message     string
		expectError string
		expectType  interface{}
	}{
		{
			name:       "subscribe",
			message:    `{"type":"subscribe","session_id":"abc"}`,
			expectType: &SubscribeMessage{},
		},
		{
			name:       "subscribe to all",
			message:    `{"type":"subscribe"}`,
			expectType: &SubscribeMessage{},
		},
		{
			name:       "ping",
			message:    `{"type":"ping","data":"x"}`,
			expectType: &PingMessage{},
		},
		{
			name:        "invalid json",
			message:     `{"type":`,
			expectError: "invalid JSON format",
		},
		{
			name:        "missing type",
			message:     `{"session_id":"abc"}`,
			expectError: "type is required",
		},
		{
			name:        "server-only type",
			message:     `{"type":"transcript","text":"hi"}`,
			expectError: "unsupported message type: transcript",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := validator.ValidateMessage([]byte(tt.message))
			if tt.expectError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.expectError) {
					t.Errorf("Expected error containing %q, got %v", tt.expectError, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			switch tt.expectType.(type) {
			case *SubscribeMessage:
				if _, ok := msg.(*SubscribeMessage); !ok {
					t.Errorf("Expected *SubscribeMessage, got %T", msg)
				}
			case *PingMessage:
				if _, ok := msg.(*PingMessage); !ok {
					t.Errorf("Expected *PingMessage, got %T", msg)
				}
			}
		})
	}
}

func TestNewTranscriptMessage_WireFormat(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	msg := NewTranscriptMessage(entities.TranscriptEvent{
		SessionID:  "s1",
		Partial:    true,
		Text:       "bonjour",
		ReceivedAt: at,
	})

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if fields["type"] != "transcript" {
		t.Errorf("Expected type transcript, got %v", fields["type"])
	}
	if fields["session_id"] != "s1" || fields["partial"] != true || fields["text"] != "bonjour" {
		t.Errorf("Unexpected fields %v", fields)
	}
	if fields["timestamp"] != "2024-05-01T09:30:00Z" {
		t.Errorf("Expected RFC3339 timestamp, got %v", fields["timestamp"])
	}
}

func TestNewSessionStatusMessage(t *testing.T) {
	s := entities.NewCaptionSession("http://example.test/live.aac", "fr-FR", "mock", 16000)
	s.Stats.ChunksDropped = 3
	s.Complete("stalled")

	msg := NewSessionStatusMessage(s)
	if msg.Type != MessageTypeSessionStatus {
		t.Errorf("Expected session_status, got %s", msg.Type)
	}
	if msg.SessionID != s.ID || msg.EndReason != "stalled" || msg.Stats.ChunksDropped != 3 {
		t.Errorf("Unexpected message %+v", msg)
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "message rejected", "details")
	if msg.Type != MessageTypeError || msg.Code != "invalid_message" || msg.Timestamp == "" {
		t.Errorf("Unexpected error message %+v", msg)
	}
}
