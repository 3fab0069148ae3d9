package api

import "github.com/satriahrh/radiocaption/domain/entities"

// SessionListResponse is the body of GET /api/v1/sessions
type SessionListResponse struct {
	Sessions []*entities.CaptionSession `json:"sessions"`
	Count    int                        `json:"count"`
}

// TranscriptResponse is the body of GET /api/v1/sessions/:id/transcripts
type TranscriptResponse struct {
	SessionID string                        `json:"session_id"`
	Segments  []*entities.TranscriptSegment `json:"segments"`
	Count     int                           `json:"count"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
