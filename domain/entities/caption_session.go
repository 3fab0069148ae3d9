package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SessionStatus represents the status of a caption session
type SessionStatus string

const (
	SessionStatusStarting  SessionStatus = "starting"
	SessionStatusRunning   SessionStatus = "running"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusFailed    SessionStatus = "failed"
)

// SessionStats contains the relay counters recorded for a session
type SessionStats struct {
	ChunksRead      uint64 `json:"chunks_read" bson:"chunks_read"`
	BytesRead       uint64 `json:"bytes_read" bson:"bytes_read"`
	ChunksDropped   uint64 `json:"chunks_dropped" bson:"chunks_dropped"`
	ChunksDelivered uint64 `json:"chunks_delivered" bson:"chunks_delivered"`
	PartialEvents   uint64 `json:"partial_events" bson:"partial_events"`
	FinalEvents     uint64 `json:"final_events" bson:"final_events"`
}

// CaptionSession represents one live captioning run over a stream
type CaptionSession struct {
	ID         string        `json:"id" bson:"_id"`
	StreamURL  string        `json:"stream_url" bson:"stream_url"`
	Language   string        `json:"language" bson:"language"`
	Provider   string        `json:"provider" bson:"provider"`
	SampleRate int           `json:"sample_rate" bson:"sample_rate"`
	Status     SessionStatus `json:"status" bson:"status"`
	StartedAt  time.Time     `json:"started_at" bson:"started_at"`
	EndedAt    *time.Time    `json:"ended_at,omitempty" bson:"ended_at,omitempty"`
	EndReason  string        `json:"end_reason,omitempty" bson:"end_reason,omitempty"`
	Error      string        `json:"error,omitempty" bson:"error,omitempty"`
	Stats      SessionStats  `json:"stats" bson:"stats"`
}

// NewCaptionSession creates a new session for a stream
func NewCaptionSession(streamURL, language, provider string, sampleRate int) *CaptionSession {
	return &CaptionSession{
		ID:         uuid.NewString(),
		StreamURL:  streamURL,
		Language:   language,
		Provider:   provider,
		SampleRate: sampleRate,
		Status:     SessionStatusStarting,
		StartedAt:  time.Now(),
	}
}

// MarkRunning records that audio is flowing to the recognizer
func (s *CaptionSession) MarkRunning() {
	s.Status = SessionStatusRunning
}

// Complete marks the session as ended without failure
func (s *CaptionSession) Complete(reason string) {
	now := time.Now()
	s.Status = SessionStatusCompleted
	s.EndedAt = &now
	s.EndReason = reason
}

// Fail marks the session as ended by err
func (s *CaptionSession) Fail(err error) {
	now := time.Now()
	s.Status = SessionStatusFailed
	s.EndedAt = &now
	if err != nil {
		s.Error = err.Error()
	}
}

// IsFinished reports whether the session reached a terminal status
func (s *CaptionSession) IsFinished() bool {
	return s.Status == SessionStatusCompleted || s.Status == SessionStatusFailed
}

// Duration returns how long the session ran, or has been running so far
func (s *CaptionSession) Duration() time.Duration {
	if s.EndedAt != nil {
		return s.EndedAt.Sub(s.StartedAt)
	}
	return time.Since(s.StartedAt)
}

// Validate validates the session data
func (s *CaptionSession) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	if s.StreamURL == "" {
		return errors.New("stream_url is required")
	}
	if s.Language == "" {
		return errors.New("language is required")
	}

	switch s.Status {
	case SessionStatusStarting, SessionStatusRunning, SessionStatusCompleted, SessionStatusFailed:
	default:
		return errors.New("invalid session status")
	}

	return nil
}
