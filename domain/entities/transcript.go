package entities

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the wall-clock format used on transcript lines
const TimestampLayout = "15:04:05"

// TranscriptEvent is one recognition result, partial or final
type TranscriptEvent struct {
	SessionID  string    `json:"session_id"`
	Partial    bool      `json:"partial"`
	Text       string    `json:"text"`
	ReceivedAt time.Time `json:"received_at"`
}

// Kind returns "partial" or "final"
func (e TranscriptEvent) Kind() string {
	if e.Partial {
		return "partial"
	}
	return "final"
}

// Line renders the event the way captions are printed on the console
func (e TranscriptEvent) Line() string {
	tag := "FINAL"
	if e.Partial {
		tag = "PARTIAL"
	}
	return fmt.Sprintf("[%s] [%s] %s", e.ReceivedAt.Format(TimestampLayout), tag, e.Text)
}

// TranscriptSegment is a stored final transcript line
type TranscriptSegment struct {
	ID         string    `json:"id" bson:"_id"`
	SessionID  string    `json:"session_id" bson:"session_id"`
	Sequence   int       `json:"sequence" bson:"sequence"`
	Timestamp  string    `json:"timestamp" bson:"timestamp"`
	Transcript string    `json:"transcript" bson:"transcript"`
	ReceivedAt time.Time `json:"received_at" bson:"received_at"`
}

// NewTranscriptSegment builds the stored form of a final event
func NewTranscriptSegment(e TranscriptEvent, sequence int) *TranscriptSegment {
	return &TranscriptSegment{
		ID:         uuid.NewString(),
		SessionID:  e.SessionID,
		Sequence:   sequence,
		Timestamp:  e.ReceivedAt.Format(TimestampLayout),
		Transcript: e.Text,
		ReceivedAt: e.ReceivedAt,
	}
}
