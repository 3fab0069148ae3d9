package repositories

import (
	"context"
	"errors"

	"github.com/satriahrh/radiocaption/domain/entities"
)

// ErrNotFound is returned when a session does not exist
var ErrNotFound = errors.New("not found")

// CaptionRepository stores caption sessions and their final transcript lines
type CaptionRepository interface {
	CreateSession(ctx context.Context, session *entities.CaptionSession) error
	UpdateSession(ctx context.Context, session *entities.CaptionSession) error
	GetSession(ctx context.Context, id string) (*entities.CaptionSession, error)
	ListSessions(ctx context.Context, limit int) ([]*entities.CaptionSession, error)
	AppendSegment(ctx context.Context, segment *entities.TranscriptSegment) error
	ListSegments(ctx context.Context, sessionID string) ([]*entities.TranscriptSegment, error)
}
