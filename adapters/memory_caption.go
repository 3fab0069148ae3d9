package adapters

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
)

// MemoryCaptionRepository keeps sessions and transcript lines in process memory.
// Values are copied in and out so callers cannot mutate stored state.
type MemoryCaptionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*entities.CaptionSession      // id -> session
	segments map[string][]*entities.TranscriptSegment // session id -> lines
}

// NewMemoryCaptionRepository creates a new in-memory caption repository
func NewMemoryCaptionRepository() *MemoryCaptionRepository {
	return &MemoryCaptionRepository{
		sessions: make(map[string]*entities.CaptionSession),
		segments: make(map[string][]*entities.TranscriptSegment),
	}
}

func (m *MemoryCaptionRepository) CreateSession(ctx context.Context, session *entities.CaptionSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return fmt.Errorf("session %s already exists", session.ID)
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MemoryCaptionRepository) UpdateSession(ctx context.Context, session *entities.CaptionSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; !exists {
		return fmt.Errorf("session %s: %w", session.ID, repositories.ErrNotFound)
	}
	copied := *session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *MemoryCaptionRepository) GetSession(ctx context.Context, id string) (*entities.CaptionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, exists := m.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
	}
	copied := *session
	return &copied, nil
}

func (m *MemoryCaptionRepository) ListSessions(ctx context.Context, limit int) ([]*entities.CaptionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sessions := make([]*entities.CaptionSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		copied := *s
		sessions = append(sessions, &copied)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}

func (m *MemoryCaptionRepository) AppendSegment(ctx context.Context, segment *entities.TranscriptSegment) error {
	if segment == nil {
		return errors.New("segment cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *segment
	m.segments[segment.SessionID] = append(m.segments[segment.SessionID], &copied)
	return nil
}

func (m *MemoryCaptionRepository) ListSegments(ctx context.Context, sessionID string) ([]*entities.TranscriptSegment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.segments[sessionID]
	segments := make([]*entities.TranscriptSegment, len(stored))
	for i, s := range stored {
		copied := *s
		segments[i] = &copied
	}
	return segments, nil
}

var _ repositories.CaptionRepository = (*MemoryCaptionRepository)(nil)
