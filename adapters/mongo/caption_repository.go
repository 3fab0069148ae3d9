package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
)

const (
	sessionsCollection = "caption_sessions"
	segmentsCollection = "transcript_segments"
)

// CaptionRepository stores caption sessions and final transcript lines in MongoDB
type CaptionRepository struct {
	sessions *mongo.Collection
	segments *mongo.Collection
	logger   *zap.Logger
}

// NewCaptionRepository creates a new MongoDB caption repository
func NewCaptionRepository(db *mongo.Database, logger *zap.Logger) *CaptionRepository {
	return &CaptionRepository{
		sessions: db.Collection(sessionsCollection),
		segments: db.Collection(segmentsCollection),
		logger:   logger,
	}
}

// EnsureIndexes creates the indexes the list queries rely on
func (r *CaptionRepository) EnsureIndexes(ctx context.Context) error {
	if _, err := r.sessions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "started_at", Value: -1}},
	}); err != nil {
		return fmt.Errorf("failed to create session index: %w", err)
	}
	if _, err := r.segments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "session_id", Value: 1}, {Key: "sequence", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create segment index: %w", err)
	}
	return nil
}

func (r *CaptionRepository) CreateSession(ctx context.Context, session *entities.CaptionSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if _, err := r.sessions.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *CaptionRepository) UpdateSession(ctx context.Context, session *entities.CaptionSession) error {
	if session == nil {
		return errors.New("session cannot be nil")
	}
	if session.ID == "" {
		return errors.New("session ID cannot be empty")
	}

	result, err := r.sessions.ReplaceOne(ctx, bson.M{"_id": session.ID}, session)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("session %s: %w", session.ID, repositories.ErrNotFound)
	}
	return nil
}

func (r *CaptionRepository) GetSession(ctx context.Context, id string) (*entities.CaptionSession, error) {
	var session entities.CaptionSession
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &session, nil
}

// ListSessions returns the most recently started sessions first
func (r *CaptionRepository) ListSessions(ctx context.Context, limit int) ([]*entities.CaptionSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.sessions.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions := []*entities.CaptionSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *CaptionRepository) AppendSegment(ctx context.Context, segment *entities.TranscriptSegment) error {
	if segment == nil {
		return errors.New("segment cannot be nil")
	}
	if _, err := r.segments.InsertOne(ctx, segment); err != nil {
		return fmt.Errorf("failed to append segment: %w", err)
	}
	return nil
}

// ListSegments returns the final lines of a session in arrival order
func (r *CaptionRepository) ListSegments(ctx context.Context, sessionID string) ([]*entities.TranscriptSegment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}})
	cursor, err := r.segments.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list segments: %w", err)
	}

	segments := []*entities.TranscriptSegment{}
	if err := cursor.All(ctx, &segments); err != nil {
		return nil, fmt.Errorf("failed to decode segments: %w", err)
	}
	return segments, nil
}

var _ repositories.CaptionRepository = (*CaptionRepository)(nil)
