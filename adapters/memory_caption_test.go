package adapters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
)

func TestMemoryCaptionRepository_Sessions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCaptionRepository()

	older := entities.NewCaptionSession("http://example.test/a.aac", "fr-FR", "mock", 16000)
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := entities.NewCaptionSession("http://example.test/b.aac", "fr-FR", "mock", 16000)

	for _, s := range []*entities.CaptionSession{older, newer} {
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}
	if err := repo.CreateSession(ctx, newer); err == nil {
		t.Error("Expected duplicate create to fail")
	}

	// Mutating the caller's copy must not leak into the store
	newer.Status = entities.SessionStatusFailed
	stored, err := repo.GetSession(ctx, newer.ID)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if stored.Status != entities.SessionStatusStarting {
		t.Errorf("Expected stored status starting, got %s", stored.Status)
	}

	newer.Complete("shutdown")
	if err := repo.UpdateSession(ctx, newer); err != nil {
		t.Fatalf("Failed to update session: %v", err)
	}
	stored, _ = repo.GetSession(ctx, newer.ID)
	if stored.EndReason != "shutdown" {
		t.Errorf("Expected end reason shutdown, got %q", stored.EndReason)
	}

	list, err := repo.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Errorf("Expected newest session first, got %+v", list)
	}

	list, _ = repo.ListSessions(ctx, 1)
	if len(list) != 1 {
		t.Errorf("Expected limit to apply, got %d sessions", len(list))
	}
}

func TestMemoryCaptionRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCaptionRepository()

	if _, err := repo.GetSession(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	s := entities.NewCaptionSession("u", "fr-FR", "mock", 16000)
	if err := repo.UpdateSession(ctx, s); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("Expected ErrNotFound on update, got %v", err)
	}
}

func TestMemoryCaptionRepository_Segments(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryCaptionRepository()
	now := time.Now()

	for i, text := range []string{"un", "deux", "trois"} {
		seg := entities.NewTranscriptSegment(entities.TranscriptEvent{SessionID: "s1", Text: text, ReceivedAt: now}, i+1)
		if err := repo.AppendSegment(ctx, seg); err != nil {
			t.Fatalf("Failed to append segment: %v", err)
		}
	}

	segments, err := repo.ListSegments(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to list segments: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(segments))
	}
	if segments[2].Transcript != "trois" || segments[2].Sequence != 3 {
		t.Errorf("Unexpected last segment %+v", segments[2])
	}

	empty, err := repo.ListSegments(ctx, "other")
	if err != nil || len(empty) != 0 {
		t.Errorf("Expected no segments for unknown session, got %v, %v", empty, err)
	}
}
