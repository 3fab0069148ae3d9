package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/satriahrh/radiocaption/domain/entities"
	"github.com/satriahrh/radiocaption/domain/repositories"
	"github.com/satriahrh/radiocaption/internal/relay"
)

// ErrSessionRunning is returned when a caption session is already in progress
var ErrSessionRunning = errors.New("caption session already running")

const (
	defaultProducerJoinTimeout = 2 * time.Second
	defaultEndTimeout          = 5 * time.Second
	persistTimeout             = 5 * time.Second
)

// CaptionPublisher fans transcript events and session updates out to listeners
type CaptionPublisher interface {
	PublishTranscript(e entities.TranscriptEvent)
	PublishSessionStatus(s *entities.CaptionSession)
}

// SessionMetrics receives relay and session counters
type SessionMetrics interface {
	relay.Recorder
	SessionStarted()
	SessionEnded(outcome string, d time.Duration)
	TranscriptEvent(partial bool)
}

// CaptionConfig describes what to caption and how
type CaptionConfig struct {
	StreamURL  string
	Language   string
	SampleRate int
	Channels   int
	Provider   string
	Relay      relay.Config

	// ProducerJoinTimeout bounds the wait for the decoder reader at shutdown
	ProducerJoinTimeout time.Duration
	// EndTimeout bounds the end-of-input handshake with the recognizer
	EndTimeout time.Duration
}

// CaptionService runs live caption sessions: decoder, relay and recognizer
type CaptionService struct {
	decoder   repositories.AudioDecoder
	stt       repositories.SpeechToText
	repo      repositories.CaptionRepository
	publisher CaptionPublisher
	metrics   SessionMetrics
	console   io.Writer
	cfg       CaptionConfig
	logger    *zap.Logger

	mu      sync.Mutex
	current *entities.CaptionSession
	relay   *relay.Session

	partials atomic.Uint64
	finals   atomic.Uint64
}

// NewCaptionService creates a new caption service. publisher, metrics and
// console may be nil.
func NewCaptionService(
	decoder repositories.AudioDecoder,
	stt repositories.SpeechToText,
	repo repositories.CaptionRepository,
	publisher CaptionPublisher,
	metrics SessionMetrics,
	console io.Writer,
	cfg CaptionConfig,
	logger *zap.Logger,
) *CaptionService {
	if cfg.ProducerJoinTimeout <= 0 {
		cfg.ProducerJoinTimeout = defaultProducerJoinTimeout
	}
	if cfg.EndTimeout <= 0 {
		cfg.EndTimeout = defaultEndTimeout
	}
	if console == nil {
		console = io.Discard
	}
	return &CaptionService{
		decoder:   decoder,
		stt:       stt,
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		console:   console,
		cfg:       cfg,
		logger:    logger,
	}
}

// Current returns a snapshot of the running session with live counters
func (s *CaptionService) Current() (*entities.CaptionSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, false
	}
	snapshot := *s.current
	snapshot.Stats = s.statsLocked()
	return &snapshot, true
}

// Run captions the configured stream until the source ends, stalls, fails,
// or ctx is cancelled. Only one session runs at a time. The returned session
// is the final persisted state; err is non-nil when the session failed.
func (s *CaptionService) Run(ctx context.Context) (*entities.CaptionSession, error) {
	session := entities.NewCaptionSession(s.cfg.StreamURL, s.cfg.Language, s.cfg.Provider, s.cfg.SampleRate)
	if err := session.Validate(); err != nil {
		return nil, err
	}

	rs := relay.NewSession(s.cfg.Relay, s.logger.With(zap.String("sessionID", session.ID)), s.recorder())

	s.mu.Lock()
	if s.current != nil {
		s.mu.Unlock()
		return nil, ErrSessionRunning
	}
	s.current = session
	s.relay = rs
	s.partials.Store(0)
	s.finals.Store(0)
	s.mu.Unlock()

	if err := s.repo.CreateSession(ctx, session); err != nil {
		s.clear()
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("Caption session starting",
		zap.String("sessionID", session.ID),
		zap.String("streamURL", session.StreamURL),
		zap.String("language", session.Language),
		zap.String("provider", session.Provider))
	s.publishStatus()

	err := s.stream(ctx, session, rs)
	return s.finish(ctx, session, rs, err)
}

func (s *CaptionService) stream(ctx context.Context, session *entities.CaptionSession, rs *relay.Session) error {
	decodeCtx, cancelDecode := context.WithCancel(ctx)
	defer cancelDecode()

	src, err := s.decoder.Open(decodeCtx, repositories.DecodeOptions{
		SourceURL:  s.cfg.StreamURL,
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Format:     "s16le",
	})
	if err != nil {
		rs.Close()
		return fmt.Errorf("failed to start decoder: %w", err)
	}

	producerDone := make(chan error, 1)
	go func() {
		producerDone <- rs.NewProducer(src).Run(decodeCtx)
	}()

	groupErr := s.recognize(ctx, session, rs)

	// Stop the producer and discard what is still buffered
	rs.Close()
	cancelDecode()

	var producerErr error
	select {
	case producerErr = <-producerDone:
	case <-time.After(s.cfg.ProducerJoinTimeout):
		s.logger.Warn("Producer did not stop in time, abandoning it",
			zap.String("sessionID", session.ID),
			zap.Duration("timeout", s.cfg.ProducerJoinTimeout))
	}

	if groupErr != nil {
		return groupErr
	}
	return producerErr
}

func (s *CaptionService) recognize(ctx context.Context, session *entities.CaptionSession, rs *relay.Session) error {
	stream, err := s.stt.InitTranscribeStreaming(ctx, repositories.AudioConfig{
		SampleRate: s.cfg.SampleRate,
		Channels:   s.cfg.Channels,
		Encoding:   "PCM",
		Language:   s.cfg.Language,
	})
	if err != nil {
		return fmt.Errorf("failed to start recognition: %w", err)
	}
	defer stream.Close()

	s.mu.Lock()
	session.MarkRunning()
	s.mu.Unlock()
	s.persist(ctx, session)
	s.publishStatus()
	if s.metrics != nil {
		s.metrics.SessionStarted()
	}

	pump := rs.NewPump()
	g, gctx := errgroup.WithContext(ctx)

	// Send path: relay chunks to the recognizer, then end the input
	g.Go(func() error {
		for chunk := range pump.Chunks(gctx) {
			if err := stream.Stream(gctx, chunk); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}
		}

		s.mu.Lock()
		session.EndReason = string(pump.EndReason())
		s.mu.Unlock()

		endCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), s.cfg.EndTimeout)
		defer cancel()
		if err := stream.End(endCtx); err != nil && gctx.Err() == nil {
			return fmt.Errorf("failed to end recognition input: %w", err)
		}
		return nil
	})

	// Receive path: transcript events arrive independently of sends
	g.Go(func() error {
		results := stream.Results()
		for {
			select {
			case r, ok := <-results:
				if !ok {
					if err := stream.Err(); err != nil {
						return fmt.Errorf("recognition failed: %w", err)
					}
					return nil
				}
				s.handleResult(ctx, session.ID, r)
			case <-gctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		s.mu.Lock()
		session.EndReason = string(relay.EndCancelled)
		s.mu.Unlock()
	}
	return nil
}

func (s *CaptionService) handleResult(ctx context.Context, sessionID string, r repositories.TranscriptResult) {
	event := entities.TranscriptEvent{
		SessionID:  sessionID,
		Partial:    r.Partial,
		Text:       r.Text,
		ReceivedAt: time.Now(),
	}

	fmt.Fprintln(s.console, event.Line())

	if s.publisher != nil {
		s.publisher.PublishTranscript(event)
	}
	if s.metrics != nil {
		s.metrics.TranscriptEvent(event.Partial)
	}

	if event.Partial {
		s.partials.Add(1)
		return
	}

	seq := int(s.finals.Add(1))
	if err := s.repo.AppendSegment(ctx, entities.NewTranscriptSegment(event, seq)); err != nil {
		s.logger.Error("Failed to store transcript segment",
			zap.String("sessionID", sessionID),
			zap.Int("sequence", seq),
			zap.Error(err))
	}
}

func (s *CaptionService) finish(ctx context.Context, session *entities.CaptionSession, rs *relay.Session, err error) (*entities.CaptionSession, error) {
	s.mu.Lock()
	session.Stats = s.statsLocked()
	wasRunning := session.Status == entities.SessionStatusRunning
	if err != nil {
		session.Fail(err)
	} else {
		session.Complete(session.EndReason)
	}
	s.mu.Unlock()

	s.persist(ctx, session)
	s.publishStatus()

	outcome := session.EndReason
	if err != nil {
		outcome = "failed"
		s.logger.Error("Caption session failed",
			zap.String("sessionID", session.ID),
			zap.Error(err))
	} else {
		s.logger.Info("Caption session ended",
			zap.String("sessionID", session.ID),
			zap.String("reason", session.EndReason),
			zap.Uint64("chunksRead", session.Stats.ChunksRead),
			zap.Uint64("chunksDropped", session.Stats.ChunksDropped),
			zap.Uint64("finalEvents", session.Stats.FinalEvents))
	}
	if s.metrics != nil && wasRunning {
		s.metrics.SessionEnded(outcome, session.Duration())
	}

	final := *session
	s.clear()
	return &final, err
}

// persist writes session state even after ctx has been cancelled
func (s *CaptionService) persist(ctx context.Context, session *entities.CaptionSession) {
	s.mu.Lock()
	snapshot := *session
	s.mu.Unlock()

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	if err := s.repo.UpdateSession(pctx, &snapshot); err != nil {
		s.logger.Error("Failed to update session",
			zap.String("sessionID", session.ID),
			zap.Error(err))
	}
}

func (s *CaptionService) publishStatus() {
	if s.publisher == nil {
		return
	}
	if snapshot, ok := s.Current(); ok {
		s.publisher.PublishSessionStatus(snapshot)
	}
}

func (s *CaptionService) statsLocked() entities.SessionStats {
	stats := entities.SessionStats{
		PartialEvents: s.partials.Load(),
		FinalEvents:   s.finals.Load(),
	}
	if s.relay != nil {
		rs := s.relay.Stats()
		stats.ChunksRead = rs.ChunksRead
		stats.BytesRead = rs.BytesRead
		stats.ChunksDropped = rs.ChunksDropped
		stats.ChunksDelivered = rs.ChunksDelivered
	}
	return stats
}

func (s *CaptionService) recorder() relay.Recorder {
	if s.metrics == nil {
		return nil
	}
	return s.metrics
}

func (s *CaptionService) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.relay = nil
}
