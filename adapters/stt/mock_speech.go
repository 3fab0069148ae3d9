package stt

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// DefaultMockPhrases is what the mock recognizer "hears" when none are given
var DefaultMockPhrases = []string{
	"Bonjour et bienvenue sur franceinfo",
	"Il est neuf heures, voici le journal",
	"La météo pour la journée de demain",
}

// MockSpeechToText is a scripted recognizer for offline runs and tests.
// Every ChunksPerPhrase audio chunks it emits one partial for half of the
// current phrase and then the full phrase as a final.
type MockSpeechToText struct {
	Phrases         []string
	ChunksPerPhrase int
	logger          *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{
		Phrases:         DefaultMockPhrases,
		ChunksPerPhrase: 50,
		logger:          logger,
	}
}

// InitTranscribeStreaming creates a new mock streaming session
func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	per := s.ChunksPerPhrase
	if per < 2 {
		per = 2
	}
	phrases := s.Phrases
	if len(phrases) == 0 {
		phrases = DefaultMockPhrases
	}

	return &MockSpeechToTextStream{
		phrases: phrases,
		per:     per,
		results: make(chan repositories.TranscriptResult, resultBuffer),
	}, nil
}

// MockSpeechToTextStream is a mock implementation of streaming speech recognition
type MockSpeechToTextStream struct {
	mu      sync.Mutex
	phrases []string
	per     int
	chunks  int
	bytes   int
	phrase  int
	closed  bool
	results chan repositories.TranscriptResult
}

// Stream counts the chunk and emits scripted results at phrase boundaries
func (m *MockSpeechToTextStream) Stream(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || len(data) == 0 {
		return nil
	}
	m.chunks++
	m.bytes += len(data)

	text := m.phrases[m.phrase%len(m.phrases)]
	switch m.chunks % m.per {
	case m.per / 2:
		words := strings.Fields(text)
		return m.send(ctx, repositories.TranscriptResult{
			Partial: true,
			Text:    strings.Join(words[:(len(words)+1)/2], " "),
		})
	case 0:
		m.phrase++
		return m.send(ctx, repositories.TranscriptResult{Text: text})
	}
	return nil
}

func (m *MockSpeechToTextStream) send(ctx context.Context, r repositories.TranscriptResult) error {
	select {
	case m.results <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// End closes the result channel
func (m *MockSpeechToTextStream) End(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

func (m *MockSpeechToTextStream) Results() <-chan repositories.TranscriptResult {
	return m.results
}

func (m *MockSpeechToTextStream) Err() error {
	return nil
}

func (m *MockSpeechToTextStream) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

// BytesReceived reports how much audio the stream has been fed
func (m *MockSpeechToTextStream) BytesReceived() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bytes
}

func (m *MockSpeechToTextStream) closeLocked() {
	if !m.closed {
		m.closed = true
		close(m.results)
	}
}
