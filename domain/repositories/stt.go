package repositories

import "context"

// SpeechToText abstracts streaming speech recognition services
type SpeechToText interface {
	// InitTranscribeStreaming opens a recognition stream for one session
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// TranscriptResult is one result emitted by the recognizer
type TranscriptResult struct {
	Partial bool
	Text    string
}

// SpeechToTextStreaming is an open bidirectional recognition stream.
//
// Stream and End are called from the sending goroutine; Results is drained
// by another goroutine independently of the send path.
type SpeechToTextStreaming interface {
	// Stream sends one chunk of raw audio. It may block under backpressure.
	Stream(ctx context.Context, data []byte) error
	// End signals that no more audio follows
	End(ctx context.Context) error
	// Results is closed once the service finishes the stream
	Results() <-chan TranscriptResult
	// Err reports the terminal receive error once Results is closed
	Err() error
	// Close releases the underlying connection
	Close() error
}
