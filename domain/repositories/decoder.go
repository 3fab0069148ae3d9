package repositories

import (
	"context"
	"io"
	"time"
)

// DecodeOptions describes the PCM the decoder must produce
type DecodeOptions struct {
	SourceURL  string
	SampleRate int
	Channels   int
	// Format is the raw output format, e.g. "s16le"
	Format string
}

// DecodeSource is a running decoder.
//
// Read blocks until the next bytes are available and returns io.EOF once
// the decoder stops writing. Close requests termination and reports an error
// when the decoder had exited abnormally on its own.
type DecodeSource interface {
	io.Reader
	Close() error
}

// AudioDecoder starts decoders for remote streams
type AudioDecoder interface {
	Open(ctx context.Context, opts DecodeOptions) (DecodeSource, error)
}

// CaptureOptions describes an offline recording of a stream
type CaptureOptions struct {
	SourceURL  string
	Duration   time.Duration
	SampleRate int
	Channels   int
	// Format forces a raw output format; empty lets the output extension decide
	Format     string
	OutputPath string
}

// StreamRecorder records a bounded slice of a stream to a local file
type StreamRecorder interface {
	Record(ctx context.Context, opts CaptureOptions) error
	// ConvertRaw wraps a raw PCM file into a playable container
	ConvertRaw(ctx context.Context, rawPath, outputPath string, sampleRate, channels int) error
}
