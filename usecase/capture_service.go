package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// CaptureConfig describes a local recording of the stream
type CaptureConfig struct {
	StreamURL  string
	Duration   time.Duration
	SampleRate int
	Channels   int
	OutputPath string
	// TempDir holds the intermediate PCM file; empty uses os.TempDir
	TempDir string
}

// CaptureResult reports the files produced by a capture
type CaptureResult struct {
	WAVPath   string
	WAVBytes  int64
	PCMBytes  int64
	ListenWAV string
}

// CaptureService records short slices of the stream to verify decoding
type CaptureService struct {
	recorder repositories.StreamRecorder
	logger   *zap.Logger
}

// NewCaptureService creates a new capture service
func NewCaptureService(recorder repositories.StreamRecorder, logger *zap.Logger) *CaptureService {
	return &CaptureService{
		recorder: recorder,
		logger:   logger,
	}
}

// Capture records cfg.Duration of the stream twice: once straight to
// cfg.OutputPath, and once as raw s16le PCM which is then wrapped into a
// WAV next to it for listening. The raw PCM file is removed afterwards.
func (s *CaptureService) Capture(ctx context.Context, cfg CaptureConfig) (*CaptureResult, error) {
	if cfg.StreamURL == "" {
		return nil, fmt.Errorf("stream url is required")
	}
	if cfg.Duration <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}

	s.logger.Info("Recording stream",
		zap.String("streamURL", cfg.StreamURL),
		zap.Duration("duration", cfg.Duration),
		zap.String("output", cfg.OutputPath))

	err := s.recorder.Record(ctx, repositories.CaptureOptions{
		SourceURL:  cfg.StreamURL,
		Duration:   cfg.Duration,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		OutputPath: cfg.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record wav: %w", err)
	}

	result := &CaptureResult{WAVPath: cfg.OutputPath}
	if info, err := os.Stat(cfg.OutputPath); err == nil {
		result.WAVBytes = info.Size()
	}
	s.logger.Info("WAV file created",
		zap.String("path", result.WAVPath),
		zap.Int64("bytes", result.WAVBytes))

	if err := s.capturePCM(ctx, cfg, result); err != nil {
		return result, err
	}
	return result, nil
}

func (s *CaptureService) capturePCM(ctx context.Context, cfg CaptureConfig, result *CaptureResult) error {
	tmp, err := os.CreateTemp(cfg.TempDir, "radiocaption-*.pcm")
	if err != nil {
		return fmt.Errorf("failed to create pcm file: %w", err)
	}
	pcmPath := tmp.Name()
	tmp.Close()
	defer os.Remove(pcmPath)

	err = s.recorder.Record(ctx, repositories.CaptureOptions{
		SourceURL:  cfg.StreamURL,
		Duration:   cfg.Duration,
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
		Format:     "s16le",
		OutputPath: pcmPath,
	})
	if err != nil {
		return fmt.Errorf("failed to record pcm: %w", err)
	}

	if info, err := os.Stat(pcmPath); err == nil {
		result.PCMBytes = info.Size()
	}
	s.logger.Info("PCM file created",
		zap.String("path", pcmPath),
		zap.Int64("bytes", result.PCMBytes))

	wavPath := pcmPath + ".wav"
	if err := s.recorder.ConvertRaw(ctx, pcmPath, wavPath, cfg.SampleRate, cfg.Channels); err != nil {
		return fmt.Errorf("failed to convert pcm: %w", err)
	}
	result.ListenWAV = wavPath
	s.logger.Info("WAV file created for listening", zap.String("path", wavPath))
	return nil
}
