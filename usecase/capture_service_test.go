package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/radiocaption/domain/repositories"
	"github.com/satriahrh/radiocaption/usecase"
)

type fileRecorder struct {
	records    []repositories.CaptureOptions
	converted  []string
	recordErr  error
	convertErr error
}

func (r *fileRecorder) Record(ctx context.Context, opts repositories.CaptureOptions) error {
	r.records = append(r.records, opts)
	if r.recordErr != nil {
		return r.recordErr
	}
	size := 100
	if opts.Format == "s16le" {
		size = 64
	}
	return os.WriteFile(opts.OutputPath, make([]byte, size), 0o644)
}

func (r *fileRecorder) ConvertRaw(ctx context.Context, rawPath, outputPath string, sampleRate, channels int) error {
	r.converted = append(r.converted, rawPath)
	if r.convertErr != nil {
		return r.convertErr
	}
	return os.WriteFile(outputPath, []byte("RIFF"), 0o644)
}

func testCaptureConfig(t *testing.T) usecase.CaptureConfig {
	dir := t.TempDir()
	return usecase.CaptureConfig{
		StreamURL:  "http://radio.example/live.aac",
		Duration:   10 * time.Second,
		SampleRate: 16000,
		Channels:   1,
		OutputPath: filepath.Join(dir, "test_audio.wav"),
		TempDir:    dir,
	}
}

func TestCaptureService_Capture(t *testing.T) {
	recorder := &fileRecorder{}
	service := usecase.NewCaptureService(recorder, zaptest.NewLogger(t))
	cfg := testCaptureConfig(t)

	result, err := service.Capture(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, recorder.records, 2)
	assert.Equal(t, "", recorder.records[0].Format)
	assert.Equal(t, cfg.OutputPath, recorder.records[0].OutputPath)
	assert.Equal(t, "s16le", recorder.records[1].Format)
	assert.Equal(t, 10*time.Second, recorder.records[1].Duration)

	assert.Equal(t, int64(100), result.WAVBytes)
	assert.Equal(t, int64(64), result.PCMBytes)

	pcmPath := recorder.records[1].OutputPath
	assert.Equal(t, pcmPath+".wav", result.ListenWAV)
	assert.FileExists(t, result.ListenWAV)
	assert.NoFileExists(t, pcmPath)
}

func TestCaptureService_ConvertFailureRemovesPCM(t *testing.T) {
	recorder := &fileRecorder{convertErr: errors.New("bad input")}
	service := usecase.NewCaptureService(recorder, zaptest.NewLogger(t))

	result, err := service.Capture(context.Background(), testCaptureConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad input")
	assert.Equal(t, int64(100), result.WAVBytes)
	assert.NoFileExists(t, recorder.records[1].OutputPath)
}

func TestCaptureService_RejectsInvalidConfig(t *testing.T) {
	service := usecase.NewCaptureService(&fileRecorder{}, zaptest.NewLogger(t))

	cfg := testCaptureConfig(t)
	cfg.Duration = 0
	_, err := service.Capture(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testCaptureConfig(t)
	cfg.StreamURL = ""
	_, err = service.Capture(context.Background(), cfg)
	assert.Error(t, err)
}

func TestCaptureService_RecordFailure(t *testing.T) {
	recorder := &fileRecorder{recordErr: errors.New("connection refused")}
	service := usecase.NewCaptureService(recorder, zaptest.NewLogger(t))

	_, err := service.Capture(context.Background(), testCaptureConfig(t))
	require.Error(t, err)
	assert.Len(t, recorder.records, 1)
}
