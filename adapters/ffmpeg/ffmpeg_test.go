package ffmpeg

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

func TestDecodeArgs(t *testing.T) {
	args := DecodeArgs(repositories.DecodeOptions{
		SourceURL:  "http://icecast.example/radio.aac",
		SampleRate: 16000,
		Channels:   1,
		Format:     "s16le",
	})

	assert.Equal(t, []string{
		"-nostdin",
		"-i", "http://icecast.example/radio.aac",
		"-ar", "16000",
		"-ac", "1",
		"-f", "s16le",
		"-",
	}, args)
}

func TestRecordArgs(t *testing.T) {
	opts := repositories.CaptureOptions{
		SourceURL:  "http://icecast.example/radio.aac",
		Duration:   10 * time.Second,
		SampleRate: 16000,
		Channels:   1,
		OutputPath: "test_audio.wav",
	}
	assert.Equal(t, []string{
		"-nostdin", "-i", "http://icecast.example/radio.aac",
		"-t", "10", "-ar", "16000", "-ac", "1",
		"-y", "test_audio.wav",
	}, RecordArgs(opts))

	opts.Format = "s16le"
	opts.Duration = 1500 * time.Millisecond
	opts.OutputPath = "sample.pcm"
	assert.Equal(t, []string{
		"-nostdin", "-i", "http://icecast.example/radio.aac",
		"-t", "1.5", "-ar", "16000", "-ac", "1",
		"-f", "s16le",
		"-y", "sample.pcm",
	}, RecordArgs(opts))
}

func TestConvertArgs(t *testing.T) {
	assert.Equal(t, []string{
		"-nostdin", "-f", "s16le", "-ar", "16000", "-ac", "1",
		"-i", "in.pcm", "-y", "in.pcm.wav",
	}, ConvertArgs("in.pcm", "in.pcm.wav", 16000, 1))
}

func TestTailBuffer(t *testing.T) {
	tb := newTailBuffer(8)
	_, _ = tb.Write([]byte("hello "))
	_, _ = tb.Write([]byte("world\n"))
	assert.Equal(t, "o world", tb.String())
}

// fakeBinary writes an executable shell script that ignores its arguments.
func fakeBinary(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func openFake(t *testing.T, body string) repositories.DecodeSource {
	t.Helper()
	dec := NewDecoder(fakeBinary(t, body), zaptest.NewLogger(t))
	dec.StopTimeout = 500 * time.Millisecond

	src, err := dec.Open(context.Background(), repositories.DecodeOptions{
		SourceURL: "http://example", SampleRate: 16000, Channels: 1, Format: "s16le",
	})
	require.NoError(t, err)
	return src
}

func TestProcess_CleanExit(t *testing.T) {
	src := openFake(t, "printf 'abcdefgh'")

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(data))
	assert.NoError(t, src.Close())
}

func TestProcess_AbnormalExit(t *testing.T) {
	src := openFake(t, "echo 'Connection refused' >&2; exit 1")

	data, err := io.ReadAll(src)
	require.NoError(t, err)
	assert.Empty(t, data)

	err = src.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Connection refused")
}

func TestProcess_StopRunningDecoder(t *testing.T) {
	src := openFake(t, "while :; do printf 'abcd'; sleep 0.01; done")

	buf := make([]byte, 4)
	_, err := io.ReadFull(src, buf)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- src.Close() }()

	select {
	case err := <-done:
		assert.NoError(t, err, "a requested stop is not a failure")
	case <-time.After(5 * time.Second):
		t.Fatal("decoder did not stop")
	}
}

func TestDecoder_MissingBinary(t *testing.T) {
	dec := NewDecoder(filepath.Join(t.TempDir(), "does-not-exist"), zaptest.NewLogger(t))
	_, err := dec.Open(context.Background(), repositories.DecodeOptions{SourceURL: "x", SampleRate: 1, Channels: 1, Format: "s16le"})
	assert.Error(t, err)
}

func TestRecorder_Run(t *testing.T) {
	ok := NewRecorder(fakeBinary(t, "exit 0"), zaptest.NewLogger(t))
	require.NoError(t, ok.ConvertRaw(context.Background(), "in.pcm", "out.wav", 16000, 1))

	failing := NewRecorder(fakeBinary(t, "echo 'Invalid data found' >&2; exit 1"), zaptest.NewLogger(t))
	err := failing.Record(context.Background(), repositories.CaptureOptions{
		SourceURL: "x", Duration: time.Second, SampleRate: 16000, Channels: 1, OutputPath: "out.wav",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
}
