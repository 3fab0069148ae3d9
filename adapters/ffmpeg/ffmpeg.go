// Package ffmpeg runs the ffmpeg binary as the audio decoder and recorder.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

const (
	// DefaultBinary is looked up on PATH
	DefaultBinary = "ffmpeg"

	// Time given to a decoder that hit end-of-output to exit on its own.
	defaultExitGrace = 200 * time.Millisecond

	// Time between SIGTERM and SIGKILL when stopping a decoder.
	defaultStopTimeout = 2 * time.Second

	stderrTailSize = 4 * 1024
)

// DecodeArgs builds the ffmpeg arguments that decode a stream to raw PCM on stdout
func DecodeArgs(opts repositories.DecodeOptions) []string {
	return []string{
		"-nostdin",
		"-i", opts.SourceURL,
		"-ar", strconv.Itoa(opts.SampleRate),
		"-ac", strconv.Itoa(opts.Channels),
		"-f", opts.Format,
		"-",
	}
}

// Decoder starts one ffmpeg process per stream
type Decoder struct {
	Binary      string
	ExitGrace   time.Duration
	StopTimeout time.Duration
	logger      *zap.Logger
}

// NewDecoder creates a decoder using binary, or DefaultBinary when empty
func NewDecoder(binary string, logger *zap.Logger) *Decoder {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Decoder{
		Binary:      binary,
		ExitGrace:   defaultExitGrace,
		StopTimeout: defaultStopTimeout,
		logger:      logger,
	}
}

// Open implements repositories.AudioDecoder
func (d *Decoder) Open(ctx context.Context, opts repositories.DecodeOptions) (repositories.DecodeSource, error) {
	procCtx, cancel := context.WithCancel(ctx)

	cmd := exec.CommandContext(procCtx, d.Binary, DecodeArgs(opts)...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = d.StopTimeout

	// An explicit pipe keeps Wait from closing our read end while the
	// producer is still draining it.
	stdout, stdoutW, err := os.Pipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create decoder pipe: %w", err)
	}
	stderr := newTailBuffer(stderrTailSize)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		cancel()
		stdout.Close()
		stdoutW.Close()
		return nil, fmt.Errorf("failed to start %s: %w", d.Binary, err)
	}
	stdoutW.Close()

	d.logger.Info("Decoder started",
		zap.Int("pid", cmd.Process.Pid),
		zap.String("source", opts.SourceURL),
		zap.Int("sampleRate", opts.SampleRate),
		zap.Int("channels", opts.Channels),
		zap.String("format", opts.Format))

	p := &Process{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
		parent: ctx,
		cancel: cancel,
		grace:  d.ExitGrace,
		exited: make(chan struct{}),
		logger: d.logger,
	}
	go p.wait()

	return p, nil
}

// Process is a running ffmpeg decoder
type Process struct {
	cmd    *exec.Cmd
	stdout *os.File
	stderr *tailBuffer
	parent context.Context
	cancel context.CancelFunc
	grace  time.Duration
	logger *zap.Logger

	exited  chan struct{}
	waitErr error

	stopping  atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.exited)
}

// Read reads decoded PCM from ffmpeg's stdout
func (p *Process) Read(b []byte) (int, error) {
	return p.stdout.Read(b)
}

// Close stops the decoder if it is still running. It returns an error only
// when ffmpeg exited with a failure before anyone asked it to stop.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		select {
		case <-p.exited:
		case <-time.After(p.grace):
			p.stopping.Store(true)
			p.cancel()
			<-p.exited
		}
		requested := p.stopping.Load() || p.parent.Err() != nil
		p.cancel()
		p.stdout.Close()

		if p.waitErr != nil && !requested {
			p.closeErr = fmt.Errorf("ffmpeg exited: %w: %s", p.waitErr, p.stderr.String())
		}

		p.logger.Info("Decoder stopped",
			zap.Bool("requested", requested),
			zap.NamedError("exit", p.waitErr))
	})
	return p.closeErr
}

// Recorder captures bounded slices of a stream to local files
type Recorder struct {
	Binary string
	logger *zap.Logger
}

// NewRecorder creates a recorder using binary, or DefaultBinary when empty
func NewRecorder(binary string, logger *zap.Logger) *Recorder {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Recorder{Binary: binary, logger: logger}
}

// RecordArgs builds the arguments for a bounded capture. Without a raw
// format ffmpeg picks the container from the output extension.
func RecordArgs(opts repositories.CaptureOptions) []string {
	args := []string{
		"-nostdin",
		"-i", opts.SourceURL,
		"-t", strconv.FormatFloat(opts.Duration.Seconds(), 'f', -1, 64),
		"-ar", strconv.Itoa(opts.SampleRate),
		"-ac", strconv.Itoa(opts.Channels),
	}
	if opts.Format != "" {
		args = append(args, "-f", opts.Format)
	}
	return append(args, "-y", opts.OutputPath)
}

// ConvertArgs builds the arguments that wrap raw s16le PCM into outputPath
func ConvertArgs(rawPath, outputPath string, sampleRate, channels int) []string {
	return []string{
		"-nostdin",
		"-f", "s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(channels),
		"-i", rawPath,
		"-y", outputPath,
	}
}

// Record implements repositories.StreamRecorder
func (r *Recorder) Record(ctx context.Context, opts repositories.CaptureOptions) error {
	r.logger.Info("Recording stream",
		zap.String("source", opts.SourceURL),
		zap.Duration("duration", opts.Duration),
		zap.String("output", opts.OutputPath))
	return r.run(ctx, RecordArgs(opts))
}

// ConvertRaw implements repositories.StreamRecorder
func (r *Recorder) ConvertRaw(ctx context.Context, rawPath, outputPath string, sampleRate, channels int) error {
	r.logger.Info("Converting raw PCM",
		zap.String("input", rawPath),
		zap.String("output", outputPath))
	return r.run(ctx, ConvertArgs(rawPath, outputPath, sampleRate, channels))
}

func (r *Recorder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("error executing %s: %w: %s", r.Binary, err, stderr.String())
	}
	return nil
}

var (
	_ repositories.AudioDecoder   = &Decoder{}
	_ repositories.DecodeSource   = &Process{}
	_ repositories.StreamRecorder = &Recorder{}
)
