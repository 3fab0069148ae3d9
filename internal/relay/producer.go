package relay

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// Source is the blocking side of the external decoder.
//
// Read follows io.Reader. Close asks the decoder to stop and reports an
// error when the decoder had already exited abnormally on its own.
type Source interface {
	io.Reader
	Close() error
}

// Producer reads fixed-size chunks from a Source into the session queue.
type Producer struct {
	session *Session
	src     Source
	logger  *zap.Logger
}

// Run reads until end-of-input, shutdown or failure. It blocks inside the
// source read and must run on its own goroutine.
//
// End-of-input returns nil and leaves the shutdown flag untouched. A read
// error or an abnormal decoder exit raises the flag and is returned.
func (p *Producer) Run(ctx context.Context) error {
	cfg := p.session.cfg
	shutdown := p.session.shutdown
	buf := make([]byte, cfg.ChunkSize)
	var chunks uint64

	p.logger.Info("Starting audio producer", zap.Int("chunkSize", cfg.ChunkSize))

	for {
		if shutdown.IsSet() || ctx.Err() != nil {
			p.logger.Info("Producer observed shutdown", zap.Uint64("chunks", chunks))
			p.closeSource()
			return nil
		}

		n, err := io.ReadFull(p.src, buf)
		if n > 0 {
			chunk := make(Chunk, n)
			copy(chunk, buf[:n])
			p.session.push(chunk)
			chunks++

			if cfg.ProgressEvery > 0 && chunks%uint64(cfg.ProgressEvery) == 0 {
				p.logger.Info("Audio chunks read",
					zap.Uint64("chunks", chunks),
					zap.Int("queueSize", p.session.queue.Len()))
			}
		}

		switch {
		case err == nil:
			continue

		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			p.logger.Info("End of audio stream detected", zap.Uint64("chunks", chunks))
			if cerr := p.src.Close(); cerr != nil && !shutdown.IsSet() {
				shutdown.Set()
				return fmt.Errorf("decoder exited abnormally: %w", cerr)
			}
			return nil

		default:
			if shutdown.IsSet() {
				// the read was interrupted by our own teardown
				p.closeSource()
				return nil
			}
			shutdown.Set()
			p.closeSource()
			return fmt.Errorf("failed to read audio chunk: %w", err)
		}
	}
}

func (p *Producer) closeSource() {
	if err := p.src.Close(); err != nil {
		p.logger.Debug("Decoder close after shutdown", zap.Error(err))
	}
}
