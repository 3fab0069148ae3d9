package relay

import (
	"context"
	"iter"
	"sync"
	"time"

	"go.uber.org/zap"
)

// EndReason tells why a pump sequence finished
type EndReason string

const (
	// EndShutdown means the shutdown flag was observed
	EndShutdown EndReason = "shutdown"
	// EndStalled means no chunk arrived for the whole stall window
	EndStalled EndReason = "stalled"
	// EndCancelled means the caller's context was cancelled
	EndCancelled EndReason = "cancelled"
	// EndConsumerStopped means the consumer stopped ranging early
	EndConsumerStopped EndReason = "consumer_stopped"
)

// Pump drains the session queue as a lazy, finite sequence.
type Pump struct {
	session *Session
	logger  *zap.Logger

	mu     sync.Mutex
	reason EndReason
}

// Chunks returns the sequence of chunks for one consumer. The sequence first
// waits for MinFillBeforeStart chunks, then yields chunks as they arrive and
// ends on shutdown, cancellation, or after more than StallCutoff consecutive
// empty polls. It is not restartable.
func (p *Pump) Chunks(ctx context.Context) iter.Seq[Chunk] {
	return func(yield func(Chunk) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		shutdown := p.session.shutdown
		go func() {
			select {
			case <-shutdown.Done():
				cancel()
			case <-ctx.Done():
			}
		}()

		if reason, ok := p.warmUp(ctx); !ok {
			p.finish(reason)
			return
		}

		cfg := p.session.cfg
		queue := p.session.queue
		empty := 0

		for {
			if shutdown.IsSet() {
				p.finish(EndShutdown)
				return
			}

			chunk, ok := queue.Pop(ctx, cfg.PollTimeout)
			if ok {
				empty = 0
				p.session.delivered()
				if !yield(chunk) {
					p.finish(EndConsumerStopped)
					return
				}
				continue
			}

			if shutdown.IsSet() {
				p.finish(EndShutdown)
				return
			}
			if ctx.Err() != nil {
				p.finish(EndCancelled)
				return
			}

			empty++
			if empty > cfg.StallCutoff {
				p.logger.Warn("No audio data received, stopping streaming",
					zap.Duration("stallWindow", cfg.StallWindow()),
					zap.Int("emptyPolls", empty))
				p.session.recorder.Stalled()
				p.finish(EndStalled)
				return
			}
		}
	}
}

// warmUp polls the queue length until the fill threshold is reached. A
// queue that does not grow for a whole stall window ends the wait too, so a
// stream shorter than the threshold cannot hang the consumer.
func (p *Pump) warmUp(ctx context.Context) (EndReason, bool) {
	cfg := p.session.cfg
	queue := p.session.queue
	shutdown := p.session.shutdown

	ticker := time.NewTicker(cfg.WarmupInterval)
	defer ticker.Stop()

	lastLen, idle := -1, 0
	idleLimit := int(cfg.StallWindow()/cfg.WarmupInterval) + 1

	for {
		if shutdown.IsSet() {
			return EndShutdown, false
		}

		n := queue.Len()
		if n >= cfg.MinFillBeforeStart {
			p.logger.Info("Queue filled, starting transcription", zap.Int("chunks", n))
			return "", true
		}
		if n == lastLen {
			idle++
			if idle > idleLimit {
				p.logger.Warn("Audio never reached warm-up threshold, stopping streaming",
					zap.Int("chunks", n),
					zap.Int("threshold", cfg.MinFillBeforeStart))
				p.session.recorder.Stalled()
				return EndStalled, false
			}
		} else {
			lastLen, idle = n, 0
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			if shutdown.IsSet() {
				return EndShutdown, false
			}
			return EndCancelled, false
		}
	}
}

func (p *Pump) finish(reason EndReason) {
	p.mu.Lock()
	p.reason = reason
	p.mu.Unlock()

	p.logger.Info("Audio pump finished", zap.String("reason", string(reason)))
}

// EndReason reports why the last sequence ended, or "" while it is running.
func (p *Pump) EndReason() EndReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reason
}
