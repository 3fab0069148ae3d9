package stt

import (
	"sync"

	"github.com/satriahrh/radiocaption/domain/repositories"
)

// resultBuffer bounds how far the result reader may run ahead of the consumer
const resultBuffer = 64

// resultSink is the buffered result channel shared by the streaming
// adapters. Once stopped, senders give up instead of blocking on a full
// buffer nobody drains anymore.
type resultSink struct {
	results chan repositories.TranscriptResult
	done    chan struct{}
	once    sync.Once
}

func newResultSink() *resultSink {
	return &resultSink{
		results: make(chan repositories.TranscriptResult, resultBuffer),
		done:    make(chan struct{}),
	}
}

// send delivers r and reports false when the sink was stopped first
func (s *resultSink) send(r repositories.TranscriptResult) bool {
	select {
	case s.results <- r:
		return true
	case <-s.done:
		return false
	}
}

func (s *resultSink) stop() {
	s.once.Do(func() { close(s.done) })
}

// finish closes the result channel; only the reader goroutine calls it
func (s *resultSink) finish() {
	close(s.results)
}
