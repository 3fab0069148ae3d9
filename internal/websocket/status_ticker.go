package websocket

import (
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/radiocaption/domain/entities"
)

// StatusSource reports the session currently being captioned, if any
type StatusSource interface {
	Current() (*entities.CaptionSession, bool)
}

// StatusTicker periodically pushes the running session's counters to subscribers
type StatusTicker struct {
	source   StatusSource
	hub      *Hub
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// NewStatusTicker creates a ticker publishing every interval
func NewStatusTicker(source StatusSource, hub *Hub, interval time.Duration, logger *zap.Logger) *StatusTicker {
	return &StatusTicker{
		source:   source,
		hub:      hub,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the background publishing loop
func (s *StatusTicker) Start() {
	go s.loop()
	s.logger.Info("Status ticker started", zap.Duration("interval", s.interval))
}

// Stop stops the loop and waits for it to exit
func (s *StatusTicker) Stop() {
	close(s.stopChan)
	<-s.done
	s.logger.Info("Status ticker stopped")
}

func (s *StatusTicker) loop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			if session, ok := s.source.Current(); ok {
				s.hub.PublishSessionStatus(session)
			}
		}
	}
}
