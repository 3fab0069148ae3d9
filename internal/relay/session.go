package relay

import (
	"sync/atomic"

	"go.uber.org/zap"
)

// Recorder receives relay counters, typically backed by Prometheus.
type Recorder interface {
	ChunkRead(bytes int)
	ChunkDropped()
	ChunkDelivered()
	QueueDepth(n int)
	Stalled()
}

type nopRecorder struct{}

func (nopRecorder) ChunkRead(int)   {}
func (nopRecorder) ChunkDropped()   {}
func (nopRecorder) ChunkDelivered() {}
func (nopRecorder) QueueDepth(int)  {}
func (nopRecorder) Stalled()        {}

// Stats is a snapshot of the session counters
type Stats struct {
	ChunksRead      uint64 `json:"chunks_read" bson:"chunks_read"`
	BytesRead       uint64 `json:"bytes_read" bson:"bytes_read"`
	ChunksDropped   uint64 `json:"chunks_dropped" bson:"chunks_dropped"`
	ChunksDelivered uint64 `json:"chunks_delivered" bson:"chunks_delivered"`
	QueueLength     int    `json:"queue_length" bson:"queue_length"`
}

// Session is the relay state of one streaming session: a queue, a shutdown
// flag and the counters both sides update. It is never reused.
type Session struct {
	cfg      Config
	queue    *Queue
	shutdown *Flag
	logger   *zap.Logger
	recorder Recorder

	chunksRead      atomic.Uint64
	bytesRead       atomic.Uint64
	chunksDropped   atomic.Uint64
	chunksDelivered atomic.Uint64
}

// NewSession creates the relay state for one session. recorder may be nil.
func NewSession(cfg Config, logger *zap.Logger, recorder Recorder) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Session{
		cfg:      cfg,
		queue:    NewQueue(cfg.QueueCapacity),
		shutdown: NewFlag(),
		logger:   logger,
		recorder: recorder,
	}
}

// Config returns the session configuration
func (s *Session) Config() Config { return s.cfg }

// Queue returns the shared relay queue
func (s *Session) Queue() *Queue { return s.queue }

// Shutdown returns the shared shutdown flag
func (s *Session) Shutdown() *Flag { return s.shutdown }

// NewProducer binds a producer to src
func (s *Session) NewProducer(src Source) *Producer {
	return &Producer{session: s, src: src, logger: s.logger.Named("producer")}
}

// NewPump creates the consumer side of the session
func (s *Session) NewPump() *Pump {
	return &Pump{session: s, logger: s.logger.Named("pump")}
}

// Stats returns a snapshot of the counters
func (s *Session) Stats() Stats {
	return Stats{
		ChunksRead:      s.chunksRead.Load(),
		BytesRead:       s.bytesRead.Load(),
		ChunksDropped:   s.chunksDropped.Load(),
		ChunksDelivered: s.chunksDelivered.Load(),
		QueueLength:     s.queue.Len(),
	}
}

// Close raises the shutdown flag and discards whatever is still buffered
func (s *Session) Close() {
	s.shutdown.Set()
	s.queue.Reset()
	s.recorder.QueueDepth(0)
}

func (s *Session) push(c Chunk) {
	s.chunksRead.Add(1)
	s.bytesRead.Add(uint64(len(c)))
	s.recorder.ChunkRead(len(c))

	if s.queue.Push(c) {
		s.chunksDropped.Add(1)
		s.recorder.ChunkDropped()
	}
	s.recorder.QueueDepth(s.queue.Len())
}

func (s *Session) delivered() {
	s.chunksDelivered.Add(1)
	s.recorder.ChunkDelivered()
	s.recorder.QueueDepth(s.queue.Len())
}
