package relay

import (
	"sync"
	"sync/atomic"
)

// Flag is a write-once shutdown signal shared by the producer and the pump.
// Once set it stays set; there is no reset.
type Flag struct {
	set  atomic.Bool
	once sync.Once
	done chan struct{}
}

// NewFlag returns an unset flag
func NewFlag() *Flag {
	return &Flag{done: make(chan struct{})}
}

// Set raises the flag. Safe to call more than once and from any goroutine.
func (f *Flag) Set() {
	f.once.Do(func() {
		f.set.Store(true)
		close(f.done)
	})
}

// IsSet reports whether the flag has been raised
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Done is closed when the flag is raised, for use in select statements.
func (f *Flag) Done() <-chan struct{} {
	return f.done
}
