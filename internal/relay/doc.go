// Package relay moves decoded audio from a blocking producer to a
// rate-varying consumer through a bounded drop-oldest queue.
//
// A Session bundles the queue and the shutdown flag for one streaming
// session. The Producer runs on its own goroutine and owns the blocking
// reads; the Pump adapts the queue into a finite iter.Seq that a
// recognition client ranges over. Liveness of the producer is inferred
// purely from queue emptiness: the pump ends once PollTimeout*StallCutoff
// elapses without a successful pop.
package relay
