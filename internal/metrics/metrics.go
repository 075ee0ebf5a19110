// Package metrics holds process-local atomic counters for connection,
// request, and TLS handshake activity, plus an error tally keyed by the
// errs package's numeric codes.
package metrics

import (
	"sync"
	"sync/atomic"
)

// Counters is a set of atomic counters safe for concurrent use from every
// connection task.
type Counters struct {
	ConnectionsAccepted atomic.Uint64
	ConnectionsClosed   atomic.Uint64
	RequestsServed      atomic.Uint64
	BytesSent           atomic.Uint64
	BytesReceived       atomic.Uint64
	TLSHandshakesOK     atomic.Uint64
	TLSHandshakesFailed atomic.Uint64

	mu           sync.Mutex
	errorsByKind map[int]uint64
}

// New creates an empty Counters.
func New() *Counters {
	return &Counters{errorsByKind: map[int]uint64{}}
}

// RecordError tallies one occurrence of the given error code.
func (c *Counters) RecordError(code int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errorsByKind[code]++
}

// Snapshot is a plain-value copy of the counters, safe to log or print
// without holding any lock.
type Snapshot struct {
	ConnectionsAccepted uint64
	ConnectionsClosed   uint64
	RequestsServed      uint64
	BytesSent           uint64
	BytesReceived       uint64
	TLSHandshakesOK     uint64
	TLSHandshakesFailed uint64
	ErrorsByKind        map[int]uint64
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	errs := make(map[int]uint64, len(c.errorsByKind))
	for k, v := range c.errorsByKind {
		errs[k] = v
	}
	c.mu.Unlock()

	return Snapshot{
		ConnectionsAccepted: c.ConnectionsAccepted.Load(),
		ConnectionsClosed:   c.ConnectionsClosed.Load(),
		RequestsServed:      c.RequestsServed.Load(),
		BytesSent:           c.BytesSent.Load(),
		BytesReceived:       c.BytesReceived.Load(),
		TLSHandshakesOK:     c.TLSHandshakesOK.Load(),
		TLSHandshakesFailed: c.TLSHandshakesFailed.Load(),
		ErrorsByKind:        errs,
	}
}
