// Package conn implements the persistent, message-oriented connection
// manager: a dedicated reader goroutine frames messages out of a raw
// duplex byte stream by treating any short read as a message boundary,
// publishes them onto a bounded queue, and enforces an idle timeout and a
// per-connection message cap.
package conn

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/janstaffa/cree-go/internal/bytesutil"
	"github.com/janstaffa/cree-go/internal/errs"
)

// DefaultMessageCap and DefaultIdleTimeout are the specification's fixed
// defaults: 1024 messages per connection, 60 seconds of inactivity.
const (
	DefaultMessageCap  = 1024
	DefaultIdleTimeout = 60 * time.Second
)

// Conn is one accepted socket framed into a message stream.
type Conn struct {
	id       uint64
	peerAddr string
	rawConn  net.Conn
	writer   *Writer

	cap         uint64
	idleTimeout time.Duration

	queue     chan []byte
	done      chan struct{}
	closeOnce sync.Once

	counter atomic.Uint64

	// HandshakePhase is true for the lifetime of a TLS session that has
	// not yet reached Established; the server loop consults it to decide
	// whether inbound messages are raw TLS records or HTTP requests.
	HandshakePhase atomic.Bool
}

var connCounter atomic.Uint64

// New wraps rawConn, starting a dedicated reader goroutine immediately.
func New(rawConn net.Conn) *Conn {
	return NewWithLimits(rawConn, DefaultMessageCap, DefaultIdleTimeout)
}

// NewWithLimits is New with explicit cap/timeout, for tests and for any
// future configuration surface.
func NewWithLimits(rawConn net.Conn, cap uint64, idleTimeout time.Duration) *Conn {
	c := &Conn{
		id:          connCounter.Add(1),
		peerAddr:    rawConn.RemoteAddr().String(),
		rawConn:     rawConn,
		writer:      &Writer{c: rawConn},
		cap:         cap,
		idleTimeout: idleTimeout,
		queue:       make(chan []byte, cap),
		done:        make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// ID returns a monotonic, process-local identifier used only for log
// correlation.
func (c *Conn) ID() uint64 { return c.id }

// PeerAddr returns the remote address captured at accept time.
func (c *Conn) PeerAddr() string { return c.peerAddr }

// Writer returns the shared, mutex-guarded write half.
func (c *Conn) Writer() *Writer { return c.writer }

// MessageCount returns the number of messages delivered so far.
func (c *Conn) MessageCount() uint64 { return c.counter.Load() }

func (c *Conn) readLoop() {
	defer close(c.queue)
	for {
		msg, err := bytesutil.ReadAll(c.rawConn)
		if err != nil {
			return
		}
		if len(msg) == 0 {
			return
		}
		select {
		case c.queue <- msg:
		case <-c.done:
			return
		}
	}
}

// Messages awaits the next framed message, with the connection's idle
// timeout (60 seconds for connections made by New).
// Exceeding the per-connection message cap, hitting the idle timeout, or
// the underlying reader ending (peer closed / read error) all close the
// connection and return a descriptive error.
func (c *Conn) Messages() ([]byte, error) {
	if c.counter.Load() >= c.cap {
		c.Close()
		return nil, errs.NewMessageCap()
	}

	timer := time.NewTimer(c.idleTimeout)
	defer timer.Stop()

	select {
	case msg, ok := <-c.queue:
		if !ok {
			c.Close()
			return nil, errs.NewReadFailure(nil)
		}
		c.counter.Add(1)
		return msg, nil
	case <-timer.C:
		c.Close()
		return nil, errs.NewIdleTimeout()
	}
}

// Write sends p through the shared write half.
func (c *Conn) Write(p []byte) error {
	return c.writer.Write(p)
}

// Close shuts down the reader goroutine and the underlying socket. Safe to
// call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if cerr := c.rawConn.Close(); cerr != nil {
			err = errs.NewShutdownFailure(cerr)
		}
	})
	return err
}
