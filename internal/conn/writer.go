package conn

import (
	"net"
	"sync"

	"github.com/janstaffa/cree-go/internal/errs"
)

// Writer is the connection's write half, shared with response encoders via
// a mutex-guarded handle so they can send without reentering connection
// code. The connection object remains the logical owner: it closes the
// underlying net.Conn on shutdown.
type Writer struct {
	mu sync.Mutex
	c  net.Conn
}

// Write sends the full buffer, serialized against concurrent writers.
func (w *Writer) Write(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.c.Write(p); err != nil {
		return errs.NewWriteFailure(err)
	}
	return nil
}

// CloseWrite shuts down the write half only, used when a fatal alert is
// received and no further bytes should be sent.
func (w *Writer) CloseWrite() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if cw, ok := w.c.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return w.c.Close()
}
