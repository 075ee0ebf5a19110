// Package server assembles the persistent connection manager, the TLS
// session state machine, the HTTP parser/encoder, the router, and the
// static-file service into the accept loop described by the
// specification's server-assembly component.
package server

import (
	"context"
	"crypto/rsa"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/janstaffa/cree-go/internal/conn"
	"github.com/janstaffa/cree-go/internal/httpparse"
	"github.com/janstaffa/cree-go/internal/httpresp"
	"github.com/janstaffa/cree-go/internal/logx"
	"github.com/janstaffa/cree-go/internal/metrics"
	"github.com/janstaffa/cree-go/internal/router"
	"github.com/janstaffa/cree-go/internal/tlsrecord"
	"github.com/janstaffa/cree-go/internal/tlssession"
)

// Server owns a router, its static-file fallback, and (optionally) the
// certificate material needed to terminate TLS.
type Server struct {
	Router  *router.Router
	Metrics *metrics.Counters

	certsDER   [][]byte
	privateKey *rsa.PrivateKey

	listener net.Listener
	wg       sync.WaitGroup
}

// New creates a Server around an already-configured router.
func New(rt *router.Router) *Server {
	return &Server{Router: rt, Metrics: metrics.New()}
}

// EnableTLS supplies the certificate chain (DER, in order) and RSA
// private key used for every accepted TLS connection.
func (s *Server) EnableTLS(certsDER [][]byte, privateKey *rsa.PrivateKey) {
	s.certsDER = certsDER
	s.privateKey = privateKey
}

// ListenAndServe accepts plain HTTP connections on addr until ctx is
// canceled, then stops the accept loop and waits for in-flight
// connection tasks to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	return s.serve(ctx, addr, false)
}

// ListenAndServeTLS is ListenAndServe, terminating TLS 1.2 on every
// accepted connection. EnableTLS must have been called first.
func (s *Server) ListenAndServeTLS(ctx context.Context, addr string) error {
	return s.serve(ctx, addr, true)
}

func (s *Server) serve(ctx context.Context, addr string, useTLS bool) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		rawConn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			logx.Log.WithError(err).Warn("accept failed")
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(rawConn, useTLS)
		}()
	}
}

func (s *Server) serveConn(rawConn net.Conn, useTLS bool) {
	c := conn.New(rawConn)
	s.Metrics.ConnectionsAccepted.Add(1)
	defer func() {
		c.Close()
		s.Metrics.ConnectionsClosed.Add(1)
	}()

	entry := logx.Conn(c.ID())
	entry.Debug("connection accepted")

	if useTLS {
		c.HandshakePhase.Store(true)
		s.serveTLSConn(c)
		return
	}
	s.servePlainConn(c)
}

func (s *Server) servePlainConn(c *conn.Conn) {
	for {
		msg, err := c.Messages()
		if err != nil {
			return
		}
		s.Metrics.BytesReceived.Add(uint64(len(msg)))

		req, err := httpparse.Parse(msg, c.PeerAddr(), time.Now())
		if err != nil {
			return
		}

		resp := s.handle(req)
		resp.IsLast = isLastRequest(req, c)
		s.Metrics.RequestsServed.Add(1)

		if err := resp.Send(c.Writer()); err != nil {
			return
		}
		if resp.IsLast {
			return
		}
	}
}

func (s *Server) serveTLSConn(c *conn.Conn) {
	sess, err := tlssession.New(s.certsDER, s.privateKey)
	if err != nil {
		s.Metrics.TLSHandshakesFailed.Add(1)
		return
	}

	var buf []byte
	for {
		msg, err := c.Messages()
		if err != nil {
			return
		}
		s.Metrics.BytesReceived.Add(uint64(len(msg)))
		buf = append(buf, msg...)

		records, consumed, err := tlsrecord.ParseRecords(buf)
		if err != nil {
			return
		}
		buf = buf[consumed:]

		for _, rec := range records {
			wasEstablished := sess.Established()

			outbound, appData, action, err := sess.Process(rec)
			if err != nil {
				if !wasEstablished {
					s.Metrics.TLSHandshakesFailed.Add(1)
				}
				return
			}
			if len(outbound) > 0 {
				if werr := c.Write(outbound); werr != nil {
					return
				}
				s.Metrics.BytesSent.Add(uint64(len(outbound)))
			}

			if !wasEstablished && sess.Established() {
				c.HandshakePhase.Store(false)
				s.Metrics.TLSHandshakesOK.Add(1)
			}

			switch action {
			case tlssession.AlertActionGracefulClose, tlssession.AlertActionCloseWrite:
				c.Writer().CloseWrite()
				return
			}

			if len(appData) == 0 {
				continue
			}

			req, err := httpparse.Parse(appData, c.PeerAddr(), time.Now())
			if err != nil {
				return
			}

			resp := s.handle(req)
			resp.IsLast = isLastRequest(req, c)
			s.Metrics.RequestsServed.Add(1)

			if err := resp.Send(&sessionWriter{sess: sess, conn: c}); err != nil {
				return
			}
			if resp.IsLast {
				return
			}
		}
	}
}

// sessionWriter adapts a Session's application-data encryption to the
// httpresp.Writer interface, so a Response can be sent without the
// response encoder knowing anything about TLS.
type sessionWriter struct {
	sess *tlssession.Session
	conn *conn.Conn
}

func (w *sessionWriter) Write(p []byte) error {
	encrypted, err := w.sess.EncryptApplication(p)
	if err != nil {
		return err
	}
	return w.conn.Write(encrypted)
}

func (s *Server) handle(req *httpparse.Request) *httpresp.Response {
	if req.Method == httpparse.MethodUnknown {
		resp := httpresp.New(req)
		resp.SetStatus(httpresp.StatusMethodNotAllowed)
		resp.SetHeader("Allow", "GET,HEAD,POST")
		return resp
	}
	return s.Router.Dispatch(req)
}

// isLastRequest reports whether the response should carry Connection:
// close: the request asked for it, or the message just delivered was the
// last one the connection's message cap allows.
func isLastRequest(req *httpparse.Request, c *conn.Conn) bool {
	if c.MessageCount() >= conn.DefaultMessageCap {
		return true
	}
	v, ok := req.Header("connection")
	return ok && strings.EqualFold(v, "close")
}
