package tlshandshake

import (
	"github.com/janstaffa/cree-go/internal/errs"
)

// ClientHello is the subset of the message this server inspects: the
// version and the 32-byte client random. Session id, cipher suite list,
// and compression methods are validated for shape only and otherwise
// ignored; extensions are not read at all — this server offers exactly
// one cipher suite and one curve, so there is nothing to negotiate.
type ClientHello struct {
	Version      uint16
	ClientRandom [32]byte
}

// DecodeClientHello parses a ClientHello body.
func DecodeClientHello(b []byte) (*ClientHello, error) {
	if len(b) < 2+32+1 {
		return nil, errs.NewTLSMalformed("client hello too short")
	}
	ch := &ClientHello{Version: uint16(b[0])<<8 | uint16(b[1])}
	copy(ch.ClientRandom[:], b[2:34])

	off := 34
	sessionIDLen := int(b[off])
	off++
	if off+sessionIDLen > len(b) {
		return nil, errs.NewTLSMalformed("client hello session id overruns message")
	}
	off += sessionIDLen

	if off+2 > len(b) {
		return nil, errs.NewTLSMalformed("client hello missing cipher suites")
	}
	cipherLen := int(b[off])<<8 | int(b[off+1])
	off += 2
	if off+cipherLen > len(b) {
		return nil, errs.NewTLSMalformed("client hello cipher suite list overruns message")
	}
	off += cipherLen

	if off+1 > len(b) {
		return nil, errs.NewTLSMalformed("client hello missing compression methods")
	}
	compLen := int(b[off])
	off++
	if off+compLen > len(b) {
		return nil, errs.NewTLSMalformed("client hello compression methods overrun message")
	}
	off += compLen

	// Extensions are optional and may be entirely absent; this server
	// does not need to inspect them.
	return ch, nil
}
