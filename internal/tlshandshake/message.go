// Package tlshandshake encodes and decodes the handshake message subset
// this server's ECDHE-RSA/x25519/AES-128-GCM flow requires: ClientHello,
// ClientKeyExchange, and Finished on decode; ServerHello, Certificate,
// ServerKeyExchange, ServerHelloDone, and Finished on encode.
package tlshandshake

import (
	"encoding/binary"

	"github.com/janstaffa/cree-go/internal/errs"
)

// MsgType is the one-byte handshake message type tag.
type MsgType byte

const (
	MsgClientHello       MsgType = 1
	MsgServerHello       MsgType = 2
	MsgCertificate       MsgType = 11
	MsgServerKeyExchange MsgType = 12
	MsgServerHelloDone   MsgType = 14
	MsgClientKeyExchange MsgType = 16
	MsgFinished          MsgType = 20
)

const msgHeaderLen = 4 // [type:1][length:3]

// Frame wraps payload with the [msg_type:1][length:3] handshake header.
func Frame(t MsgType, payload []byte) []byte {
	out := make([]byte, msgHeaderLen+len(payload))
	out[0] = byte(t)
	putUint24(out[1:4], len(payload))
	copy(out[msgHeaderLen:], payload)
	return out
}

// SplitOne reads exactly one framed handshake message from buf. It returns
// a parse error (never a partial accept) if buf is shorter than the
// declared length.
func SplitOne(buf []byte) (t MsgType, payload []byte, consumed int, err error) {
	if len(buf) < msgHeaderLen {
		return 0, nil, 0, errs.NewTLSMalformed("truncated handshake header")
	}
	t = MsgType(buf[0])
	length := getUint24(buf[1:4])
	if len(buf) < msgHeaderLen+length {
		return 0, nil, 0, errs.NewTLSMalformed("truncated handshake payload")
	}
	payload = buf[msgHeaderLen : msgHeaderLen+length]
	return t, payload, msgHeaderLen + length, nil
}

func putUint24(b []byte, v int) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}

func getUint24(b []byte) int {
	return int(b[0])<<16 | int(b[1])<<8 | int(b[2])
}

func putUint16(v int) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}
