// Package bytesutil provides the small byte-level helpers the connection
// and handshake layers build on: big-endian integer joins and bounded
// read-until-short-read accumulation.
package bytesutil

import (
	"fmt"
	"io"

	"github.com/janstaffa/cree-go/internal/errs"
)

// readChunkSize is the fixed chunk size used by ReadAll. Framing in this
// server does not rely on Content-Length for the message head, so callers
// read until a short read or EOF rather than to an expected length.
const readChunkSize = 128

// JoinBytes treats up to 8 bytes as a big-endian unsigned integer,
// left-padding with zeros, and returns the resulting uint64. It fails when
// more than 8 bytes are supplied.
func JoinBytes(bs []byte) (uint64, error) {
	if len(bs) > 8 {
		return 0, fmt.Errorf("bytesutil: cannot join %d bytes into a uint64", len(bs))
	}
	var v uint64
	for _, b := range bs {
		v = (v << 8) | uint64(b)
	}
	return v, nil
}

// BigEndian produces the n-byte big-endian encoding of v.
func BigEndian(v uint64, n int) []byte {
	out := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}

// ReadAll reads from r in fixed-size chunks until a short read or
// EOF, returning the concatenated bytes read so far. It is the framing
// primitive for the persistent connection's reader task: a short read (or
// EOF) is treated as a message boundary, not an error. Only an underlying
// I/O failure (other than EOF) is returned as an error.
func ReadAll(r io.Reader) ([]byte, error) {
	var out []byte
	chunk := make([]byte, readChunkSize)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, errs.NewReadFailure(err)
		}
		if n < readChunkSize {
			return out, nil
		}
	}
}
