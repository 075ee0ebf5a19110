// Package tlsrecord implements the TLS record framing layer: the
// [type][version][length][payload] wire format shared by every content
// type, independent of what is inside the payload.
package tlsrecord

import (
	"encoding/binary"

	"github.com/janstaffa/cree-go/internal/errs"
)

// ContentType identifies the record's payload kind.
type ContentType byte

const (
	ContentChangeCipherSpec ContentType = 0x14
	ContentAlert            ContentType = 0x15
	ContentHandshake        ContentType = 0x16
	ContentApplication      ContentType = 0x17
	ContentHeartbeat        ContentType = 0x18
)

// Version is a two-byte protocol version as it appears on the wire.
type Version uint16

const (
	VersionTLS10 Version = 0x0301
	VersionTLS11 Version = 0x0302
	VersionTLS12 Version = 0x0303
)

const headerLen = 5

// MaxPayload is the largest payload this codec accepts per record
// (2^14 bytes, the TLS 1.2 plaintext fragment limit).
const MaxPayload = 1 << 14

// Record is one TLS record: header fields plus payload.
type Record struct {
	Type    ContentType
	Version Version
	Payload []byte
}

// Encode serializes r back to its wire form.
func (r Record) Encode() []byte {
	out := make([]byte, headerLen+len(r.Payload))
	out[0] = byte(r.Type)
	binary.BigEndian.PutUint16(out[1:3], uint16(r.Version))
	binary.BigEndian.PutUint16(out[3:5], uint16(len(r.Payload)))
	copy(out[headerLen:], r.Payload)
	return out
}

// ParseRecords decodes every complete record present in buf and returns
// them along with the number of bytes consumed. A trailing partial record
// is not an error; it simply isn't included (callers retain the
// unconsumed suffix and wait for more bytes). An unknown content type, or
// a record's declared length exceeding MaxPayload, is a parse error that
// should close the connection.
func ParseRecords(buf []byte) ([]Record, int, error) {
	var records []Record
	off := 0
	for off+headerLen <= len(buf) {
		typ := ContentType(buf[off])
		if !validContentType(typ) {
			return nil, off, errs.NewTLSMalformed("unknown record content type")
		}
		version := Version(binary.BigEndian.Uint16(buf[off+1 : off+3]))
		length := int(binary.BigEndian.Uint16(buf[off+3 : off+5]))
		if length > MaxPayload {
			return nil, off, errs.NewTLSFieldTooLong("record payload")
		}
		if off+headerLen+length > len(buf) {
			// Partial record: stop, keep what's left for the next read.
			break
		}
		payload := make([]byte, length)
		copy(payload, buf[off+headerLen:off+headerLen+length])
		records = append(records, Record{Type: typ, Version: version, Payload: payload})
		off += headerLen + length
	}
	return records, off, nil
}

func validContentType(t ContentType) bool {
	switch t {
	case ContentChangeCipherSpec, ContentAlert, ContentHandshake, ContentApplication, ContentHeartbeat:
		return true
	default:
		return false
	}
}

// RequireTLS12 returns a protocol error unless v is exactly TLS 1.2. Per
// the specification, 0x0301/0x0302 parse successfully at the record layer
// but are rejected here, at the point content is actually consumed.
func RequireTLS12(v Version) error {
	if v != VersionTLS12 {
		return errs.NewTLSUnsupported("only TLS 1.2 (0x0303) is supported")
	}
	return nil
}
