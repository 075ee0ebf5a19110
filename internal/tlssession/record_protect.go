package tlssession

import (
	"github.com/janstaffa/cree-go/internal/bytesutil"
	"github.com/janstaffa/cree-go/internal/cryptoprim"
	"github.com/janstaffa/cree-go/internal/errs"
	"github.com/janstaffa/cree-go/internal/tlsrecord"
)

// encryptOutbound protects plaintext as an outbound record of the given
// content type, using server_write_key/IV and the current outbound
// sequence counter, then advances that counter.
func (s *Session) encryptOutbound(contentType tlsrecord.ContentType, plaintext []byte) (tlsrecord.Record, error) {
	if !s.keysDerived {
		return tlsrecord.Record{}, errs.NewTLSKeysMissing()
	}
	seq := s.outboundSeq
	nonce := append(append([]byte{}, s.serverWriteIV...), bytesutil.BigEndian(seq, 8)...)
	aad := buildAAD(seq, contentType, uint16(tlsrecord.VersionTLS12), len(plaintext))

	ct, err := cryptoprim.EncryptGCM(s.serverWriteKey, nonce, plaintext, aad)
	if err != nil {
		return tlsrecord.Record{}, err
	}

	payload := append(bytesutil.BigEndian(seq, 8), ct...)
	s.outboundSeq++
	return tlsrecord.Record{Type: contentType, Version: tlsrecord.VersionTLS12, Payload: payload}, nil
}

// decryptInbound authenticates and decrypts an inbound encrypted record.
// The wire payload carries the explicit sequence number the sender used;
// it must equal this session's expected inbound counter (sequence numbers
// never decrement and are never reused).
func (s *Session) decryptInbound(rec tlsrecord.Record) ([]byte, error) {
	if !s.keysDerived {
		return nil, errs.NewTLSKeysMissing()
	}
	if len(rec.Payload) < 8+cryptoprim.TagLen {
		return nil, errs.NewTLSMalformed("encrypted record too short")
	}
	seqBytes := rec.Payload[:8]
	seq, err := bytesutil.JoinBytes(seqBytes)
	if err != nil {
		return nil, err
	}
	if seq != s.inboundSeq {
		return nil, errs.NewTLSAuthFailure("sequence-mismatch")
	}
	ciphertextAndTag := rec.Payload[8:]

	nonce := append(append([]byte{}, s.clientWriteIV...), seqBytes...)
	plainLen := len(ciphertextAndTag) - cryptoprim.TagLen
	aad := buildAAD(seq, rec.Type, uint16(rec.Version), plainLen)

	pt, err := cryptoprim.DecryptGCM(s.clientWriteKey, nonce, ciphertextAndTag, aad)
	if err != nil {
		return nil, err
	}
	s.inboundSeq++
	return pt, nil
}

func buildAAD(seq uint64, contentType tlsrecord.ContentType, version uint16, plaintextLen int) []byte {
	aad := bytesutil.BigEndian(seq, 8)
	aad = append(aad, byte(contentType))
	aad = append(aad, byte(version>>8), byte(version))
	aad = append(aad, byte(plaintextLen>>8), byte(plaintextLen))
	return aad
}
