package tlshandshake

import (
	"github.com/janstaffa/cree-go/internal/errs"
)

// NamedCurveX25519 is the IANA-assigned curve id for x25519.
const NamedCurveX25519 = 0x001d

// SigSchemeRSASHA256 is the two-byte signature-scheme id for
// rsa_pkcs1_sha256 ({hash, signature} = {0x04 SHA256, 0x01 RSA}).
var SigSchemeRSASHA256 = [2]byte{0x04, 0x01}

// DecodeClientKeyExchange extracts the 32-byte x25519 public key an
// ECDHE ClientKeyExchange carries.
func DecodeClientKeyExchange(b []byte) ([32]byte, error) {
	var pub [32]byte
	if len(b) < 1 {
		return pub, errs.NewTLSMalformed("client key exchange empty")
	}
	l := int(b[0])
	if l != 32 || len(b) != 1+l {
		return pub, errs.NewTLSMalformed("client key exchange public key must be 32 bytes")
	}
	copy(pub[:], b[1:])
	return pub, nil
}

// EncodeServerKeyExchange builds the ServerKeyExchange body: named curve
// x25519, the uncompressed 32-byte server public key, and an
// RSA-PKCS1-SHA256 signature over client_random || server_random ||
// curve_info || pubkey_len || pubkey.
func EncodeServerKeyExchange(serverPub [32]byte, signature []byte) []byte {
	body := make([]byte, 0, 1+2+1+32+2+2+len(signature))
	body = append(body, 0x03)                      // curve_type = named_curve
	body = append(body, byte(NamedCurveX25519>>8), byte(NamedCurveX25519)) // named_curve = x25519
	body = append(body, byte(len(serverPub)))
	body = append(body, serverPub[:]...)
	body = append(body, SigSchemeRSASHA256[:]...)
	body = append(body, putUint16(len(signature))...)
	body = append(body, signature...)
	return body
}

// ServerKeyExchangeSignedContent returns the bytes the server signs for
// ServerKeyExchange: client_random || server_random || curve_info ||
// pubkey_len || pubkey.
func ServerKeyExchangeSignedContent(clientRandom, serverRandom, serverPub [32]byte) []byte {
	out := make([]byte, 0, 32+32+3+1+32)
	out = append(out, clientRandom[:]...)
	out = append(out, serverRandom[:]...)
	out = append(out, 0x03, byte(NamedCurveX25519>>8), byte(NamedCurveX25519))
	out = append(out, byte(len(serverPub)))
	out = append(out, serverPub[:]...)
	return out
}
