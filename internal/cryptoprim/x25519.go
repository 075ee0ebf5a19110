// Package cryptoprim wraps the primitives the TLS 1.2 handshake needs:
// x25519 key agreement, AES-128-GCM record protection, HMAC-SHA-256 (the
// PRF's building block), and RSA-PKCS1-v1.5 signing over SHA-256.
package cryptoprim

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// KeyLen is the size, in bytes, of an x25519 private scalar or public point.
const KeyLen = 32

// KeyPair is an ephemeral x25519 key pair.
type KeyPair struct {
	Private [KeyLen]byte
	Public  [KeyLen]byte
}

// GenerateKeyPair draws 32 random bytes, clamps them per RFC 7748, and
// derives the corresponding Montgomery public point from the basepoint.
func GenerateKeyPair() (*KeyPair, error) {
	var priv [KeyLen]byte
	if _, err := rand.Read(priv[:]); err != nil {
		return nil, err
	}
	clamp(&priv)

	pub, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}
	kp := &KeyPair{Private: priv}
	copy(kp.Public[:], pub)
	return kp, nil
}

// clamp applies the RFC 7748 clamping rule to a candidate private scalar.
func clamp(b *[KeyLen]byte) {
	b[0] &= 248
	b[31] &= 127
	b[31] |= 64
}

// SharedSecret computes the x25519 scalar multiplication of a local private
// scalar with a peer's Montgomery public point.
func SharedSecret(private, peerPublic [KeyLen]byte) ([]byte, error) {
	return curve25519.X25519(private[:], peerPublic[:])
}
