package cryptoprim

import (
	"crypto/aes"
	"crypto/cipher"

	"github.com/janstaffa/cree-go/internal/errs"
)

// NonceLen and TagLen are the AES-128-GCM parameters this server assumes
// throughout: a 12-byte nonce and a 16-byte authentication tag appended to
// the ciphertext.
const (
	GCMKeyLen = 16
	NonceLen  = 12
	TagLen    = 16
)

// EncryptGCM encrypts plaintext under key with the given nonce and AAD,
// returning ciphertext with the tag appended.
func EncryptGCM(key, nonce, plaintext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, aad), nil
}

// DecryptGCM authenticates and decrypts a ciphertext-with-appended-tag
// buffer. An authentication failure is reported as a TLS auth-failure
// error, never as a generic decode error, so callers can react uniformly.
func DecryptGCM(key, nonce, ciphertextAndTag, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	pt, err := aead.Open(nil, nonce, ciphertextAndTag, aad)
	if err != nil {
		return nil, errs.NewTLSAuthFailure("gcm-decrypt")
	}
	return pt, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceLen)
}
