package cryptoprim

import (
	"crypto"
	"crypto/hmac"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
)

// SHA256 hashes data with SHA-256.
func SHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HMACSHA256 computes HMAC-SHA-256 over message under key.
func HMACSHA256(key, message []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(message)
	return mac.Sum(nil)
}

// SignRSAPKCS1SHA256 signs data (not its hash) with RSA-PKCS1-v1.5 over
// SHA-256, using a DER-encoded (parsed) RSA private key.
func SignRSAPKCS1SHA256(key *rsa.PrivateKey, data []byte) ([]byte, error) {
	h := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, h[:])
}
