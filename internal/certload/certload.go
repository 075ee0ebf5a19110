// Package certload loads the server's certificate chain and RSA private
// key for the single TLS 1.2 cipher suite this server ever negotiates.
// Unlike a stdlib crypto/tls deployment, the handshake itself is driven
// by tlssession — this package only gets the key material into the
// shape tlssession.New expects (DER-encoded certificates, a parsed RSA
// private key).
package certload

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"os"

	"github.com/janstaffa/cree-go/internal/errs"
)

// SuiteName, CurveName, and SignatureSchemeName document the one
// negotiable combination this server supports; they exist for
// diagnostic logging only.
const (
	SuiteName           = "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"
	SuiteID             = 0xc02f
	CurveName           = "x25519"
	CurveID             = 0x001d
	SignatureSchemeName = "rsa_pkcs1_sha256"
	SignatureSchemeID   = 0x0401
)

// Certificates loads a certificate chain file, accepting either PEM
// blocks or a raw base64-encoded DER blob, and returns the chain as DER,
// in file order.
func Certificates(path string) ([][]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewFileOpen(path, err)
	}

	var chain [][]byte
	rest := raw
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) > 0 {
		return chain, nil
	}

	der, err := decodeBase64OrRaw(raw)
	if err != nil {
		return nil, errs.NewFileOpen(path, err)
	}
	return [][]byte{der}, nil
}

// PrivateKey loads an RSA private key, accepting PEM (PKCS#1 or PKCS#8)
// or a raw base64-encoded DER blob.
func PrivateKey(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.NewFileOpen(path, err)
	}

	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		der = block.Bytes
	} else if decoded, derr := decodeBase64OrRaw(raw); derr == nil {
		der = decoded
	}

	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errs.NewFileOpen(path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, errs.NewFileOpen(path, err)
	}
	return rsaKey, nil
}

func decodeBase64OrRaw(raw []byte) ([]byte, error) {
	trimmed := trimSpace(raw)
	decoded, err := base64.StdEncoding.DecodeString(string(trimmed))
	if err != nil {
		return raw, nil
	}
	return decoded, nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
