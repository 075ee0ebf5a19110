// Package tlssession drives the TLS 1.2 server state machine: an
// ECDHE-RSA handshake over x25519 with AES-128-GCM record protection and
// an HMAC-SHA-256 PRF key schedule. It consumes and produces raw
// tlsrecord.Record values; the persistent connection layer owns the
// socket I/O.
package tlssession

import (
	"crypto/rand"
	"crypto/rsa"

	"github.com/janstaffa/cree-go/internal/cryptoprim"
	"github.com/janstaffa/cree-go/internal/errs"
)

// State is one of the five states the handshake can be in.
type State int

const (
	StateWaitClientHello State = iota
	StateWaitClientKeyExchange
	StateWaitClientChangeCipherSpec
	StateWaitClientFinished
	StateEstablished
)

// AlertAction tells the connection layer what to do after an alert.
type AlertAction int

const (
	AlertActionNone AlertAction = iota
	AlertActionCloseWrite
	AlertActionGracefulClose
)

// Session holds all per-connection TLS 1.2 state.
type Session struct {
	state State

	certsDER   [][]byte
	privateKey *rsa.PrivateKey

	serverRandom [32]byte
	clientRandom [32]byte
	serverKeys   *cryptoprim.KeyPair
	clientPublic [32]byte

	masterSecret   []byte
	clientWriteKey []byte
	serverWriteKey []byte
	clientWriteIV  []byte
	serverWriteIV  []byte
	keysDerived    bool

	transcript [][]byte

	inboundSeq  uint64
	outboundSeq uint64

	inboundEncrypted  bool
	outboundEncrypted bool
}

// SuiteName is the single cipher suite this session ever negotiates, kept
// here only for diagnostic logging.
const SuiteName = "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256"

// New creates a session bound to a certificate chain (DER-encoded, in
// order) and the server's RSA private key, and generates the server's
// random nonce and ephemeral x25519 key pair.
func New(certsDER [][]byte, privateKey *rsa.PrivateKey) (*Session, error) {
	var serverRandom [32]byte
	if _, err := rand.Read(serverRandom[:]); err != nil {
		return nil, err
	}
	kp, err := cryptoprim.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return &Session{
		state:        StateWaitClientHello,
		certsDER:     certsDER,
		privateKey:   privateKey,
		serverRandom: serverRandom,
		serverKeys:   kp,
	}, nil
}

// State returns the session's current handshake state.
func (s *Session) State() State { return s.state }

// Established reports whether the handshake has completed.
func (s *Session) Established() bool { return s.state == StateEstablished }

func (s *Session) appendTranscript(framed []byte) {
	s.transcript = append(s.transcript, framed)
}

func (s *Session) transcriptHash() [32]byte {
	var all []byte
	for _, e := range s.transcript {
		all = append(all, e...)
	}
	return cryptoprim.SHA256(all)
}

// deriveKeys computes master_secret and the traffic key/IV slices once the
// client's ephemeral public key is known. Idempotent.
func (s *Session) deriveKeys() error {
	if s.keysDerived {
		return nil
	}
	preMaster, err := cryptoprim.SharedSecret(s.serverKeys.Private, s.clientPublic)
	if err != nil {
		return err
	}

	seed := append(append([]byte{}, s.clientRandom[:]...), s.serverRandom[:]...)
	s.masterSecret = cryptoprim.PRF(preMaster, []byte("master secret"), seed, 48)

	kbSeed := append(append([]byte{}, s.serverRandom[:]...), s.clientRandom[:]...)
	keyBlock := cryptoprim.PRF(s.masterSecret, []byte("key expansion"), kbSeed, 128)

	// First 40 bytes only: no MAC keys for GCM, then
	// {client_write_key(16), server_write_key(16), client_write_iv(4), server_write_iv(4)}.
	s.clientWriteKey = append([]byte{}, keyBlock[0:16]...)
	s.serverWriteKey = append([]byte{}, keyBlock[16:32]...)
	s.clientWriteIV = append([]byte{}, keyBlock[32:36]...)
	s.serverWriteIV = append([]byte{}, keyBlock[36:40]...)
	s.keysDerived = true
	return nil
}

func fatal(op, msg string) error {
	return errs.NewTLSMalformed(op + ": " + msg)
}

// wantState guards the "any other input in any state is a fatal protocol
// error" rule.
func (s *Session) wantState(want State) error {
	if s.state != want {
		return fatal("state", "unexpected input for current handshake state")
	}
	return nil
}
