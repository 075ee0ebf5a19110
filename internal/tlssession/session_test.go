package tlssession

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/janstaffa/cree-go/internal/cryptoprim"
	"github.com/janstaffa/cree-go/internal/tlshandshake"
	"github.com/janstaffa/cree-go/internal/tlsrecord"
)

func buildClientHelloBody(random [32]byte) []byte {
	var b []byte
	b = append(b, 0x03, 0x03)
	b = append(b, random[:]...)
	b = append(b, 0x00)
	b = append(b, 0x00, 0x02, 0xc0, 0x2f)
	b = append(b, 0x01, 0x00)
	b = append(b, 0x00, 0x00)
	return b
}

// extractServerFlight parses the ServerHello+Certificate+ServerKeyExchange+
// ServerHelloDone batch to recover the server random and ephemeral public
// key needed to complete the handshake as a client would.
func extractServerFlight(t *testing.T, wire []byte) (serverRandom [32]byte, serverPub [32]byte) {
	t.Helper()
	records, n, err := tlsrecord.ParseRecords(wire)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(wire) || len(records) != 1 {
		t.Fatalf("expected one complete record, got %d records, %d/%d bytes", len(records), n, len(wire))
	}
	payload := records[0].Payload
	for len(payload) > 0 {
		typ, body, consumed, err := tlshandshake.SplitOne(payload)
		if err != nil {
			t.Fatal(err)
		}
		switch typ {
		case tlshandshake.MsgServerHello:
			copy(serverRandom[:], body[2:34])
		case tlshandshake.MsgServerKeyExchange:
			copy(serverPub[:], body[4:36])
		}
		payload = payload[consumed:]
	}
	return serverRandom, serverPub
}

func TestFullHandshake(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	certs := [][]byte{[]byte("fake-certificate-der-bytes")}

	sess, err := New(certs, priv)
	if err != nil {
		t.Fatal(err)
	}

	var clientRandom [32]byte
	for i := range clientRandom {
		clientRandom[i] = byte(i + 1)
	}

	clientHelloBody := buildClientHelloBody(clientRandom)
	clientHelloFramed := tlshandshake.Frame(tlshandshake.MsgClientHello, clientHelloBody)
	chRec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: clientHelloFramed}

	outbound, _, _, err := sess.Process(chRec)
	if err != nil {
		t.Fatalf("client hello: %v", err)
	}
	if sess.State() != StateWaitClientKeyExchange {
		t.Fatalf("unexpected state after client hello: %v", sess.State())
	}

	serverRandom, serverPub := extractServerFlight(t, outbound)
	if serverRandom != sess.serverRandom {
		t.Fatal("server random mismatch")
	}

	clientKeys, err := cryptoprim.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	preMaster, err := cryptoprim.SharedSecret(clientKeys.Private, serverPub)
	if err != nil {
		t.Fatal(err)
	}
	seed := append(append([]byte{}, clientRandom[:]...), serverRandom[:]...)
	masterSecret := cryptoprim.PRF(preMaster, []byte("master secret"), seed, 48)

	ckeBody := append([]byte{32}, clientKeys.Public[:]...)
	ckeFramed := tlshandshake.Frame(tlshandshake.MsgClientKeyExchange, ckeBody)
	ckeRec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: ckeFramed}

	if _, _, _, err := sess.Process(ckeRec); err != nil {
		t.Fatalf("client key exchange: %v", err)
	}
	if sess.State() != StateWaitClientChangeCipherSpec {
		t.Fatalf("unexpected state after CKE: %v", sess.State())
	}

	ccsRec := tlsrecord.Record{Type: tlsrecord.ContentChangeCipherSpec, Version: tlsrecord.VersionTLS12, Payload: []byte{0x01}}
	if _, _, _, err := sess.Process(ccsRec); err != nil {
		t.Fatalf("change cipher spec: %v", err)
	}
	if sess.State() != StateWaitClientFinished {
		t.Fatalf("unexpected state after CCS: %v", sess.State())
	}
	if !bytes.Equal(masterSecret, sess.masterSecret) {
		t.Fatal("master secret mismatch between client-side and server-side derivation")
	}

	// Client transcript hash covers ClientHello..ClientKeyExchange.
	var clientTranscript []byte
	clientTranscript = append(clientTranscript, clientHelloFramed...)
	for _, e := range sess.transcript[1:4] { // ServerHello, Certificate, ServerKeyExchange
		clientTranscript = append(clientTranscript, e...)
	}
	clientTranscript = append(clientTranscript, sess.transcript[4]...) // ServerHelloDone
	clientTranscript = append(clientTranscript, ckeFramed...)
	clientHash := cryptoprim.SHA256(clientTranscript)

	clientVerifyData := cryptoprim.PRF(masterSecret, []byte("client finished"), clientHash[:], tlshandshake.VerifyDataLen)
	clientFinishedFramed := tlshandshake.Frame(tlshandshake.MsgFinished, tlshandshake.EncodeFinished(clientVerifyData))

	// Encrypt the client Finished under client_write_key/IV, sequence 0.
	clientWriteKey := sess.clientWriteKey
	clientWriteIV := sess.clientWriteIV
	nonce := append(append([]byte{}, clientWriteIV...), make([]byte, 8)...)
	aad := buildAAD(0, tlsrecord.ContentHandshake, uint16(tlsrecord.VersionTLS12), len(clientFinishedFramed))
	ct, err := cryptoprim.EncryptGCM(clientWriteKey, nonce, clientFinishedFramed, aad)
	if err != nil {
		t.Fatal(err)
	}
	encPayload := append(make([]byte, 8), ct...)
	finishedRec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: encPayload}

	serverOut, _, _, err := sess.Process(finishedRec)
	if err != nil {
		t.Fatalf("client finished: %v", err)
	}
	if !sess.Established() {
		t.Fatal("session should be established")
	}

	records, n, err := tlsrecord.ParseRecords(serverOut)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(serverOut) || len(records) != 2 {
		t.Fatalf("expected CCS + encrypted Finished, got %d records", len(records))
	}
	if records[0].Type != tlsrecord.ContentChangeCipherSpec {
		t.Fatalf("expected first record to be change_cipher_spec, got %v", records[0].Type)
	}
	if records[1].Type != tlsrecord.ContentHandshake {
		t.Fatalf("expected second record to be encrypted handshake, got %v", records[1].Type)
	}

	// Decrypt server's Finished using server_write_key/IV at sequence 0 and
	// verify its verify_data against the PRF computed over the transcript
	// up to (not including) the server Finished.
	serverWriteKey := sess.serverWriteKey
	serverWriteIV := sess.serverWriteIV
	seqBytes := records[1].Payload[:8]
	sNonce := append(append([]byte{}, serverWriteIV...), seqBytes...)
	sAAD := buildAAD(0, tlsrecord.ContentHandshake, uint16(tlsrecord.VersionTLS12), len(records[1].Payload[8:])-cryptoprim.TagLen)
	plaintext, err := cryptoprim.DecryptGCM(serverWriteKey, sNonce, records[1].Payload[8:], sAAD)
	if err != nil {
		t.Fatalf("decrypting server finished: %v", err)
	}
	_, body, _, err := tlshandshake.SplitOne(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	serverVerifyData, err := tlshandshake.DecodeFinished(body)
	if err != nil {
		t.Fatal(err)
	}

	hashBeforeServerFinished := cryptoprim.SHA256(append(append([]byte{}, clientTranscript...), clientFinishedFramed...))
	wantServerVerifyData := cryptoprim.PRF(masterSecret, []byte("server finished"), hashBeforeServerFinished[:], tlshandshake.VerifyDataLen)
	if !bytes.Equal(serverVerifyData, wantServerVerifyData) {
		t.Fatal("server verify_data mismatch")
	}
}

func TestHandshakeFailsOnBadClientFinished(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := New([][]byte{[]byte("cert")}, priv)
	if err != nil {
		t.Fatal(err)
	}

	var clientRandom [32]byte
	clientHelloFramed := tlshandshake.Frame(tlshandshake.MsgClientHello, buildClientHelloBody(clientRandom))
	if _, _, _, err := sess.Process(tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: clientHelloFramed}); err != nil {
		t.Fatal(err)
	}

	clientKeys, err := cryptoprim.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	ckeFramed := tlshandshake.Frame(tlshandshake.MsgClientKeyExchange, append([]byte{32}, clientKeys.Public[:]...))
	if _, _, _, err := sess.Process(tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: ckeFramed}); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := sess.Process(tlsrecord.Record{Type: tlsrecord.ContentChangeCipherSpec, Version: tlsrecord.VersionTLS12, Payload: []byte{0x01}}); err != nil {
		t.Fatal(err)
	}

	badFinished := tlshandshake.Frame(tlshandshake.MsgFinished, tlshandshake.EncodeFinished(make([]byte, tlshandshake.VerifyDataLen)))
	nonce := append(append([]byte{}, sess.clientWriteIV...), make([]byte, 8)...)
	aad := buildAAD(0, tlsrecord.ContentHandshake, uint16(tlsrecord.VersionTLS12), len(badFinished))
	ct, err := cryptoprim.EncryptGCM(sess.clientWriteKey, nonce, badFinished, aad)
	if err != nil {
		t.Fatal(err)
	}
	rec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: append(make([]byte, 8), ct...)}

	if _, _, _, err := sess.Process(rec); err == nil {
		t.Fatal("expected verification failure for all-zero verify_data")
	}
}

func TestRecordWithOldVersionIsRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := New([][]byte{[]byte("cert")}, priv)
	if err != nil {
		t.Fatal(err)
	}

	var clientRandom [32]byte
	clientHelloFramed := tlshandshake.Frame(tlshandshake.MsgClientHello, buildClientHelloBody(clientRandom))
	rec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS10, Payload: clientHelloFramed}
	if _, _, _, err := sess.Process(rec); err == nil {
		t.Fatal("expected a protocol error for a 0x0301 handshake record")
	}
}

func TestClientHelloWithOldVersionIsRejected(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := New([][]byte{[]byte("cert")}, priv)
	if err != nil {
		t.Fatal(err)
	}

	var clientRandom [32]byte
	body := buildClientHelloBody(clientRandom)
	body[0], body[1] = 0x03, 0x01 // claim TLS 1.0 inside an otherwise-valid record
	clientHelloFramed := tlshandshake.Frame(tlshandshake.MsgClientHello, body)
	rec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: clientHelloFramed}
	if _, _, _, err := sess.Process(rec); err == nil {
		t.Fatal("expected a protocol error for a client hello declaring version 0x0301")
	}
}

func TestOutOfOrderMessageIsFatal(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := New([][]byte{[]byte("cert")}, priv)
	if err != nil {
		t.Fatal(err)
	}
	// ClientKeyExchange before ClientHello must fail.
	ckeFramed := tlshandshake.Frame(tlshandshake.MsgClientKeyExchange, append([]byte{32}, make([]byte, 32)...))
	rec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: ckeFramed}
	if _, _, _, err := sess.Process(rec); err == nil {
		t.Fatal("expected fatal error for out-of-order ClientKeyExchange")
	}
}
