package tlssession

import (
	"github.com/janstaffa/cree-go/internal/cryptoprim"
	"github.com/janstaffa/cree-go/internal/errs"
	"github.com/janstaffa/cree-go/internal/tlshandshake"
	"github.com/janstaffa/cree-go/internal/tlsrecord"
)

// Process advances the state machine with one inbound record. It returns
// raw bytes to write back to the peer (possibly multiple records
// concatenated, per the specification's "as one write" batching),
// decrypted application payload once the handshake is Established, and an
// AlertAction the connection layer should act on for Alert records.
func (s *Session) Process(rec tlsrecord.Record) (outbound []byte, appData []byte, action AlertAction, err error) {
	switch rec.Type {
	case tlsrecord.ContentChangeCipherSpec, tlsrecord.ContentHandshake, tlsrecord.ContentApplication:
		if err := tlsrecord.RequireTLS12(rec.Version); err != nil {
			return nil, nil, AlertActionNone, err
		}
	}

	switch rec.Type {
	case tlsrecord.ContentAlert:
		action, err = s.handleAlert(rec)
		return nil, nil, action, err

	case tlsrecord.ContentChangeCipherSpec:
		err = s.handleChangeCipherSpec(rec)
		return nil, nil, AlertActionNone, err

	case tlsrecord.ContentHandshake:
		payload := rec.Payload
		if s.inboundEncrypted {
			payload, err = s.decryptInbound(rec)
			if err != nil {
				return nil, nil, AlertActionNone, err
			}
		}
		outbound, err = s.handleHandshakePayload(payload)
		return outbound, nil, AlertActionNone, err

	case tlsrecord.ContentApplication:
		if !s.inboundEncrypted || s.state != StateEstablished {
			return nil, nil, AlertActionNone, fatal("application", "received before handshake established")
		}
		pt, derr := s.decryptInbound(rec)
		if derr != nil {
			return nil, nil, AlertActionNone, derr
		}
		return nil, pt, AlertActionNone, nil

	case tlsrecord.ContentHeartbeat:
		return nil, nil, AlertActionNone, nil

	default:
		return nil, nil, AlertActionNone, errs.NewTLSMalformed("unsupported record content type")
	}
}

// handleHandshakePayload dispatches every handshake message framed in one
// record's (decrypted, if applicable) payload, in order.
func (s *Session) handleHandshakePayload(payload []byte) ([]byte, error) {
	var outbound []byte
	for len(payload) > 0 {
		typ, body, n, err := tlshandshake.SplitOne(payload)
		if err != nil {
			return nil, err
		}
		framed := payload[:n]
		out, err := s.handleOneMessage(typ, body, framed)
		if err != nil {
			return nil, err
		}
		outbound = append(outbound, out...)
		payload = payload[n:]
	}
	return outbound, nil
}

func (s *Session) handleOneMessage(typ tlshandshake.MsgType, body, framed []byte) ([]byte, error) {
	switch typ {
	case tlshandshake.MsgClientHello:
		return s.handleClientHello(body, framed)
	case tlshandshake.MsgClientKeyExchange:
		return nil, s.handleClientKeyExchange(body, framed)
	case tlshandshake.MsgFinished:
		return s.handleClientFinished(body, framed)
	default:
		return nil, errs.NewTLSUnknownMsg(byte(typ))
	}
}

func (s *Session) handleClientHello(body, framed []byte) ([]byte, error) {
	if err := s.wantState(StateWaitClientHello); err != nil {
		return nil, err
	}
	ch, err := tlshandshake.DecodeClientHello(body)
	if err != nil {
		return nil, err
	}
	if ch.Version != uint16(tlsrecord.VersionTLS12) {
		return nil, errs.NewTLSUnsupported("client hello requests an unsupported TLS version")
	}
	s.clientRandom = ch.ClientRandom
	s.appendTranscript(framed)

	signed := tlshandshake.ServerKeyExchangeSignedContent(s.clientRandom, s.serverRandom, s.serverKeys.Public)
	sig, err := cryptoprim.SignRSAPKCS1SHA256(s.privateKey, signed)
	if err != nil {
		return nil, err
	}

	shFramed := tlshandshake.Frame(tlshandshake.MsgServerHello, tlshandshake.EncodeServerHello(s.serverRandom))
	certFramed := tlshandshake.Frame(tlshandshake.MsgCertificate, tlshandshake.EncodeCertificate(s.certsDER))
	skeFramed := tlshandshake.Frame(tlshandshake.MsgServerKeyExchange, tlshandshake.EncodeServerKeyExchange(s.serverKeys.Public, sig))
	shdFramed := tlshandshake.Frame(tlshandshake.MsgServerHelloDone, tlshandshake.EncodeServerHelloDone())

	s.appendTranscript(shFramed)
	s.appendTranscript(certFramed)
	s.appendTranscript(skeFramed)
	s.appendTranscript(shdFramed)

	var flight []byte
	flight = append(flight, shFramed...)
	flight = append(flight, certFramed...)
	flight = append(flight, skeFramed...)
	flight = append(flight, shdFramed...)

	rec := tlsrecord.Record{Type: tlsrecord.ContentHandshake, Version: tlsrecord.VersionTLS12, Payload: flight}
	s.state = StateWaitClientKeyExchange
	return rec.Encode(), nil
}

func (s *Session) handleClientKeyExchange(body, framed []byte) error {
	if err := s.wantState(StateWaitClientKeyExchange); err != nil {
		return err
	}
	pub, err := tlshandshake.DecodeClientKeyExchange(body)
	if err != nil {
		return err
	}
	s.clientPublic = pub
	s.appendTranscript(framed)
	s.state = StateWaitClientChangeCipherSpec
	return nil
}

func (s *Session) handleChangeCipherSpec(rec tlsrecord.Record) error {
	if err := s.wantState(StateWaitClientChangeCipherSpec); err != nil {
		return err
	}
	if len(rec.Payload) != 1 || rec.Payload[0] != 0x01 {
		return errs.NewTLSMalformed("change_cipher_spec must carry a single 0x01 byte")
	}
	if err := s.deriveKeys(); err != nil {
		return err
	}
	s.inboundEncrypted = true
	s.state = StateWaitClientFinished
	return nil
}

func (s *Session) handleClientFinished(body, framed []byte) ([]byte, error) {
	if err := s.wantState(StateWaitClientFinished); err != nil {
		return nil, err
	}
	verifyData, err := tlshandshake.DecodeFinished(body)
	if err != nil {
		return nil, err
	}

	hashBeforeClientFinished := s.transcriptHash()
	want := cryptoprim.PRF(s.masterSecret, []byte("client finished"), hashBeforeClientFinished[:], tlshandshake.VerifyDataLen)
	if !constantTimeEqual(want, verifyData) {
		return nil, errs.NewTLSAuthFailure("client-finished-verify")
	}
	s.appendTranscript(framed)

	ccsRec := tlsrecord.Record{Type: tlsrecord.ContentChangeCipherSpec, Version: tlsrecord.VersionTLS12, Payload: []byte{0x01}}
	s.outboundEncrypted = true
	s.outboundSeq = 0

	hashBeforeServerFinished := s.transcriptHash()
	serverVerifyData := cryptoprim.PRF(s.masterSecret, []byte("server finished"), hashBeforeServerFinished[:], tlshandshake.VerifyDataLen)
	serverFinishedFramed := tlshandshake.Frame(tlshandshake.MsgFinished, tlshandshake.EncodeFinished(serverVerifyData))
	s.appendTranscript(serverFinishedFramed)

	encRec, err := s.encryptOutbound(tlsrecord.ContentHandshake, serverFinishedFramed)
	if err != nil {
		return nil, err
	}

	s.state = StateEstablished
	return append(ccsRec.Encode(), encRec.Encode()...), nil
}

func (s *Session) handleAlert(rec tlsrecord.Record) (AlertAction, error) {
	if len(rec.Payload) != 2 {
		return AlertActionNone, errs.NewTLSMalformed("alert record must carry exactly 2 bytes")
	}
	severity := rec.Payload[0]
	description := rec.Payload[1]

	if description == 0 { // close_notify
		return AlertActionGracefulClose, nil
	}
	if severity == 2 { // fatal
		return AlertActionCloseWrite, nil
	}
	return AlertActionNone, nil
}

// EncryptApplication protects an HTTP response body for the wire, once
// the session is Established.
func (s *Session) EncryptApplication(plaintext []byte) ([]byte, error) {
	if s.state != StateEstablished {
		return nil, fatal("application", "session not established")
	}
	rec, err := s.encryptOutbound(tlsrecord.ContentApplication, plaintext)
	if err != nil {
		return nil, err
	}
	return rec.Encode(), nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}
