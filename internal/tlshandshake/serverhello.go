package tlshandshake

// CipherSuiteECDHE_RSA_AES128GCM is the single cipher suite this server
// negotiates.
const CipherSuiteECDHE_RSA_AES128GCM = 0xc02f

const extRenegotiationInfo = 0xff01

// EncodeServerHello builds the ServerHello body. Session id is empty (no
// resumption). The only extension advertised is renegotiation_info with an
// empty renegotiated_connection field, matching the specification.
func EncodeServerHello(serverRandom [32]byte) []byte {
	body := make([]byte, 0, 2+32+1+2+1+2+2+2+1)
	body = append(body, 0x03, 0x03) // server_version = TLS 1.2
	body = append(body, serverRandom[:]...)
	body = append(body, 0x00) // session_id length = 0
	body = append(body, byte(CipherSuiteECDHE_RSA_AES128GCM>>8), byte(CipherSuiteECDHE_RSA_AES128GCM&0xff))
	body = append(body, 0x00) // compression_method = null

	ext := encodeRenegotiationInfoExtension()
	body = append(body, putUint16(len(ext))...)
	body = append(body, ext...)
	return body
}

func encodeRenegotiationInfoExtension() []byte {
	// extension_type(2) + extension_length(2) + renegotiated_connection
	// length(1, value 0, i.e. a single zero byte body).
	out := []byte{byte(extRenegotiationInfo >> 8), byte(extRenegotiationInfo & 0xff), 0x00, 0x01, 0x00}
	return out
}

// EncodeCertificate builds the Certificate body from one or more DER
// certificates, in order.
func EncodeCertificate(certsDER [][]byte) []byte {
	var certsBody []byte
	for _, c := range certsDER {
		certsBody = append(certsBody, byte(len(c)>>16), byte(len(c)>>8), byte(len(c)))
		certsBody = append(certsBody, c...)
	}
	out := make([]byte, 0, 3+len(certsBody))
	out = append(out, byte(len(certsBody)>>16), byte(len(certsBody)>>8), byte(len(certsBody)))
	out = append(out, certsBody...)
	return out
}

// EncodeServerHelloDone returns the (empty) ServerHelloDone body.
func EncodeServerHelloDone() []byte {
	return nil
}
