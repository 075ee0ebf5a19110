package tlshandshake

import "github.com/janstaffa/cree-go/internal/errs"

// VerifyDataLen is the fixed length of a Finished message's verify_data.
const VerifyDataLen = 12

// EncodeFinished returns the Finished body (just verify_data).
func EncodeFinished(verifyData []byte) []byte {
	out := make([]byte, VerifyDataLen)
	copy(out, verifyData)
	return out
}

// DecodeFinished extracts verify_data from a Finished body.
func DecodeFinished(b []byte) ([]byte, error) {
	if len(b) != VerifyDataLen {
		return nil, errs.NewTLSMalformed("finished message must carry 12 bytes of verify_data")
	}
	out := make([]byte, VerifyDataLen)
	copy(out, b)
	return out, nil
}
