package cryptoprim

// PRF implements the TLS 1.2 HMAC-SHA-256 pseudo-random function:
//
//	A(0) = label || seed
//	A(i) = HMAC(secret, A(i-1))
//	P(i) = HMAC(secret, A(i) || label || seed)
//
// and returns the concatenation of P(1), P(2), ... truncated to n bytes.
func PRF(secret, label, seed []byte, n int) []byte {
	labelSeed := append(append([]byte{}, label...), seed...)

	out := make([]byte, 0, n)
	a := labelSeed
	for len(out) < n {
		a = HMACSHA256(secret, a)
		p := HMACSHA256(secret, append(append([]byte{}, a...), labelSeed...))
		out = append(out, p...)
	}
	return out[:n]
}
