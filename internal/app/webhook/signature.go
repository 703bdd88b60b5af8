package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// SignatureVerifier checks that a webhook body was signed by the payment
// provider. The HMAC must be computed over the exact raw bytes the provider
// signed; re-serializing the parsed body silently breaks verification.
type SignatureVerifier struct {
	secret []byte
}

func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

func (v *SignatureVerifier) Verify(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, v.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
