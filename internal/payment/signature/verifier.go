package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret
func Sign(message []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhook authenticates a raw webhook body against its signature header.
// Empty secrets and malformed signatures never verify.
func VerifyWebhook(rawBody []byte, signature, secret string) bool {
	return verify(rawBody, signature, secret)
}

// VerifyCheckout authenticates the client-side checkout callback, which
// signs "orderID|paymentID".
func VerifyCheckout(orderID, paymentID, signature, secret string) bool {
	if orderID == "" || paymentID == "" {
		return false
	}
	return verify([]byte(orderID+"|"+paymentID), signature, secret)
}

func verify(message []byte, signature, secret string) bool {
	if secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil || len(got) != sha256.Size {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return hmac.Equal(got, mac.Sum(nil))
}
