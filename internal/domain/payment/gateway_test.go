// internal/domain/payment/gateway_test.go
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func signPayload(secret, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignatureAcceptsValid(t *testing.T) {
	secret := "test_secret_key"
	sig := signPayload(secret, "order_N9qX1", "pay_M3kL7")

	assert.True(t, VerifySignature(secret, "order_N9qX1", "pay_M3kL7", sig))
}

func TestVerifySignatureRejectsTampered(t *testing.T) {
	secret := "test_secret_key"
	sig := signPayload(secret, "order_N9qX1", "pay_M3kL7")

	assert.False(t, VerifySignature(secret, "order_N9qX1", "pay_OTHER", sig), "payment id swap")
	assert.False(t, VerifySignature(secret, "order_OTHER", "pay_M3kL7", sig), "order id swap")
	assert.False(t, VerifySignature("wrong_secret", "order_N9qX1", "pay_M3kL7", sig), "wrong key")
	assert.False(t, VerifySignature(secret, "order_N9qX1", "pay_M3kL7", ""), "empty signature")
	assert.False(t, VerifySignature(secret, "order_N9qX1", "pay_M3kL7", sig[:len(sig)-1]+"0"), "one flipped hex digit")
}
