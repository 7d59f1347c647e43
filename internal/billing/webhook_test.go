package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"payment_id":"abc","status":"completed"}`)

	assert.True(t, VerifySignature("s3cret", body, sign("s3cret", body)))
	assert.False(t, VerifySignature("s3cret", body, sign("wrong", body)))
	assert.False(t, VerifySignature("s3cret", []byte(`tampered`), sign("s3cret", body)))
	assert.False(t, VerifySignature("s3cret", body, ""))
	assert.False(t, VerifySignature("s3cret", body, "not-hex-at-all"))
}

func TestValidMode(t *testing.T) {
	for _, m := range []string{ModeCash, ModeCard, ModeUPI, ModeWallet} {
		assert.True(t, ValidMode(m))
	}
	assert.False(t, ValidMode("barter"))
	assert.False(t, ValidMode(""))
}
