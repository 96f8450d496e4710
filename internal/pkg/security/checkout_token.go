package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
)

// GenerateCheckoutToken mints a random opaque claim token and returns it with
// its storage hash. Only the hash is ever persisted.
func GenerateCheckoutToken() (token string, tokenHash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	token = base64.RawURLEncoding.EncodeToString(b)
	return token, HashCheckoutToken(token), nil
}

// HashCheckoutToken returns the one-way storage form of a claim token.
func HashCheckoutToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// VerifyCheckoutToken compares a presented token against a stored hash in
// constant time.
func VerifyCheckoutToken(token, storedHash string) bool {
	if token == "" || storedHash == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(HashCheckoutToken(token)), []byte(storedHash)) == 1
}
