package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEncKey  = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"
	testHashKey = "1f1e1d1c1b1a191817161514131211100f0e0d0c0b0a09080706050403020100"
)

func TestEmailCipherRoundTrip(t *testing.T) {
	c, err := NewEmailCipher(testEncKey, testHashKey)
	require.NoError(t, err)

	encrypted, err := c.Encrypt("buyer@example.com")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "buyer@example.com")

	plain, err := c.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", plain)
}

func TestEmailCipherNonDeterministic(t *testing.T) {
	c, err := NewEmailCipher(testEncKey, testHashKey)
	require.NoError(t, err)

	first, err := c.Encrypt("buyer@example.com")
	require.NoError(t, err)
	second, err := c.Encrypt("buyer@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEmailCipherRejectsGarbage(t *testing.T) {
	c, err := NewEmailCipher(testEncKey, testHashKey)
	require.NoError(t, err)

	_, err = c.Decrypt("not-base64!!")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = c.Decrypt("dG9vc2hvcnQ=")
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestEmailCipherRejectsBadKeys(t *testing.T) {
	_, err := NewEmailCipher("deadbeef", testHashKey)
	assert.ErrorIs(t, err, ErrInvalidKey)

	_, err = NewEmailCipher(testEncKey, "zz")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestLookupHashDeterministicAndNormalized(t *testing.T) {
	c, err := NewEmailCipher(testEncKey, testHashKey)
	require.NoError(t, err)

	a := c.LookupHash("Buyer@Example.com ")
	b := c.LookupHash("buyer@example.com")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, c.LookupHash("other@example.com"))
}

func TestCheckoutTokenLifecycle(t *testing.T) {
	token, hash, err := GenerateCheckoutToken()
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, token, hash)

	assert.True(t, VerifyCheckoutToken(token, hash))
	assert.False(t, VerifyCheckoutToken(strings.ToUpper(token), hash))
	assert.False(t, VerifyCheckoutToken("", hash))
	assert.False(t, VerifyCheckoutToken(token, ""))
}

func TestCheckoutTokensUnique(t *testing.T) {
	first, _, err := GenerateCheckoutToken()
	require.NoError(t, err)
	second, _, err := GenerateCheckoutToken()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
