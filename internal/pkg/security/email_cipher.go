package security

import (
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey        = errors.New("security: key must be 32 bytes, hex encoded")
	ErrInvalidCiphertext = errors.New("security: invalid ciphertext")
)

// EmailCipher encrypts email addresses for storage and derives a separate
// deterministic lookup hash. Encryption is reversible (the success callback
// needs the plaintext back); the lookup hash is one-way and keyed so the
// column alone cannot be brute-forced offline.
type EmailCipher struct {
	aead    cipher.AEAD
	hashKey []byte
}

// NewEmailCipher builds a cipher from two independent hex-encoded 32-byte
// keys: one for XChaCha20-Poly1305 encryption, one for the HMAC lookup hash.
func NewEmailCipher(encKeyHex, hashKeyHex string) (*EmailCipher, error) {
	encKey, err := decodeKey(encKeyHex)
	if err != nil {
		return nil, err
	}
	hashKey, err := decodeKey(hashKeyHex)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(encKey)
	if err != nil {
		return nil, err
	}

	return &EmailCipher{aead: aead, hashKey: hashKey}, nil
}

// Encrypt returns base64(nonce || ciphertext || tag).
func (c *EmailCipher) Encrypt(email string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	out := c.aead.Seal(nonce, nonce, []byte(email), nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt.
func (c *EmailCipher) Decrypt(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	if len(raw) < c.aead.NonceSize() {
		return "", ErrInvalidCiphertext
	}

	nonce, ciphertext := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return string(plain), nil
}

// LookupHash returns a deterministic keyed hash of the normalized address,
// usable as an index column without storing the address itself.
func (c *EmailCipher) LookupHash(email string) string {
	mac := hmac.New(sha256.New, c.hashKey)
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(mac.Sum(nil))
}

func decodeKey(keyHex string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil || len(key) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}
