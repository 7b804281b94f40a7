package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks values produced by Seal. Unprefixed values are
// passed through Open unchanged so rows written before a key was
// configured stay readable.
const sealedPrefix = "enc:v1:"

var ErrInvalidKey = errors.New("crypto: key must be 32 bytes")

// Cipher seals recipient addresses with AES-GCM
type Cipher struct {
	aead cipher.AEAD
}

// New creates a Cipher from a 32-byte key
func New(key []byte) (*Cipher, error) {
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: aesgcm}, nil
}

// Encrypt encrypts data using AES-GCM and returns the ciphertext and nonce
func (c *Cipher) Encrypt(plaintext string) ([]byte, []byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, err
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	return ciphertext, nonce, nil
}

// Decrypt decrypts AES-GCM encrypted data
func (c *Cipher) Decrypt(ciphertext, nonce []byte) (string, error) {
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// Seal encrypts plaintext into a single text value suitable for a
// TEXT column: enc:v1:<base64(nonce||ciphertext)>
func (c *Cipher) Seal(plaintext string) (string, error) {
	ciphertext, nonce, err := c.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	buf := make([]byte, 0, len(nonce)+len(ciphertext))
	buf = append(buf, nonce...)
	buf = append(buf, ciphertext...)
	return sealedPrefix + base64.StdEncoding.EncodeToString(buf), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as-is.
func (c *Cipher) Open(value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	size := c.aead.NonceSize()
	if len(raw) < size {
		return "", errors.New("crypto: sealed value too short")
	}
	return c.Decrypt(raw[size:], raw[:size])
}

// IsSealed reports whether value was produced by Seal
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
