// Package symmetric seals short configuration secrets into ENC[...] strings
package symmetric

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

const (
	encryptionPrefix = "ENC["
	encryptionSuffix = "]"

	// KeySize is the bootstrap key length
	KeySize = 32
)

var (
	ErrWeakKey        = errors.New("key has insufficient entropy")
	ErrKeyTooShort    = errors.New("encryption key must be at least 32 bytes")
	ErrEmptyValue     = errors.New("value cannot be empty")
	ErrSealedTooShort = errors.New("sealed value too short")
)

// Encryption implements interfaces.SymmetricEncryptor with AES-256-GCM
type Encryption struct {
	aead cipher.AEAD
}

// NewEncryption creates an encryptor from the first 32 bytes of key
func NewEncryption(key []byte) (*Encryption, error) {
	if len(key) < KeySize {
		return nil, ErrKeyTooShort
	}
	key = key[:KeySize]
	if !validateKeyEntropy(key) {
		return nil, ErrWeakKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher block: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return &Encryption{aead: gcm}, nil
}

// Require at least 16 distinct byte values
func validateKeyEntropy(key []byte) bool {
	unique := make(map[byte]struct{})
	for _, b := range key {
		unique[b] = struct{}{}
	}
	return len(unique) >= 16
}

// IsSealed reports whether s carries the ENC[...] marker
func IsSealed(s string) bool {
	return strings.HasPrefix(s, encryptionPrefix) && strings.HasSuffix(s, encryptionSuffix)
}

// Encrypt seals plaintext. Values that are already sealed are returned unchanged.
func (e *Encryption) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyValue
	}
	if IsSealed(plaintext) {
		return plaintext, nil
	}

	nonce := make([]byte, e.aead.NonceSize(), e.aead.NonceSize()+len(plaintext)+e.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptionPrefix + base64.URLEncoding.EncodeToString(sealed) + encryptionSuffix, nil
}

// Decrypt opens a sealed value. Plain values are returned unchanged.
func (e *Encryption) Decrypt(value string) (string, error) {
	if value == "" {
		return "", ErrEmptyValue
	}
	if !IsSealed(value) {
		return value, nil
	}

	encoded := strings.TrimSuffix(strings.TrimPrefix(value, encryptionPrefix), encryptionSuffix)
	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := e.aead.NonceSize()
	if len(decoded) < nonceSize+e.aead.Overhead() {
		return "", ErrSealedTooShort
	}
	plaintext, err := e.aead.Open(nil, decoded[:nonceSize], decoded[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}
