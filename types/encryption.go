package types

import (
	"time"
)

// Algorithm names the AEAD construction used by the encryption service
type Algorithm string

const (
	AlgorithmAES256GCM         Algorithm = "aes-256-gcm"
	AlgorithmXChaCha20Poly1305 Algorithm = "xchacha20-poly1305"
)

// EnvelopeMetadata is carried inside an encrypted envelope alongside the payload
type EnvelopeMetadata struct {
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	DataType  string    `json:"dataType"`
}

// KeyStatus describes the key currently held by the encryption service.
// The fingerprint is derived from the key and never reveals it.
type KeyStatus struct {
	Loaded      bool      `json:"loaded"`
	Version     int       `json:"version"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Algorithm   Algorithm `json:"algorithm"`
	RotatedAt   time.Time `json:"rotatedAt,omitempty"`
}
