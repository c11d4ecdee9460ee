package encryption

import (
	"errors"
	"fmt"
)

// Crypto errors
var (
	// ErrAuthenticationFailed is returned when a ciphertext was modified or sealed under another key
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMalformed is returned when input is too short or its framing is inconsistent
	ErrMalformed = errors.New("malformed ciphertext")

	// ErrUnsupportedAlgorithm is returned for an unknown algorithm name
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)

// Key store errors
var (
	ErrKeyStoreRead  = errors.New("key store read failed")
	ErrKeyStoreWrite = errors.New("key store write failed")

	// ErrInvalidKeyLength is wrapped when the stored key is not 256 bits
	ErrInvalidKeyLength = errors.New("invalid key length")
)

// KeyStoreOp identifies which secret store operation failed
type KeyStoreOp int

const (
	ReadFailed KeyStoreOp = iota
	WriteFailed
)

// KeyStoreError reports a secret store failure other than "not found"
type KeyStoreError struct {
	Op        KeyStoreOp
	AccountID string
	Err       error
}

func (e *KeyStoreError) Error() string {
	op := "read"
	if e.Op == WriteFailed {
		op = "write"
	}
	return fmt.Sprintf("key store %s failed for account %q: %v", op, e.AccountID, e.Err)
}

func (e *KeyStoreError) Unwrap() error {
	return e.Err
}

// Is matches ErrKeyStoreRead or ErrKeyStoreWrite according to Op
func (e *KeyStoreError) Is(target error) bool {
	switch target {
	case ErrKeyStoreRead:
		return e.Op == ReadFailed
	case ErrKeyStoreWrite:
		return e.Op == WriteFailed
	}
	return false
}
