// Package encryption owns the process-wide data key and provides authenticated
// encryption with it.
package encryption

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

const (
	// KeySize is the size of the data key in bytes
	KeySize = 32

	// DefaultAccount is the secret store account holding the data key
	DefaultAccount = "securityd.encryption.key"
)

var integrityProbe = []byte("securityd integrity probe")

// Config configures the encryption service
type Config struct {
	Account   string
	Algorithm types.Algorithm
}

// keyState is swapped as a whole so encrypt and decrypt always see a consistent key
type keyState struct {
	aead        cipher.AEAD
	version     int
	fingerprint string
	rotatedAt   time.Time
}

// Service performs authenticated encryption with a lazily loaded key
type Service struct {
	store     interfaces.SecretStore
	account   string
	algorithm types.Algorithm
	clock     interfaces.Clock
	logger    zerolog.Logger

	// mu serializes the Unloaded -> Loaded transition and rotation
	mu    sync.Mutex
	state atomic.Pointer[keyState]
}

// NewService creates an encryption service backed by store. The key is not
// touched until the first operation that needs it.
func NewService(store interfaces.SecretStore, cfg Config, clk interfaces.Clock, opLogger zerolog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store (SecretStore) is required for NewService")
	}
	if cfg.Account == "" {
		cfg.Account = DefaultAccount
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = types.AlgorithmAES256GCM
	}
	if _, err := newAEAD(cfg.Algorithm, make([]byte, KeySize)); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if opLogger.GetLevel() == zerolog.Disabled {
		opLogger = log.Logger
	}

	return &Service{
		store:     store,
		account:   cfg.Account,
		algorithm: cfg.Algorithm,
		clock:     clk,
		logger:    opLogger.With().Str("component", "encryption").Logger(),
	}, nil
}

func newAEAD(alg types.Algorithm, key []byte) (cipher.AEAD, error) {
	switch alg {
	case types.AlgorithmAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher block: %w", err)
		}
		gcm, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
		}
		return gcm, nil
	case types.AlgorithmXChaCha20Poly1305:
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, fmt.Errorf("failed to create XChaCha20-Poly1305 cipher: %w", err)
		}
		return aead, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
}

// generateKey generates a new random data key
func generateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	// An all-zero key means the random source is broken
	isZero := true
	for _, b := range key {
		if b != 0 {
			isZero = false
			break
		}
	}
	if isZero {
		return nil, fmt.Errorf("generated key is all zeros")
	}
	return key, nil
}

// Fingerprint returns the hex encoded first 8 bytes of SHA-256 over key
func Fingerprint(key []byte) string {
	sum := sha256.Sum256(key)
	return hex.EncodeToString(sum[:8])
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func (s *Service) newState(key []byte, version int) (*keyState, error) {
	aead, err := newAEAD(s.algorithm, key)
	if err != nil {
		return nil, err
	}
	return &keyState{
		aead:        aead,
		version:     version,
		fingerprint: Fingerprint(key),
		rotatedAt:   s.clock.Now(),
	}, nil
}

// GetOrCreateKey loads the key from the secret store, generating and storing a
// new one when none exists. Once loaded the cached key is returned without I/O.
func (s *Service) GetOrCreateKey(ctx context.Context) (types.KeyStatus, error) {
	st, err := s.current(ctx)
	if err != nil {
		return types.KeyStatus{Loaded: false, Algorithm: s.algorithm}, err
	}
	return s.statusOf(st), nil
}

func (s *Service) current(ctx context.Context) (*keyState, error) {
	if st := s.state.Load(); st != nil {
		return st, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.state.Load(); st != nil {
		return st, nil
	}

	key, err := s.store.Get(ctx, s.account)
	switch {
	case err == nil:
		if len(key) != KeySize {
			wipe(key)
			return nil, &KeyStoreError{Op: ReadFailed, AccountID: s.account, Err: fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKeyLength, len(key), KeySize)}
		}
		s.logger.Debug().Str("account", s.account).Msg("Loaded encryption key from secret store")
	case errors.Is(err, interfaces.ErrSecretNotFound):
		key, err = generateKey()
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, s.account, key); err != nil {
			wipe(key)
			return nil, &KeyStoreError{Op: WriteFailed, AccountID: s.account, Err: err}
		}
		s.logger.Info().Str("account", s.account).Str("fingerprint", Fingerprint(key)).Msg("Generated new encryption key")
	default:
		return nil, &KeyStoreError{Op: ReadFailed, AccountID: s.account, Err: err}
	}
	defer wipe(key)

	st, err := s.newState(key, 1)
	if err != nil {
		return nil, err
	}
	s.state.Store(st)
	return st, nil
}

// Encrypt seals plaintext under the current key with a fresh random nonce.
// The nonce is prepended to the returned ciphertext.
func (s *Service) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	st, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, st.aead.NonceSize(), st.aead.NonceSize()+len(plaintext)+st.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return st.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a ciphertext produced by Encrypt
func (s *Service) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	st, err := s.current(ctx)
	if err != nil {
		return nil, err
	}
	nonceSize := st.aead.NonceSize()
	if len(ciphertext) < nonceSize+st.aead.Overhead() {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrMalformed)
	}
	plaintext, err := st.aead.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// RotateKey replaces the key with a freshly generated one. Ciphertexts sealed
// under the previous key can no longer be decrypted.
func (s *Service) RotateKey(ctx context.Context) (types.KeyStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, err := generateKey()
	if err != nil {
		return types.KeyStatus{}, err
	}
	defer wipe(key)

	err = s.store.Update(ctx, s.account, key)
	if errors.Is(err, interfaces.ErrSecretNotFound) {
		err = s.store.Put(ctx, s.account, key)
	}
	if err != nil {
		return types.KeyStatus{}, &KeyStoreError{Op: WriteFailed, AccountID: s.account, Err: err}
	}

	version := 1
	prevFingerprint := ""
	if prev := s.state.Load(); prev != nil {
		version = prev.version + 1
		prevFingerprint = prev.fingerprint
	}
	st, err := s.newState(key, version)
	if err != nil {
		return types.KeyStatus{}, err
	}
	s.state.Store(st)

	s.logger.Info().
		Int("version", version).
		Str("fingerprint", st.fingerprint).
		Str("previousFingerprint", prevFingerprint).
		Msg("Rotated encryption key")
	return s.statusOf(st), nil
}

// ValidateIntegrity round-trips a known plaintext through the current key
func (s *Service) ValidateIntegrity(ctx context.Context) bool {
	ct, err := s.Encrypt(ctx, integrityProbe)
	if err != nil {
		s.logger.Error().Err(err).Msg("Integrity check failed to encrypt")
		return false
	}
	pt, err := s.Decrypt(ctx, ct)
	if err != nil {
		s.logger.Error().Err(err).Msg("Integrity check failed to decrypt")
		return false
	}
	return bytes.Equal(pt, integrityProbe)
}

// Status describes the current key without loading it
func (s *Service) Status() types.KeyStatus {
	st := s.state.Load()
	if st == nil {
		return types.KeyStatus{Loaded: false, Algorithm: s.algorithm}
	}
	return s.statusOf(st)
}

func (s *Service) statusOf(st *keyState) types.KeyStatus {
	return types.KeyStatus{
		Loaded:      true,
		Version:     st.version,
		Fingerprint: st.fingerprint,
		Algorithm:   s.algorithm,
		RotatedAt:   st.rotatedAt,
	}
}
