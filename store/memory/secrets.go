// Package memory provides in-process implementations of the subsystem's
// storage collaborators. They back the default configuration and the tests.
package memory

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// SecretStore keeps secrets in wiped-on-release memory
type SecretStore struct {
	mu      sync.RWMutex
	data    map[string]*types.SecureBytes
	logger  zerolog.Logger
	failGet error
	failPut error
}

// NewSecretStore creates an empty secret store
func NewSecretStore() *SecretStore {
	return &SecretStore{
		data:   make(map[string]*types.SecureBytes),
		logger: log.With().Str("component", "memory_secrets").Logger(),
	}
}

// Get returns a copy of the secret for account
func (s *SecretStore) Get(_ context.Context, account string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failGet != nil {
		return nil, s.failGet
	}
	v, ok := s.data[account]
	if !ok {
		return nil, interfaces.ErrSecretNotFound
	}
	return v.Get(), nil
}

// Put creates or replaces the secret for account
func (s *SecretStore) Put(_ context.Context, account string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	s.replace(account, secret)
	return nil
}

// Update replaces an existing secret
func (s *SecretStore) Update(_ context.Context, account string, secret []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut != nil {
		return s.failPut
	}
	if _, ok := s.data[account]; !ok {
		return interfaces.ErrSecretNotFound
	}
	s.replace(account, secret)
	return nil
}

func (s *SecretStore) replace(account string, secret []byte) {
	if old, ok := s.data[account]; ok {
		old.Clear()
	}
	s.data[account] = types.NewSecureBytes(secret)
	s.logger.Trace().Str("account", account).Msg("Secret stored")
}

// Delete securely wipes and removes the secret for account
func (s *SecretStore) Delete(account string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.data[account]; ok {
		old.Clear()
		delete(s.data, account)
	}
}

// FailReads makes every Get return err until called again with nil
func (s *SecretStore) FailReads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failGet = err
}

// FailWrites makes every Put and Update return err until called again with nil
func (s *SecretStore) FailWrites(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPut = err
}
