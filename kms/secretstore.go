package kms

import (
	"context"
	"fmt"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	"google.golang.org/protobuf/proto"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
)

// WrappingSecretStore wraps secrets with a KMS provider before handing them
// to the underlying store. The inner store only ever sees marshalled
// wrapping.BlobInfo messages.
type WrappingSecretStore struct {
	inner   interfaces.SecretStore
	wrapper wrapping.Wrapper
}

func NewWrappingSecretStore(inner interfaces.SecretStore, provider interfaces.KMSProvider) *WrappingSecretStore {
	return &WrappingSecretStore{inner: inner, wrapper: provider.GetWrapper()}
}

// Get unwraps the stored secret. ErrSecretNotFound from the inner store is
// returned unchanged.
func (s *WrappingSecretStore) Get(ctx context.Context, account string) ([]byte, error) {
	blob, err := s.inner.Get(ctx, account)
	if err != nil {
		return nil, err
	}

	info := new(wrapping.BlobInfo)
	if err := proto.Unmarshal(blob, info); err != nil {
		return nil, fmt.Errorf("%w: decode blob for %s: %w", ErrUnwrap, account, err)
	}
	secret, err := s.wrapper.Decrypt(ctx, info)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnwrap, account, err)
	}
	return secret, nil
}

func (s *WrappingSecretStore) Put(ctx context.Context, account string, secret []byte) error {
	blob, err := s.wrap(ctx, account, secret)
	if err != nil {
		return err
	}
	return s.inner.Put(ctx, account, blob)
}

func (s *WrappingSecretStore) Update(ctx context.Context, account string, secret []byte) error {
	blob, err := s.wrap(ctx, account, secret)
	if err != nil {
		return err
	}
	return s.inner.Update(ctx, account, blob)
}

func (s *WrappingSecretStore) wrap(ctx context.Context, account string, secret []byte) ([]byte, error) {
	info, err := s.wrapper.Encrypt(ctx, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrWrap, account, err)
	}
	blob, err := proto.Marshal(info)
	if err != nil {
		return nil, fmt.Errorf("%w: encode blob for %s: %w", ErrWrap, account, err)
	}
	return blob, nil
}
