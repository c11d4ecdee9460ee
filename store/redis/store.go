// Package redis implements the subsystem's storage collaborators on Redis
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/interfaces"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// DefaultPrefix namespaces every key written by the stores
const DefaultPrefix = "securityd:"

// Store implements SecretStore, PersistentLogSink, LogReader, DataStore and
// SettingsStore over one client.
//
// Keys:
//
//	<prefix>secret:<account>        string
//	<prefix>audit                   list of blobs
//	<prefix>settings                JSON string
//	<prefix>data:<dataType>:<id>    application records
type Store struct {
	client *goredis.Client
	prefix string
}

// NewStore uses prefix, or DefaultPrefix when empty
func NewStore(client *goredis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) secretKey(account string) string { return s.prefix + "secret:" + account }
func (s *Store) auditKey() string                { return s.prefix + "audit" }
func (s *Store) settingsKey() string             { return s.prefix + "settings" }

// DataKey is the key of one application record
func (s *Store) DataKey(dataType, id string) string {
	return s.prefix + "data:" + dataType + ":" + id
}

func (s *Store) Get(ctx context.Context, account string) ([]byte, error) {
	secret, err := s.client.Get(ctx, s.secretKey(account)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, interfaces.ErrSecretNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	return secret, nil
}

func (s *Store) Put(ctx context.Context, account string, secret []byte) error {
	if err := s.client.Set(ctx, s.secretKey(account), secret, 0).Err(); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, account string, secret []byte) error {
	ok, err := s.client.SetXX(ctx, s.secretKey(account), secret, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to update secret: %w", err)
	}
	if !ok {
		return interfaces.ErrSecretNotFound
	}
	return nil
}

func (s *Store) Append(ctx context.Context, blob []byte) error {
	if err := s.client.RPush(ctx, s.auditKey(), blob).Err(); err != nil {
		return fmt.Errorf("failed to append audit blob: %w", err)
	}
	return nil
}

func (s *Store) ReadAll(ctx context.Context) ([][]byte, error) {
	values, err := s.client.LRange(ctx, s.auditKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	blobs := make([][]byte, len(values))
	for i, v := range values {
		blobs[i] = []byte(v)
	}
	return blobs, nil
}

// deleteBatch bounds the number of keys passed to one DEL
const deleteBatch = 500

// DeleteAll collects every data key of dataType with a full SCAN and then
// deletes them in batches. Deleting while scanning can move the cursor past
// keys that were never returned.
func (s *Store) DeleteAll(ctx context.Context, dataType string) (int, error) {
	keys, err := s.dataKeys(ctx, dataType)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for start := 0; start < len(keys); start += deleteBatch {
		end := min(start+deleteBatch, len(keys))
		n, err := s.client.Del(ctx, keys[start:end]...).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to delete %s records: %w", dataType, err)
		}
		deleted += int(n)
	}
	return deleted, nil
}

func (s *Store) dataKeys(ctx context.Context, dataType string) ([]string, error) {
	seen := make(map[string]struct{})
	var keys []string
	iter := s.client.Scan(ctx, 0, s.DataKey(dataType, "*"), deleteBatch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s records: %w", dataType, err)
	}
	return keys, nil
}

func (s *Store) LoadSettings(ctx context.Context) (types.PrivacySettings, bool, error) {
	data, err := s.client.Get(ctx, s.settingsKey()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return types.PrivacySettings{}, false, nil
	}
	if err != nil {
		return types.PrivacySettings{}, false, fmt.Errorf("failed to load privacy settings: %w", err)
	}

	var settings types.PrivacySettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return types.PrivacySettings{}, false, fmt.Errorf("failed to unmarshal privacy settings: %w", err)
	}
	return settings, true, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings types.PrivacySettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal privacy settings: %w", err)
	}
	if err := s.client.Set(ctx, s.settingsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save privacy settings: %w", err)
	}
	return nil
}
