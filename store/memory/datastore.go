package memory

import (
	"context"
	"sync"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// DataStore counts records per data type
type DataStore struct {
	mu      sync.Mutex
	records map[string]int
	fail    map[string]error
}

// NewDataStore creates an empty data store
func NewDataStore() *DataStore {
	return &DataStore{
		records: make(map[string]int),
		fail:    make(map[string]error),
	}
}

// Seed adds n records of dataType
func (d *DataStore) Seed(dataType string, n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.records[dataType] += n
}

// Count returns how many records of dataType are held
func (d *DataStore) Count(dataType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.records[dataType]
}

// DeleteAll removes every record of dataType
func (d *DataStore) DeleteAll(_ context.Context, dataType string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.fail[dataType]; err != nil {
		return 0, err
	}
	n := d.records[dataType]
	delete(d.records, dataType)
	return n, nil
}

// FailDeletes makes DeleteAll for dataType return err. A nil err clears it.
func (d *DataStore) FailDeletes(dataType string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.fail, dataType)
		return
	}
	d.fail[dataType] = err
}

// SettingsStore holds a single PrivacySettings value
type SettingsStore struct {
	mu       sync.Mutex
	settings types.PrivacySettings
	saved    bool
	saves    int
}

// NewSettingsStore creates an empty settings store
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

// LoadSettings returns the stored settings and whether any were saved
func (s *SettingsStore) LoadSettings(_ context.Context) (types.PrivacySettings, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings, s.saved, nil
}

// SaveSettings replaces the stored settings
func (s *SettingsStore) SaveSettings(_ context.Context, settings types.PrivacySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.saved = true
	s.saves++
	return nil
}

// Saves returns how many times SaveSettings was called
func (s *SettingsStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
