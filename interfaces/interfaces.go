// Package interfaces defines all service interfaces for the application.
// IMPORTANT: This is the single source of truth for service interfaces.
// Do not define interfaces in other files.
package interfaces

import (
	"context"
	"errors"
	"time"

	wrapping "github.com/hashicorp/go-kms-wrapping/v2"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// ErrSecretNotFound is returned by a SecretStore when no secret exists for an account
var ErrSecretNotFound = errors.New("secret not found")

// Storage Interfaces
// SecretStore persists raw key material keyed by account
type SecretStore interface {
	// Get returns the secret for account or ErrSecretNotFound
	Get(ctx context.Context, account string) ([]byte, error)

	// Put creates or replaces the secret for account
	Put(ctx context.Context, account string, secret []byte) error

	// Update replaces an existing secret and returns ErrSecretNotFound if none exists
	Update(ctx context.Context, account string, secret []byte) error
}

// PersistentLogSink receives encrypted audit blobs in append order
type PersistentLogSink interface {
	Append(ctx context.Context, blob []byte) error
}

// LogReader reads back everything a PersistentLogSink has received
type LogReader interface {
	ReadAll(ctx context.Context) ([][]byte, error)
}

// DiagnosticSink receives human readable operational log lines
type DiagnosticSink interface {
	Emit(severity types.Severity, message string, fields types.Metadata)
}

// DataStore deletes application data by type
type DataStore interface {
	// DeleteAll removes all records of dataType and returns how many were removed
	DeleteAll(ctx context.Context, dataType string) (int, error)
}

// SettingsStore persists privacy settings
type SettingsStore interface {
	LoadSettings(ctx context.Context) (types.PrivacySettings, bool, error)
	SaveSettings(ctx context.Context, settings types.PrivacySettings) error
}

// Time Interfaces
// Clock abstracts wall time so that windows and retention can be driven in tests
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker is the subset of time.Ticker used by background loops
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Encryption Interfaces
// Encryptor performs authenticated encryption with the active key
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// Audit Interfaces
// AuditLogger records security relevant events
type AuditLogger interface {
	// Log enqueues an event for persistence. It never blocks on I/O.
	Log(ctx context.Context, severity types.Severity, category types.Category, message string, metadata types.Metadata)

	LogFileAnalysisStarted(ctx context.Context, filename string, fileSize int64)
	LogFileAnalysisCompleted(ctx context.Context, filename string, duration time.Duration)
	LogFileAnalysisFailed(ctx context.Context, filename string, err error)
	LogDocumentationAnalysisStarted(ctx context.Context, sourceType, sourceURL string)
	LogDocumentationAnalysisCompleted(ctx context.Context, sourceType, sourceURL string, duration time.Duration)
	LogDocumentationAnalysisFailed(ctx context.Context, sourceType, sourceURL string, err error)
	LogDataAccess(ctx context.Context, operation, dataType string, recordCount int)
	LogSensitiveDataDetected(ctx context.Context, dataType, location string)
	LogSecurityViolation(ctx context.Context, violation, details string)
	LogPrivacyComplianceCheck(ctx context.Context, checkType string, result bool, details string)

	// Flush blocks until every event enqueued before the call has been persisted
	Flush(ctx context.Context) error
}

// Monitoring Interfaces
// SecurityMonitor observes data access and raises alerts
type SecurityMonitor interface {
	MonitorDataAccess(ctx context.Context, operation, dataType string, recordCount int)
	MonitorDataDeletion(ctx context.Context, dataType string, recordCount int)
	ValidatePrivacyCompliance(ctx context.Context, dataType string, containsPersonalData bool) bool
}

// ConsentChecker answers whether consent has been recorded for a data type
type ConsentChecker interface {
	HasConsent(dataType string) bool
}

// KMS Interfaces
// KMSProvider defines the interface for KMS providers
type KMSProvider interface {
	// GetWrapper returns the underlying KMS wrapper
	GetWrapper() wrapping.Wrapper

	// Test performs a test encryption/decryption
	Test(ctx context.Context) error

	// HealthCheck performs a comprehensive health check
	HealthCheck(ctx context.Context) error

	// GetLastHealthCheckError returns the last health check error
	GetLastHealthCheckError() error
}

// SymmetricEncryptor defines the interface for encrypting KMS credential values
type SymmetricEncryptor interface {
	// Encrypt encrypts a KMS credential value
	Encrypt(data string) (string, error)
	// Decrypt decrypts a KMS credential value
	Decrypt(data string) (string, error)
}

// CredentialsManager defines the interface for managing KMS provider credentials
type CredentialsManager interface {
	// EncryptCredentials encrypts all sensitive fields in KMS provider credentials
	EncryptCredentials(creds *types.KMSCredentials) error
	// DecryptCredentials decrypts all sensitive fields in KMS provider credentials
	DecryptCredentials(creds *types.KMSCredentials) error
}
