// Package config loads the securityd configuration from defaults, an optional
// YAML file and SECURITYD_ environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/audit"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/kms"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/monitor"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/privacy"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "SECURITYD"

// Storage backends
const (
	BackendMemory  = "memory"
	BackendMongoDB = "mongodb"
	BackendRedis   = "redis"
)

// Config holds all configuration for securityd
type Config struct {
	Encryption EncryptionConfig `mapstructure:"encryption"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Monitor    monitor.Config   `mapstructure:"monitor"`
	Privacy    privacy.Config   `mapstructure:"privacy"`
	Storage    StorageConfig    `mapstructure:"storage"`
	NATS       NATSConfig       `mapstructure:"nats"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// EncryptionConfig selects the cipher and how the key is kept at rest.
// KMS.Type empty stores the raw key in the secret store.
type EncryptionConfig struct {
	Algorithm types.Algorithm `mapstructure:"algorithm"`
	Account   string          `mapstructure:"account"`
	KMS       kms.Config      `mapstructure:"kms"`

	// BootstrapKey is a base64 key that opens ENC[...] values in the KMS block
	BootstrapKey string `mapstructure:"bootstrap_key"`
}

// AuditConfig holds the audit queue settings
type AuditConfig struct {
	audit.Config `mapstructure:",squash"`

	// Persist false keeps only the diagnostic output
	Persist bool `mapstructure:"persist"`
}

// StorageConfig selects the backend for secrets, the audit trail, application data and settings
type StorageConfig struct {
	Backend string        `mapstructure:"backend"`
	MongoDB MongoDBConfig `mapstructure:"mongodb"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	DataCollection string        `mapstructure:"data_collection"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// NATSConfig holds the alert forwarding settings
type NATSConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	Token         string        `mapstructure:"token"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("encryption.algorithm", string(types.AlgorithmAES256GCM))
	v.SetDefault("encryption.account", "securityd.encryption.key")
	v.SetDefault("encryption.kms.type", "")
	v.SetDefault("encryption.bootstrap_key", "")

	v.SetDefault("audit.queue_size", audit.DefaultQueueSize)
	v.SetDefault("audit.persist_timeout", audit.DefaultPersistTimeout)
	v.SetDefault("audit.max_message_length", audit.DefaultMaxMessageLength)
	v.SetDefault("audit.max_metadata_value_length", audit.DefaultMaxMetadataValueLength)
	v.SetDefault("audit.persist", true)

	m := monitor.DefaultConfig()
	v.SetDefault("monitor.rapid_access_window", m.RapidAccessWindow)
	v.SetDefault("monitor.rapid_access_threshold", m.RapidAccessThreshold)
	v.SetDefault("monitor.large_export_threshold", m.LargeExportThreshold)
	v.SetDefault("monitor.bulk_deletion_threshold", m.BulkDeletionThreshold)
	v.SetDefault("monitor.excessive_analysis_threshold", m.ExcessiveAnalysisThreshold)
	v.SetDefault("monitor.storage_limit", m.StorageLimit)
	v.SetDefault("monitor.sensitive_name_patterns", m.SensitiveNamePatterns)
	v.SetDefault("monitor.max_recent_alerts", m.MaxRecentAlerts)
	v.SetDefault("monitor.access_retention", m.AccessRetention)
	v.SetDefault("monitor.alert_retention", m.AlertRetention)
	v.SetDefault("monitor.access_prune_interval", m.AccessPruneInterval)
	v.SetDefault("monitor.alert_prune_interval", m.AlertPruneInterval)

	p := privacy.DefaultConfig()
	v.SetDefault("privacy.auto_grant_prefixes", p.AutoGrantPrefixes)
	v.SetDefault("privacy.personal_data_patterns", p.PersonalDataPatterns)
	v.SetDefault("privacy.history_limit", p.HistoryLimit)
	v.SetDefault("privacy.compliance_interval", p.ComplianceInterval)
	v.SetDefault("privacy.stale_record_age", p.StaleRecordAge)
	v.SetDefault("privacy.max_retention_days", p.MaxRetentionDays)
	v.SetDefault("privacy.defaults.analytics_enabled", p.Defaults.AnalyticsEnabled)
	v.SetDefault("privacy.defaults.crash_reporting_enabled", p.Defaults.CrashReportingEnabled)
	v.SetDefault("privacy.defaults.data_retention_days", p.Defaults.DataRetentionDays)
	v.SetDefault("privacy.defaults.allow_data_sharing", p.Defaults.AllowDataSharing)
	v.SetDefault("privacy.defaults.require_explicit_consent", p.Defaults.RequireExplicitConsent)

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongodb.database", "securityd")
	v.SetDefault("storage.mongodb.data_collection", "app_data")
	v.SetDefault("storage.mongodb.connect_timeout", "10s")
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.prefix", "securityd:")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.name", "securityd")
	v.SetDefault("nats.token", "")
	v.SetDefault("nats.subject_prefix", "")
	v.SetDefault("nats.timeout", "5s")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", ":9464")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Load reads configuration from the file at configPath, if given, and from
// SECURITYD_ environment variables. Without a path, config.yaml is looked up
// in the working directory and /etc/securityd and is optional.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/securityd")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// Environment variables override file config
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	switch c.Encryption.Algorithm {
	case types.AlgorithmAES256GCM, types.AlgorithmXChaCha20Poly1305:
	default:
		return fmt.Errorf("invalid encryption.algorithm %q", c.Encryption.Algorithm)
	}
	switch c.Storage.Backend {
	case BackendMemory, BackendMongoDB, BackendRedis:
	default:
		return fmt.Errorf("invalid storage.backend %q", c.Storage.Backend)
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q", c.Logging.Format)
	}
	if c.Audit.QueueSize <= 0 {
		return fmt.Errorf("audit.queue_size must be positive")
	}
	return nil
}
