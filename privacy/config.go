package privacy

import (
	"time"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Config holds the privacy policy settings
type Config struct {
	// AutoGrantPrefixes are data type prefixes that receive a provisional
	// grant on first request. An empty, non-nil list disables auto-grant.
	AutoGrantPrefixes []string `mapstructure:"auto_grant_prefixes"`

	// PersonalDataPatterns mark a data type as personal when contained in its name
	PersonalDataPatterns []string `mapstructure:"personal_data_patterns"`

	HistoryLimit       int                   `mapstructure:"history_limit"`
	ComplianceInterval time.Duration         `mapstructure:"compliance_interval"`
	StaleRecordAge     time.Duration         `mapstructure:"stale_record_age"`
	MaxRetentionDays   int                   `mapstructure:"max_retention_days"`
	Defaults           types.PrivacySettings `mapstructure:"defaults"`
}

var (
	DefaultAutoGrantPrefixes    = []string{"app_", "analytics_"}
	DefaultPersonalDataPatterns = []string{"personal", "profile", "email", "location", "health", "contact"}
)

// DefaultConfig returns the default privacy policy
func DefaultConfig() Config {
	return Config{
		AutoGrantPrefixes:    append([]string(nil), DefaultAutoGrantPrefixes...),
		PersonalDataPatterns: append([]string(nil), DefaultPersonalDataPatterns...),
		HistoryLimit:         1000,
		ComplianceInterval:   24 * time.Hour,
		StaleRecordAge:       30 * 24 * time.Hour,
		MaxRetentionDays:     365,
		Defaults:             types.DefaultPrivacySettings(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AutoGrantPrefixes == nil {
		c.AutoGrantPrefixes = d.AutoGrantPrefixes
	}
	if c.PersonalDataPatterns == nil {
		c.PersonalDataPatterns = d.PersonalDataPatterns
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = d.HistoryLimit
	}
	if c.ComplianceInterval <= 0 {
		c.ComplianceInterval = d.ComplianceInterval
	}
	if c.StaleRecordAge <= 0 {
		c.StaleRecordAge = d.StaleRecordAge
	}
	if c.MaxRetentionDays <= 0 {
		c.MaxRetentionDays = d.MaxRetentionDays
	}
	if c.Defaults == (types.PrivacySettings{}) {
		c.Defaults = d.Defaults
	}
	return c
}
