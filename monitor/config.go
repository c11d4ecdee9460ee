package monitor

import "time"

// Config holds the anomaly thresholds and maintenance intervals
type Config struct {
	RapidAccessWindow          time.Duration `mapstructure:"rapid_access_window"`
	RapidAccessThreshold       int           `mapstructure:"rapid_access_threshold"`
	LargeExportThreshold       int           `mapstructure:"large_export_threshold"`
	BulkDeletionThreshold      int           `mapstructure:"bulk_deletion_threshold"`
	ExcessiveAnalysisThreshold int           `mapstructure:"excessive_analysis_threshold"`
	StorageLimit               int           `mapstructure:"storage_limit"`
	SensitiveNamePatterns      []string      `mapstructure:"sensitive_name_patterns"`
	MaxRecentAlerts            int           `mapstructure:"max_recent_alerts"`
	AccessRetention            time.Duration `mapstructure:"access_retention"`
	AlertRetention             time.Duration `mapstructure:"alert_retention"`
	AccessPruneInterval        time.Duration `mapstructure:"access_prune_interval"`
	AlertPruneInterval         time.Duration `mapstructure:"alert_prune_interval"`

	// MetricDataTypes are the data types reported by name in the access
	// metric. Every other data type is counted under MetricOtherDataType.
	MetricDataTypes []string `mapstructure:"metric_data_types"`
}

// MetricOtherDataType is the data_type label of unlisted data types
const MetricOtherDataType = "other"

// DefaultSensitiveNamePatterns are matched case-insensitively against file names
var DefaultSensitiveNamePatterns = []string{
	"password", "secret", "key", "token", "credential", "private", "confidential", "sensitive",
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		RapidAccessWindow:          time.Second,
		RapidAccessThreshold:       10,
		LargeExportThreshold:       1000,
		BulkDeletionThreshold:      1000,
		ExcessiveAnalysisThreshold: 50,
		StorageLimit:               10000,
		SensitiveNamePatterns:      append([]string(nil), DefaultSensitiveNamePatterns...),
		MaxRecentAlerts:            100,
		AccessRetention:            time.Hour,
		AlertRetention:             24 * time.Hour,
		AccessPruneInterval:        time.Hour,
		AlertPruneInterval:         24 * time.Hour,
	}
}

// withDefaults fills zero values from DefaultConfig
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RapidAccessWindow <= 0 {
		c.RapidAccessWindow = d.RapidAccessWindow
	}
	if c.RapidAccessThreshold <= 0 {
		c.RapidAccessThreshold = d.RapidAccessThreshold
	}
	if c.LargeExportThreshold <= 0 {
		c.LargeExportThreshold = d.LargeExportThreshold
	}
	if c.BulkDeletionThreshold <= 0 {
		c.BulkDeletionThreshold = d.BulkDeletionThreshold
	}
	if c.ExcessiveAnalysisThreshold <= 0 {
		c.ExcessiveAnalysisThreshold = d.ExcessiveAnalysisThreshold
	}
	if c.StorageLimit <= 0 {
		c.StorageLimit = d.StorageLimit
	}
	if c.SensitiveNamePatterns == nil {
		c.SensitiveNamePatterns = d.SensitiveNamePatterns
	}
	if c.MaxRecentAlerts <= 0 {
		c.MaxRecentAlerts = d.MaxRecentAlerts
	}
	if c.AccessRetention <= 0 {
		c.AccessRetention = d.AccessRetention
	}
	if c.AlertRetention <= 0 {
		c.AlertRetention = d.AlertRetention
	}
	if c.AccessPruneInterval <= 0 {
		c.AccessPruneInterval = d.AccessPruneInterval
	}
	if c.AlertPruneInterval <= 0 {
		c.AlertPruneInterval = d.AlertPruneInterval
	}
	return c
}
