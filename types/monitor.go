package types

import (
	"fmt"
	"time"
)

// AlertType is the kind of security alert raised by the monitor
type AlertType string

const (
	AlertSuspiciousAccess    AlertType = "suspiciousAccess"
	AlertSensitiveFileAccess AlertType = "sensitiveFileAccess"
	AlertLargeDataExport     AlertType = "largeDataExport"
	AlertExcessiveAnalysis   AlertType = "excessiveAnalysis"
	AlertStorageLimit        AlertType = "storageLimit"
	AlertBulkDeletion        AlertType = "bulkDeletion"
	AlertPrivacyViolation    AlertType = "privacyViolation"
)

// AlertSeverity is the severity of a security alert
type AlertSeverity int

const (
	AlertSeverityLow AlertSeverity = iota
	AlertSeverityMedium
	AlertSeverityHigh
)

// String returns the lowercase name of the severity
func (s AlertSeverity) String() string {
	switch s {
	case AlertSeverityLow:
		return "low"
	case AlertSeverityMedium:
		return "medium"
	case AlertSeverityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name
func (s AlertSeverity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *AlertSeverity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*s = AlertSeverityLow
	case "medium":
		*s = AlertSeverityMedium
	case "high":
		*s = AlertSeverityHigh
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlertSeverity, string(b))
	}
	return nil
}

// SecurityAlert is raised when the monitor detects an anomaly
type SecurityAlert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
	Metadata  Metadata      `json:"metadata"`
}

// DataAccessEvent is an observed access to application data
type DataAccessEvent struct {
	Operation   string    `json:"operation"`
	DataType    string    `json:"dataType"`
	RecordCount int       `json:"recordCount"`
	Timestamp   time.Time `json:"timestamp"`
}

// AccessKey identifies an access statistics bucket
type AccessKey struct {
	Operation string `json:"operation"`
	DataType  string `json:"dataType"`
}

// String returns the "operation_dataType" form of the key
func (k AccessKey) String() string {
	return k.Operation + "_" + k.DataType
}

// AccessStats are the running statistics for one AccessKey
type AccessStats struct {
	Count      int       `json:"count"`
	LastAccess time.Time `json:"lastAccess"`
}

// MonitoringStatus is a point-in-time view of the monitor
type MonitoringStatus struct {
	IsEnabled         bool `json:"isEnabled"`
	ActiveAlerts      int  `json:"activeAlerts"`
	TotalAccessEvents int  `json:"totalAccessEvents"`
	TrackedPatterns   int  `json:"trackedPatterns"`
}

// HealthStatus is the coarse outcome of a security health check
type HealthStatus string

const (
	HealthGood     HealthStatus = "good"
	HealthWarning  HealthStatus = "warning"
	HealthCritical HealthStatus = "critical"
)

// SecurityHealth scores the recent alert history
type SecurityHealth struct {
	Score        int          `json:"score"`
	Status       HealthStatus `json:"status"`
	HighAlerts   int          `json:"highAlerts"`
	MediumAlerts int          `json:"mediumAlerts"`
	LowAlerts    int          `json:"lowAlerts"`
	CheckedAt    time.Time    `json:"checkedAt"`
}
