package types

import (
	"time"
)

// DataProcessingRecord records one processing of application data
type DataProcessingRecord struct {
	ID           string    `json:"id" bson:"_id"`
	DataType     string    `json:"dataType" bson:"dataType"`
	Operation    string    `json:"operation" bson:"operation"`
	Purpose      string    `json:"purpose" bson:"purpose"`
	Timestamp    time.Time `json:"timestamp" bson:"timestamp"`
	ConsentGiven bool      `json:"consentGiven" bson:"consentGiven"`
}

// PrivacySettings are the user controlled privacy preferences
type PrivacySettings struct {
	AnalyticsEnabled       bool `json:"analyticsEnabled" bson:"analyticsEnabled" mapstructure:"analytics_enabled"`
	CrashReportingEnabled  bool `json:"crashReportingEnabled" bson:"crashReportingEnabled" mapstructure:"crash_reporting_enabled"`
	DataRetentionDays      int  `json:"dataRetentionDays" bson:"dataRetentionDays" mapstructure:"data_retention_days"`
	AllowDataSharing       bool `json:"allowDataSharing" bson:"allowDataSharing" mapstructure:"allow_data_sharing"`
	RequireExplicitConsent bool `json:"requireExplicitConsent" bson:"requireExplicitConsent" mapstructure:"require_explicit_consent"`
}

// DefaultPrivacySettings returns the settings used when none have been stored
func DefaultPrivacySettings() PrivacySettings {
	return PrivacySettings{
		AnalyticsEnabled:       false,
		CrashReportingEnabled:  true,
		DataRetentionDays:      365,
		AllowDataSharing:       false,
		RequireExplicitConsent: true,
	}
}

// ComplianceReport is the outcome of a GDPR compliance check
type ComplianceReport struct {
	IsCompliant     bool      `json:"isCompliant"`
	Violations      []string  `json:"violations"`
	Recommendations []string  `json:"recommendations"`
	CheckedAt       time.Time `json:"checkedAt"`
}

// ConsentRequest is published when consent for a data type is needed
type ConsentRequest struct {
	DataType    string    `json:"dataType"`
	Purpose     string    `json:"purpose"`
	Provisional bool      `json:"provisional"`
	RequestedAt time.Time `json:"requestedAt"`
}

// UserDataExport is the data subject access export
type UserDataExport struct {
	PrivacySettings       PrivacySettings        `json:"privacySettings"`
	ConsentStatus         map[string]bool        `json:"consentStatus"`
	DataProcessingRecords []DataProcessingRecord `json:"dataProcessingRecords"`
	ExportedAt            time.Time              `json:"exportDate"`
}
