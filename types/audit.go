package types

import (
	"time"
)

// Severity is the severity of an audit event.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase name of the severity
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a name into a Severity
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "info":
		return SeverityInfo, nil
	case "warning":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityInfo, ErrUnknownSeverity
}

// Category is the kind of a security relevant event.
type Category string

const (
	CategoryFileAnalysisStarted    Category = "file_analysis_started"
	CategoryFileAnalysisCompleted  Category = "file_analysis_completed"
	CategoryFileAnalysisFailed     Category = "file_analysis_failed"
	CategoryDocumentationStarted   Category = "documentation_analysis_started"
	CategoryDocumentationCompleted Category = "documentation_analysis_completed"
	CategoryDocumentationFailed    Category = "documentation_analysis_failed"
	CategoryDataAccess             Category = "data_access"
	CategoryDataStore              Category = "data_store"
	CategoryDataDelete             Category = "data_delete"
	CategorySensitiveDataDetected  Category = "sensitive_data_detected"
	CategorySecurityViolation      Category = "security_violation"
	CategoryPrivacyComplianceCheck Category = "privacy_compliance_check"
	CategoryKeyRotation            Category = "key_rotation"
	CategorySubsystemLifecycle     Category = "subsystem_lifecycle"
)

var categories = map[Category]struct{}{
	CategoryFileAnalysisStarted:    {},
	CategoryFileAnalysisCompleted:  {},
	CategoryFileAnalysisFailed:     {},
	CategoryDocumentationStarted:   {},
	CategoryDocumentationCompleted: {},
	CategoryDocumentationFailed:    {},
	CategoryDataAccess:             {},
	CategoryDataStore:              {},
	CategoryDataDelete:             {},
	CategorySensitiveDataDetected:  {},
	CategorySecurityViolation:      {},
	CategoryPrivacyComplianceCheck: {},
	CategoryKeyRotation:            {},
	CategorySubsystemLifecycle:     {},
}

// Valid reports whether c is one of the declared categories
func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

// AuditEvent is a single entry of the audit trail. It is never mutated after creation.
type AuditEvent struct {
	ID        string    `json:"id" bson:"_id"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Severity  Severity  `json:"severity" bson:"severity"`
	Category  Category  `json:"category" bson:"category"`
	Message   string    `json:"message" bson:"message"`
	Metadata  Metadata  `json:"metadata" bson:"metadata"`
}

// AuditRecord is the persisted form of an AuditEvent, linked to its predecessor
// by hash so that removal or reordering of entries is detectable.
type AuditRecord struct {
	Index    int64      `json:"index"`
	PrevHash string     `json:"prev_hash"`
	Hash     string     `json:"hash"`
	Event    AuditEvent `json:"event"`
}

// ChainReport summarizes verification of a sequence of AuditRecords
type ChainReport struct {
	OK          bool     `json:"ok"`
	Total       int      `json:"total"`
	LastIndex   int64    `json:"last_index"`
	LastHash    string   `json:"last_hash"`
	BrokenIndex int64    `json:"broken_index,omitempty"`
	Errors      []string `json:"errors,omitempty"`
}
