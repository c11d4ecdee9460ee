package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

// Metadata keys used by the wrappers
const (
	FieldFilename    = "filename"
	FieldFileSize    = "fileSize"
	FieldDuration    = "duration"
	FieldError       = "error"
	FieldSourceType  = "sourceType"
	FieldSourceURL   = "sourceUrl"
	FieldOperation   = "operation"
	FieldDataType    = "dataType"
	FieldRecordCount = "recordCount"
	FieldLocation    = "location"
	FieldViolation   = "violation"
	FieldDetails     = "details"
	FieldCheckType   = "checkType"
	FieldResult      = "result"
)

func durationString(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// LogFileAnalysisStarted records the start of a file analysis
func (l *Logger) LogFileAnalysisStarted(ctx context.Context, filename string, fileSize int64) {
	l.Log(ctx, types.SeverityInfo, types.CategoryFileAnalysisStarted,
		"File analysis started",
		types.NewMetadata(FieldFilename, filename, FieldFileSize, strconv.FormatInt(fileSize, 10)))
}

// LogFileAnalysisCompleted records a finished file analysis
func (l *Logger) LogFileAnalysisCompleted(ctx context.Context, filename string, duration time.Duration) {
	l.Log(ctx, types.SeverityInfo, types.CategoryFileAnalysisCompleted,
		"File analysis completed",
		types.NewMetadata(FieldFilename, filename, FieldDuration, durationString(duration)))
}

// LogFileAnalysisFailed records a failed file analysis
func (l *Logger) LogFileAnalysisFailed(ctx context.Context, filename string, err error) {
	l.Log(ctx, types.SeverityError, types.CategoryFileAnalysisFailed,
		"File analysis failed",
		types.NewMetadata(FieldFilename, filename, FieldError, errString(err)))
}

// LogDocumentationAnalysisStarted records the start of a documentation analysis
func (l *Logger) LogDocumentationAnalysisStarted(ctx context.Context, sourceType, sourceURL string) {
	l.Log(ctx, types.SeverityInfo, types.CategoryDocumentationStarted,
		"Documentation analysis started",
		types.NewMetadata(FieldSourceType, sourceType, FieldSourceURL, sourceURL))
}

// LogDocumentationAnalysisCompleted records a finished documentation analysis
func (l *Logger) LogDocumentationAnalysisCompleted(ctx context.Context, sourceType, sourceURL string, duration time.Duration) {
	l.Log(ctx, types.SeverityInfo, types.CategoryDocumentationCompleted,
		"Documentation analysis completed",
		types.NewMetadata(FieldSourceType, sourceType, FieldSourceURL, sourceURL, FieldDuration, durationString(duration)))
}

// LogDocumentationAnalysisFailed records a failed documentation analysis
func (l *Logger) LogDocumentationAnalysisFailed(ctx context.Context, sourceType, sourceURL string, err error) {
	l.Log(ctx, types.SeverityError, types.CategoryDocumentationFailed,
		"Documentation analysis failed",
		types.NewMetadata(FieldSourceType, sourceType, FieldSourceURL, sourceURL, FieldError, errString(err)))
}

// LogDataAccess records a read, store or delete of application data
func (l *Logger) LogDataAccess(ctx context.Context, operation, dataType string, recordCount int) {
	category := types.CategoryDataAccess
	switch operation {
	case "store", "write", "update", "create":
		category = types.CategoryDataStore
	case "delete":
		category = types.CategoryDataDelete
	}
	l.Log(ctx, types.SeverityInfo, category,
		"Data "+operation+": "+dataType,
		types.NewMetadata(FieldOperation, operation, FieldDataType, dataType, FieldRecordCount, strconv.Itoa(recordCount)))
}

// LogSensitiveDataDetected records that sensitive data was found
func (l *Logger) LogSensitiveDataDetected(ctx context.Context, dataType, location string) {
	l.Log(ctx, types.SeverityWarning, types.CategorySensitiveDataDetected,
		"Sensitive data detected",
		types.NewMetadata(FieldDataType, dataType, FieldLocation, location))
}

// LogSecurityViolation records a security violation
func (l *Logger) LogSecurityViolation(ctx context.Context, violation, details string) {
	l.Log(ctx, types.SeverityError, types.CategorySecurityViolation,
		"Security violation: "+violation,
		types.NewMetadata(FieldViolation, violation, FieldDetails, details))
}

// LogPrivacyComplianceCheck records the outcome of a privacy check
func (l *Logger) LogPrivacyComplianceCheck(ctx context.Context, checkType string, result bool, details string) {
	severity := types.SeverityInfo
	if !result {
		severity = types.SeverityWarning
	}
	l.Log(ctx, severity, types.CategoryPrivacyComplianceCheck,
		"Privacy compliance check: "+checkType,
		types.NewMetadata(FieldCheckType, checkType, FieldResult, strconv.FormatBool(result), FieldDetails, details))
}
