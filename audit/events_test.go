package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

func TestWrappers(t *testing.T) {
	tests := []struct {
		name     string
		call     func(l *Logger)
		category types.Category
		severity types.Severity
		want     map[string]string
	}{
		{
			name:     "file analysis started",
			call:     func(l *Logger) { l.LogFileAnalysisStarted(context.Background(), "main.go", 2048) },
			category: types.CategoryFileAnalysisStarted,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldFilename: "main.go", FieldFileSize: "2048"},
		},
		{
			name:     "file analysis completed",
			call:     func(l *Logger) { l.LogFileAnalysisCompleted(context.Background(), "main.go", 1500*time.Millisecond) },
			category: types.CategoryFileAnalysisCompleted,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldFilename: "main.go", FieldDuration: "1.500"},
		},
		{
			name:     "file analysis failed",
			call:     func(l *Logger) { l.LogFileAnalysisFailed(context.Background(), "main.go", errors.New("parse error")) },
			category: types.CategoryFileAnalysisFailed,
			severity: types.SeverityError,
			want:     map[string]string{FieldError: "parse error"},
		},
		{
			name: "documentation started",
			call: func(l *Logger) {
				l.LogDocumentationAnalysisStarted(context.Background(), "url", "https://example.com/docs")
			},
			category: types.CategoryDocumentationStarted,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldSourceType: "url", FieldSourceURL: "https://example.com/docs"},
		},
		{
			name: "documentation completed",
			call: func(l *Logger) {
				l.LogDocumentationAnalysisCompleted(context.Background(), "file", "README.md", time.Second)
			},
			category: types.CategoryDocumentationCompleted,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldDuration: "1.000"},
		},
		{
			name: "documentation failed",
			call: func(l *Logger) {
				l.LogDocumentationAnalysisFailed(context.Background(), "file", "README.md", errors.New("timeout"))
			},
			category: types.CategoryDocumentationFailed,
			severity: types.SeverityError,
			want:     map[string]string{FieldError: "timeout"},
		},
		{
			name:     "data read",
			call:     func(l *Logger) { l.LogDataAccess(context.Background(), "read", "notes", 3) },
			category: types.CategoryDataAccess,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldOperation: "read", FieldDataType: "notes", FieldRecordCount: "3"},
		},
		{
			name:     "data store",
			call:     func(l *Logger) { l.LogDataAccess(context.Background(), "store", "notes", 1) },
			category: types.CategoryDataStore,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldOperation: "store"},
		},
		{
			name:     "data delete",
			call:     func(l *Logger) { l.LogDataAccess(context.Background(), "delete", "notes", 1500) },
			category: types.CategoryDataDelete,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldOperation: "delete", FieldRecordCount: "1500"},
		},
		{
			name:     "sensitive data",
			call:     func(l *Logger) { l.LogSensitiveDataDetected(context.Background(), "credential", "id_rsa") },
			category: types.CategorySensitiveDataDetected,
			severity: types.SeverityWarning,
			want:     map[string]string{FieldDataType: "credential", FieldLocation: "id_rsa"},
		},
		{
			name:     "security violation",
			call:     func(l *Logger) { l.LogSecurityViolation(context.Background(), "bulkDeletion", "1500 records") },
			category: types.CategorySecurityViolation,
			severity: types.SeverityError,
			want:     map[string]string{FieldViolation: "bulkDeletion", FieldDetails: "1500 records"},
		},
		{
			name:     "compliance pass",
			call:     func(l *Logger) { l.LogPrivacyComplianceCheck(context.Background(), "gdpr", true, "ok") },
			category: types.CategoryPrivacyComplianceCheck,
			severity: types.SeverityInfo,
			want:     map[string]string{FieldCheckType: "gdpr", FieldResult: "true"},
		},
		{
			name:     "compliance fail",
			call:     func(l *Logger) { l.LogPrivacyComplianceCheck(context.Background(), "gdpr", false, "missing consent") },
			category: types.CategoryPrivacyComplianceCheck,
			severity: types.SeverityWarning,
			want:     map[string]string{FieldResult: "false", FieldDetails: "missing consent"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			tt.call(f.logger)

			recs := f.records(t)
			require.Len(t, recs, 1)
			ev := recs[0].Event
			assert.Equal(t, tt.category, ev.Category)
			assert.Equal(t, tt.severity, ev.Severity)
			assert.True(t, ev.Category.Valid())
			for k, v := range tt.want {
				got, ok := ev.Metadata.Get(k)
				assert.True(t, ok, "missing %s", k)
				assert.Equal(t, v, got, k)
			}
		})
	}
}
