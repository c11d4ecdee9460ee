package monitor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/audit/audittest"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/clock"
	"github.com/root-sector-ltd-and-co-kg/module-security-compliance/types"
)

type consentMap map[string]bool

func (c consentMap) HasConsent(dataType string) bool { return c[dataType] }

type fixture struct {
	monitor  *Monitor
	recorder *audittest.Recorder
	clock    *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewFake(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	rec := audittest.New(t, clk)
	m, err := New(rec.Logger, DefaultConfig(), Options{
		Clock:       clk,
		Diagnostics: rec.Diagnostics,
		Registerer:  prometheus.NewRegistry(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return &fixture{monitor: m, recorder: rec, clock: clk}
}

func alertsOfType(alerts []types.SecurityAlert, typ types.AlertType) []types.SecurityAlert {
	var out []types.SecurityAlert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestTwelveRapidReadsRaiseOneSuspiciousAccessAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		f.monitor.MonitorDataAccess(ctx, "read", "x", 1)
		f.clock.Advance(10 * time.Millisecond)
	}

	suspicious := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertSuspiciousAccess)
	require.Len(t, suspicious, 1)
	assert.Equal(t, types.AlertSeverityMedium, suspicious[0].Severity)
	count, _ := suspicious[0].Metadata.Get("count")
	assert.Equal(t, "11", count)

	stats := f.monitor.GetAccessStatistics()
	assert.Equal(t, 12, stats["read_x"].Count)
	assert.Len(t, f.recorder.ByCategory(t, types.CategoryDataAccess), 12)
}

func TestSuspiciousAccessRearmsAfterQuietPeriod(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		f.monitor.MonitorDataAccess(ctx, "read", "x", 1)
	}
	f.clock.Advance(2 * time.Second)
	f.monitor.MonitorDataAccess(ctx, "read", "x", 1)
	f.monitor.MonitorDataAccess(ctx, "read", "x", 1)

	assert.Len(t, alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertSuspiciousAccess), 2)
}

func TestSpacedAccessIsNotSuspicious(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		f.monitor.MonitorDataAccess(context.Background(), "read", "x", 1)
		f.clock.Advance(time.Second)
	}
	assert.Empty(t, f.monitor.GetRecentAlerts(0))
}

func TestLargeExport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.MonitorDataAccess(ctx, "export", "notes", 1000)
	assert.Empty(t, f.monitor.GetRecentAlerts(0))

	f.monitor.MonitorDataAccess(ctx, "export", "notes", 1001)
	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertLargeDataExport)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityLow, alerts[0].Severity)
	assert.Empty(t, f.recorder.ByCategory(t, types.CategorySecurityViolation))
}

func TestBulkDeletion(t *testing.T) {
	f := newFixture(t)
	f.monitor.MonitorDataDeletion(context.Background(), "notes", 1500)

	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertBulkDeletion)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityHigh, alerts[0].Severity)

	deletes := f.recorder.Matching(t, "operation", "delete", "recordCount", "1500")
	require.Len(t, deletes, 1)
	assert.Equal(t, types.CategoryDataDelete, deletes[0].Category)

	violations := f.recorder.ByCategory(t, types.CategorySecurityViolation)
	require.Len(t, violations, 1)
	v, _ := violations[0].Metadata.Get("violation")
	assert.Equal(t, string(types.AlertBulkDeletion), v)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.monitor.metrics.Alerts.WithLabelValues("bulkDeletion", "high")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.monitor.metrics.AccessEvents.WithLabelValues("delete", MetricOtherDataType)))
}

func TestAccessMetricBoundsDataTypeLabel(t *testing.T) {
	clk := clock.NewFake(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	rec := audittest.New(t, clk)
	cfg := DefaultConfig()
	cfg.MetricDataTypes = []string{"notes"}
	m, err := New(rec.Logger, cfg, Options{
		Clock:       clk,
		Diagnostics: rec.Diagnostics,
		Registerer:  prometheus.NewRegistry(),
		Logger:      zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	ctx := context.Background()

	m.MonitorDataAccess(ctx, "read", "notes", 1)
	for i := 0; i < 50; i++ {
		clk.Advance(2 * time.Second)
		m.MonitorDataAccess(ctx, "read", fmt.Sprintf("tenant_%d", i), 1)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.metrics.AccessEvents.WithLabelValues("read", "notes")))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.metrics.AccessEvents.WithLabelValues("read", MetricOtherDataType)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.metrics.AccessEvents))
}

func TestSensitiveFileName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.MonitorFileAnalysis(ctx, "my_password_backup.txt", "lint")

	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertSensitiveFileAccess)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityMedium, alerts[0].Severity)

	detected := f.recorder.ByCategory(t, types.CategorySensitiveDataDetected)
	require.Len(t, detected, 1)
	loc, _ := detected[0].Metadata.Get("location")
	assert.Equal(t, "my_password_backup.txt", loc)
}

func TestSensitiveFileNameMatching(t *testing.T) {
	tests := []struct {
		file      string
		sensitive bool
	}{
		{"/home/dev/project/main.go", false},
		{"/home/dev/.ssh/PRIVATE_id", true},
		{"C:\\Users\\dev\\Secrets.yaml", true},
		{"file:///tmp/api-Token.json", true},
		{"/srv/keys/readme.md", false},
		{"report-confidential.pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			f := newFixture(t)
			f.monitor.MonitorFileAnalysis(context.Background(), tt.file, "lint")
			got := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertSensitiveFileAccess)
			assert.Equal(t, tt.sensitive, len(got) == 1)
		})
	}
}

func TestExcessiveAnalysis(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 50; i++ {
		f.monitor.MonitorFileAnalysis(context.Background(), "main.go", "lint")
	}
	assert.Empty(t, f.monitor.GetRecentAlerts(0))

	for i := 0; i < 10; i++ {
		f.monitor.MonitorFileAnalysis(context.Background(), "main.go", "lint")
	}
	f.monitor.MonitorFileAnalysis(context.Background(), "main.go", "format")

	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertExcessiveAnalysis)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityLow, alerts[0].Severity)
}

func TestStorageLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.MonitorFileStorage(ctx, "photos", 9000)
	f.monitor.MonitorFileStorage(ctx, "photos", 1000)
	assert.Empty(t, alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertStorageLimit))

	f.monitor.MonitorFileStorage(ctx, "photos", 1)
	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertStorageLimit)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityMedium, alerts[0].Severity)

	// Deleting frees capacity
	f.monitor.MonitorDataDeletion(ctx, "photos", 5000)
	f.monitor.MonitorFileStorage(ctx, "photos", 10)
	assert.Len(t, alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertStorageLimit), 1)

	assert.Len(t, f.recorder.ByCategory(t, types.CategoryDataStore), 4)
}

func TestValidatePrivacyCompliance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.SetConsentChecker(consentMap{"health_records": true})

	assert.True(t, f.monitor.ValidatePrivacyCompliance(ctx, "app_usage", false))
	assert.True(t, f.monitor.ValidatePrivacyCompliance(ctx, "health_records", true))
	assert.False(t, f.monitor.ValidatePrivacyCompliance(ctx, "user_profile", true))

	alerts := alertsOfType(f.monitor.GetRecentAlerts(0), types.AlertPrivacyViolation)
	require.Len(t, alerts, 1)
	assert.Equal(t, types.AlertSeverityHigh, alerts[0].Severity)

	checks := f.recorder.ByCategory(t, types.CategoryPrivacyComplianceCheck)
	require.Len(t, checks, 3)
	result, _ := checks[2].Metadata.Get("result")
	assert.Equal(t, "false", result)
	assert.Len(t, f.recorder.ByCategory(t, types.CategorySecurityViolation), 1)
}

func TestValidatePrivacyComplianceWithoutChecker(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.monitor.ValidatePrivacyCompliance(context.Background(), "email", true))
	assert.True(t, f.monitor.ValidatePrivacyCompliance(context.Background(), "email", false))
}

func TestDisabledMonitorIsInert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.monitor.DisableMonitoring()

	for i := 0; i < 20; i++ {
		f.monitor.MonitorDataAccess(ctx, "delete", "x", 5000)
	}
	f.monitor.MonitorFileAnalysis(ctx, "secret.txt", "lint")
	f.monitor.MonitorFileStorage(ctx, "x", 20000)
	assert.False(t, f.monitor.ValidatePrivacyCompliance(ctx, "profile", true))

	status := f.monitor.GetMonitoringStatus()
	assert.False(t, status.IsEnabled)
	assert.Equal(t, 0, status.TotalAccessEvents)
	assert.Equal(t, 0, status.ActiveAlerts)
	assert.Empty(t, f.monitor.GetAccessStatistics())
	assert.Empty(t, f.recorder.Events(t))

	f.monitor.EnableMonitoring()
	f.monitor.MonitorDataAccess(ctx, "read", "x", 1)
	assert.Equal(t, 1, f.monitor.GetMonitoringStatus().TotalAccessEvents)
}

func TestRecentAlertsAreBounded(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 150; i++ {
		f.monitor.MonitorDataAccess(context.Background(), "export", fmt.Sprintf("t%d", i), 5000)
	}

	alerts := f.monitor.GetRecentAlerts(0)
	require.Len(t, alerts, 100)
	dt, _ := alerts[0].Metadata.Get("dataType")
	assert.Equal(t, "t149", dt)
	dt, _ = alerts[99].Metadata.Get("dataType")
	assert.Equal(t, "t50", dt)

	assert.Len(t, f.monitor.GetRecentAlerts(5), 5)
	assert.Equal(t, 100, f.monitor.GetMonitoringStatus().ActiveAlerts)
}

func TestAlertFeed(t *testing.T) {
	f := newFixture(t)
	sub := f.monitor.Alerts().Subscribe(4)
	access := f.monitor.AccessEvents().Subscribe(4)

	f.monitor.MonitorDataAccess(context.Background(), "delete", "notes", 2000)

	select {
	case a := <-sub.C():
		assert.Equal(t, types.AlertBulkDeletion, a.Type)
	case <-time.After(time.Second):
		t.Fatal("no alert published")
	}
	ev := <-access.C()
	assert.Equal(t, 2000, ev.RecordCount)
}

func TestPruneAccessStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.MonitorDataAccess(ctx, "read", "old", 1)
	f.monitor.MonitorFileAnalysis(ctx, "main.go", "lint")
	f.clock.Advance(45 * time.Minute)
	f.monitor.MonitorDataAccess(ctx, "read", "fresh", 1)
	f.clock.Advance(30 * time.Minute)

	removed, err := f.monitor.PruneAccessStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	stats := f.monitor.GetAccessStatistics()
	assert.NotContains(t, stats, "read_old")
	assert.Contains(t, stats, "read_fresh")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = f.monitor.PruneAccessStats(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPruneAlerts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.monitor.MonitorDataAccess(ctx, "export", "a", 5000)
	f.clock.Advance(23 * time.Hour)
	f.monitor.MonitorDataAccess(ctx, "export", "b", 5000)
	f.clock.Advance(2 * time.Hour)

	removed, err := f.monitor.PruneAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	alerts := f.monitor.GetRecentAlerts(0)
	require.Len(t, alerts, 1)
	dt, _ := alerts[0].Metadata.Get("dataType")
	assert.Equal(t, "b", dt)
}

func TestSecurityHealth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h := f.monitor.GetSecurityHealth()
	assert.Equal(t, 100, h.Score)
	assert.Equal(t, types.HealthGood, h.Status)

	f.monitor.MonitorDataAccess(ctx, "delete", "a", 5000)
	f.monitor.MonitorFileAnalysis(ctx, "secret.env", "lint")
	h = f.monitor.GetSecurityHealth()
	assert.Equal(t, 70, h.Score)
	assert.Equal(t, types.HealthWarning, h.Status)
	assert.Equal(t, 1, h.HighAlerts)
	assert.Equal(t, 1, h.MediumAlerts)

	for i := 0; i < 5; i++ {
		f.monitor.MonitorDataAccess(ctx, "delete", "a", 5000)
	}
	h = f.monitor.GetSecurityHealth()
	assert.Equal(t, 0, h.Score)
	assert.Equal(t, types.HealthCritical, h.Status)
}

func TestNewRequiresAuditLogger(t *testing.T) {
	_, err := New(nil, DefaultConfig(), Options{})
	assert.Error(t, err)
}
