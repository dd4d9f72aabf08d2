package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
)

func TestSortAlerts(t *testing.T) {
	alerts := []schema.Alert{
		{ID: "resolved-critical", Status: schema.AlertStatusResolved, Severity: schema.AlertSeverityCritical, LastSeenAt: "2026-08-20T10:00:00Z"},
		{ID: "open-warn", Status: schema.AlertStatusOpen, Severity: schema.AlertSeverityWarn, LastSeenAt: "2026-08-20T10:00:00Z"},
		{ID: "ack-critical", Status: schema.AlertStatusAck, Severity: schema.AlertSeverityCritical, LastSeenAt: "2026-08-20T10:00:00Z"},
		{ID: "open-critical-old", Status: schema.AlertStatusOpen, Severity: schema.AlertSeverityCritical, LastSeenAt: "2026-08-19T10:00:00Z"},
		{ID: "open-critical-new", Status: schema.AlertStatusOpen, Severity: schema.AlertSeverityCritical, LastSeenAt: "2026-08-20T11:00:00Z"},
	}

	sorted := SortAlerts(alerts)

	ids := make([]string, len(sorted))
	for i, a := range sorted {
		ids[i] = a.ID
	}
	assert.Equal(t, []string{"open-critical-new", "open-critical-old", "open-warn", "ack-critical", "resolved-critical"}, ids)

	// input order untouched
	assert.Equal(t, "resolved-critical", alerts[0].ID)
}

func TestSortAlertsFallsBackToFirstSeen(t *testing.T) {
	alerts := []schema.Alert{
		{ID: "a", Status: schema.AlertStatusOpen, Severity: schema.AlertSeverityWarn, FirstSeenAt: "2026-08-20T08:00:00Z"},
		{ID: "b", Status: schema.AlertStatusOpen, Severity: schema.AlertSeverityWarn, FirstSeenAt: "2026-08-20T09:00:00Z"},
	}

	sorted := SortAlerts(alerts)
	require.Len(t, sorted, 2)
	assert.Equal(t, "b", sorted[0].ID)
}

func TestMatchesFilter(t *testing.T) {
	alert := schema.Alert{
		StopCode:   "MAR-001",
		Type:       schema.AlertTypeAnomalyDrop,
		Severity:   schema.AlertSeverityCritical,
		Status:     schema.AlertStatusOpen,
		Message:    "Caída de afluencia en MAR-001",
		LastSeenAt: "2026-08-18T10:00:00Z",
	}

	assert.True(t, MatchesFilter(alert, schema.AlertFilter{}, testNow))
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Status: "all", Severity: "all"}, testNow))
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Status: "OPEN"}, testNow))
	assert.False(t, MatchesFilter(alert, schema.AlertFilter{Status: "RESOLVED"}, testNow))
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Severity: "CRITICAL"}, testNow))
	assert.False(t, MatchesFilter(alert, schema.AlertFilter{Severity: "WARN"}, testNow))

	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Search: "mar-001"}, testNow))
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Search: "caída"}, testNow))
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{Search: "anomaly_drop"}, testNow))
	assert.False(t, MatchesFilter(alert, schema.AlertFilter{Search: "MAR-999"}, testNow))

	// seen 2 days before the reference instant
	assert.True(t, MatchesFilter(alert, schema.AlertFilter{RangeDays: 7}, testNow))
	assert.False(t, MatchesFilter(alert, schema.AlertFilter{RangeDays: 1}, testNow))
}

func TestFilterAlerts(t *testing.T) {
	alerts := []schema.Alert{
		{StopCode: "MAR-001", Status: schema.AlertStatusOpen, LastSeenAt: "2026-08-20T10:00:00Z"},
		{StopCode: "MAR-002", Status: schema.AlertStatusResolved, LastSeenAt: "2026-08-20T10:00:00Z"},
	}

	open := FilterAlerts(alerts, schema.AlertFilter{Status: "OPEN"}, testNow)
	require.Len(t, open, 1)
	assert.Equal(t, "MAR-001", open[0].StopCode)
}
