package alerting

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/utils"
)

var testNow = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

func dayRecord(stopCode, date string, total int) schema.Record {
	return schema.Record{
		StopCode: stopCode,
		Date:     date,
		Totals:   schema.Totals{TotalNumber: total},
	}
}

func TestHoursSince(t *testing.T) {
	assert.True(t, math.IsInf(hoursSince(nil, testNow), 1))
	assert.True(t, math.IsInf(hoursSince(&schema.Record{}, testNow), 1))
	assert.True(t, math.IsInf(hoursSince(&schema.Record{UploadedAt: "garbage"}, testNow), 1))

	rec := schema.Record{UploadedAt: "2026-08-19T06:00:00Z"}
	assert.InDelta(t, 30, hoursSince(&rec, testNow), 0.001)

	// without an upload instant the record's date counts until end of day
	rec = schema.Record{Date: "2026-08-19"}
	assert.InDelta(t, 12.0003, hoursSince(&rec, testNow), 0.01)
}

func TestShiftDate(t *testing.T) {
	assert.Equal(t, "2026-08-13", shiftDate("2026-08-20", -7))
	assert.Equal(t, "2026-09-01", shiftDate("2026-08-31", 1))
	assert.Equal(t, "not-a-date", shiftDate("not-a-date", -1))
}

func TestEvaluateStopNoData(t *testing.T) {
	l := utils.NewLocalizer("es")

	latest := dayRecord("MAR-001", "2026-08-19", 0)
	latest.UploadedAt = "2026-08-20T04:00:00Z" // 8h stale
	candidates := evaluateStop(l, "MAR-001", &latest, nil, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertTypeNoData, candidates[0].Type)
	assert.Equal(t, schema.AlertSeverityWarn, candidates[0].Severity)
	assert.InDelta(t, 8, candidates[0].MetricsSnapshot["hoursSinceLastData"], 0.001)

	latest.UploadedAt = "2026-08-19T06:00:00Z" // 30h stale
	candidates = evaluateStop(l, "MAR-001", &latest, nil, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertSeverityCritical, candidates[0].Severity)

	candidates = evaluateStop(l, "MAR-001", nil, nil, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertSeverityCritical, candidates[0].Severity)
	assert.True(t, math.IsInf(candidates[0].MetricsSnapshot["hoursSinceLastData"], 1))
}

func TestEvaluateStopDrop(t *testing.T) {
	l := utils.NewLocalizer("es")

	records := []schema.Record{dayRecord("MAR-001", "2026-08-20", 15)}
	for i := 1; i <= 7; i++ {
		records = append(records, dayRecord("MAR-001", shiftDate("2026-08-20", -i), 100))
	}
	latest := records[0]
	latest.UploadedAt = "2026-08-20T11:00:00Z"

	candidates := evaluateStop(l, "MAR-001", &latest, records, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertTypeAnomalyDrop, candidates[0].Type)
	assert.Equal(t, schema.AlertSeverityCritical, candidates[0].Severity)
	assert.Equal(t, 15.0, candidates[0].MetricsSnapshot["todayTotal"])
	assert.Equal(t, 100.0, candidates[0].MetricsSnapshot["avg7d"])
	assert.Equal(t, 0.15, candidates[0].MetricsSnapshot["factor"])
	assert.Contains(t, candidates[0].Message, "MAR-001")
}

func TestEvaluateStopSpike(t *testing.T) {
	l := utils.NewLocalizer("es")

	records := []schema.Record{dayRecord("MAR-001", "2026-08-20", 260)}
	for i := 1; i <= 7; i++ {
		records = append(records, dayRecord("MAR-001", shiftDate("2026-08-20", -i), 100))
	}
	latest := records[0]
	latest.UploadedAt = "2026-08-20T11:00:00Z"

	candidates := evaluateStop(l, "MAR-001", &latest, records, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertTypeAnomalySpike, candidates[0].Type)
	assert.Equal(t, schema.AlertSeverityWarn, candidates[0].Severity)

	records[0].Totals.TotalNumber = 450
	candidates = evaluateStop(l, "MAR-001", &latest, records, "2026-08-20", testNow)
	require.Len(t, candidates, 1)
	assert.Equal(t, schema.AlertSeverityCritical, candidates[0].Severity)
}

func TestEvaluateStopNoBaselineNoAnomaly(t *testing.T) {
	l := utils.NewLocalizer("es")

	// only today has data: no 7-day baseline, anomaly rules stay silent
	records := []schema.Record{dayRecord("MAR-001", "2026-08-20", 500)}
	latest := records[0]
	latest.UploadedAt = "2026-08-20T11:00:00Z"

	candidates := evaluateStop(l, "MAR-001", &latest, records, "2026-08-20", testNow)
	assert.Empty(t, candidates)
}

func TestEvaluateStopInBandIsQuiet(t *testing.T) {
	l := utils.NewLocalizer("es")

	records := []schema.Record{dayRecord("MAR-001", "2026-08-20", 100)}
	for i := 1; i <= 7; i++ {
		records = append(records, dayRecord("MAR-001", shiftDate("2026-08-20", -i), 100))
	}
	latest := records[0]
	latest.UploadedAt = "2026-08-20T11:00:00Z"

	assert.Empty(t, evaluateStop(l, "MAR-001", &latest, records, "2026-08-20", testNow))
}
