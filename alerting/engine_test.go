package alerting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func newTestEngine(t *testing.T) (*Engine, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	engine := NewEngine(s, s, s)
	engine.now = func() time.Time { return testNow }
	return engine, s
}

func seedStop(t *testing.T, s store.Store, stopCode string) {
	t.Helper()
	require.NoError(t, s.CreateStop(schema.Stop{StopCode: stopCode, Name: stopCode}))
}

func seedRecord(t *testing.T, s store.Store, rec schema.Record) {
	t.Helper()
	_, err := s.SaveRecord(rec)
	require.NoError(t, err)
}

func alertByKey(alerts []schema.Alert, key string) *schema.Alert {
	for i := range alerts {
		if alerts[i].Key == key {
			return &alerts[i]
		}
	}
	return nil
}

func TestRecomputeStaleStopOpensAlerts(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	rec := dayRecord("MAR-001", "2026-08-19", 100)
	rec.UploadedAt = "2026-08-19T06:00:00Z" // 30h before testNow
	seedRecord(t, s, rec)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	noData := alertByKey(alerts, schema.AlertKey("MAR-001", schema.AlertTypeNoData))
	require.NotNil(t, noData)
	assert.Equal(t, schema.AlertStatusOpen, noData.Status)
	assert.Equal(t, schema.AlertSeverityCritical, noData.Severity)
	assert.NotEmpty(t, noData.ID)

	// yesterday's 100 visits make avg7d positive while today has none
	drop := alertByKey(alerts, schema.AlertKey("MAR-001", schema.AlertTypeAnomalyDrop))
	require.NotNil(t, drop)
	assert.Equal(t, schema.AlertSeverityCritical, drop.Severity)
	assert.Equal(t, 0.0, drop.MetricsSnapshot["todayTotal"])
}

func TestRecomputeSkipsInactiveStops(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")
	require.NoError(t, s.CreateStop(schema.Stop{
		StopCode: "MAR-OLD",
		Name:     "MAR-OLD",
		Status:   schema.StopStatusInactive,
	}))

	fresh := dayRecord("MAR-001", "2026-08-20", 100)
	fresh.UploadedAt = "2026-08-20T11:00:00Z"
	seedRecord(t, s, fresh)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)

	// a deactivated shelter never becomes a candidate, so no NO_DATA alert
	// accumulates against it
	assert.Nil(t, alertByKey(alerts, schema.AlertKey("MAR-OLD", schema.AlertTypeNoData)))
	for _, alert := range alerts {
		assert.NotEqual(t, "MAR-OLD", alert.StopCode)
	}
}

func TestRecomputeDropCritical(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	for i := 1; i <= 7; i++ {
		rec := dayRecord("MAR-001", shiftDate("2026-08-20", -i), 100)
		rec.UploadedAt = rec.Date + "T23:00:00Z"
		seedRecord(t, s, rec)
	}
	today := dayRecord("MAR-001", "2026-08-20", 15)
	today.UploadedAt = "2026-08-20T11:00:00Z"
	seedRecord(t, s, today)

	alerts, err := engine.Recompute(context.Background(), []string{"MAR-001"})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, schema.AlertTypeAnomalyDrop, alerts[0].Type)
	assert.Equal(t, schema.AlertSeverityCritical, alerts[0].Severity)
	assert.Equal(t, 100.0, alerts[0].MetricsSnapshot["avg7d"])
}

func TestRecomputeIsIdempotent(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	rec := dayRecord("MAR-001", "2026-08-18", 0)
	rec.UploadedAt = "2026-08-18T10:00:00Z"
	seedRecord(t, s, rec)

	first, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, second, 1)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].FirstSeenAt, second[0].FirstSeenAt)
	assert.Equal(t, schema.AlertStatusOpen, second[0].Status)
}

func TestRecomputeKeepsAcknowledgement(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	rec := dayRecord("MAR-001", "2026-08-18", 0)
	rec.UploadedAt = "2026-08-18T10:00:00Z"
	seedRecord(t, s, rec)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	_, err = s.AcknowledgeAlert(alerts[0].ID, "ops@emt.es")
	require.NoError(t, err)

	alerts, err = engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, schema.AlertStatusAck, alerts[0].Status)
	assert.Equal(t, "ops@emt.es", alerts[0].AckBy)
}

func TestRecomputeResolvesRecoveredStop(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	stale := dayRecord("MAR-001", "2026-08-18", 0)
	stale.UploadedAt = "2026-08-18T10:00:00Z"
	seedRecord(t, s, stale)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	openID := alerts[0].ID

	// data comes back in line with the baseline
	for i := 1; i <= 7; i++ {
		rec := dayRecord("MAR-001", shiftDate("2026-08-20", -i), 100)
		rec.UploadedAt = rec.Date + "T23:00:00Z"
		seedRecord(t, s, rec)
	}
	fresh := dayRecord("MAR-001", "2026-08-20", 100)
	fresh.UploadedAt = "2026-08-20T11:00:00Z"
	seedRecord(t, s, fresh)

	alerts, err = engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, openID, alerts[0].ID)
	assert.Equal(t, schema.AlertStatusResolved, alerts[0].Status)
	assert.Equal(t, "system", alerts[0].ResolvedBy)
}

func TestRecomputeReopensAfterResolution(t *testing.T) {
	engine, s := newTestEngine(t)
	seedStop(t, s, "MAR-001")

	stale := dayRecord("MAR-001", "2026-08-18", 0)
	stale.UploadedAt = "2026-08-18T10:00:00Z"
	seedRecord(t, s, stale)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	firstSeen := alerts[0].FirstSeenAt

	resolved, err := s.ResolveAlert(alerts[0].ID, "ops@emt.es")
	require.NoError(t, err)
	require.Equal(t, schema.AlertStatusResolved, resolved.Status)

	// same incident fires again a day later
	engine.now = func() time.Time { return testNow.Add(24 * time.Hour) }
	alerts, err = engine.Recompute(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, schema.AlertStatusOpen, alerts[0].Status)
	assert.NotEqual(t, firstSeen, alerts[0].FirstSeenAt)
	assert.Empty(t, alerts[0].AckBy)
	assert.Empty(t, alerts[0].ResolvedBy)
}

// failingRecords breaks reads for one stop to exercise the skip path.
type failingRecords struct {
	store.Store
	failFor string
}

func (f failingRecords) GetLatestRecord(stopCode string) (*schema.Record, error) {
	if stopCode == f.failFor {
		return nil, fmt.Errorf("connection reset")
	}
	return f.Store.GetLatestRecord(stopCode)
}

func TestRecomputeSkipsFailedStopWithoutResolving(t *testing.T) {
	s := store.NewMemoryStore()
	engine := NewEngine(failingRecords{Store: s, failFor: "MAR-001"}, s, s)
	engine.now = func() time.Time { return testNow }

	seedStop(t, s, "MAR-001")
	seedStop(t, s, "MAR-002")

	require.NoError(t, s.SaveAlert(schema.Alert{
		ID:          "existing-1",
		Key:         schema.AlertKey("MAR-001", schema.AlertTypeNoData),
		StopCode:    "MAR-001",
		Type:        schema.AlertTypeNoData,
		Severity:    schema.AlertSeverityWarn,
		Status:      schema.AlertStatusOpen,
		FirstSeenAt: "2026-08-19T00:00:00Z",
		LastSeenAt:  "2026-08-19T00:00:00Z",
	}))

	fresh := dayRecord("MAR-002", "2026-08-20", 0)
	fresh.UploadedAt = "2026-08-20T11:00:00Z"
	_, err := s.SaveRecord(fresh)
	require.NoError(t, err)

	alerts, err := engine.Recompute(context.Background(), nil)
	require.NoError(t, err)

	// the unreachable stop keeps its alert open instead of being swept
	existing := alertByKey(alerts, schema.AlertKey("MAR-001", schema.AlertTypeNoData))
	require.NotNil(t, existing)
	assert.Equal(t, schema.AlertStatusOpen, existing.Status)
	assert.Empty(t, existing.ResolvedBy)
}
