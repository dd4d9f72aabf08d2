package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func newTestBuilder(t *testing.T) (*Builder, store.Store) {
	t.Helper()
	s := store.NewMemoryStore()
	b := NewBuilder(s, s, s)
	b.now = func() time.Time { return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC) }
	return b, s
}

func reportRecord(stopCode, date string, total int) schema.Record {
	return schema.Record{
		StopCode:      stopCode,
		Date:          date,
		Entity:        "EMT Madrid",
		Totals:        schema.Totals{TotalNumber: total, Adults: total},
		Gender:        schema.GenderBreakdown{Man: total / 2, Woman: total / 2},
		Age:           schema.AgeBreakdown{Age17_30: total},
		ResidenceTime: "00:03:00",
		UploadedAt:    date + "T23:00:00Z",
	}
}

func seedReportRecords(t *testing.T, s store.Store, stopCode string, dates []string, totals []int) {
	t.Helper()
	require.Equal(t, len(dates), len(totals))
	for i, date := range dates {
		_, err := s.SaveRecord(reportRecord(stopCode, date, totals[i]))
		require.NoError(t, err)
	}
}

func TestBuildStopReport(t *testing.T) {
	b, s := newTestBuilder(t)
	seedReportRecords(t, s, "MAR-001",
		[]string{"2026-08-10", "2026-08-11", "2026-08-12"},
		[]int{100, 300, 200})

	require.NoError(t, s.SaveAlert(schema.Alert{
		ID:          "a1",
		Key:         schema.AlertKey("MAR-001", schema.AlertTypeNoData),
		StopCode:    "MAR-001",
		Type:        schema.AlertTypeNoData,
		Status:      schema.AlertStatusOpen,
		FirstSeenAt: "2026-08-11T10:00:00Z",
		LastSeenAt:  "2026-08-11T16:00:00Z",
	}))
	// outside the period
	require.NoError(t, s.SaveAlert(schema.Alert{
		ID:          "a2",
		Key:         schema.AlertKey("MAR-001", schema.AlertTypeAnomalyDrop),
		StopCode:    "MAR-001",
		Type:        schema.AlertTypeAnomalyDrop,
		Status:      schema.AlertStatusOpen,
		FirstSeenAt: "2026-07-01T10:00:00Z",
		LastSeenAt:  "2026-07-02T10:00:00Z",
	}))

	payload, err := b.BuildStopReport("MAR-001", "2026-08-10", "2026-08-12", "nota de prueba")
	require.NoError(t, err)

	assert.Equal(t, schema.ReportTypeStop, payload.Type)
	assert.Equal(t, "EMT Madrid", payload.Scope)
	assert.Equal(t, 600, payload.KPIs.Total)
	assert.Equal(t, 200, payload.KPIs.DailyAvg)
	require.NotNil(t, payload.KPIs.PeakDay)
	assert.Equal(t, "2026-08-11", payload.KPIs.PeakDay.Date)
	assert.Equal(t, 300, payload.KPIs.PeakDay.Total)

	require.Len(t, payload.DailyTrend, 3)
	assert.Equal(t, "2026-08-10", payload.DailyTrend[0].Date)
	assert.Equal(t, "2026-08-12", payload.DailyTrend[2].Date)

	assert.Equal(t, "17-30", payload.TopAgeBand)
	require.Len(t, payload.Alerts, 1)
	assert.Equal(t, "a1", payload.Alerts[0].ID)
	assert.Equal(t, "nota de prueba", payload.Notes)
}

func TestBuildStopReportEmptyPeriod(t *testing.T) {
	b, _ := newTestBuilder(t)

	payload, err := b.BuildStopReport("MAR-001", "2026-08-10", "2026-08-12", "")
	require.NoError(t, err)

	assert.Equal(t, 0, payload.KPIs.Total)
	assert.Equal(t, 0, payload.KPIs.DailyAvg)
	assert.Nil(t, payload.KPIs.PeakDay)
	assert.Empty(t, payload.DailyTrend)
	assert.Empty(t, payload.TopAgeBand)
	assert.Equal(t, "MAR-001", payload.Scope)
}

func TestBuildMultiReportRankingAndComparison(t *testing.T) {
	b, s := newTestBuilder(t)
	// current period
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-10", "2026-08-11"}, []int{100, 100})
	seedReportRecords(t, s, "MAR-002", []string{"2026-08-10", "2026-08-11"}, []int{300, 300})
	// previous period
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-08", "2026-08-09"}, []int{200, 200})
	seedReportRecords(t, s, "MAR-002", []string{"2026-08-08", "2026-08-09"}, []int{100, 100})

	payload, err := b.BuildMultiReport([]string{"MAR-001", "MAR-002"}, "2026-08-10", "2026-08-11", true)
	require.NoError(t, err)

	assert.Equal(t, 800, payload.KPIs.Total)
	require.Len(t, payload.Comparisons, 2)
	assert.Equal(t, "MAR-002", payload.Comparisons[0].StopCode)
	assert.Equal(t, 600, payload.Comparisons[0].Total)
	assert.Equal(t, "MAR-002", payload.Ranking.Top[0].StopCode)
	assert.Equal(t, "MAR-001", payload.Ranking.Bottom[0].StopCode)

	require.Len(t, payload.PreviousComparison, 2)
	// biggest gain first
	assert.Equal(t, "MAR-002", payload.PreviousComparison[0].StopCode)
	assert.Equal(t, 400, payload.PreviousComparison[0].VariationAbs)
	require.NotNil(t, payload.PreviousComparison[0].VariationPct)
	assert.InDelta(t, 200, *payload.PreviousComparison[0].VariationPct, 0.001)
	assert.Equal(t, -200, payload.PreviousComparison[1].VariationAbs)
}

func TestBuildMultiReportAlertsByType(t *testing.T) {
	b, s := newTestBuilder(t)
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-10"}, []int{100})

	for i, alertType := range []schema.AlertType{schema.AlertTypeNoData, schema.AlertTypeNoData, schema.AlertTypeAnomalyDrop} {
		stopCode := []string{"MAR-001", "MAR-002", "MAR-001"}[i]
		require.NoError(t, s.SaveAlert(schema.Alert{
			ID:          string(rune('a'+i)) + "-alert",
			Key:         schema.AlertKey(stopCode, alertType) + string(rune('a'+i)),
			StopCode:    stopCode,
			Type:        alertType,
			Status:      schema.AlertStatusOpen,
			FirstSeenAt: "2026-08-10T10:00:00Z",
			LastSeenAt:  "2026-08-10T12:00:00Z",
		}))
	}

	payload, err := b.BuildMultiReport([]string{"MAR-001"}, "2026-08-10", "2026-08-11", false)
	require.NoError(t, err)

	// MAR-002 is out of scope
	assert.Equal(t, 1, payload.AlertsByType[schema.AlertTypeNoData])
	assert.Equal(t, 1, payload.AlertsByType[schema.AlertTypeAnomalyDrop])
	assert.Nil(t, payload.PreviousComparison)
}

func TestBuildExecutiveReport(t *testing.T) {
	b, s := newTestBuilder(t)
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-10", "2026-08-11"}, []int{100, 100})
	seedReportRecords(t, s, "MAR-002", []string{"2026-08-10", "2026-08-11"}, []int{300, 300})
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-08", "2026-08-09"}, []int{200, 200})
	seedReportRecords(t, s, "MAR-002", []string{"2026-08-08", "2026-08-09"}, []int{100, 100})

	require.NoError(t, s.SaveAlert(schema.Alert{
		ID:          "crit-1",
		Key:         schema.AlertKey("MAR-001", schema.AlertTypeAnomalyDrop),
		StopCode:    "MAR-001",
		Type:        schema.AlertTypeAnomalyDrop,
		Severity:    schema.AlertSeverityCritical,
		Status:      schema.AlertStatusOpen,
		FirstSeenAt: "2026-08-10T10:00:00Z",
		LastSeenAt:  "2026-08-11T10:00:00Z",
	}))

	payload, err := b.BuildExecutiveReport([]string{"MAR-001", "MAR-002"}, "2026-08-10", "2026-08-11")
	require.NoError(t, err)

	assert.Equal(t, schema.Period{StartDate: "2026-08-08", EndDate: "2026-08-09"}, payload.PreviousPeriod)
	assert.Equal(t, 800, payload.KPIs.CurrentTotal)
	assert.Equal(t, 600, payload.KPIs.PreviousTotal)
	assert.Equal(t, 200, payload.KPIs.VariationAbs)
	require.NotNil(t, payload.KPIs.VariationPct)
	assert.InDelta(t, 33.3, *payload.KPIs.VariationPct, 0.05)

	require.Len(t, payload.TopGrowth, 1)
	assert.Equal(t, "MAR-002", payload.TopGrowth[0].StopCode)
	require.Len(t, payload.TopDrop, 1)
	assert.Equal(t, "MAR-001", payload.TopDrop[0].StopCode)

	require.Len(t, payload.CriticalAlerts, 1)
	assert.Equal(t, "crit-1", payload.CriticalAlerts[0].ID)

	require.Len(t, payload.Insights, 5)
	assert.Contains(t, payload.Insights[0], "800")
	assert.Len(t, payload.Recommendations, 3)
}

func TestGeneratePersistsReport(t *testing.T) {
	b, s := newTestBuilder(t)
	seedReportRecords(t, s, "MAR-001", []string{"2026-08-10"}, []int{100})

	report, err := b.Generate(GenerateParams{
		Type:      schema.ReportTypeStop,
		StartDate: "2026-08-10",
		EndDate:   "2026-08-12",
		StopCode:  "mar-001",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "ready", report.Status)
	assert.Equal(t, "admin", report.GeneratedBy)
	assert.Equal(t, "pdf", report.Format)
	assert.Equal(t, "2026-08-20T12:00:00Z", report.GeneratedAt)

	payload, ok := report.DataSnapshot.(*schema.StopReportPayload)
	require.True(t, ok)
	assert.Equal(t, "MAR-001", payload.StopCode)

	stored, err := s.GetReport(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Name, stored.Name)
}

func TestGenerateValidation(t *testing.T) {
	b, _ := newTestBuilder(t)

	_, err := b.Generate(GenerateParams{Type: schema.ReportTypeStop})
	assert.ErrorIs(t, err, ErrPeriodRequired)

	_, err = b.Generate(GenerateParams{Type: schema.ReportTypeStop, StartDate: "2026-08-01", EndDate: "2026-08-02"})
	assert.ErrorIs(t, err, ErrStopRequired)

	_, err = b.Generate(GenerateParams{Type: schema.ReportTypeMulti, StartDate: "2026-08-01", EndDate: "2026-08-02"})
	assert.ErrorIs(t, err, ErrStopsRequired)

	_, err = b.Generate(GenerateParams{Type: "weekly", StartDate: "2026-08-01", EndDate: "2026-08-02"})
	assert.ErrorIs(t, err, ErrUnsupportedType)
}
