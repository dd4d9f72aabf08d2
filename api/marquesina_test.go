package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func seedSensorDay(t *testing.T, st store.Store, stopCode, date string, detected int, hourly []schema.HourlyEntry) {
	t.Helper()
	require.NoError(t, st.SaveIoTDay(stopCode, schema.IoTDay{
		Meta: schema.IoTMeta{Location: stopCode, Date: date},
		Summary: schema.IoTSummary{
			TotalDetected:   detected,
			Deduplicated:    detected / 2,
			AvgDwellMinutes: 4,
		},
		Hourly: hourly,
	}))
}

func TestLatestSensorDayAcrossCatalog(t *testing.T) {
	server, st := newTestServer()

	w := performRequest(server, "GET", "/api/marquesina/latest", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	seedSensorDay(t, st, "MAR-001", "2026-08-01", 100, nil)
	seedSensorDay(t, st, "MAR-002", "2026-08-03", 200, nil)

	w = performRequest(server, "GET", "/api/marquesina/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	meta := data["meta"].(map[string]interface{})
	assert.Equal(t, "2026-08-03", meta["date"])

	w = performRequest(server, "GET", "/api/marquesina/latest?location=mar-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	meta = body["data"].(map[string]interface{})["meta"].(map[string]interface{})
	assert.Equal(t, "2026-08-01", meta["date"])
}

func TestSensorDayRange(t *testing.T) {
	server, st := newTestServer()
	seedSensorDay(t, st, "MAR-001", "2026-08-01", 100, nil)
	seedSensorDay(t, st, "MAR-001", "2026-08-05", 150, nil)
	seedSensorDay(t, st, "MAR-001", "2026-08-20", 90, nil)

	w := performRequest(server, "GET", "/api/marquesina/range", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(server, "GET", "/api/marquesina/range?from=2026-08-01&to=2026-08-10&location=MAR-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])
}

func TestSensorDayByDate(t *testing.T) {
	server, st := newTestServer()
	seedSensorDay(t, st, "MAR-001", "2026-08-01", 100, nil)

	w := performRequest(server, "GET", "/api/marquesina/2026-08-01", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(server, "GET", "/api/marquesina/2026-08-01?location=MAR-001", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(server, "GET", "/api/marquesina/2026-08-02", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSensorAnalyticsRequiresLocation(t *testing.T) {
	server, _ := newTestServer()
	w := performRequest(server, "GET", "/api/marquesina/analytics", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSensorAnalyticsDay(t *testing.T) {
	server, st := newTestServer()
	seedSensorDay(t, st, "MAR-001", "2026-08-01", 300, []schema.HourlyEntry{
		{Hour: "08:00", TotalPersons: 120, PeopleIn: 70},
		{Hour: "09:00", TotalPersons: 180, PeopleIn: 90},
	})

	w := performRequest(server, "GET", "/api/marquesina/analytics?location=MAR-001&mode=day&date=2026-08-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	kpis := body["kpis"].(map[string]interface{})
	assert.Equal(t, float64(300), kpis["totalPeriod"])
	assert.Equal(t, "09:00", kpis["peakHour"])
	assert.Equal(t, float64(180), kpis["peakHourValue"])
	assert.Equal(t, float64(100), kpis["coveragePct"])

	hourly := body["hourlyAggregate"].([]interface{})
	require.Len(t, hourly, 2)
	first := hourly[0].(map[string]interface{})
	assert.Equal(t, float64(120), first["detected"])
}

func TestSensorAnalyticsDayWithoutData(t *testing.T) {
	server, _ := newTestServer()

	w := performRequest(server, "GET", "/api/marquesina/analytics?location=MAR-001&mode=day&date=2026-08-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	kpis := body["kpis"].(map[string]interface{})
	assert.Equal(t, float64(0), kpis["totalPeriod"])
	assert.Equal(t, float64(1), kpis["daysInRange"])
	assert.Equal(t, float64(0), kpis["daysWithData"])

	summaries := body["dailySummaries"].([]interface{})
	require.Len(t, summaries, 1)
	day := summaries[0].(map[string]interface{})
	assert.Equal(t, false, day["hasData"])
}

func TestSensorAnalyticsRange(t *testing.T) {
	server, st := newTestServer()
	seedSensorDay(t, st, "MAR-001", "2026-08-01", 100, []schema.HourlyEntry{
		{Hour: "08:00", TotalPersons: 60},
	})
	seedSensorDay(t, st, "MAR-001", "2026-08-03", 200, []schema.HourlyEntry{
		{Hour: "18:00", TotalPersons: 110},
	})

	w := performRequest(server, "GET", "/api/marquesina/analytics?location=MAR-001&from=2026-08-01&to=2026-08-04", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)

	kpis := body["kpis"].(map[string]interface{})
	assert.Equal(t, float64(300), kpis["totalPeriod"])
	assert.Equal(t, float64(150), kpis["dailyAvg"])
	assert.Equal(t, float64(200), kpis["peakMax"])
	assert.Equal(t, "2026-08-03", kpis["peakDate"])
	assert.Equal(t, "18:00", kpis["peakHour"])
	assert.Equal(t, float64(4), kpis["daysInRange"])
	assert.Equal(t, float64(2), kpis["daysWithData"])
	assert.Equal(t, float64(50), kpis["coveragePct"])

	summaries := body["dailySummaries"].([]interface{})
	require.Len(t, summaries, 4)
	gap := summaries[1].(map[string]interface{})
	assert.Equal(t, "2026-08-02", gap["date"])
	assert.Equal(t, false, gap["hasData"])
}

func TestSensorAnalyticsRangeInvalidDates(t *testing.T) {
	server, _ := newTestServer()
	w := performRequest(server, "GET", "/api/marquesina/analytics?location=MAR-001&from=2026-08-10&to=2026-08-01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
