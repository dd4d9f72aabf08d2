package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func seedRecord(t *testing.T, st store.Store, stopCode, date string, total int) {
	t.Helper()
	_, err := st.SaveRecord(schema.Record{
		StopCode:      stopCode,
		Date:          date,
		Entity:        "EMT Madrid",
		Totals:        schema.Totals{Adults: total, TotalNumber: total},
		ResidenceTime: "00:03:00",
	})
	require.NoError(t, err)
}

func TestListRecordsWithFilters(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-001", "2026-08-02", 120)
	seedRecord(t, st, "MAR-002", "2026-08-01", 80)

	w := performRequest(server, "GET", "/api/data/records?stopCode=MAR-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, float64(2), body["count"])

	w = performRequest(server, "GET", "/api/data/records?stopCodes=MAR-001,MAR-002&startDate=2026-08-02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Equal(t, float64(1), body["count"])
}

func TestLatestRecord(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-001", "2026-08-05", 140)

	w := performRequest(server, "GET", "/api/data/latest/mar-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2026-08-05", data["date"])

	w = performRequest(server, "GET", "/api/data/latest/MAR-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordSummary(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-001", "2026-08-02", 140)

	w := performRequest(server, "GET", "/api/data/summary?stopCode=mar-001", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	totals := data["totals"].(map[string]interface{})
	assert.Equal(t, float64(240), totals["totalNumber"])

	w = performRequest(server, "GET", "/api/data/summary", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(server, "GET", "/api/data/summary?stopCode=MAR-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteRecord(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)

	records, err := st.ListRecords(schema.RecordFilter{StopCode: "MAR-001"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	w := performRequest(server, "DELETE", fmt.Sprintf("/api/data/records/%s", records[0].ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	records, err = st.ListRecords(schema.RecordFilter{StopCode: "MAR-001"})
	require.NoError(t, err)
	assert.Empty(t, records)

	w = performRequest(server, "DELETE", "/api/data/records/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListEntitiesSkipsInactive(t *testing.T) {
	server, st := newTestServer()
	require.NoError(t, st.CreateStop(schema.Stop{StopCode: "MAR-001", Name: "Plaza Mayor"}))
	require.NoError(t, st.CreateStop(schema.Stop{
		StopCode: "MAR-002",
		Name:     "Atocha",
		Status:   schema.StopStatusInactive,
	}))

	w := performRequest(server, "GET", "/api/data/entities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, []interface{}{"MAR-001"}, body["data"])
}

func TestStopOverviewsSynthesizesUnregistered(t *testing.T) {
	server, st := newTestServer()
	require.NoError(t, st.CreateStop(schema.Stop{StopCode: "MAR-001", Name: "Plaza Mayor"}))
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-002", "2026-08-02", 80)

	overviews, err := server.stopOverviews()
	require.NoError(t, err)
	require.Len(t, overviews, 2)

	assert.Equal(t, "MAR-001", overviews[0].StopCode)
	assert.Equal(t, 1, overviews[0].TotalRecords)
	assert.Equal(t, "2026-08-01", overviews[0].LatestDate)

	assert.Equal(t, "MAR-002", overviews[1].StopCode)
	assert.Equal(t, "EMT Madrid", overviews[1].Name)
	assert.Equal(t, schema.StopStatusActive, overviews[1].Status)
}

func TestDashboardAggregateRequiresStopCodes(t *testing.T) {
	server, _ := newTestServer()
	w := performRequest(server, "GET", "/api/data/dashboard/aggregate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardAggregate(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-002", "2026-08-01", 80)
	seedRecord(t, st, "MAR-001", "2026-08-02", 120)

	w := performRequest(server, "GET", "/api/data/dashboard/aggregate?stopCodes=mar-001,mar-002", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(3), data["totalRecords"])

	summary := data["summary"].(map[string]interface{})
	totals := summary["totals"].(map[string]interface{})
	assert.Equal(t, float64(300), totals["totalNumber"])

	byDate := data["records"].([]interface{})
	assert.Len(t, byDate, 2)
}

func TestDashboardByStopNotFound(t *testing.T) {
	server, _ := newTestServer()
	w := performRequest(server, "GET", "/api/data/dashboard/MAR-404", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
