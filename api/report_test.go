package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/report"
)

func TestListReportTemplates(t *testing.T) {
	server, st := newTestServer()
	require.NoError(t, st.SeedReportTemplates(report.DefaultTemplates()))

	w := performRequest(server, "GET", "/api/reports/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Len(t, body["data"], 3)
}

func TestGenerateReportValidation(t *testing.T) {
	server, _ := newTestServer()

	w := performRequest(server, "POST", "/api/reports/generate",
		strings.NewReader(`{"type": "stop"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(server, "POST", "/api/reports/generate",
		strings.NewReader(`{"type": "multi", "startDate": "2026-08-01", "endDate": "2026-08-07"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(server, "POST", "/api/reports/generate",
		strings.NewReader(`{"type": "nope", "startDate": "2026-08-01", "endDate": "2026-08-07"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGenerateAndFetchReport(t *testing.T) {
	server, st := newTestServer()
	seedRecord(t, st, "MAR-001", "2026-08-01", 100)
	seedRecord(t, st, "MAR-001", "2026-08-02", 140)

	w := performRequest(server, "POST", "/api/reports/generate", strings.NewReader(
		`{"type": "stop", "stopCode": "mar-001", "startDate": "2026-08-01", "endDate": "2026-08-07"}`))
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "stop", data["type"])
	assert.Equal(t, "ready", data["status"])
	reportID := data["id"].(string)

	w = performRequest(server, "GET", "/api/reports/"+reportID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(server, "GET", "/api/reports", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeBody(t, w)
	assert.Len(t, body["data"], 1)

	w = performRequest(server, "GET", "/api/reports/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
