package crtm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
)

func testRun() schema.ExportRun {
	return schema.ExportRun{
		Connector: "CRTM",
		DatasetID: "afluencia_daily",
		Period:    schema.Period{StartDate: "2026-08-19", EndDate: "2026-08-19"},
		Format:    "CSV",
		Filename:  "afluencia_daily_2026-08-19_2026-08-19.csv",
		Checksum:  "abc123",
		Payload:   `"stopCode","date"`,
	}
}

func TestDeliver(t *testing.T) {
	var got deliveryRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/v1/datasets", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret")
	require.NoError(t, client.Deliver(context.Background(), testRun()))

	assert.Equal(t, "afluencia_daily", got.DatasetID)
	assert.Equal(t, "abc123", got.Checksum)
	assert.Equal(t, `"stopCode","date"`, got.Payload)
}

func TestDeliverRejectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	err := client.Deliver(context.Background(), testRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}
