package api

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/alerting"
	"github.com/twetter99/afluencia360/export"
	"github.com/twetter99/afluencia360/report"
	"github.com/twetter99/afluencia360/store"
)

func newTestServer() (*Server, store.Store) {
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	server := NewServer(
		st,
		alerting.NewEngine(st, st, st),
		report.NewBuilder(st, st, st),
		export.NewRunner(st, st, st, nil),
		false,
	)
	return server, st
}

func performRequest(s *Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.setupRouter().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
