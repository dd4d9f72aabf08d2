package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/alerting"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

type recomputeRequest struct {
	StopCodes []string `json:"stopCodes"`
}

func (s *Server) recomputeAlerts(c *gin.Context) {
	var req recomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
			return
		}
	}

	codes := []string{}
	for _, code := range req.StopCodes {
		if code = strings.TrimSpace(code); code != "" {
			codes = append(codes, code)
		}
	}

	alerts, err := s.alerts.Recompute(c.Request.Context(), codes)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alerts})
}

// parseRangeDays turns "7d", "24h" or a bare number into a day count. Zero
// means no recency constraint.
func parseRangeDays(raw string) int {
	if raw == "" || raw == "all" {
		return 0
	}
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0
	}
	if strings.HasSuffix(raw, "h") {
		days := n / 24
		if days < 1 {
			days = 1
		}
		return days
	}
	return n
}

func (s *Server) listAlerts(c *gin.Context) {
	alerts, err := s.store.ListAlerts()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	filter := schema.AlertFilter{
		Status:    c.Query("status"),
		Severity:  c.Query("severity"),
		Search:    c.Query("search"),
		RangeDays: parseRangeDays(c.Query("range")),
	}
	filtered := alerting.FilterAlerts(alerts, filter, time.Now().UTC())

	c.JSON(http.StatusOK, gin.H{"success": true, "data": filtered})
}

type alertUserRequest struct {
	User string `json:"user"`
}

func (r alertUserRequest) userOrDefault() string {
	if r.User == "" {
		return "admin"
	}
	return r.User
}

func (s *Server) acknowledgeAlert(c *gin.Context) {
	var req alertUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
			return
		}
	}

	alert, err := s.store.AcknowledgeAlert(c.Param("id"), req.userOrDefault())
	if errors.Is(err, store.ErrAlertNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorAlertNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alert})
}

func (s *Server) resolveAlert(c *gin.Context) {
	var req alertUserRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
			return
		}
	}

	alert, err := s.store.ResolveAlert(c.Param("id"), req.userOrDefault())
	if errors.Is(err, store.ErrAlertNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorAlertNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": alert})
}
