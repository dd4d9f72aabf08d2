package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/report"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

const reportListLimit = 100

func (s *Server) listReportTemplates(c *gin.Context) {
	templates, err := s.store.ListReportTemplates()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": templates})
}

func (s *Server) listReports(c *gin.Context) {
	reports, err := s.store.ListReports(reportListLimit)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": reports})
}

func (s *Server) getReport(c *gin.Context) {
	rep, err := s.store.GetReport(c.Param("id"))
	if errors.Is(err, store.ErrReportNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorReportNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rep})
}

type generateReportRequest struct {
	Type            string   `json:"type"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	StopCode        string   `json:"stopCode"`
	StopCodes       []string `json:"stopCodes"`
	ComparePrevious bool     `json:"comparePrevious"`
	GeneratedBy     string   `json:"generatedBy"`
	Format          string   `json:"format"`
	TemplateID      string   `json:"templateId"`
	Notes           string   `json:"notes"`
}

func (s *Server) generateReport(c *gin.Context) {
	var req generateReportRequest
	if err := c.BindJSON(&req); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	rep, err := s.reports.Generate(report.GenerateParams{
		Type:            schema.ReportType(req.Type),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		StopCode:        req.StopCode,
		StopCodes:       req.StopCodes,
		ComparePrevious: req.ComparePrevious,
		GeneratedBy:     req.GeneratedBy,
		Format:          req.Format,
		TemplateID:      req.TemplateID,
		Notes:           req.Notes,
	})
	switch {
	case errors.Is(err, report.ErrPeriodRequired),
		errors.Is(err, report.ErrStopRequired),
		errors.Is(err, report.ErrStopsRequired),
		errors.Is(err, report.ErrUnsupportedType):
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	case err != nil:
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": rep})
}
