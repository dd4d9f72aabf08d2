package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/export"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

const exportRunListLimit = 50

func (s *Server) getCRTMConfig(c *gin.Context) {
	config, err := s.store.GetCRTMConfig(export.DefaultConfig())
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": config})
}

func (s *Server) updateCRTMConfig(c *gin.Context) {
	var config schema.CRTMConfig
	if err := c.BindJSON(&config); err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
		return
	}

	if err := s.store.UpdateCRTMConfig(config); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	updated, err := s.store.GetCRTMConfig(export.DefaultConfig())
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": updated})
}

func (s *Server) listExportDatasets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": export.Datasets()})
}

type executeExportRequest struct {
	DatasetID   string `json:"datasetId"`
	RangePreset string `json:"rangePreset"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Retry       bool   `json:"retry"`
	RequestedBy string `json:"requestedBy"`
}

func (s *Server) executeExport(c *gin.Context) {
	var req executeExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters, err)
			return
		}
	}
	if req.RequestedBy == "" {
		req.RequestedBy = "admin"
	}

	run, err := s.exports.Execute(c.Request.Context(), export.ExecuteParams{
		DatasetID:   req.DatasetID,
		RangePreset: req.RangePreset,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Retry:       req.Retry,
		RequestedBy: req.RequestedBy,
	})
	if errors.Is(err, export.ErrUnknownDataset) {
		abortWithEncoding(c, http.StatusBadRequest, errorUnknownDataset, err)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
}

func (s *Server) listExportRuns(c *gin.Context) {
	runs, err := s.store.ListExportRuns(exportRunListLimit)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": runs})
}

func (s *Server) getExportRun(c *gin.Context) {
	run, err := s.store.GetExportRun(c.Param("id"))
	if errors.Is(err, store.ErrExportRunNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorExportRunNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": run})
}

// downloadExportRun streams the stored payload with the content type the run
// was produced in.
func (s *Server) downloadExportRun(c *gin.Context) {
	run, err := s.store.GetExportRun(c.Param("id"))
	if errors.Is(err, store.ErrExportRunNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorExportRunNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if run.Format == "JSON" {
		contentType = "application/json; charset=utf-8"
	}

	filename := run.Filename
	if filename == "" {
		filename = fmt.Sprintf("export_%s.txt", run.ID)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, []byte(run.Payload))
}
