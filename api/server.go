package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"github.com/twetter99/afluencia360/alerting"
	"github.com/twetter99/afluencia360/export"
	"github.com/twetter99/afluencia360/geo"
	"github.com/twetter99/afluencia360/report"
	"github.com/twetter99/afluencia360/store"
)

var log = logrus.StandardLogger()

// Server is the HTTP front of the service. All domain work is delegated to
// the store and the alerting, report and export engines.
type Server struct {
	server *http.Server

	store    store.Store
	alerts   *alerting.Engine
	reports  *report.Builder
	exports  *export.Runner
	geocoder geo.LocationSearcher

	traceMode bool
}

func NewServer(mongoStore store.Store, alerts *alerting.Engine, reports *report.Builder, exports *export.Runner, traceMode bool) *Server {
	return &Server{
		store:     mongoStore,
		alerts:    alerts,
		reports:   reports,
		exports:   exports,
		traceMode: traceMode,
	}
}

// SetGeocoder enables address lookup for catalog entries saved without
// coordinates. The server works fine without one.
func (s *Server) SetGeocoder(searcher geo.LocationSearcher) {
	s.geocoder = searcher
}

// Run starts listening on addr and blocks until the server stops.
func (s *Server) Run(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.setupRouter(),
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.DumpRequest)

	r.GET("/healthz", s.healthz)

	api := r.Group("/api")

	upload := api.Group("/upload")
	{
		upload.POST("", s.uploadFile)
		upload.POST("/preview", s.previewUpload)
		upload.GET("/check-duplicate", s.checkDuplicate)
		upload.POST("/manual", s.manualUpload)
		upload.GET("/errors/:uploadId", s.uploadErrors)
	}

	data := api.Group("/data")
	{
		data.GET("/entities", s.listEntities)
		data.GET("/stops", s.listStopOverviews)
		data.GET("/records", s.listRecords)
		data.GET("/latest/:stopCode", s.latestRecord)
		data.GET("/summary", s.recordSummary)
		data.DELETE("/records/:id", s.deleteRecord)
		data.GET("/dashboard/cards", s.dashboardCards)
		data.GET("/dashboard/aggregate", s.dashboardAggregate)
		data.GET("/dashboard/compare", s.dashboardCompare)
		data.GET("/dashboard/:stopCode", s.dashboardByStop)
	}

	stops := api.Group("/stops")
	{
		stops.GET("", s.listStops)
		stops.GET("/:stopCode", s.getStop)
		stops.POST("", s.createStop)
		stops.PUT("/:stopCode", s.updateStop)
		stops.DELETE("/:stopCode", s.deactivateStop)
		stops.DELETE("/:stopCode/permanent", s.purgeStop)
	}

	marquesina := api.Group("/marquesina")
	{
		marquesina.GET("/latest", s.latestSensorDay)
		marquesina.GET("/analytics", s.sensorAnalytics)
		marquesina.GET("/range", s.sensorDayRange)
		marquesina.GET("/:date", s.sensorDayByDate)
	}

	alerts := api.Group("/alerts")
	{
		alerts.POST("/recompute", s.recomputeAlerts)
		alerts.GET("", s.listAlerts)
		alerts.PATCH("/:id/ack", s.acknowledgeAlert)
		alerts.PATCH("/:id/resolve", s.resolveAlert)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/templates", s.listReportTemplates)
		reports.GET("", s.listReports)
		reports.GET("/:id", s.getReport)
		reports.POST("/generate", s.generateReport)
	}

	integrations := api.Group("/integrations")
	{
		integrations.GET("/crtm/config", s.getCRTMConfig)
		integrations.PUT("/crtm/config", s.updateCRTMConfig)
		integrations.GET("/crtm/datasets", s.listExportDatasets)
		integrations.POST("/crtm/execute", s.executeExport)
		integrations.GET("/crtm/runs", s.listExportRuns)
		integrations.GET("/crtm/runs/:id", s.getExportRun)
		integrations.GET("/crtm/runs/:id/download", s.downloadExportRun)
	}

	return r
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.store.Ping(); err != nil {
		abortWithEncoding(c, http.StatusServiceUnavailable, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
