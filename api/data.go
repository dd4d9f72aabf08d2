package api

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/aggregate"
	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

const defaultDashboardLimit = 90

// stopOverviews merges the stop catalog with record coverage. Stops seen
// only in records (never registered) are synthesized as active entries so
// uploaded data is always visible.
func (s *Server) stopOverviews() ([]schema.StopOverview, error) {
	stops, err := s.store.ListStops()
	if err != nil {
		return nil, err
	}
	records, err := s.store.ListRecords(schema.RecordFilter{})
	if err != nil {
		return nil, err
	}

	byCode := map[string]*schema.StopOverview{}
	for _, stop := range stops {
		entry := schema.StopOverview{Stop: stop}
		byCode[stop.StopCode] = &entry
	}

	for _, rec := range records {
		code := ingest.ResolveStopCode(rec.StopCode, rec.Entity)
		entry, ok := byCode[code]
		if !ok {
			name := rec.Entity
			if name == "" {
				name = code
			}
			entry = &schema.StopOverview{Stop: schema.Stop{
				StopCode: code,
				Name:     name,
				Status:   schema.StopStatusActive,
				Photos:   []string{},
			}}
			byCode[code] = entry
		}
		entry.TotalRecords++
		if rec.Date > entry.LatestDate {
			entry.LatestDate = rec.Date
		}
	}

	overviews := make([]schema.StopOverview, 0, len(byCode))
	for _, entry := range byCode {
		overviews = append(overviews, *entry)
	}
	sort.Slice(overviews, func(i, j int) bool {
		return overviews[i].StopCode < overviews[j].StopCode
	})
	return overviews, nil
}

func (s *Server) listEntities(c *gin.Context) {
	overviews, err := s.stopOverviews()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	entities := []string{}
	for _, stop := range overviews {
		if stop.Status != schema.StopStatusInactive {
			entities = append(entities, stop.StopCode)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": entities})
}

func (s *Server) listStopOverviews(c *gin.Context) {
	overviews, err := s.stopOverviews()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": overviews})
}

func recordFilterFromQuery(c *gin.Context) schema.RecordFilter {
	filter := schema.RecordFilter{
		Entity:    c.Query("entity"),
		StopCode:  c.Query("stopCode"),
		StartDate: c.Query("startDate"),
		EndDate:   c.Query("endDate"),
	}
	if codes := c.Query("stopCodes"); codes != "" {
		filter.StopCodes = splitCSV(codes)
	}
	if limit := c.Query("limit"); limit != "" {
		if n, err := strconv.ParseInt(limit, 10, 64); err == nil {
			filter.Limit = n
		}
	}
	return filter
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := []string{}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) listRecords(c *gin.Context) {
	records, err := s.store.ListRecords(recordFilterFromQuery(c))
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    records,
		"count":   len(records),
	})
}

func (s *Server) latestRecord(c *gin.Context) {
	stopCode := ingest.ResolveStopCode(c.Param("stopCode"), "")
	rec, err := s.store.GetLatestRecord(stopCode)
	if errors.Is(err, store.ErrRecordNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorRecordNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": rec})
}

// summarizeStop runs the read-side fold for one stop over a date range.
func (s *Server) summarizeStop(stopCode, startDate, endDate string) (*schema.Summary, error) {
	records, err := s.store.ListRecords(schema.RecordFilter{
		StopCode:  stopCode,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}
	return aggregate.Summarize(records, stopCode, startDate, endDate), nil
}

func (s *Server) recordSummary(c *gin.Context) {
	scope := c.Query("stopCode")
	if scope == "" {
		scope = c.Query("entity")
	}
	if scope == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requiere el parámetro stopCode"))
		return
	}

	summary, err := s.summarizeStop(ingest.ResolveStopCode(scope, ""), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	if summary == nil {
		abortWithEncoding(c, http.StatusNotFound, errorSummaryNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

func (s *Server) deleteRecord(c *gin.Context) {
	err := s.store.DeleteRecord(c.Param("id"))
	if errors.Is(err, store.ErrRecordNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorRecordNotFound)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Registro eliminado"})
}

// dashboardCards builds one coverage card per active stop.
func (s *Server) dashboardCards(c *gin.Context) {
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")

	stops, err := s.store.ListStops()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	cards := []gin.H{}
	for _, stop := range stops {
		if stop.Status == schema.StopStatusInactive {
			continue
		}

		records, err := s.store.ListRecords(schema.RecordFilter{
			StopCode:  stop.StopCode,
			StartDate: startDate,
			EndDate:   endDate,
		})
		if err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
		summary := aggregate.Summarize(records, stop.StopCode, startDate, endDate)

		latest, err := s.store.GetLatestRecord(stop.StopCode)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}

		uniqueDates := map[string]bool{}
		for _, rec := range records {
			uniqueDates[rec.Date] = true
		}
		dates := make([]string, 0, len(uniqueDates))
		for date := range uniqueDates {
			dates = append(dates, date)
		}
		sort.Strings(dates)

		entity := stop.Name
		if entity == "" {
			entity = stop.StopCode
		}

		card := gin.H{
			"stopCode":  stop.StopCode,
			"entity":    entity,
			"daysCount": len(dates),
		}
		if latest != nil {
			card["latestDate"] = latest.Date
		}
		if len(dates) > 0 {
			card["firstDate"] = dates[0]
			card["lastDate"] = dates[len(dates)-1]
		}
		if summary != nil {
			card["totalRecords"] = summary.TotalRecords
			card["totals"] = summary.Totals
			card["gender"] = summary.Gender
			card["age"] = summary.Age
			card["avgResidenceTime"] = summary.AvgResidenceTime
			card["peakHour"] = summary.PeakHour
			card["trafficTotals"] = summary.TrafficTotals
		} else {
			card["totalRecords"] = 0
			card["totals"] = schema.Totals{}
			card["gender"] = schema.GenderBreakdown{}
			card["age"] = schema.AgeBreakdown{}
			card["avgResidenceTime"] = "00:00:00"
		}
		cards = append(cards, card)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": cards})
}

func dashboardLimit(c *gin.Context) int64 {
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultDashboardLimit
}

// dashboardAggregate folds any number of stops into one combined view with
// per-date rollups.
func (s *Server) dashboardAggregate(c *gin.Context) {
	raw := c.Query("stopCodes")
	if raw == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requiere stopCodes (CSV)"))
		return
	}

	codes := []string{}
	for _, code := range splitCSV(raw) {
		codes = append(codes, ingest.ResolveStopCode(code, ""))
	}

	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	limit := dashboardLimit(c)

	records, err := s.store.ListRecords(schema.RecordFilter{
		StopCodes: codes,
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     limit * int64(len(codes)),
	})
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	summary := aggregate.Summarize(records, strings.Join(codes, ", "), startDate, endDate)
	byDate := aggregate.ByDate(records)
	if int64(len(byDate)) > limit {
		byDate = byDate[:limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stopCodes":    codes,
			"summary":      summary,
			"records":      byDate,
			"totalRecords": len(records),
		},
	})
}

// dashboardCompare returns each requested stop side by side.
func (s *Server) dashboardCompare(c *gin.Context) {
	raw := c.Query("stopCodes")
	if raw == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requiere stopCodes (CSV)"))
		return
	}

	startDate := c.Query("startDate")
	endDate := c.Query("endDate")
	limit := dashboardLimit(c)

	codes := []string{}
	comparisons := []gin.H{}
	for _, code := range splitCSV(raw) {
		code = ingest.ResolveStopCode(code, "")
		codes = append(codes, code)

		records, err := s.store.ListRecords(schema.RecordFilter{
			StopCode:  code,
			StartDate: startDate,
			EndDate:   endDate,
			Limit:     limit,
		})
		if err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}

		latest, err := s.store.GetLatestRecord(code)
		if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}

		summary, err := s.summarizeStop(code, startDate, endDate)
		if err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}

		comparisons = append(comparisons, gin.H{
			"stopCode": code,
			"latest":   latest,
			"summary":  summary,
			"records":  records,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stopCodes":   codes,
			"comparisons": comparisons,
		},
	})
}

func (s *Server) dashboardByStop(c *gin.Context) {
	code := ingest.ResolveStopCode(c.Param("stopCode"), "")
	startDate := c.Query("startDate")
	endDate := c.Query("endDate")

	records, err := s.store.ListRecords(schema.RecordFilter{
		StopCode:  code,
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     dashboardLimit(c),
	})
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	summary, err := s.summarizeStop(code, startDate, endDate)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	if summary == nil && len(records) == 0 {
		abortWithEncoding(c, http.StatusNotFound, errorSummaryNotFound)
		return
	}

	latest, err := s.store.GetLatestRecord(code)
	if err != nil && !errors.Is(err, store.ErrRecordNotFound) {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	entity := code
	if summary != nil && len(records) > 0 && records[0].Entity != "" {
		entity = records[0].Entity
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"stopCode":     code,
			"entity":       entity,
			"latest":       latest,
			"summary":      summary,
			"records":      records,
			"totalRecords": len(records),
		},
	})
}
