package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

func sensorLocation(c *gin.Context) string {
	location := c.Query("location")
	if location == "" {
		return ""
	}
	return ingest.ResolveStopCode(location, "")
}

// latestSensorDay returns the most recent processed day, across the whole
// catalog when no location is given.
func (s *Server) latestSensorDay(c *gin.Context) {
	day, err := s.store.GetLatestIoTDay(sensorLocation(c))
	if errors.Is(err, store.ErrIoTDayNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorSensorDayMissing)
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": day})
}

func (s *Server) sensorDayRange(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requieren parámetros from y to (YYYY-MM-DD)"))
		return
	}

	days, err := s.store.ListIoTDays(sensorLocation(c))
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	inRange := []schema.IoTDay{}
	for _, day := range days {
		if day.Meta.Date >= from && day.Meta.Date <= to {
			inRange = append(inRange, day)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    inRange,
		"count":   len(inRange),
	})
}

func (s *Server) sensorDayByDate(c *gin.Context) {
	date := c.Param("date")
	location := sensorLocation(c)

	if location != "" {
		day, err := s.store.GetIoTDay(location, date)
		if errors.Is(err, store.ErrIoTDayNotFound) {
			abortWithEncoding(c, http.StatusNotFound, errorSensorDayMissing)
			return
		}
		if err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": day})
		return
	}

	days, err := s.store.ListIoTDays("")
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	for i := range days {
		if days[i].Meta.Date == date {
			c.JSON(http.StatusOK, gin.H{"success": true, "data": days[i]})
			return
		}
	}
	abortWithEncoding(c, http.StatusNotFound, errorSensorDayMissing)
}

type sensorDailySummary struct {
	Date          string `json:"date"`
	TotalDetected *int   `json:"totalDetected"`
	PeakHour      string `json:"peakHour,omitempty"`
	PeakValue     *int   `json:"peakValue"`
	Deduplicated  *int   `json:"deduplicated"`
	AvgDwell      *int   `json:"avgDwell"`
	HasData       bool   `json:"hasData"`
}

type sensorKPIs struct {
	TotalPeriod   int    `json:"totalPeriod"`
	DailyAvg      int    `json:"dailyAvg"`
	PeakMax       int    `json:"peakMax"`
	PeakDate      string `json:"peakDate,omitempty"`
	PeakHour      string `json:"peakHour,omitempty"`
	PeakHourValue int    `json:"peakHourValue"`
	DaysInRange   int    `json:"daysInRange"`
	DaysWithData  int    `json:"daysWithData"`
	CoveragePct   int    `json:"coveragePct"`
}

// sensorAnalytics serves the analytic dashboard for one stop, either a
// single day with the full hourly detail or a date range with per-day
// rollups and coverage.
func (s *Server) sensorAnalytics(c *gin.Context) {
	location := sensorLocation(c)
	if location == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("el parámetro location es obligatorio"))
		return
	}

	if c.Query("mode") == "day" {
		s.sensorAnalyticsDay(c, location)
		return
	}
	s.sensorAnalyticsRange(c, location)
}

func (s *Server) sensorAnalyticsDay(c *gin.Context, location string) {
	date := c.Query("date")
	if date == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requiere date en modo día"))
		return
	}

	day, err := s.store.GetIoTDay(location, date)
	if errors.Is(err, store.ErrIoTDayNotFound) {
		// An empty day is still a valid answer for the dashboard.
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"mode":    "day",
			"kpis": sensorKPIs{
				PeakDate:    date,
				DaysInRange: 1,
			},
			"dailySummaries":  []sensorDailySummary{{Date: date}},
			"hourlyAggregate": []gin.H{},
			"dayDetail":       nil,
		})
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	totalDetected := day.Summary.TotalDetected
	peakHour := ""
	peakHourValue := 0
	hourly := make([]gin.H, 0, len(day.Hourly))
	for _, h := range day.Hourly {
		if h.TotalPersons > peakHourValue {
			peakHourValue = h.TotalPersons
			peakHour = h.Hour
		}
		hourly = append(hourly, gin.H{
			"hour":          h.Hour,
			"detected":      h.TotalPersons,
			"peopleIn":      h.PeopleIn,
			"peopleOut":     h.PeopleOut,
			"passby":        h.Passby,
			"deduplicated":  h.Deduplicated,
			"entryLot":      h.EntryLot,
			"outgoingBatch": h.OutgoingBatch,
		})
	}

	deduplicated := day.Summary.Deduplicated
	avgDwell := day.Summary.AvgDwellMinutes
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"mode":    "day",
		"kpis": sensorKPIs{
			TotalPeriod:   totalDetected,
			DailyAvg:      totalDetected,
			PeakMax:       totalDetected,
			PeakDate:      date,
			PeakHour:      peakHour,
			PeakHourValue: peakHourValue,
			DaysInRange:   1,
			DaysWithData:  1,
			CoveragePct:   100,
		},
		"dailySummaries": []sensorDailySummary{{
			Date:          date,
			TotalDetected: &totalDetected,
			PeakHour:      peakHour,
			PeakValue:     &peakHourValue,
			Deduplicated:  &deduplicated,
			AvgDwell:      &avgDwell,
			HasData:       true,
		}},
		"hourlyAggregate": hourly,
		"dayDetail":       day,
	})
}

func (s *Server) sensorAnalyticsRange(c *gin.Context, location string) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("se requieren from y to en modo rango"))
		return
	}

	start, errFrom := time.Parse("2006-01-02", from)
	end, errTo := time.Parse("2006-01-02", to)
	if errFrom != nil || errTo != nil || end.Before(start) {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			errors.New("rango de fechas inválido"))
		return
	}

	days, err := s.store.ListIoTDays(location)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	byDate := map[string]schema.IoTDay{}
	for _, day := range days {
		byDate[day.Meta.Date] = day
	}

	var (
		summaries     []sensorDailySummary
		kpis          sensorKPIs
		globalPeakVal int
	)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		day, ok := byDate[date]
		if !ok {
			summaries = append(summaries, sensorDailySummary{Date: date})
			continue
		}

		detected := day.Summary.TotalDetected
		kpis.DaysWithData++
		kpis.TotalPeriod += detected

		dayPeakHour := ""
		dayPeakValue := 0
		for _, h := range day.Hourly {
			if h.TotalPersons > dayPeakValue {
				dayPeakValue = h.TotalPersons
				dayPeakHour = h.Hour
			}
		}

		if detected > kpis.PeakMax {
			kpis.PeakMax = detected
			kpis.PeakDate = date
		}
		if dayPeakValue > globalPeakVal {
			globalPeakVal = dayPeakValue
			kpis.PeakHour = dayPeakHour
		}

		deduplicated := day.Summary.Deduplicated
		avgDwell := day.Summary.AvgDwellMinutes
		summaries = append(summaries, sensorDailySummary{
			Date:          date,
			TotalDetected: &detected,
			PeakHour:      dayPeakHour,
			PeakValue:     &dayPeakValue,
			Deduplicated:  &deduplicated,
			AvgDwell:      &avgDwell,
			HasData:       true,
		})
	}

	kpis.PeakHourValue = globalPeakVal
	kpis.DaysInRange = len(summaries)
	if kpis.DaysInRange > 0 {
		kpis.CoveragePct = int(float64(kpis.DaysWithData)/float64(kpis.DaysInRange)*100 + 0.5)
	}
	if kpis.DaysWithData > 0 {
		kpis.DailyAvg = int(float64(kpis.TotalPeriod)/float64(kpis.DaysWithData) + 0.5)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"mode":            "range",
		"kpis":            kpis,
		"dailySummaries":  summaries,
		"hourlyAggregate": nil,
		"dayDetail":       nil,
	})
}
