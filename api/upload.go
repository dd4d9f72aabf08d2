package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/store"
)

const maxUploadSize = 10 << 20

var allowedUploadExts = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

// formFile reads the "file" multipart part enforcing the extension and size
// limits. A false return means the request was already aborted.
func (s *Server) formFile(c *gin.Context) ([]byte, string, int64, bool) {
	header, err := c.FormFile("file")
	if err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorNoFile, err)
		return nil, "", 0, false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedUploadExts[ext] {
		abortWithEncoding(c, http.StatusBadRequest, errorUnsupportedFile)
		return nil, "", 0, false
	}
	if header.Size > maxUploadSize {
		abortWithEncoding(c, http.StatusBadRequest, errorFileTooLarge)
		return nil, "", 0, false
	}

	f, err := header.Open()
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return nil, "", 0, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return nil, "", 0, false
	}
	return data, header.Filename, header.Size, true
}

// uploadFile ingests one workbook, auto-detecting the format: IoT sensor
// exports are processed hour by hour and bridged into the canonical record
// collection, anything else goes through the classic validation pipeline.
func (s *Server) uploadFile(c *gin.Context) {
	data, filename, size, ok := s.formFile(c)
	if !ok {
		return
	}

	if ingest.IsIoTWorkbook(data) {
		s.ingestSensorWorkbook(c, data, filename)
		return
	}
	s.ingestClassicWorkbook(c, data, filename, size)
}

func (s *Server) ingestSensorWorkbook(c *gin.Context, data []byte, filename string) {
	day, err := ingest.ProcessIoTSheet(data, filename, "es")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"type":    "marquesina",
			"error":   err.Error(),
		})
		return
	}

	stopCode := ingest.ResolveStopCode(day.Meta.Location, "")

	action := "created"
	if _, err := s.store.GetIoTDay(stopCode, day.Meta.Date); err == nil {
		action = "updated"
	}

	if err := s.store.SaveIoTDay(stopCode, *day); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	// Auto-register the stop so the data shows up in the dashboard. A
	// failure here must not block the upload.
	if _, err := s.store.GetStop(stopCode); errors.Is(err, store.ErrStopNotFound) {
		createErr := s.store.CreateStop(schema.Stop{
			StopCode: stopCode,
			Name:     day.Meta.Location,
			Location: day.Meta.Location,
			Status:   schema.StopStatusActive,
			Notes:    "Auto-creado desde Excel IoT de marquesina",
		})
		if createErr != nil && !errors.Is(createErr, store.ErrStopExists) {
			log.WithField("prefix", "api").
				WithField("stop_code", stopCode).
				WithError(createErr).Warn("auto-create stop")
		}
	}

	rec := ingest.BridgeRecord(day, stopCode)
	if _, err := s.store.SaveRecord(rec); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"type":    "marquesina",
		"message": fmt.Sprintf("Datos IoT del %s (%s) procesados correctamente", day.Meta.Date, day.Meta.Location),
		"data": gin.H{
			"location":           day.Meta.Location,
			"date":               day.Meta.Date,
			"activeHours":        day.Meta.ActiveHours,
			"totalDetected":      day.Summary.TotalDetected,
			"identificationRate": day.Summary.IdentificationRate,
			"peakHour":           day.Summary.PeakHour,
			"summary":            day.Summary,
			"gender":             day.Gender,
			"age":                day.Age,
			"action":             action,
		},
	})
}

func (s *Server) ingestClassicWorkbook(c *gin.Context, data []byte, filename string, size int64) {
	uploadedBy := c.GetHeader("X-User-ID")
	if uploadedBy == "" {
		uploadedBy = "anonymous"
	}

	session, err := s.store.CreateUpload(schema.Upload{
		Filename:   filename,
		Size:       size,
		UploadedBy: uploadedBy,
	})
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	parsed, err := ingest.ParseClassicSheet(data, filename)
	if err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorCannotParseFile, err)
		return
	}

	if len(parsed.Records) == 0 {
		session.Status = schema.UploadStatusRejected
		session.Stats = schema.UploadStats{}
		if err := s.store.UpdateUpload(*session); err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    errorEmptyFile.Message,
			"uploadId": session.ID,
		})
		return
	}

	validationErrors := s.makeValidationErrors(parsed.Records)
	if err := s.store.SaveRowErrors(session.ID, validationErrors); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	if len(parsed.Warnings) > 0 {
		if err := s.store.SaveRowErrors(session.ID, parsed.Warnings); err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
	}

	errorRows := map[int]bool{}
	for _, rowErr := range validationErrors {
		errorRows[rowErr.Row] = true
	}

	var (
		inserted      int
		updated       int
		processErrors []schema.RowError
	)
	for _, rec := range parsed.Records {
		if errorRows[rec.RowIndex] {
			continue
		}

		rec.StopCode = ingest.ResolveStopCode(rec.StopCode, rec.Entity)
		rec.UploadID = session.ID
		rec.UploadedFile = filename

		action, err := s.store.SaveRecord(rec)
		if err != nil {
			processErrors = append(processErrors, schema.RowError{
				Row:      rec.RowIndex,
				Column:   "Procesamiento",
				Message:  err.Error(),
				Severity: schema.RowErrorSeverityError,
			})
			continue
		}
		if action == store.ActionUpdated {
			updated++
		} else {
			inserted++
		}
	}

	if len(processErrors) > 0 {
		if err := s.store.SaveRowErrors(session.ID, processErrors); err != nil {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
	}

	rejected := len(validationErrors) + len(processErrors)
	session.Status = schema.UploadStatusProcessed
	if rejected > 0 {
		session.Status = schema.UploadStatusProcessedWithErrors
	}
	session.Stats = schema.UploadStats{
		TotalRows: parsed.TotalRows,
		Inserted:  inserted,
		Updated:   updated,
		Rejected:  rejected,
		Warnings:  len(parsed.UnmappedHeaders),
	}
	session.UnmappedHeaders = parsed.UnmappedHeaders
	if err := s.store.UpdateUpload(*session); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("Se procesaron %d filas del archivo", parsed.TotalRows),
		"data": gin.H{
			"uploadId":        session.ID,
			"totalRows":       parsed.TotalRows,
			"savedRecords":    inserted + updated,
			"inserted":        inserted,
			"updated":         updated,
			"errors":          rejected,
			"unmappedHeaders": parsed.UnmappedHeaders,
		},
	})
}

// makeValidationErrors collects the blocking problems of every parsed row:
// the record-level validation messages plus a catalog membership check on
// the resolved stop code.
func (s *Server) makeValidationErrors(records []schema.Record) []schema.RowError {
	var rowErrors []schema.RowError
	for _, rec := range records {
		for _, message := range ingest.ValidateRecord(rec) {
			column := "Métricas"
			switch {
			case strings.Contains(message, "Fecha"):
				column = "Fecha"
			case strings.Contains(message, "stop_code"):
				column = "Código Marquesina"
			}
			rowErrors = append(rowErrors, schema.RowError{
				Row:      rec.RowIndex,
				Column:   column,
				Message:  message,
				Severity: schema.RowErrorSeverityError,
			})
		}

		code := ingest.ResolveStopCode(rec.StopCode, rec.Entity)
		if !s.stopRegistered(code) {
			rowErrors = append(rowErrors, schema.RowError{
				Row:      rec.RowIndex,
				Column:   "Código Marquesina",
				Value:    code,
				Message:  fmt.Sprintf("La marquesina %s no está dada de alta en el catálogo", code),
				Severity: schema.RowErrorSeverityError,
			})
		}
	}
	return rowErrors
}

func (s *Server) stopRegistered(code string) bool {
	stop, err := s.store.GetStop(code)
	return err == nil && stop.Status != schema.StopStatusInactive
}

// previewUpload parses a classic workbook without persisting anything.
func (s *Server) previewUpload(c *gin.Context) {
	data, filename, _, ok := s.formFile(c)
	if !ok {
		return
	}

	parsed, err := ingest.ParseClassicSheet(data, filename)
	if err != nil {
		abortWithEncoding(c, http.StatusBadRequest, errorCannotParseFile, err)
		return
	}

	preview := parsed.Records
	if len(preview) > 5 {
		preview = preview[:5]
	}

	seen := map[string]bool{}
	allStops := []string{}
	for _, rec := range parsed.Records {
		code := ingest.ResolveStopCode(rec.StopCode, rec.Entity)
		if !seen[code] {
			seen[code] = true
			allStops = append(allStops, code)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"totalRows":       parsed.TotalRows,
			"records":         preview,
			"unmappedHeaders": parsed.UnmappedHeaders,
			"allStops":        allStops,
		},
	})
}

// checkDuplicate reports whether a sensor day already exists for the given
// stop and date.
func (s *Server) checkDuplicate(c *gin.Context) {
	stopCode := c.Query("stopCode")
	date := c.Query("date")
	if stopCode == "" || date == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			fmt.Errorf("stopCode y date son obligatorios"))
		return
	}

	code := ingest.ResolveStopCode(stopCode, "")
	_, err := s.store.GetIoTDay(code, date)
	if err != nil && !errors.Is(err, store.ErrIoTDayNotFound) {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"exists":   err == nil,
		"stopCode": code,
		"date":     date,
	})
}

// manualUpload ingests an IoT workbook under an operator-chosen stop and
// date instead of the auto-detected ones. The stop must already be in the
// catalog; an existing day is refused unless force is set, in which case the
// prior bridged records are replaced.
func (s *Server) manualUpload(c *gin.Context) {
	data, filename, _, ok := s.formFile(c)
	if !ok {
		return
	}

	stopCode := c.PostForm("stopCode")
	date := c.PostForm("date")
	force := c.PostForm("force") == "true"

	if stopCode == "" || date == "" {
		abortWithEncoding(c, http.StatusBadRequest, errorInvalidParameters,
			fmt.Errorf("stopCode y date son obligatorios"))
		return
	}

	code := ingest.ResolveStopCode(stopCode, "")
	stop, err := s.store.GetStop(code)
	if errors.Is(err, store.ErrStopNotFound) {
		abortWithEncoding(c, http.StatusNotFound, errorStopNotRegistered,
			fmt.Errorf("la marquesina %s no está dada de alta en el catálogo", code))
		return
	}
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	if !force {
		_, err := s.store.GetIoTDay(code, date)
		if err == nil {
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{
				"success":   false,
				"duplicate": true,
				"error":     fmt.Sprintf("Ya existe un registro para %s en la fecha %s", code, date),
				"stopCode":  code,
				"date":      date,
			})
			return
		}
		if !errors.Is(err, store.ErrIoTDayNotFound) {
			abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
			return
		}
	}

	day, err := ingest.ProcessIoTSheet(data, filename, "es")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"type":    "marquesina",
			"error":   err.Error(),
		})
		return
	}

	// Operator input wins over whatever the sheet says about itself.
	day.Meta.Location = code
	day.Meta.Date = date

	action := "created"
	if _, err := s.store.GetIoTDay(code, date); err == nil {
		action = "updated"
	}

	if err := s.store.SaveIoTDay(code, *day); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	if force {
		prior, err := s.store.ListRecords(schema.RecordFilter{
			StopCode:  code,
			StartDate: date,
			EndDate:   date,
		})
		if err != nil {
			log.WithField("prefix", "api").WithField("stop_code", code).
				WithError(err).Warn("list prior records for replace")
		}
		for _, rec := range prior {
			if err := s.store.DeleteRecord(rec.ID); err != nil {
				log.WithField("prefix", "api").WithField("record_id", rec.ID).
					WithError(err).Warn("delete prior record")
			}
		}
	}

	rec := ingest.BridgeRecord(day, code)
	if stop.Name != "" {
		rec.Entity = stop.Name
	}
	if _, err := s.store.SaveRecord(rec); err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}

	if force {
		action = "replaced"
	}

	displayName := stop.Name
	if displayName == "" {
		displayName = code
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"type":    "marquesina",
		"message": fmt.Sprintf("Excel procesado para %s (%s)", displayName, date),
		"data": gin.H{
			"location":           code,
			"stopName":           stop.Name,
			"date":               date,
			"activeHours":        day.Meta.ActiveHours,
			"totalDetected":      day.Summary.TotalDetected,
			"identificationRate": day.Summary.IdentificationRate,
			"peakHour":           day.Summary.PeakHour,
			"action":             action,
		},
	})
}

func (s *Server) uploadErrors(c *gin.Context) {
	rowErrors, err := s.store.ListRowErrors(c.Param("uploadId"))
	if err != nil {
		abortWithEncoding(c, http.StatusInternalServerError, errorInternalServer, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    rowErrors,
		"count":   len(rowErrors),
	})
}
