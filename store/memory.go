package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/twetter99/afluencia360/schema"
)

// memoryStore is a full in-process implementation of Store. It backs unit
// tests and local development without a mongod, with the same upsert and
// sentinel semantics as the mongo implementation.
type memoryStore struct {
	mu sync.RWMutex

	records    []schema.Record
	iotDays    map[string]schema.IoTDay // key stopCode::date
	stops      map[string]schema.Stop
	alerts     map[string]schema.Alert // key alert.Key
	uploads    map[string]schema.Upload
	rowErrors  map[string][]schema.RowError
	reports    map[string]schema.Report
	templates  map[string]schema.ReportTemplate
	crtmConfig *schema.CRTMConfig
	exportRuns []schema.ExportRun
}

func NewMemoryStore() Store {
	return &memoryStore{
		iotDays:   map[string]schema.IoTDay{},
		stops:     map[string]schema.Stop{},
		alerts:    map[string]schema.Alert{},
		uploads:   map[string]schema.Upload{},
		rowErrors: map[string][]schema.RowError{},
		reports:   map[string]schema.Report{},
		templates: map[string]schema.ReportTemplate{},
	}
}

func (s *memoryStore) Ping() error { return nil }
func (s *memoryStore) Close()      {}

func nowIso() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// --- records ---

func (s *memoryStore) SaveRecord(rec schema.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.UploadedAt == "" {
		rec.UploadedAt = nowIso()
	}
	for i := range s.records {
		if s.records[i].StopCode == rec.StopCode && s.records[i].Date == rec.Date {
			rec.ID = s.records[i].ID
			s.records[i] = rec
			return ActionUpdated, nil
		}
	}
	rec.ID = uuid.New().String()
	s.records = append(s.records, rec)
	return ActionInserted, nil
}

func (s *memoryStore) GetRecord(stopCode, date string) (*schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.records {
		if s.records[i].StopCode == stopCode && s.records[i].Date == date {
			rec := s.records[i]
			return &rec, nil
		}
	}
	return nil, ErrRecordNotFound
}

func (s *memoryStore) GetLatestRecord(stopCode string) (*schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *schema.Record
	for i := range s.records {
		if s.records[i].StopCode != stopCode {
			continue
		}
		if latest == nil || s.records[i].Date > latest.Date {
			latest = &s.records[i]
		}
	}
	if latest == nil {
		return nil, ErrRecordNotFound
	}
	rec := *latest
	return &rec, nil
}

func (s *memoryStore) ListRecords(filter schema.RecordFilter) ([]schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inScope := func(rec schema.Record) bool {
		if filter.StopCode != "" && rec.StopCode != filter.StopCode {
			return false
		}
		if len(filter.StopCodes) > 0 {
			found := false
			for _, code := range filter.StopCodes {
				if rec.StopCode == code {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		if filter.Entity != "" && rec.Entity != filter.Entity {
			return false
		}
		if filter.StartDate != "" && rec.Date < filter.StartDate {
			return false
		}
		if filter.EndDate != "" && rec.Date > filter.EndDate {
			return false
		}
		return true
	}

	matched := []schema.Record{}
	for _, rec := range s.records {
		if inScope(rec) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Date > matched[j].Date })
	if filter.Limit > 0 && int64(len(matched)) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (s *memoryStore) DeleteRecord(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records = append(s.records[:i], s.records[i+1:]...)
			return nil
		}
	}
	return ErrRecordNotFound
}

func (s *memoryStore) DeleteRecordsByStop(stopCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.StopCode == stopCode {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

// --- sensor days ---

func iotDayKey(stopCode, date string) string {
	return stopCode + "::" + date
}

func (s *memoryStore) SaveIoTDay(stopCode string, day schema.IoTDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.iotDays[iotDayKey(stopCode, day.Meta.Date)] = day
	return nil
}

func (s *memoryStore) GetIoTDay(stopCode, date string) (*schema.IoTDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day, ok := s.iotDays[iotDayKey(stopCode, date)]
	if !ok {
		return nil, ErrIoTDayNotFound
	}
	return &day, nil
}

func (s *memoryStore) GetLatestIoTDay(stopCode string) (*schema.IoTDay, error) {
	days, err := s.ListIoTDays(stopCode)
	if err != nil || len(days) == 0 {
		return nil, ErrIoTDayNotFound
	}
	return &days[0], nil
}

func (s *memoryStore) ListIoTDays(stopCode string) ([]schema.IoTDay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	days := []schema.IoTDay{}
	prefix := stopCode + "::"
	for key, day := range s.iotDays {
		if stopCode == "" || strings.HasPrefix(key, prefix) {
			days = append(days, day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Meta.Date > days[j].Meta.Date })
	return days, nil
}

func (s *memoryStore) DeleteIoTDaysByStop(stopCode string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	prefix := stopCode + "::"
	for key := range s.iotDays {
		if strings.HasPrefix(key, prefix) {
			delete(s.iotDays, key)
			deleted++
		}
	}
	return deleted, nil
}

// --- stop catalog ---

func (s *memoryStore) CreateStop(stop schema.Stop) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stops[stop.StopCode]; ok {
		return ErrStopExists
	}
	if stop.Status == "" {
		stop.Status = schema.StopStatusActive
	}
	if stop.CreatedAt == "" {
		stop.CreatedAt = nowIso()
	}
	if stop.Photos == nil {
		stop.Photos = []string{}
	}
	s.stops[stop.StopCode] = stop
	return nil
}

func (s *memoryStore) GetStop(stopCode string) (*schema.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stop, ok := s.stops[stopCode]
	if !ok {
		return nil, ErrStopNotFound
	}
	return &stop, nil
}

func (s *memoryStore) ListStops() ([]schema.Stop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stops := make([]schema.Stop, 0, len(s.stops))
	for _, stop := range s.stops {
		stops = append(stops, stop)
	}
	sort.Slice(stops, func(i, j int) bool { return stops[i].StopCode < stops[j].StopCode })
	return stops, nil
}

func (s *memoryStore) UpdateStop(stop schema.Stop) (*schema.Stop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stops[stop.StopCode]; !ok {
		return nil, ErrStopNotFound
	}
	stop.UpdatedAt = nowIso()
	s.stops[stop.StopCode] = stop
	return &stop, nil
}

func (s *memoryStore) DeactivateStop(stopCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stop, ok := s.stops[stopCode]
	if !ok {
		return ErrStopNotFound
	}
	stop.Status = schema.StopStatusInactive
	stop.UpdatedAt = nowIso()
	s.stops[stopCode] = stop
	return nil
}

func (s *memoryStore) DeleteStop(stopCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stops[stopCode]; !ok {
		return ErrStopNotFound
	}
	delete(s.stops, stopCode)
	return nil
}

// --- alerts ---

func (s *memoryStore) ListAlerts() ([]schema.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alerts := make([]schema.Alert, 0, len(s.alerts))
	for _, alert := range s.alerts {
		alerts = append(alerts, alert)
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].Key < alerts[j].Key })
	return alerts, nil
}

func (s *memoryStore) GetAlert(id string) (*schema.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, alert := range s.alerts {
		if alert.ID == id {
			found := alert
			return &found, nil
		}
	}
	return nil, ErrAlertNotFound
}

func (s *memoryStore) SaveAlert(alert schema.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.alerts[alert.Key]; ok {
		alert.ID = existing.ID
	}
	s.alerts[alert.Key] = alert
	return nil
}

func (s *memoryStore) AcknowledgeAlert(id, user string) (*schema.Alert, error) {
	return s.transitionAlert(id, func(alert *schema.Alert, at string) {
		alert.Status = schema.AlertStatusAck
		alert.AckBy = user
		alert.AckAt = at
	})
}

func (s *memoryStore) ResolveAlert(id, user string) (*schema.Alert, error) {
	return s.transitionAlert(id, func(alert *schema.Alert, at string) {
		alert.Status = schema.AlertStatusResolved
		alert.ResolvedBy = user
		alert.ResolvedAt = at
	})
}

func (s *memoryStore) transitionAlert(id string, apply func(*schema.Alert, string)) (*schema.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, alert := range s.alerts {
		if alert.ID != id {
			continue
		}
		at := nowIso()
		apply(&alert, at)
		if alert.LastSeenAt == "" {
			alert.LastSeenAt = at
		}
		s.alerts[key] = alert
		return &alert, nil
	}
	return nil, ErrAlertNotFound
}

// --- uploads ---

func (s *memoryStore) CreateUpload(upload schema.Upload) (*schema.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if upload.ID == "" {
		upload.ID = uuid.New().String()
	}
	if upload.UploadedAt == "" {
		upload.UploadedAt = nowIso()
	}
	if upload.Status == "" {
		upload.Status = schema.UploadStatusUploaded
	}
	s.uploads[upload.ID] = upload
	return &upload, nil
}

func (s *memoryStore) UpdateUpload(upload schema.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[upload.ID]; !ok {
		return ErrUploadNotFound
	}
	upload.UpdatedAt = nowIso()
	s.uploads[upload.ID] = upload
	return nil
}

func (s *memoryStore) GetUpload(id string) (*schema.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	upload, ok := s.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return &upload, nil
}

func (s *memoryStore) ListUploads(limit int64) ([]schema.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	uploads := make([]schema.Upload, 0, len(s.uploads))
	for _, upload := range s.uploads {
		uploads = append(uploads, upload)
	}
	sort.Slice(uploads, func(i, j int) bool { return uploads[i].UploadedAt > uploads[j].UploadedAt })
	if limit > 0 && int64(len(uploads)) > limit {
		uploads = uploads[:limit]
	}
	return uploads, nil
}

func (s *memoryStore) SaveRowErrors(uploadID string, rowErrors []schema.RowError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rowError := range rowErrors {
		if rowError.ID == "" {
			rowError.ID = uuid.New().String()
		}
		rowError.UploadID = uploadID
		s.rowErrors[uploadID] = append(s.rowErrors[uploadID], rowError)
	}
	return nil
}

func (s *memoryStore) ListRowErrors(uploadID string) ([]schema.RowError, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rowErrors := append([]schema.RowError{}, s.rowErrors[uploadID]...)
	sort.Slice(rowErrors, func(i, j int) bool { return rowErrors[i].Row < rowErrors[j].Row })
	return rowErrors, nil
}

// --- reports ---

func (s *memoryStore) SaveReport(report schema.Report) (*schema.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	s.reports[report.ID] = report
	return &report, nil
}

func (s *memoryStore) GetReport(id string) (*schema.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return &report, nil
}

func (s *memoryStore) ListReports(limit int64) ([]schema.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reports := make([]schema.Report, 0, len(s.reports))
	for _, report := range s.reports {
		reports = append(reports, report)
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].GeneratedAt > reports[j].GeneratedAt })
	if limit > 0 && int64(len(reports)) > limit {
		reports = reports[:limit]
	}
	return reports, nil
}

func (s *memoryStore) DeleteReport(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *memoryStore) SeedReportTemplates(templates []schema.ReportTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tpl := range templates {
		if _, ok := s.templates[tpl.ID]; !ok {
			s.templates[tpl.ID] = tpl
		}
	}
	return nil
}

func (s *memoryStore) ListReportTemplates() ([]schema.ReportTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	templates := make([]schema.ReportTemplate, 0, len(s.templates))
	for _, tpl := range s.templates {
		templates = append(templates, tpl)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates, nil
}

// --- integrations ---

func (s *memoryStore) GetCRTMConfig(defaults schema.CRTMConfig) (*schema.CRTMConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.crtmConfig == nil {
		seeded := defaults
		s.crtmConfig = &seeded
	}
	config := *s.crtmConfig
	return &config, nil
}

func (s *memoryStore) UpdateCRTMConfig(config schema.CRTMConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.crtmConfig = &config
	return nil
}

func (s *memoryStore) SaveExportRun(run schema.ExportRun) (*schema.ExportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	s.exportRuns = append(s.exportRuns, run)
	return &run, nil
}

func (s *memoryStore) GetExportRun(id string) (*schema.ExportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.exportRuns {
		if s.exportRuns[i].ID == id {
			run := s.exportRuns[i]
			return &run, nil
		}
	}
	return nil, ErrExportRunNotFound
}

func (s *memoryStore) ListExportRuns(limit int64) ([]schema.ExportRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := append([]schema.ExportRun{}, s.exportRuns...)
	sort.Slice(runs, func(i, j int) bool { return runs[i].CreatedAt > runs[j].CreatedAt })
	if limit > 0 && int64(len(runs)) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
