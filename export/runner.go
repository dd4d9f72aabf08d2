package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/twetter99/afluencia360/schema"
)

// exportRecordLimit caps one export query.
const exportRecordLimit = 200000

var ErrUnknownDataset = fmt.Errorf("unknown dataset")

type RecordSource interface {
	ListRecords(filter schema.RecordFilter) ([]schema.Record, error)
}

type AlertSource interface {
	ListAlerts() ([]schema.Alert, error)
}

// RunStore persists export runs and holds the connector configuration.
type RunStore interface {
	GetCRTMConfig(defaults schema.CRTMConfig) (*schema.CRTMConfig, error)
	SaveExportRun(run schema.ExportRun) (*schema.ExportRun, error)
}

// Deliverer pushes a finished payload to the configured destination. A nil
// deliverer leaves runs stored for manual download.
type Deliverer interface {
	Deliver(ctx context.Context, run schema.ExportRun) error
}

// Runner executes dataset exports: it snapshots the connector config,
// builds the payload, persists the run and optionally delivers it.
type Runner struct {
	records   RecordSource
	alerts    AlertSource
	store     RunStore
	deliverer Deliverer
	now       func() time.Time
}

func NewRunner(records RecordSource, alerts AlertSource, store RunStore, deliverer Deliverer) *Runner {
	return &Runner{
		records:   records,
		alerts:    alerts,
		store:     store,
		deliverer: deliverer,
		now:       time.Now,
	}
}

// ExecuteParams selects the dataset and the period preset. RangePreset is
// one of "yesterday" (default), "last7d" or "custom".
type ExecuteParams struct {
	DatasetID   string
	RangePreset string
	StartDate   string
	EndDate     string
	Retry       bool
	RequestedBy string
}

func (r *Runner) resolveRange(params ExecuteParams) schema.Period {
	today := r.now().UTC().Format("2006-01-02")
	switch params.RangePreset {
	case "last7d":
		return schema.Period{StartDate: shiftDate(today, -6), EndDate: today}
	case "custom":
		if params.StartDate != "" && params.EndDate != "" {
			return schema.Period{StartDate: params.StartDate, EndDate: params.EndDate}
		}
	}
	yesterday := shiftDate(today, -1)
	return schema.Period{StartDate: yesterday, EndDate: yesterday}
}

// Execute runs one export. Build failures are recorded as an ERROR run
// rather than returned, so every attempt leaves an auditable trace; only
// config or persistence failures surface as errors.
func (r *Runner) Execute(ctx context.Context, params ExecuteParams) (*schema.ExportRun, error) {
	datasetID := params.DatasetID
	if datasetID == "" {
		datasetID = "afluencia_daily"
	}
	dataset := DatasetByID(datasetID)
	if dataset == nil {
		return nil, ErrUnknownDataset
	}

	config, err := r.store.GetCRTMConfig(DefaultConfig())
	if err != nil {
		return nil, err
	}

	period := r.resolveRange(params)
	format := strings.ToUpper(config.Format)
	if format == "" {
		format = "CSV"
	}

	status := schema.ExportRunStatusOK
	detail := "Exportación completada"
	payload := ""
	recordsCount := 0

	switch {
	case dataset.Roadmap:
		status = schema.ExportRunStatusError
		detail = "Dataset en roadmap, aún no disponible en este entorno"
	case datasetID == "afluencia_daily":
		records, err := r.records.ListRecords(schema.RecordFilter{
			StartDate: period.StartDate,
			EndDate:   period.EndDate,
			Limit:     exportRecordLimit,
		})
		if err != nil {
			status = schema.ExportRunStatusError
			detail = err.Error()
			break
		}
		rows := BuildDailyRows(records, config.StopCodes)
		recordsCount = len(rows)
		if format == "JSON" {
			payload = rowsJSON(rows)
		} else {
			payload = dailyRowsCSV(rows)
		}
	case datasetID == "alerts":
		alerts, err := r.alerts.ListAlerts()
		if err != nil {
			status = schema.ExportRunStatusError
			detail = err.Error()
			break
		}
		inPeriod := make([]schema.Alert, 0, len(alerts))
		for _, alert := range alerts {
			if alertInPeriod(alert, period.StartDate, period.EndDate) {
				inPeriod = append(inPeriod, alert)
			}
		}
		rows := BuildAlertRows(inPeriod)
		recordsCount = len(rows)
		if format == "JSON" {
			payload = rowsJSON(rows)
		} else {
			payload = alertRowsCSV(rows)
		}
	}

	checksum := sha256.Sum256([]byte(payload))
	extension := "csv"
	if format == "JSON" {
		extension = "json"
	}

	requestedBy := params.RequestedBy
	if requestedBy == "" {
		requestedBy = "admin"
	}

	run := schema.ExportRun{
		Connector:     Connector,
		DatasetID:     datasetID,
		Period:        period,
		Format:        format,
		Mode:          config.DeliveryMode,
		Status:        status,
		Retry:         params.Retry,
		DetailMessage: detail,
		RecordsCount:  recordsCount,
		Checksum:      hex.EncodeToString(checksum[:]),
		Filename:      fmt.Sprintf("%s_%s_%s.%s", datasetID, period.StartDate, period.EndDate, extension),
		Payload:       payload,
		RequestedBy:   requestedBy,
		Destination:   config.DeliveryMode,
		CreatedAt:     r.now().UTC().Format(time.RFC3339),
		ConfigSnapshot: schema.CRTMConfig{
			DeliveryMode: config.DeliveryMode,
			Frequency:    config.Frequency,
			Datasets:     config.Datasets,
			StopCodes:    config.StopCodes,
		},
	}

	// Only API mode pushes over the wire; SFTP and manual runs stay stored
	// for download.
	deliver := r.deliverer != nil && config.Enabled &&
		strings.EqualFold(config.DeliveryMode, "API")
	if deliver && run.Status == schema.ExportRunStatusOK {
		if err := r.deliverer.Deliver(ctx, run); err != nil {
			log.WithField("prefix", "export").WithError(err).Error("fail to deliver export payload")
			run.Status = schema.ExportRunStatusError
			run.DetailMessage = fmt.Sprintf("Entrega fallida: %s", err)
		}
	}

	return r.store.SaveExportRun(run)
}

func shiftDate(isoDate string, deltaDays int) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.AddDate(0, 0, deltaDays).Format("2006-01-02")
}

// alertInPeriod keeps alerts whose day span overlaps the export period.
func alertInPeriod(alert schema.Alert, startDate, endDate string) bool {
	first := dayOf(alert.FirstSeenAt)
	last := dayOf(alert.LastSeenAt)
	if first == "" && last == "" {
		return false
	}
	if endDate != "" && first != "" && first > endDate && last != "" && last > endDate {
		return false
	}
	if startDate != "" && first != "" && first < startDate && last != "" && last < startDate {
		return false
	}
	return true
}

func dayOf(iso string) string {
	if len(iso) < 10 {
		return ""
	}
	return iso[:10]
}
