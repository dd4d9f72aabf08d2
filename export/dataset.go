package export

import "github.com/twetter99/afluencia360/schema"

// Connector is the only data-sharing connector currently wired.
const Connector = "CRTM"

// Datasets is the shareable dataset catalog. Roadmap entries are listed for
// the configuration surface but cannot be exported yet.
func Datasets() []schema.ExportDataset {
	return []schema.ExportDataset{
		{
			ID:          "afluencia_daily",
			Description: "Afluencia diaria por marquesina y fecha",
			Version:     "v1",
			Fields:      []string{"stopCode", "date", "totalNumber", "afterDeduplication", "man", "woman", "unknown"},
		},
		{
			ID:          "afluencia_hourly",
			Description: "Afluencia por hora y marquesina",
			Version:     "v1",
			Fields:      []string{"stopCode", "date", "hour", "value"},
			Roadmap:     true,
		},
		{
			ID:          "alerts",
			Description: "Alertas agregadas por día y tipo",
			Version:     "v1",
			Fields:      []string{"date", "type", "severity", "count"},
		},
		{
			ID:          "devices_status",
			Description: "Estado de comunicación por marquesina",
			Version:     "v1",
			Fields:      []string{"stopCode", "status", "lastSeenAt"},
			Roadmap:     true,
		},
	}
}

// DatasetByID returns the catalog entry or nil for an unknown id.
func DatasetByID(id string) *schema.ExportDataset {
	for _, dataset := range Datasets() {
		if dataset.ID == id {
			d := dataset
			return &d
		}
	}
	return nil
}

// DefaultConfig seeds the connector configuration on first read.
func DefaultConfig() schema.CRTMConfig {
	return schema.CRTMConfig{
		DeliveryMode:   "SFTP",
		CredentialsRef: "secret://crtm/sftp",
		Whitelist:      "",
		Format:         "CSV",
		Frequency:      "Manual",
		Datasets:       []string{"afluencia_daily"},
		StopCodes:      []string{},
		Enabled:        true,
	}
}
