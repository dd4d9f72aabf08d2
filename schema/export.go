package schema

const (
	IntegrationCollection = "integrations"
	ExportRunCollection   = "integration_runs"

	CRTMConfigID = "crtm_config"
)

// CRTMConfig is the connector configuration for the CRTM data-sharing
// integration. A single document per deployment.
type CRTMConfig struct {
	DeliveryMode   string   `bson:"deliveryMode" json:"deliveryMode"`
	CredentialsRef string   `bson:"credentialsRef" json:"credentialsRef"`
	Whitelist      string   `bson:"whitelist" json:"whitelist"`
	Format         string   `bson:"format" json:"format"`
	Frequency      string   `bson:"frequency" json:"frequency"`
	Datasets       []string `bson:"datasets" json:"datasets"`
	StopCodes      []string `bson:"stopCodes" json:"stopCodes"`
	Enabled        bool     `bson:"enabled" json:"enabled"`
	UpdatedAt      string   `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// ExportDataset describes one shareable dataset. Roadmap datasets are listed
// but not yet exportable.
type ExportDataset struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Fields      []string `json:"fields"`
	Roadmap     bool     `json:"roadmap"`
}

type ExportRunStatus string

const (
	ExportRunStatusOK    ExportRunStatus = "OK"
	ExportRunStatusError ExportRunStatus = "ERROR"
)

// ExportRun is one executed export: the produced payload, its checksum and
// the config snapshot it ran under.
type ExportRun struct {
	ID             string          `bson:"_id" json:"id"`
	Connector      string          `bson:"connector" json:"connector"`
	DatasetID      string          `bson:"datasetId" json:"datasetId"`
	Period         Period          `bson:"period" json:"period"`
	Format         string          `bson:"format" json:"format"`
	Mode           string          `bson:"mode" json:"mode"`
	Status         ExportRunStatus `bson:"status" json:"status"`
	Retry          bool            `bson:"retry" json:"retry"`
	DetailMessage  string          `bson:"detailMessage" json:"detailMessage"`
	RecordsCount   int             `bson:"recordsCount" json:"recordsCount"`
	Checksum       string          `bson:"checksum" json:"checksum"`
	Filename       string          `bson:"filename" json:"filename"`
	Payload        string          `bson:"payload" json:"payload"`
	RequestedBy    string          `bson:"requestedBy" json:"requestedBy"`
	Destination    string          `bson:"destination" json:"destination"`
	CreatedAt      string          `bson:"createdAt" json:"createdAt"`
	ConfigSnapshot CRTMConfig      `bson:"configSnapshot" json:"configSnapshot"`
}
