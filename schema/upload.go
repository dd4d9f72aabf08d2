package schema

const (
	UploadCollection   = "afluencia_uploads"
	RowErrorCollection = "afluencia_validation_errors"
)

type UploadStatus string

const (
	UploadStatusUploaded            UploadStatus = "uploaded"
	UploadStatusProcessed           UploadStatus = "processed"
	UploadStatusProcessedWithErrors UploadStatus = "processed_with_errors"
	UploadStatusRejected            UploadStatus = "rejected"
)

type UploadStats struct {
	TotalRows int `bson:"totalRows" json:"totalRows"`
	Inserted  int `bson:"inserted" json:"inserted"`
	Updated   int `bson:"updated" json:"updated"`
	Rejected  int `bson:"rejected" json:"rejected"`
	Warnings  int `bson:"warnings" json:"warnings"`
}

// Upload is one ingestion session for a classic-format file.
type Upload struct {
	ID              string       `bson:"_id" json:"id"`
	Filename        string       `bson:"filename" json:"filename"`
	Size            int64        `bson:"size" json:"size"`
	UploadedBy      string       `bson:"uploadedBy" json:"uploadedBy"`
	UploadedAt      string       `bson:"uploadedAt" json:"uploadedAt"`
	Status          UploadStatus `bson:"status" json:"status"`
	Stats           UploadStats  `bson:"stats" json:"stats"`
	UnmappedHeaders []string     `bson:"unmappedHeaders,omitempty" json:"unmappedHeaders,omitempty"`
	UpdatedAt       string       `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type RowErrorSeverity string

const (
	RowErrorSeverityError   RowErrorSeverity = "error"
	RowErrorSeverityWarning RowErrorSeverity = "warning"
)

// RowError is one collected per-row problem. Rows with severity "error" are
// skipped by the ingestion pipeline; "warning" rows are ingested anyway (for
// example a non-numeric cell silently coerced to zero).
type RowError struct {
	ID       string           `bson:"_id,omitempty" json:"id,omitempty"`
	UploadID string           `bson:"uploadId,omitempty" json:"uploadId,omitempty"`
	Row      int              `bson:"row" json:"row"`
	Column   string           `bson:"column,omitempty" json:"column,omitempty"`
	Value    string           `bson:"value,omitempty" json:"value,omitempty"`
	Message  string           `bson:"message" json:"message"`
	Severity RowErrorSeverity `bson:"severity" json:"severity"`
}
