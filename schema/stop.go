package schema

const (
	StopCollection = "afluencia_stops"
)

type StopStatus string

const (
	StopStatusActive   StopStatus = "active"
	StopStatusInactive StopStatus = "inactive"
)

// Stop is a physical shelter. The stop code is canonical (trimmed,
// upper-cased) and doubles as the document id.
type Stop struct {
	StopCode     string     `bson:"_id" json:"stopCode"`
	Name         string     `bson:"name" json:"name"`
	Location     string     `bson:"location" json:"location"`
	Zone         string     `bson:"zone" json:"zone"`
	Municipality string     `bson:"municipality" json:"municipality"`
	Status       StopStatus `bson:"status" json:"status"`
	Photos       []string   `bson:"photos" json:"photos"`
	Notes        string     `bson:"notes" json:"notes"`
	InstalledAt  string     `bson:"installedAt,omitempty" json:"installedAt,omitempty"`
	Latitude     *float64   `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude    *float64   `bson:"longitude,omitempty" json:"longitude,omitempty"`
	CreatedAt    string     `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt    string     `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// StopOverview is a catalog entry annotated with record coverage, used by the
// stop listing and the dashboard cards.
type StopOverview struct {
	Stop         `bson:",inline"`
	TotalRecords int    `json:"totalRecords"`
	LatestDate   string `json:"latestDate,omitempty"`
}
