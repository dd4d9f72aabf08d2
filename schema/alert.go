package schema

const (
	AlertCollection = "alerts"
)

type AlertType string

const (
	AlertTypeNoData       AlertType = "NO_DATA"
	AlertTypeAnomalyDrop  AlertType = "ANOMALY_DROP"
	AlertTypeAnomalySpike AlertType = "ANOMALY_SPIKE"
)

type AlertSeverity string

const (
	AlertSeverityWarn     AlertSeverity = "WARN"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

type AlertStatus string

const (
	AlertStatusOpen     AlertStatus = "OPEN"
	AlertStatusAck      AlertStatus = "ACK"
	AlertStatusResolved AlertStatus = "RESOLVED"
)

// Alert is one (stopCode, ruleType) incident. Key is "stopCode::type" and is
// unique at any point in time: re-detection merges into the stored alert
// instead of inserting a duplicate. Alerts are never deleted, only
// transitioned to RESOLVED.
type Alert struct {
	ID              string             `bson:"_id,omitempty" json:"id"`
	Key             string             `bson:"key" json:"key"`
	StopCode        string             `bson:"stopCode" json:"stopCode"`
	Type            AlertType          `bson:"type" json:"type"`
	Severity        AlertSeverity      `bson:"severity" json:"severity"`
	Status          AlertStatus        `bson:"status" json:"status"`
	FirstSeenAt     string             `bson:"firstSeenAt" json:"firstSeenAt"`
	LastSeenAt      string             `bson:"lastSeenAt" json:"lastSeenAt"`
	Message         string             `bson:"message" json:"message"`
	MetricsSnapshot map[string]float64 `bson:"metricsSnapshot" json:"metricsSnapshot"`
	AckBy           string             `bson:"ackBy,omitempty" json:"ackBy,omitempty"`
	AckAt           string             `bson:"ackAt,omitempty" json:"ackAt,omitempty"`
	ResolvedBy      string             `bson:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	ResolvedAt      string             `bson:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// AlertKey builds the natural idempotency key for a stop and rule type.
func AlertKey(stopCode string, alertType AlertType) string {
	return stopCode + "::" + string(alertType)
}

// AlertFilter narrows alert listings. Empty or "all" values mean no
// constraint; RangeDays limits by lastSeenAt recency.
type AlertFilter struct {
	Status    string
	Severity  string
	Search    string
	RangeDays int
}
