package alerting

import (
	"github.com/google/uuid"

	"github.com/twetter99/afluencia360/schema"
)

// MergeAlert folds a freshly triggered candidate into the stored alert for
// the same key. With no stored alert the candidate opens a new one. The
// transition rules:
//
//	none     -> OPEN, new id, firstSeenAt from the candidate
//	OPEN     -> OPEN, firstSeenAt preserved
//	ACK      -> ACK preserved (operator already saw it)
//	RESOLVED -> reopened as OPEN, firstSeenAt reset, ack/resolve cleared
//
// Severity only ever escalates within one incident; message, snapshot and
// lastSeenAt always take the candidate's values.
func MergeAlert(existing *schema.Alert, candidate schema.Alert) schema.Alert {
	if existing == nil {
		opened := candidate
		opened.ID = uuid.New().String()
		opened.Status = schema.AlertStatusOpen
		return opened
	}

	merged := *existing
	if severityRank(candidate.Severity) > severityRank(existing.Severity) {
		merged.Severity = candidate.Severity
	}
	merged.Message = candidate.Message
	merged.MetricsSnapshot = candidate.MetricsSnapshot
	merged.LastSeenAt = candidate.LastSeenAt

	switch existing.Status {
	case schema.AlertStatusResolved:
		merged.Status = schema.AlertStatusOpen
		merged.FirstSeenAt = candidate.FirstSeenAt
		merged.AckBy = ""
		merged.AckAt = ""
	case schema.AlertStatusAck:
		merged.Status = schema.AlertStatusAck
	default:
		merged.Status = schema.AlertStatusOpen
	}

	merged.ResolvedBy = ""
	merged.ResolvedAt = ""
	return merged
}

// ResolveAlertBySystem transitions an alert whose key stopped firing.
func ResolveAlertBySystem(alert schema.Alert, nowIso string) schema.Alert {
	alert.Status = schema.AlertStatusResolved
	alert.LastSeenAt = nowIso
	alert.ResolvedBy = "system"
	alert.ResolvedAt = nowIso
	return alert
}
