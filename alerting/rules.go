package alerting

import (
	"math"
	"strconv"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/utils"
)

// Rule thresholds. Staleness in hours, anomaly factors against the 7-day
// average.
const (
	NoDataWarnHours     = 6.0
	NoDataCriticalHours = 24.0
	DropWarnFactor      = 0.5
	DropCriticalFactor  = 0.2
	SpikeWarnFactor     = 2.5
	SpikeCriticalFactor = 4.0
)

func severityRank(s schema.AlertSeverity) int {
	switch s {
	case schema.AlertSeverityCritical:
		return 3
	case schema.AlertSeverityWarn:
		return 2
	default:
		return 1
	}
}

func statusRank(s schema.AlertStatus) int {
	switch s {
	case schema.AlertStatusOpen:
		return 0
	case schema.AlertStatusAck:
		return 1
	default:
		return 2
	}
}

// hoursSince returns +Inf when there is no usable reference instant, so a
// stop that never reported data always trips the staleness rule.
func hoursSince(latest *schema.Record, now time.Time) float64 {
	if latest == nil {
		return math.Inf(1)
	}
	ref := latest.UploadedAt
	if ref == "" {
		if latest.Date == "" {
			return math.Inf(1)
		}
		ref = latest.Date + "T23:59:59Z"
	}
	t, err := time.Parse(time.RFC3339, ref)
	if err != nil {
		return math.Inf(1)
	}
	return now.Sub(t).Hours()
}

func shiftDate(isoDate string, deltaDays int) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.AddDate(0, 0, deltaDays).Format("2006-01-02")
}

func dailyTotals(records []schema.Record) map[string]int {
	byDate := map[string]int{}
	for _, r := range records {
		if r.Date == "" {
			continue
		}
		byDate[r.Date] += r.Totals.TotalNumber
	}
	return byDate
}

func round(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}

func newCandidate(l *i18n.Localizer, stopCode string, alertType schema.AlertType, severity schema.AlertSeverity, snapshot map[string]float64, nowIso string) schema.Alert {
	return schema.Alert{
		Key:             schema.AlertKey(stopCode, alertType),
		StopCode:        stopCode,
		Type:            alertType,
		Severity:        severity,
		Status:          schema.AlertStatusOpen,
		FirstSeenAt:     nowIso,
		LastSeenAt:      nowIso,
		Message:         alertMessage(l, stopCode, alertType, snapshot),
		MetricsSnapshot: snapshot,
	}
}

func alertMessage(l *i18n.Localizer, stopCode string, alertType schema.AlertType, snapshot map[string]float64) string {
	fmtNum := func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	switch alertType {
	case schema.AlertTypeNoData:
		return utils.Localize(l, "alert_no_data", map[string]interface{}{
			"StopCode": stopCode,
			"Hours":    strconv.FormatFloat(snapshot["hoursSinceLastData"], 'f', 1, 64),
		})
	case schema.AlertTypeAnomalyDrop:
		return utils.Localize(l, "alert_anomaly_drop", map[string]interface{}{
			"StopCode": stopCode,
			"Today":    fmtNum(snapshot["todayTotal"]),
			"Avg":      fmtNum(snapshot["avg7d"]),
		})
	default:
		return utils.Localize(l, "alert_anomaly_spike", map[string]interface{}{
			"StopCode": stopCode,
			"Today":    fmtNum(snapshot["todayTotal"]),
			"Avg":      fmtNum(snapshot["avg7d"]),
		})
	}
}

// evaluateStop yields the 0 to 3 alert candidates a single stop triggers at
// the reference instant. records must cover the 7 preceding days plus today;
// days without a record count as zero footfall.
func evaluateStop(l *i18n.Localizer, stopCode string, latest *schema.Record, records []schema.Record, today string, now time.Time) []schema.Alert {
	nowIso := now.UTC().Format(time.RFC3339)
	var candidates []schema.Alert

	stale := hoursSince(latest, now)
	if stale > NoDataWarnHours {
		severity := schema.AlertSeverityWarn
		if stale > NoDataCriticalHours {
			severity = schema.AlertSeverityCritical
		}
		snapshotHours := stale
		if !math.IsInf(snapshotHours, 1) {
			snapshotHours = round(snapshotHours, 2)
		}
		candidates = append(candidates, newCandidate(l, stopCode, schema.AlertTypeNoData, severity,
			map[string]float64{"hoursSinceLastData": snapshotHours}, nowIso))
	}

	totals := dailyTotals(records)
	todayTotal := totals[today]
	sum := 0
	for i := 1; i <= 7; i++ {
		sum += totals[shiftDate(today, -i)]
	}
	avg7d := float64(sum) / 7

	if avg7d > 0 {
		today64 := float64(todayTotal)
		snapshot := func() map[string]float64 {
			return map[string]float64{
				"todayTotal": today64,
				"avg7d":      round(avg7d, 2),
				"factor":     round(today64/avg7d, 4),
			}
		}

		if today64 < avg7d*DropWarnFactor {
			severity := schema.AlertSeverityWarn
			if today64 < avg7d*DropCriticalFactor {
				severity = schema.AlertSeverityCritical
			}
			candidates = append(candidates, newCandidate(l, stopCode, schema.AlertTypeAnomalyDrop, severity, snapshot(), nowIso))
		}

		if today64 > avg7d*SpikeWarnFactor {
			severity := schema.AlertSeverityWarn
			if today64 > avg7d*SpikeCriticalFactor {
				severity = schema.AlertSeverityCritical
			}
			candidates = append(candidates, newCandidate(l, stopCode, schema.AlertTypeAnomalySpike, severity, snapshot(), nowIso))
		}
	}

	return candidates
}
