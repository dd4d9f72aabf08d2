package alerting

import (
	"sort"
	"strings"
	"time"

	"github.com/twetter99/afluencia360/schema"
)

// SortAlerts orders for presentation: OPEN before ACK before RESOLVED, then
// by severity descending, then most recently seen first. The input is left
// untouched.
func SortAlerts(alerts []schema.Alert) []schema.Alert {
	sorted := make([]schema.Alert, len(alerts))
	copy(sorted, alerts)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Status != b.Status {
			return statusRank(a.Status) < statusRank(b.Status)
		}
		if a.Severity != b.Severity {
			return severityRank(a.Severity) > severityRank(b.Severity)
		}
		return lastSeen(a).After(lastSeen(b))
	})
	return sorted
}

func lastSeen(a schema.Alert) time.Time {
	ref := a.LastSeenAt
	if ref == "" {
		ref = a.FirstSeenAt
	}
	t, err := time.Parse(time.RFC3339, ref)
	if err != nil {
		return time.Time{}
	}
	return t
}

// MatchesFilter applies the listing filter to one alert. Empty and "all"
// values pass everything.
func MatchesFilter(alert schema.Alert, filter schema.AlertFilter, now time.Time) bool {
	if filter.Status != "" && filter.Status != "all" && string(alert.Status) != filter.Status {
		return false
	}
	if filter.Severity != "" && filter.Severity != "all" && string(alert.Severity) != filter.Severity {
		return false
	}

	if term := strings.ToLower(strings.TrimSpace(filter.Search)); term != "" {
		haystack := strings.ToLower(alert.StopCode + " " + alert.Message + " " + string(alert.Type))
		if !strings.Contains(haystack, term) {
			return false
		}
	}

	if filter.RangeDays > 0 {
		ref := lastSeen(alert)
		if ref.IsZero() {
			return false
		}
		min := now.Add(-time.Duration(filter.RangeDays) * 24 * time.Hour)
		if ref.Before(min) {
			return false
		}
	}

	return true
}

// FilterAlerts applies MatchesFilter over a slice and sorts the survivors.
func FilterAlerts(alerts []schema.Alert, filter schema.AlertFilter, now time.Time) []schema.Alert {
	matched := make([]schema.Alert, 0, len(alerts))
	for _, a := range alerts {
		if MatchesFilter(a, filter, now) {
			matched = append(matched, a)
		}
	}
	return SortAlerts(matched)
}
