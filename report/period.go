package report

import (
	"time"

	"github.com/twetter99/afluencia360/schema"
)

func shiftDate(isoDate string, deltaDays int) string {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.AddDate(0, 0, deltaDays).Format("2006-01-02")
}

// PreviousPeriod returns the equal-length period ending the day before
// startDate.
func PreviousPeriod(startDate, endDate string) schema.Period {
	start, errStart := time.Parse("2006-01-02", startDate)
	end, errEnd := time.Parse("2006-01-02", endDate)
	days := 1
	if errStart == nil && errEnd == nil {
		if d := int(end.Sub(start).Hours()/24) + 1; d > 1 {
			days = d
		}
	}
	previousEnd := shiftDate(startDate, -1)
	previousStart := shiftDate(previousEnd, -(days - 1))
	return schema.Period{StartDate: previousStart, EndDate: previousEnd}
}

// alertInPeriod keeps alerts whose [firstSeenAt, lastSeenAt] day span
// overlaps the report period.
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
