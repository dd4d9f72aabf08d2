package aggregate

import (
	"sort"

	"github.com/twetter99/afluencia360/schema"
)

// ByDate groups records by calendar date with additive counters. The sensor
// snapshot fields (hourly, peakHour, trafficTotals) are not additive across
// stops, so the last record of each day that carries them wins. Rows come
// back newest first.
func ByDate(records []schema.Record) []schema.DailySummary {
	type acc struct {
		day     schema.DailySummary
		seconds int
		count   int
	}
	buckets := map[string]*acc{}
	order := []string{}

	for _, r := range records {
		b, ok := buckets[r.Date]
		if !ok {
			b = &acc{day: schema.DailySummary{Date: r.Date}}
			buckets[r.Date] = b
			order = append(order, r.Date)
		}

		b.day.Totals.Adults += r.Totals.Adults
		b.day.Totals.Children += r.Totals.Children
		b.day.Totals.AfterDeduplication += r.Totals.AfterDeduplication
		b.day.Totals.TotalNumber += r.Totals.TotalNumber
		b.day.Totals.HeavyEmployees += r.Totals.HeavyEmployees

		b.day.Gender.Man += r.Gender.Man
		b.day.Gender.Woman += r.Gender.Woman
		b.day.Gender.Unknown += r.Gender.Unknown

		b.day.Age.Add(r.Age)
		b.day.AgeHeavy.Add(r.AgeHeavy)

		b.seconds += ParseTimeToSeconds(r.ResidenceTime)
		b.count++

		if len(r.Hourly) > 0 {
			b.day.Hourly = r.Hourly
		}
		if r.PeakHour != nil {
			peak := *r.PeakHour
			b.day.PeakHour = &peak
		}
		if r.TrafficTotals != nil {
			traffic := *r.TrafficTotals
			b.day.TrafficTotals = &traffic
		}
	}

	days := make([]schema.DailySummary, 0, len(order))
	for _, date := range order {
		b := buckets[date]
		divisor := b.count
		if divisor < 1 {
			divisor = 1
		}
		b.day.ResidenceTime = SecondsToTime(float64(b.seconds) / float64(divisor))
		days = append(days, b.day)
	}

	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}
