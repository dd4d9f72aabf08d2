package aggregate

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/twetter99/afluencia360/schema"
)

// Summarize folds a set of canonical records into one summary. Returns nil
// when there is nothing to fold, deliberately distinct from a zero summary.
func Summarize(records []schema.Record, scope, startDate, endDate string) *schema.Summary {
	if len(records) == 0 {
		return nil
	}

	s := &schema.Summary{
		Scope:        scope,
		Period:       schema.Period{StartDate: startDate, EndDate: endDate},
		TotalRecords: len(records),
	}

	totalSeconds := 0
	for _, r := range records {
		s.Totals.Adults += r.Totals.Adults
		s.Totals.Children += r.Totals.Children
		s.Totals.AfterDeduplication += r.Totals.AfterDeduplication
		s.Totals.TotalNumber += r.Totals.TotalNumber
		s.Totals.HeavyEmployees += r.Totals.HeavyEmployees

		s.Gender.Man += r.Gender.Man
		s.Gender.Woman += r.Gender.Woman
		s.Gender.Unknown += r.Gender.Unknown

		s.Age.Add(r.Age)
		s.AgeHeavy.Add(r.AgeHeavy)

		totalSeconds += ParseTimeToSeconds(r.ResidenceTime)
	}
	s.AvgResidenceTime = SecondsToTime(float64(totalSeconds) / float64(len(records)))

	s.PassengerFlow = foldPassengerFlow(records)
	s.TrafficTotals = foldTrafficTotals(records)

	merged := mergeHourly(records)
	if len(merged) > 0 {
		s.Hourly = merged
		s.PeakHour = peakOf(merged)
		if s.PeakHour == nil {
			s.PeakHour = firstPeakHour(records)
		}
	} else {
		s.PeakHour = firstPeakHour(records)
		if s.TrafficTotals == nil {
			s.TrafficTotals = firstTrafficTotals(records)
		}
	}

	return s
}

// foldPassengerFlow passes a single flow through untouched and sums
// field-by-field when several records carry one.
func foldPassengerFlow(records []schema.Record) *schema.PassengerFlow {
	var withFlow []*schema.PassengerFlow
	for i := range records {
		if records[i].PassengerFlow != nil {
			withFlow = append(withFlow, records[i].PassengerFlow)
		}
	}
	switch len(withFlow) {
	case 0:
		return nil
	case 1:
		flow := *withFlow[0]
		return &flow
	default:
		var sum schema.PassengerFlow
		for _, f := range withFlow {
			sum.Add(*f)
		}
		return &sum
	}
}

func foldTrafficTotals(records []schema.Record) *schema.TrafficTotals {
	var sum schema.TrafficTotals
	found := false
	for i := range records {
		if records[i].TrafficTotals != nil {
			sum.Add(*records[i].TrafficTotals)
			found = true
		}
	}
	if !found {
		return nil
	}
	return &sum
}

// mergeHourly sums hourly entries across all records keyed by the hour
// label, averaging dwell minutes over the entries that report one.
func mergeHourly(records []schema.Record) []schema.HourlyEntry {
	type acc struct {
		entry      schema.HourlyEntry
		dwellSum   int
		dwellCount int
	}
	buckets := map[string]*acc{}

	for _, r := range records {
		for _, h := range r.Hourly {
			b, ok := buckets[h.Hour]
			if !ok {
				b = &acc{entry: schema.HourlyEntry{Hour: h.Hour}}
				buckets[h.Hour] = b
			}
			b.entry.EntryLot += h.EntryLot
			b.entry.OutgoingBatch += h.OutgoingBatch
			b.entry.TotalPersons += h.TotalPersons
			b.entry.PeopleDetained += h.PeopleDetained
			b.entry.PeopleIn += h.PeopleIn
			b.entry.PeopleOut += h.PeopleOut
			b.entry.Passby += h.Passby
			b.entry.Turnback += h.Turnback
			b.entry.Adult += h.Adult
			b.entry.Children += h.Children
			b.entry.Residents += h.Residents
			b.entry.EmployeeEntry += h.EmployeeEntry
			b.entry.CustomersEnter += h.CustomersEnter
			b.entry.VehicleEntry += h.VehicleEntry
			b.entry.VehicleExit += h.VehicleExit
			b.entry.Deduplicated += h.Deduplicated
			b.entry.TotalVehicles += h.TotalVehicles
			b.entry.EmployeesEntering += h.EmployeesEntering
			if h.AvgDwellMinutes > 0 {
				b.dwellSum += h.AvgDwellMinutes
				b.dwellCount++
			}
		}
	}
	if len(buckets) == 0 {
		return nil
	}

	merged := make([]schema.HourlyEntry, 0, len(buckets))
	for _, b := range buckets {
		if b.dwellCount > 0 {
			b.entry.AvgDwellMinutes = int(math.Round(float64(b.dwellSum) / float64(b.dwellCount)))
		}
		merged = append(merged, b.entry)
	}
	sort.Slice(merged, func(i, j int) bool {
		return leadingHour(merged[i].Hour) < leadingHour(merged[j].Hour)
	})
	return merged
}

func leadingHour(hour string) int {
	head, _, _ := strings.Cut(hour, ":")
	v, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return 0
	}
	return v
}

// peakOf recomputes the peak hour over a merged series. Strictly-greater
// comparison keeps the earliest hour on ties. Nil when the series never
// detects anyone.
func peakOf(merged []schema.HourlyEntry) *schema.PeakHour {
	total := 0
	for _, h := range merged {
		total += h.TotalPersons
	}

	peakVal := -1
	var peak schema.HourlyEntry
	for _, h := range merged {
		if h.TotalPersons > peakVal {
			peakVal = h.TotalPersons
			peak = h
		}
	}
	if peakVal <= 0 {
		return nil
	}

	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(peakVal)/float64(total)*1000) / 10
	}
	return &schema.PeakHour{Hour: peak.Hour, Detected: peakVal, PctOfTotal: pct}
}

func firstPeakHour(records []schema.Record) *schema.PeakHour {
	for i := range records {
		if records[i].PeakHour != nil {
			peak := *records[i].PeakHour
			return &peak
		}
	}
	return nil
}

func firstTrafficTotals(records []schema.Record) *schema.TrafficTotals {
	for i := range records {
		if records[i].TrafficTotals != nil {
			traffic := *records[i].TrafficTotals
			return &traffic
		}
	}
	return nil
}
