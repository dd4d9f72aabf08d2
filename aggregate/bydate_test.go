package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twetter99/afluencia360/schema"
)

func TestByDateEmpty(t *testing.T) {
	assert.Empty(t, ByDate(nil))
}

func TestByDateGroupsAndSorts(t *testing.T) {
	records := []schema.Record{
		{StopCode: "A", Date: "2026-02-10", Totals: schema.Totals{TotalNumber: 100}, ResidenceTime: "00:02:00"},
		{StopCode: "B", Date: "2026-02-10", Totals: schema.Totals{TotalNumber: 50}, ResidenceTime: "00:04:00"},
		{StopCode: "A", Date: "2026-02-11", Totals: schema.Totals{TotalNumber: 80}, ResidenceTime: "00:01:00"},
	}

	days := ByDate(records)
	require.Len(t, days, 2)

	assert.Equal(t, "2026-02-11", days[0].Date)
	assert.Equal(t, 80, days[0].Totals.TotalNumber)
	assert.Equal(t, "00:01:00", days[0].ResidenceTime)

	assert.Equal(t, "2026-02-10", days[1].Date)
	assert.Equal(t, 150, days[1].Totals.TotalNumber)
	assert.Equal(t, "00:03:00", days[1].ResidenceTime)
}

func TestByDateSnapshotLastWriteWins(t *testing.T) {
	records := []schema.Record{
		{Date: "2026-02-10", PeakHour: &schema.PeakHour{Hour: "08:00", Detected: 10}},
		{Date: "2026-02-10", PeakHour: &schema.PeakHour{Hour: "12:00", Detected: 30},
			Hourly:        []schema.HourlyEntry{{Hour: "12:00", TotalPersons: 30}},
			TrafficTotals: &schema.TrafficTotals{PeopleIn: 5}},
		{Date: "2026-02-10"},
	}

	days := ByDate(records)
	require.Len(t, days, 1)

	require.NotNil(t, days[0].PeakHour)
	assert.Equal(t, "12:00", days[0].PeakHour.Hour)
	require.Len(t, days[0].Hourly, 1)
	require.NotNil(t, days[0].TrafficTotals)
	assert.Equal(t, 5, days[0].TrafficTotals.PeopleIn)
}
