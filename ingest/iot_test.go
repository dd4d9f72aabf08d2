package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheet string, rows [][]interface{}) []byte {
	t.Helper()

	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for i, row := range rows {
		start, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, start, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func iotHeader() []interface{} {
	header := make([]interface{}, 42)
	for i := range header {
		header[i] = "col"
	}
	return header
}

func iotRow(hour string, vals map[int]interface{}) []interface{} {
	row := make([]interface{}, 42)
	for i := range row {
		row[i] = 0
	}
	for col, v := range vals {
		row[col] = v
	}
	row[colTime] = hour
	return row
}

func sampleIoTWorkbook(t *testing.T) []byte {
	return writeWorkbook(t, "Schema Query", [][]interface{}{
		iotHeader(),
		iotRow("2026-02-11 08:00:00", map[int]interface{}{
			colUnit: "P-102", colTotalPeople: 100,
			colPeopleIn: 40, colPeopleOut: 30,
			colMale: 30, colFemale: 20, colGenderUnknown: 10,
			colAge17_30: 25, colAge31_45: 15,
			colTotalDwellTime: 300, colAvgDwellTime: 3,
			colDeduplicated: 60,
		}),
		iotRow("2026-02-11 09:00:00", map[int]interface{}{
			colUnit: "P-102", colTotalPeople: 50,
			colPeopleIn: 10, colPeopleOut: 10,
			colMale: 20, colFemale: 5, colGenderUnknown: 5,
			colAge17_30: 10,
			colTotalDwellTime: 100, colAvgDwellTime: 2,
			colDeduplicated: 30,
		}),
		iotRow("2026-02-11 10:00:00", map[int]interface{}{
			colUnit: "P-102", colTotalPeople: 0,
		}),
		iotRow("", map[int]interface{}{
			colUnit: "Total", colTotalPeople: 150, colPeopleIn: 50, colPeopleOut: 40,
		}),
	})
}

func TestIsIoTWorkbook(t *testing.T) {
	assert.True(t, IsIoTWorkbook(sampleIoTWorkbook(t)))

	classic := writeWorkbook(t, "Datos", [][]interface{}{{"Fecha", "Entidad"}})
	assert.False(t, IsIoTWorkbook(classic))
	assert.False(t, IsIoTWorkbook([]byte("not a workbook")))
}

func TestProcessIoTSheet(t *testing.T) {
	day, err := ProcessIoTSheet(sampleIoTWorkbook(t), "P-102_2026-02-11.xlsx", "es")
	require.NoError(t, err)

	assert.Equal(t, "P-102", day.Meta.Location)
	assert.Equal(t, "2026-02-11", day.Meta.Date)
	assert.Equal(t, "08:00", day.Meta.MeasurementStart)
	assert.Equal(t, "09:00", day.Meta.MeasurementEnd)
	assert.Equal(t, 2, day.Meta.ActiveHours)

	assert.Equal(t, 150, day.Summary.TotalDetected)
	assert.Equal(t, 90, day.Summary.TotalIdentified)
	assert.Equal(t, 60, day.Summary.TotalNotIdentified)
	assert.Equal(t, 60.0, day.Summary.IdentificationRate)
	assert.Equal(t, 3, day.Summary.AvgDwellMinutes)
	assert.Equal(t, 90, day.Summary.Deduplicated)

	assert.Equal(t, "08:00", day.Summary.PeakHour.Hour)
	assert.Equal(t, 100, day.Summary.PeakHour.Detected)
	assert.Equal(t, 66.7, day.Summary.PeakHour.PctOfTotal)

	assert.Equal(t, 50, day.Summary.Traffic.PeopleIn)
	assert.Equal(t, 40, day.Summary.Traffic.PeopleOut)

	assert.Equal(t, 50, day.Gender.Male.Count)
	assert.Equal(t, 33.3, day.Gender.Male.Pct)
	assert.Equal(t, 60, day.Gender.NotIdentified.Count)

	assert.Equal(t, 35, day.Age.Age17_30.Count)
	assert.Equal(t, 15, day.Age.Age31_45.Count)

	require.NotNil(t, day.OfficialTotals)
	assert.Equal(t, 150, day.OfficialTotals.TotalPeople)
	assert.Equal(t, 50, day.OfficialTotals.PeopleIn)

	require.Len(t, day.Hourly, 2)
	assert.Equal(t, "08:00", day.Hourly[0].Hour)
	assert.Equal(t, 100, day.Hourly[0].TotalPersons)

	require.Len(t, day.Observations, 6)
	assert.Contains(t, day.Observations[0], "08:00")
}

func TestProcessIoTSheetMissingSchemaSheet(t *testing.T) {
	data := writeWorkbook(t, "Datos", [][]interface{}{{"Fecha"}})
	_, err := ProcessIoTSheet(data, "datos.xlsx", "es")
	assert.Equal(t, ErrMissingSchemaSheet, err)
}

func TestProcessIoTSheetNoActivity(t *testing.T) {
	data := writeWorkbook(t, "Schema Query", [][]interface{}{
		iotHeader(),
		iotRow("2026-02-11 08:00:00", map[int]interface{}{colUnit: "P-102", colTotalPeople: 0}),
		iotRow("", map[int]interface{}{colUnit: "Total", colTotalPeople: 0}),
	})
	_, err := ProcessIoTSheet(data, "datos.xlsx", "es")
	assert.Equal(t, ErrEmptyData, err)
}

func TestExtractStopIDFromFilename(t *testing.T) {
	assert.Equal(t, "MARQ_001", extractStopID("MARQ_001_2026-02-11.xlsx", nil, ""))
	assert.Equal(t, "CRTM-ARJ-001", extractStopID("CRTM-ARJ-001.xlsx", nil, ""))
	assert.Equal(t, "marquesina_hospital", extractStopID("marquesina_hospital_2026-02-11.xlsx", nil, ""))
}

func TestExtractStopIDFromSheetTab(t *testing.T) {
	sheets := []string{"Schema Query", "P-102"}
	assert.Equal(t, "P-102", extractStopID("export_2026-02-11.xlsx", sheets, "unit"))
}

func TestExtractStopIDFallbacks(t *testing.T) {
	assert.Equal(t, "unidad 1", extractStopID("export.xlsx", []string{"Schema Query"}, "unidad 1"))
	assert.Equal(t, "MARQUESINA_SIN_ID", extractStopID("export.xlsx", []string{"Schema Query"}, ""))
}

func TestBridgeRecord(t *testing.T) {
	day, err := ProcessIoTSheet(sampleIoTWorkbook(t), "P-102_2026-02-11.xlsx", "es")
	require.NoError(t, err)

	rec := BridgeRecord(day, "P-102")

	assert.Equal(t, "P-102", rec.StopCode)
	assert.Equal(t, "2026-02-11", rec.Date)
	assert.Equal(t, "P-102", rec.Entity)

	// No per-person group counters in the sample, so adults falls back to
	// the identified total.
	assert.Equal(t, 90, rec.Totals.Adults)
	assert.Equal(t, 150, rec.Totals.TotalNumber)
	assert.Equal(t, 90, rec.Totals.AfterDeduplication)

	assert.Equal(t, 50, rec.Gender.Man)
	assert.Equal(t, 25, rec.Gender.Woman)
	// Unknown absorbs the unidentified remainder.
	assert.Equal(t, 75, rec.Gender.Unknown)

	assert.Equal(t, "00:03:00", rec.ResidenceTime)

	require.NotNil(t, rec.PeakHour)
	assert.Equal(t, "08:00", rec.PeakHour.Hour)
	require.NotNil(t, rec.TrafficTotals)
	assert.Equal(t, 50, rec.TrafficTotals.PeopleIn)
	require.NotNil(t, rec.IoTReport)
	assert.Len(t, rec.IoTReport.Observations, 6)
	require.Len(t, rec.Hourly, 2)
}
