package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/xuri/excelize/v2"

	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/utils"
)

const schemaSheetMarker = "schema query"

// sensorNote is carried verbatim from the vendor documentation.
const sensorNote = "Sensor sin iluminación: solo mide con luz natural"

// Fixed column positions of the 42-column "Schema Query" sensor export.
const (
	colUnit = iota
	colPeopleIn
	colPeopleOut
	colPassby
	colTurnback
	colPeopleDetained
	colEntryLot
	colOutgoingBatch
	colAdult
	colChildren
	colResidents
	colEmployeeEntry
	colCustomersEnter
	colVehicleEntry
	colVehicleExit
	colDeduplicated
	colTotalDwellTime
	colAvgDwellTime
	colTotalPeople
	colTotalVehicles
	colGenderUnknown
	colMale
	colFemale
	colAgeUnknown
	colAgeLt10
	colAge10_16
	colAge17_30
	colAge31_45
	colAge46_60
	colAgeGt60
	colGenderUnknownG2
	colMaleG2
	colFemaleG2
	colAgeUnknownG2
	colAgeLt10G2
	colAge10_16G2
	colAge17_30G2
	colAge31_45G2
	colAge46_60G2
	colAgeGt60G2
	colEmployeesEntering
	colTime
)

// IsIoTWorkbook reports whether the workbook carries a "Schema Query" tab,
// the marker of an IoT sensor export.
func IsIoTWorkbook(data []byte) bool {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		if strings.Contains(strings.ToLower(name), schemaSheetMarker) {
			return true
		}
	}
	return false
}

type iotTotals struct {
	detected       int
	totalDwellTime int

	male          int
	female        int
	genderUnknown int

	ageLt10    int
	age10_16   int
	age17_30   int
	age31_45   int
	age46_60   int
	ageGt60    int
	ageUnknown int

	traffic  schema.IoTTraffic
	people   schema.IoTPeople
	vehicles schema.IoTVehicles

	deduplicated int

	maleG2          int
	femaleG2        int
	genderUnknownG2 int
	ageLt10G2       int
	age10_16G2      int
	age17_30G2      int
	age31_45G2      int
	age46_60G2      int
	ageGt60G2       int
	ageUnknownG2    int
}

// ProcessIoTSheet parses one IoT sensor workbook into a fully aggregated day.
// The vendor "Total" row is captured aside and excluded from accumulation, as
// are rows with no detections.
func ProcessIoTSheet(data []byte, filename, lang string) (*schema.IoTDay, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetNames := f.GetSheetList()
	var sheet string
	for _, name := range sheetNames {
		if strings.Contains(strings.ToLower(name), schemaSheetMarker) {
			sheet = name
			break
		}
	}
	if sheet == "" {
		return nil, ErrMissingSchemaSheet
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyData
	}

	var totalsRow []string
	var validRows [][]string
	for _, row := range rows[1:] {
		if strings.EqualFold(cell(row, colUnit), "total") {
			totalsRow = row
			continue
		}
		if num(cell(row, colTotalPeople)) > 0 {
			validRows = append(validRows, row)
		}
	}
	if len(validRows) == 0 {
		return nil, ErrEmptyData
	}

	firstTS, err := parseTimestamp(cell(validRows[0], colTime))
	if err != nil {
		return nil, fmt.Errorf("parse first timestamp: %w", err)
	}
	unitName := cell(validRows[0], colUnit)
	date := firstTS.UTC().Format("2006-01-02")

	location := extractStopID(filename, sheetNames, unitName)

	var totals iotTotals
	hourly := make([]schema.HourlyEntry, 0, len(validRows))
	for _, row := range validRows {
		ts, err := parseTimestamp(cell(row, colTime))
		if err != nil {
			return nil, fmt.Errorf("parse row timestamp: %w", err)
		}

		entry := schema.HourlyEntry{
			Hour:              ts.UTC().Format("15:04"),
			EntryLot:          num(cell(row, colEntryLot)),
			OutgoingBatch:     num(cell(row, colOutgoingBatch)),
			TotalPersons:      num(cell(row, colTotalPeople)),
			PeopleDetained:    num(cell(row, colPeopleDetained)),
			PeopleIn:          num(cell(row, colPeopleIn)),
			PeopleOut:         num(cell(row, colPeopleOut)),
			Passby:            num(cell(row, colPassby)),
			Turnback:          num(cell(row, colTurnback)),
			Adult:             num(cell(row, colAdult)),
			Children:          num(cell(row, colChildren)),
			Residents:         num(cell(row, colResidents)),
			EmployeeEntry:     num(cell(row, colEmployeeEntry)),
			CustomersEnter:    num(cell(row, colCustomersEnter)),
			VehicleEntry:      num(cell(row, colVehicleEntry)),
			VehicleExit:       num(cell(row, colVehicleExit)),
			Deduplicated:      num(cell(row, colDeduplicated)),
			TotalVehicles:     num(cell(row, colTotalVehicles)),
			EmployeesEntering: num(cell(row, colEmployeesEntering)),
			Gender: schema.GenderBreakdown{
				Man:     num(cell(row, colMale)),
				Woman:   num(cell(row, colFemale)),
				Unknown: num(cell(row, colGenderUnknown)),
			},
			Age: schema.AgeBreakdown{
				Age0_9:   num(cell(row, colAgeLt10)),
				Age10_16: num(cell(row, colAge10_16)),
				Age17_30: num(cell(row, colAge17_30)),
				Age31_45: num(cell(row, colAge31_45)),
				Age46_60: num(cell(row, colAge46_60)),
				Age60Up:  num(cell(row, colAgeGt60)),
				Unknown:  num(cell(row, colAgeUnknown)),
			},
			GenderG2: schema.GenderBreakdown{
				Man:     num(cell(row, colMaleG2)),
				Woman:   num(cell(row, colFemaleG2)),
				Unknown: num(cell(row, colGenderUnknownG2)),
			},
			AgeG2: schema.AgeBreakdown{
				Age0_9:   num(cell(row, colAgeLt10G2)),
				Age10_16: num(cell(row, colAge10_16G2)),
				Age17_30: num(cell(row, colAge17_30G2)),
				Age31_45: num(cell(row, colAge31_45G2)),
				Age46_60: num(cell(row, colAge46_60G2)),
				Age60Up:  num(cell(row, colAgeGt60G2)),
				Unknown:  num(cell(row, colAgeUnknownG2)),
			},
			AvgDwellMinutes: num(cell(row, colAvgDwellTime)),
		}
		hourly = append(hourly, entry)

		totals.detected += entry.TotalPersons
		totals.totalDwellTime += num(cell(row, colTotalDwellTime))
		totals.male += entry.Gender.Man
		totals.female += entry.Gender.Woman
		totals.genderUnknown += entry.Gender.Unknown
		totals.ageLt10 += entry.Age.Age0_9
		totals.age10_16 += entry.Age.Age10_16
		totals.age17_30 += entry.Age.Age17_30
		totals.age31_45 += entry.Age.Age31_45
		totals.age46_60 += entry.Age.Age46_60
		totals.ageGt60 += entry.Age.Age60Up
		totals.ageUnknown += entry.Age.Unknown
		totals.traffic.EntryLot += entry.EntryLot
		totals.traffic.OutgoingBatch += entry.OutgoingBatch
		totals.traffic.PeopleDetained += entry.PeopleDetained
		totals.traffic.PeopleIn += entry.PeopleIn
		totals.traffic.PeopleOut += entry.PeopleOut
		totals.traffic.Passby += entry.Passby
		totals.traffic.Turnback += entry.Turnback
		totals.people.Adult += entry.Adult
		totals.people.Children += entry.Children
		totals.people.Residents += entry.Residents
		totals.people.EmployeeEntry += entry.EmployeeEntry
		totals.people.CustomersEnter += entry.CustomersEnter
		totals.people.EmployeesEntering += entry.EmployeesEntering
		totals.vehicles.VehicleEntry += entry.VehicleEntry
		totals.vehicles.VehicleExit += entry.VehicleExit
		totals.vehicles.TotalVehicles += entry.TotalVehicles
		totals.deduplicated += entry.Deduplicated
		totals.maleG2 += entry.GenderG2.Man
		totals.femaleG2 += entry.GenderG2.Woman
		totals.genderUnknownG2 += entry.GenderG2.Unknown
		totals.ageLt10G2 += entry.AgeG2.Age0_9
		totals.age10_16G2 += entry.AgeG2.Age10_16
		totals.age17_30G2 += entry.AgeG2.Age17_30
		totals.age31_45G2 += entry.AgeG2.Age31_45
		totals.age46_60G2 += entry.AgeG2.Age46_60
		totals.ageGt60G2 += entry.AgeG2.Age60Up
		totals.ageUnknownG2 += entry.AgeG2.Unknown
	}

	peak := hourly[0]
	for _, h := range hourly[1:] {
		if h.TotalPersons > peak.TotalPersons {
			peak = h
		}
	}

	base := totals.detected
	identified := totals.male + totals.female + totals.genderUnknown
	notIdentified := base - identified

	avgDwell := 0
	if base > 0 {
		avgDwell = int(float64(totals.totalDwellTime)/float64(base) + 0.5)
	}

	g2Base := totals.maleG2 + totals.femaleG2 + totals.genderUnknownG2
	if g2Base == 0 {
		g2Base = base
	}
	g2AgeBase := totals.ageLt10G2 + totals.age10_16G2 + totals.age17_30G2 +
		totals.age31_45G2 + totals.age46_60G2 + totals.ageGt60G2 + totals.ageUnknownG2
	if g2AgeBase == 0 {
		g2AgeBase = base
	}

	day := &schema.IoTDay{
		Meta: schema.IoTMeta{
			Location:         location,
			Date:             date,
			MeasurementStart: hourly[0].Hour,
			MeasurementEnd:   hourly[len(hourly)-1].Hour,
			ActiveHours:      len(hourly),
			Note:             sensorNote,
			ProcessedAt:      time.Now().UTC().Format(time.RFC3339),
		},
		Summary: schema.IoTSummary{
			TotalDetected:      base,
			TotalIdentified:    identified,
			TotalNotIdentified: notIdentified,
			IdentificationRate: pct(identified, base),
			AvgDwellMinutes:    avgDwell,
			PeakHour: schema.PeakHour{
				Hour:       peak.Hour,
				Detected:   peak.TotalPersons,
				PctOfTotal: pct(peak.TotalPersons, base),
			},
			Traffic:      totals.traffic,
			People:       totals.people,
			Vehicles:     totals.vehicles,
			Deduplicated: totals.deduplicated,
		},
		Gender: schema.IoTGender{
			Male:          schema.CountPct{Count: totals.male, Pct: pct(totals.male, base)},
			Female:        schema.CountPct{Count: totals.female, Pct: pct(totals.female, base)},
			Unknown:       schema.CountPct{Count: totals.genderUnknown, Pct: pct(totals.genderUnknown, base)},
			NotIdentified: schema.CountPct{Count: notIdentified, Pct: pct(notIdentified, base)},
		},
		Age: schema.IoTAge{
			Under10:       schema.CountPct{Count: totals.ageLt10, Pct: pct(totals.ageLt10, base)},
			Age10_16:      schema.CountPct{Count: totals.age10_16, Pct: pct(totals.age10_16, base)},
			Age17_30:      schema.CountPct{Count: totals.age17_30, Pct: pct(totals.age17_30, base)},
			Age31_45:      schema.CountPct{Count: totals.age31_45, Pct: pct(totals.age31_45, base)},
			Age46_60:      schema.CountPct{Count: totals.age46_60, Pct: pct(totals.age46_60, base)},
			Over60:        schema.CountPct{Count: totals.ageGt60, Pct: pct(totals.ageGt60, base)},
			Unknown:       schema.CountPct{Count: totals.ageUnknown, Pct: pct(totals.ageUnknown, base)},
			NotIdentified: schema.CountPct{Count: notIdentified, Pct: pct(notIdentified, base)},
		},
		GenderG2: schema.IoTGender{
			Male:    schema.CountPct{Count: totals.maleG2, Pct: pct(totals.maleG2, g2Base)},
			Female:  schema.CountPct{Count: totals.femaleG2, Pct: pct(totals.femaleG2, g2Base)},
			Unknown: schema.CountPct{Count: totals.genderUnknownG2, Pct: pct(totals.genderUnknownG2, g2Base)},
		},
		AgeG2: schema.IoTAge{
			Under10:  schema.CountPct{Count: totals.ageLt10G2, Pct: pct(totals.ageLt10G2, g2AgeBase)},
			Age10_16: schema.CountPct{Count: totals.age10_16G2, Pct: pct(totals.age10_16G2, g2AgeBase)},
			Age17_30: schema.CountPct{Count: totals.age17_30G2, Pct: pct(totals.age17_30G2, g2AgeBase)},
			Age31_45: schema.CountPct{Count: totals.age31_45G2, Pct: pct(totals.age31_45G2, g2AgeBase)},
			Age46_60: schema.CountPct{Count: totals.age46_60G2, Pct: pct(totals.age46_60G2, g2AgeBase)},
			Over60:   schema.CountPct{Count: totals.ageGt60G2, Pct: pct(totals.ageGt60G2, g2AgeBase)},
			Unknown:  schema.CountPct{Count: totals.ageUnknownG2, Pct: pct(totals.ageUnknownG2, g2AgeBase)},
		},
		Hourly: hourly,
	}

	if totalsRow != nil {
		day.OfficialTotals = &schema.IoTOfficialTotals{
			PeopleIn:          num(cell(totalsRow, colPeopleIn)),
			PeopleOut:         num(cell(totalsRow, colPeopleOut)),
			Passby:            num(cell(totalsRow, colPassby)),
			Turnback:          num(cell(totalsRow, colTurnback)),
			PeopleDetained:    num(cell(totalsRow, colPeopleDetained)),
			EntryLot:          num(cell(totalsRow, colEntryLot)),
			OutgoingBatch:     num(cell(totalsRow, colOutgoingBatch)),
			Adult:             num(cell(totalsRow, colAdult)),
			Children:          num(cell(totalsRow, colChildren)),
			Residents:         num(cell(totalsRow, colResidents)),
			EmployeeEntry:     num(cell(totalsRow, colEmployeeEntry)),
			CustomersEnter:    num(cell(totalsRow, colCustomersEnter)),
			VehicleEntry:      num(cell(totalsRow, colVehicleEntry)),
			VehicleExit:       num(cell(totalsRow, colVehicleExit)),
			Deduplicated:      num(cell(totalsRow, colDeduplicated)),
			TotalDwellTime:    num(cell(totalsRow, colTotalDwellTime)),
			AvgDwellTime:      num(cell(totalsRow, colAvgDwellTime)),
			TotalPeople:       num(cell(totalsRow, colTotalPeople)),
			TotalVehicles:     num(cell(totalsRow, colTotalVehicles)),
			EmployeesEntering: num(cell(totalsRow, colEmployeesEntering)),
			Male:              num(cell(totalsRow, colMale)),
			Female:            num(cell(totalsRow, colFemale)),
			GenderUnknown:     num(cell(totalsRow, colGenderUnknown)),
		}
	}

	day.Observations = buildObservations(utils.NewLocalizer(lang), &totals, day.Summary.PeakHour, base, identified)

	return day, nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func buildObservations(l *i18n.Localizer, totals *iotTotals, peak schema.PeakHour, base, identified int) []string {
	obs := make([]string, 0, 6)

	obs = append(obs, utils.Localize(l, "obs_peak_hour", map[string]interface{}{
		"Hour":     peak.Hour,
		"Detected": peak.Detected,
		"Pct":      fmtFloat(peak.PctOfTotal),
	}))

	genderData := map[string]interface{}{
		"Male":      totals.male,
		"MalePct":   fmtFloat(pct(totals.male, base)),
		"Female":    totals.female,
		"FemalePct": fmtFloat(pct(totals.female, base)),
	}
	switch {
	case totals.male > totals.female:
		obs = append(obs, utils.Localize(l, "obs_gender_male", genderData))
	case totals.female > totals.male:
		obs = append(obs, utils.Localize(l, "obs_gender_female", genderData))
	default:
		obs = append(obs, utils.Localize(l, "obs_gender_balanced", genderData))
	}

	bands := []struct {
		label string
		value int
	}{
		{"<10", totals.ageLt10},
		{"10-16", totals.age10_16},
		{"17-30", totals.age17_30},
		{"31-45", totals.age31_45},
		{"46-60", totals.age46_60},
		{">60", totals.ageGt60},
	}
	dominant := bands[0]
	for _, b := range bands[1:] {
		if b.value > dominant.value {
			dominant = b
		}
	}
	obs = append(obs, utils.Localize(l, "obs_age_dominant", map[string]interface{}{
		"Band":  dominant.label,
		"Count": dominant.value,
		"Pct":   fmtFloat(pct(dominant.value, base)),
	}))

	idRate := pct(identified, base)
	rateID := "obs_id_rate_ok"
	if idRate < 50 {
		rateID = "obs_id_rate_low"
	}
	obs = append(obs, utils.Localize(l, rateID, map[string]interface{}{"Rate": fmtFloat(idRate)}))

	inOut := totals.traffic.PeopleIn + totals.traffic.PeopleOut
	if inOut > 0 {
		obs = append(obs, utils.Localize(l, "obs_flow", map[string]interface{}{
			"In":     totals.traffic.PeopleIn,
			"InPct":  fmtFloat(pct(totals.traffic.PeopleIn, inOut)),
			"Out":    totals.traffic.PeopleOut,
			"OutPct": fmtFloat(pct(totals.traffic.PeopleOut, inOut)),
		}))
	}

	if totals.vehicles.TotalVehicles > 0 || totals.vehicles.VehicleEntry > 0 {
		obs = append(obs, utils.Localize(l, "obs_vehicles", map[string]interface{}{
			"Total": totals.vehicles.TotalVehicles,
			"In":    totals.vehicles.VehicleEntry,
			"Out":   totals.vehicles.VehicleExit,
		}))
	} else {
		obs = append(obs, utils.Localize(l, "obs_no_vehicles", nil))
	}

	return obs
}

var (
	embeddedDate = regexp.MustCompile(`[_\-\s]?\d{4}[-_]\d{2}[-_]\d{2}[_\-\s]?`)
	codePattern  = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]*[-_][A-Za-z0-9]+(?:[-_][A-Za-z0-9]+)*`)
)

var genericFileNames = []string{"data", "export", "schema", "query", "report", "informe", "datos"}

// extractStopID derives a stop identifier from, in order of preference, the
// uploaded file name, a non-generic sheet tab, and the unit column value.
func extractStopID(filename string, sheetNames []string, unitName string) string {
	if filename != "" {
		baseName := strings.TrimSuffix(filename, filepath.Ext(filename))
		cleaned := embeddedDate.ReplaceAllString(baseName, "")
		cleaned = strings.Trim(cleaned, "_- \t")

		if cleaned != "" {
			if code := codePattern.FindString(cleaned); code != "" {
				return code
			}

			lower := strings.ToLower(cleaned)
			generic := false
			for _, g := range genericFileNames {
				if lower == g || strings.HasPrefix(lower, g+"_") || strings.HasPrefix(lower, g+"-") {
					generic = true
					break
				}
			}
			if !generic && len(cleaned) > 2 && len(cleaned) < 60 {
				return cleaned
			}
		}
	}

	var candidates []string
	for _, name := range sheetNames {
		lower := strings.ToLower(name)
		if strings.Contains(lower, schemaSheetMarker) ||
			strings.Contains(lower, "sheet") ||
			strings.Contains(lower, "hoja") ||
			len(lower) <= 1 || len(lower) >= 50 {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	if unitName != "" {
		return unitName
	}
	return "MARQUESINA_SIN_ID"
}

// BridgeRecord folds a processed IoT day into the canonical record shape so
// sensor uploads and classic exports land in the same collection.
func BridgeRecord(day *schema.IoTDay, stopCode string) schema.Record {
	adults := day.Summary.People.Adult
	if adults == 0 {
		adults = day.Summary.TotalIdentified
	}

	peak := day.Summary.PeakHour
	traffic := day.Summary.Traffic
	genderG2 := day.GenderG2
	ageG2 := day.AgeG2

	return schema.Record{
		StopCode: stopCode,
		Date:     day.Meta.Date,
		Entity:   day.Meta.Location,
		Totals: schema.Totals{
			Adults:             adults,
			Children:           day.Summary.People.Children,
			AfterDeduplication: day.Summary.Deduplicated,
			TotalNumber:        day.Summary.TotalDetected,
			HeavyEmployees:     day.Summary.People.EmployeesEntering,
		},
		Gender: schema.GenderBreakdown{
			Man:     day.Gender.Male.Count,
			Woman:   day.Gender.Female.Count,
			Unknown: day.Gender.Unknown.Count + day.Gender.NotIdentified.Count,
		},
		Age: schema.AgeBreakdown{
			Age0_9:   day.Age.Under10.Count,
			Age10_16: day.Age.Age10_16.Count,
			Age17_30: day.Age.Age17_30.Count,
			Age31_45: day.Age.Age31_45.Count,
			Age46_60: day.Age.Age46_60.Count,
			Age60Up:  day.Age.Over60.Count,
			Unknown:  day.Age.Unknown.Count + day.Age.NotIdentified.Count,
		},
		ResidenceTime: fmt.Sprintf("00:%02d:00", day.Summary.AvgDwellMinutes),
		Hourly:        day.Hourly,
		PeakHour:      &peak,
		TrafficTotals: &schema.TrafficTotals{
			EntryLot:       traffic.EntryLot,
			OutgoingBatch:  traffic.OutgoingBatch,
			PeopleDetained: traffic.PeopleDetained,
			PeopleIn:       traffic.PeopleIn,
			PeopleOut:      traffic.PeopleOut,
			Passby:         traffic.Passby,
			Turnback:       traffic.Turnback,
		},
		IoTReport: &schema.IoTReport{
			Meta:           day.Meta,
			Summary:        day.Summary,
			Gender:         day.Gender,
			Age:            day.Age,
			GenderG2:       &genderG2,
			AgeG2:          &ageG2,
			OfficialTotals: day.OfficialTotals,
			Observations:   day.Observations,
		},
	}
}
