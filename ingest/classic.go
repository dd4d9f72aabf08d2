package ingest

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/twetter99/afluencia360/schema"
)

// ClassicParse is the output of parsing one classic-format workbook. Unmapped
// headers and coercion warnings are reported, never fatal.
type ClassicParse struct {
	TotalRows       int
	Records         []schema.Record
	UnmappedHeaders []string
	Warnings        []schema.RowError
}

// classicHeaders maps recognized header spellings to canonical field names.
// Order matters: the first entry whose normalized key equals or is contained
// in the normalized header wins.
var classicHeaders = []struct{ key, field string }{
	{"codigo", "stopCode"},
	{"código", "stopCode"},
	{"codigo marquesina", "stopCode"},
	{"código marquesina", "stopCode"},
	{"stop_code", "stopCode"},
	{"stop code", "stopCode"},
	{"marquesina", "stopCode"},
	{"fecha", "date"},
	{"date", "date"},
	{"entidad", "entity"},
	{"entity", "entity"},
	{"adultos", "adults"},
	{"adult", "adults"},
	{"adults", "adults"},
	{"niños", "children"},
	{"ninos", "children"},
	{"children", "children"},
	{"deduplicados", "afterDeduplication"},
	{"after deduplication", "afterDeduplication"},
	{"deduplication", "afterDeduplication"},
	{"numero total", "totalNumber"},
	{"número total", "totalNumber"},
	{"total number", "totalNumber"},
	{"total", "totalNumber"},
	{"empleados heavy", "heavyEmployees"},
	{"go heavy employees", "heavyEmployees"},
	{"heavy employees", "heavyEmployees"},
	{"tiempo residencia", "residenceTime"},
	{"total residence time", "residenceTime"},
	{"residence time", "residenceTime"},
	{"genero hombre", "genderMan"},
	{"género hombre", "genderMan"},
	{"man", "genderMan"},
	{"hombre", "genderMan"},
	{"genero mujer", "genderWoman"},
	{"género mujer", "genderWoman"},
	{"woman", "genderWoman"},
	{"mujer", "genderWoman"},
	{"genero desconocido", "genderUnknown"},
	{"género desconocido", "genderUnknown"},
	{"gender unknown", "genderUnknown"},
	{"desconocido genero", "genderUnknown"},
	{"edad 0-9", "age0_9"},
	{"age 0-9", "age0_9"},
	{"0-9", "age0_9"},
	{"edad 10-16", "age10_16"},
	{"age 10-16", "age10_16"},
	{"10-16", "age10_16"},
	{"edad 17-30", "age17_30"},
	{"age 17-30", "age17_30"},
	{"17-30", "age17_30"},
	{"edad 31-45", "age31_45"},
	{"age 31-45", "age31_45"},
	{"31-45", "age31_45"},
	{"edad 46-60", "age46_60"},
	{"age 46-60", "age46_60"},
	{"46-60", "age46_60"},
	{"edad 60+", "age60plus"},
	{"age 60+", "age60plus"},
	{"age 60-", "age60plus"},
	{"60+", "age60plus"},
	{"60-", "age60plus"},
	{"edad desconocido", "ageUnknown"},
	{"age unknown", "ageUnknown"},
	{"heavy edad 0-9", "heavyAge0_9"},
	{"heavy age 0-9", "heavyAge0_9"},
	{"heavy 0-9", "heavyAge0_9"},
	{"heavy edad 10-16", "heavyAge10_16"},
	{"heavy age 10-16", "heavyAge10_16"},
	{"heavy 10-16", "heavyAge10_16"},
	{"heavy edad 17-30", "heavyAge17_30"},
	{"heavy age 17-30", "heavyAge17_30"},
	{"heavy 17-30", "heavyAge17_30"},
	{"heavy edad 31-45", "heavyAge31_45"},
	{"heavy age 31-45", "heavyAge31_45"},
	{"heavy 31-45", "heavyAge31_45"},
	{"heavy edad 46-60", "heavyAge46_60"},
	{"heavy age 46-60", "heavyAge46_60"},
	{"heavy 46-60", "heavyAge46_60"},
	{"heavy edad 60+", "heavyAge60plus"},
	{"heavy age 60+", "heavyAge60plus"},
	{"heavy 60+", "heavyAge60plus"},
	{"heavy edad desconocido", "heavyAgeUnknown"},
	{"heavy age unknown", "heavyAgeUnknown"},
	{"flujo ayer", "flowYesterday"},
	{"yesterday flow", "flowYesterday"},
	{"chain index ayer", "chainIndexYesterday"},
	{"yoy ayer", "yoyYesterday"},
	{"flujo semana", "flowWeek"},
	{"week flow", "flowWeek"},
	{"chain index semana", "chainIndexWeek"},
	{"yoy semana", "yoyWeek"},
	{"flujo mes", "flowMonth"},
	{"month flow", "flowMonth"},
	{"chain index mes", "chainIndexMonth"},
	{"yoy mes", "yoyMonth"},
	{"flujo año", "flowYear"},
	{"flujo ano", "flowYear"},
	{"year flow", "flowYear"},
	{"chain index año", "chainIndexYear"},
	{"chain index ano", "chainIndexYear"},
}

func normalizeHeader(h string) string {
	return stripDiacritics(strings.ToLower(strings.TrimSpace(h)))
}

// mapHeaders resolves each column header to a canonical field, "" when no
// entry matches.
func mapHeaders(headers []string) ([]string, []string) {
	fields := make([]string, len(headers))
	var unmapped []string

	for i, h := range headers {
		if strings.TrimSpace(h) == "" {
			continue
		}
		normalized := normalizeHeader(h)
		for _, entry := range classicHeaders {
			key := normalizeHeader(entry.key)
			if normalized == key || strings.Contains(normalized, key) {
				fields[i] = entry.field
				break
			}
		}
		if fields[i] == "" {
			unmapped = append(unmapped, h)
		}
	}
	return fields, unmapped
}

var classicDateLayouts = []string{"2006-01-02", "02/01/2006", "2006/01/02", "02-01-2006"}

// coerceDate turns a raw date cell into YYYY-MM-DD. Typed date cells arrive
// as spreadsheet serials; a blank cell becomes today. An unparseable string
// is passed through untouched.
func coerceDate(raw string, now time.Time) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC().Format("2006-01-02")
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		if t, err := excelize.ExcelDateToTime(serial, false); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range classicDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return raw
}

// ParseClassicSheet parses the first sheet of a classic-format workbook into
// canonical records. Cells that fail numeric coercion become 0 and a warning
// is collected; nothing short of an unreadable workbook is fatal.
func ParseClassicSheet(data []byte, filename string) (*ClassicParse, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyData
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return nil, ErrEmptyData
	}

	fields, unmapped := mapHeaders(rows[0])

	parse := &ClassicParse{UnmappedHeaders: unmapped}
	now := time.Now()

	for i, row := range rows[1:] {
		rowIndex := i + 2

		mapped := map[string]string{}
		for col, field := range fields {
			if field != "" {
				mapped[field] = cell(row, col)
			}
		}

		numField := func(field string) int {
			raw := mapped[field]
			if raw == "" {
				return 0
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				parse.Warnings = append(parse.Warnings, schema.RowError{
					Row:      rowIndex,
					Column:   field,
					Value:    raw,
					Message:  "valor no numérico, se usa 0",
					Severity: schema.RowErrorSeverityWarning,
				})
				return 0
			}
			return int(math.Round(v))
		}
		floatField := func(field string) float64 {
			raw := mapped[field]
			if raw == "" {
				return 0
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				parse.Warnings = append(parse.Warnings, schema.RowError{
					Row:      rowIndex,
					Column:   field,
					Value:    raw,
					Message:  "valor no numérico, se usa 0",
					Severity: schema.RowErrorSeverityWarning,
				})
				return 0
			}
			return v
		}

		entity := mapped["entity"]
		if entity == "" {
			entity = "Sin entidad"
		}
		residence := mapped["residenceTime"]
		if residence == "" {
			residence = "00:00:00"
		}

		rec := schema.Record{
			StopCode: strings.TrimSpace(mapped["stopCode"]),
			Date:     coerceDate(mapped["date"], now),
			Entity:   entity,
			Totals: schema.Totals{
				Adults:             numField("adults"),
				Children:           numField("children"),
				AfterDeduplication: numField("afterDeduplication"),
				TotalNumber:        numField("totalNumber"),
				HeavyEmployees:     numField("heavyEmployees"),
			},
			ResidenceTime: residence,
			Gender: schema.GenderBreakdown{
				Man:     numField("genderMan"),
				Woman:   numField("genderWoman"),
				Unknown: numField("genderUnknown"),
			},
			Age: schema.AgeBreakdown{
				Age0_9:   numField("age0_9"),
				Age10_16: numField("age10_16"),
				Age17_30: numField("age17_30"),
				Age31_45: numField("age31_45"),
				Age46_60: numField("age46_60"),
				Age60Up:  numField("age60plus"),
				Unknown:  numField("ageUnknown"),
			},
			AgeHeavy: schema.AgeBreakdown{
				Age0_9:   numField("heavyAge0_9"),
				Age10_16: numField("heavyAge10_16"),
				Age17_30: numField("heavyAge17_30"),
				Age31_45: numField("heavyAge31_45"),
				Age46_60: numField("heavyAge46_60"),
				Age60Up:  numField("heavyAge60plus"),
				Unknown:  numField("heavyAgeUnknown"),
			},
			PassengerFlow: &schema.PassengerFlow{
				Yesterday: schema.FlowPeriod{
					Value:      floatField("flowYesterday"),
					ChainIndex: floatField("chainIndexYesterday"),
					YoY:        floatField("yoyYesterday"),
				},
				LastWeek: schema.FlowPeriod{
					Value:      floatField("flowWeek"),
					ChainIndex: floatField("chainIndexWeek"),
					YoY:        floatField("yoyWeek"),
				},
				LastMonth: schema.FlowPeriod{
					Value:      floatField("flowMonth"),
					ChainIndex: floatField("chainIndexMonth"),
					YoY:        floatField("yoyMonth"),
				},
				ThisYear: schema.FlowPeriod{
					Value:      floatField("flowYear"),
					ChainIndex: floatField("chainIndexYear"),
				},
			},
			UploadedFile: filename,
			RowIndex:     rowIndex,
		}

		parse.Records = append(parse.Records, rec)
	}

	parse.TotalRows = len(parse.Records)
	return parse, nil
}
