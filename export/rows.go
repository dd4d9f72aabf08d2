package export

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
)

// DailyRow is one exported line of the afluencia_daily dataset: footfall per
// stop and calendar date.
type DailyRow struct {
	StopCode           string `json:"stopCode"`
	Date               string `json:"date"`
	TotalNumber        int    `json:"totalNumber"`
	AfterDeduplication int    `json:"afterDeduplication"`
	Man                int    `json:"man"`
	Woman              int    `json:"woman"`
	Unknown            int    `json:"unknown"`
}

// AlertRow is one exported line of the alerts dataset: alert count per day,
// rule type and severity.
type AlertRow struct {
	Date     string `json:"date"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Count    int    `json:"count"`
}

// BuildDailyRows folds records into one row per (stopCode, date), restricted
// to the allowed stop codes when a whitelist is configured.
func BuildDailyRows(records []schema.Record, allowedStopCodes []string) []DailyRow {
	allowed := map[string]bool{}
	for _, code := range allowedStopCodes {
		allowed[code] = true
	}

	byKey := map[string]*DailyRow{}
	for _, rec := range records {
		stopCode := ingest.ResolveStopCode(rec.StopCode, rec.Entity)
		if len(allowed) > 0 && !allowed[stopCode] {
			continue
		}
		if rec.Date == "" {
			continue
		}
		key := stopCode + "::" + rec.Date
		row, ok := byKey[key]
		if !ok {
			row = &DailyRow{StopCode: stopCode, Date: rec.Date}
			byKey[key] = row
		}
		row.TotalNumber += rec.Totals.TotalNumber
		row.AfterDeduplication += rec.Totals.AfterDeduplication
		row.Man += rec.Gender.Man
		row.Woman += rec.Gender.Woman
		row.Unknown += rec.Gender.Unknown
	}

	rows := make([]DailyRow, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		return rows[i].StopCode < rows[j].StopCode
	})
	return rows
}

// BuildAlertRows groups period alerts by (day, type, severity). The day is
// taken from lastSeenAt, falling back to firstSeenAt.
func BuildAlertRows(alerts []schema.Alert) []AlertRow {
	byKey := map[string]*AlertRow{}
	for _, alert := range alerts {
		ref := alert.LastSeenAt
		if ref == "" {
			ref = alert.FirstSeenAt
		}
		if len(ref) < 10 {
			continue
		}
		date := ref[:10]
		key := date + "::" + string(alert.Type) + "::" + string(alert.Severity)
		row, ok := byKey[key]
		if !ok {
			row = &AlertRow{Date: date, Type: string(alert.Type), Severity: string(alert.Severity)}
			byKey[key] = row
		}
		row.Count++
	}

	rows := make([]AlertRow, 0, len(byKey))
	for _, row := range byKey {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		if rows[i].Type != rows[j].Type {
			return rows[i].Type < rows[j].Type
		}
		return rows[i].Severity < rows[j].Severity
	})
	return rows
}

func (r DailyRow) csv() []string {
	return []string{
		r.StopCode,
		r.Date,
		strconv.Itoa(r.TotalNumber),
		strconv.Itoa(r.AfterDeduplication),
		strconv.Itoa(r.Man),
		strconv.Itoa(r.Woman),
		strconv.Itoa(r.Unknown),
	}
}

func (r AlertRow) csv() []string {
	return []string{r.Date, r.Type, r.Severity, strconv.Itoa(r.Count)}
}

// csvEncode quotes every cell so the output schema stays stable regardless
// of cell content.
func csvEncode(headers []string, lines [][]string) string {
	if len(lines) == 0 {
		return ""
	}
	all := append([][]string{headers}, lines...)
	encoded := make([]string, 0, len(all))
	for _, line := range all {
		cells := make([]string, 0, len(line))
		for _, cell := range line {
			cells = append(cells, `"`+strings.ReplaceAll(cell, `"`, `""`)+`"`)
		}
		encoded = append(encoded, strings.Join(cells, ","))
	}
	return strings.Join(encoded, "\n")
}

func dailyRowsCSV(rows []DailyRow) string {
	lines := make([][]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.csv())
	}
	return csvEncode([]string{"stopCode", "date", "totalNumber", "afterDeduplication", "man", "woman", "unknown"}, lines)
}

func alertRowsCSV(rows []AlertRow) string {
	lines := make([][]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.csv())
	}
	return csvEncode([]string{"date", "type", "severity", "count"}, lines)
}

func rowsJSON(rows interface{}) string {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(data)
}
