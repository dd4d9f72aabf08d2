package ingest

import (
	"regexp"

	"github.com/twetter99/afluencia360/schema"
)

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateRecord checks a parsed record before persistence. Returned messages
// are blocking; a record with any of them is rejected, not stored.
func ValidateRecord(rec schema.Record) []string {
	var errs []string

	if !isoDate.MatchString(rec.Date) {
		errs = append(errs, "Fecha inválida (esperado YYYY-MM-DD)")
	}

	stopCode := ResolveStopCode(rec.StopCode, rec.Entity)
	if stopCode == FallbackStopCode {
		errs = append(errs, "Código de marquesina (stop_code) requerido")
	}

	counters := []int{
		rec.Totals.Adults,
		rec.Totals.Children,
		rec.Totals.AfterDeduplication,
		rec.Totals.TotalNumber,
		rec.Totals.HeavyEmployees,
	}
	for _, v := range counters {
		if v < 0 {
			errs = append(errs, "Las métricas numéricas no pueden ser negativas")
			break
		}
	}

	return errs
}
