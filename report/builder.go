package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"

	"github.com/twetter99/afluencia360/aggregate"
	"github.com/twetter99/afluencia360/alerting"
	"github.com/twetter99/afluencia360/ingest"
	"github.com/twetter99/afluencia360/schema"
	"github.com/twetter99/afluencia360/utils"
)

// recordLimit caps how many daily records feed one report.
const recordLimit = 400

var (
	ErrPeriodRequired  = fmt.Errorf("startDate and endDate are required")
	ErrStopRequired    = fmt.Errorf("a stop code is required for a stop report")
	ErrStopsRequired   = fmt.Errorf("at least one stop code is required")
	ErrUnsupportedType = fmt.Errorf("unsupported report type")
)

// RecordSource is the slice of the store the builder reads records from.
type RecordSource interface {
	ListRecords(filter schema.RecordFilter) ([]schema.Record, error)
}

type AlertSource interface {
	ListAlerts() ([]schema.Alert, error)
}

type ReportSink interface {
	SaveReport(report schema.Report) (*schema.Report, error)
}

// Builder composes report payloads out of stored records and alerts and
// freezes them into persisted reports.
type Builder struct {
	records RecordSource
	alerts  AlertSource
	reports ReportSink
	lang    string
	now     func() time.Time
}

func NewBuilder(records RecordSource, alerts AlertSource, reports ReportSink) *Builder {
	return &Builder{
		records: records,
		alerts:  alerts,
		reports: reports,
		lang:    "es",
		now:     time.Now,
	}
}

// GenerateParams mirrors the report generation request.
type GenerateParams struct {
	Type            schema.ReportType
	StartDate       string
	EndDate         string
	StopCode        string
	StopCodes       []string
	ComparePrevious bool
	GeneratedBy     string
	Format          string
	TemplateID      string
	Notes           string
}

// Generate builds the payload for the requested type and persists the
// resulting report with the data snapshot frozen at generation time.
func (b *Builder) Generate(params GenerateParams) (*schema.Report, error) {
	if params.StartDate == "" || params.EndDate == "" {
		return nil, ErrPeriodRequired
	}

	var payload interface{}
	switch params.Type {
	case schema.ReportTypeStop:
		stopCode := params.StopCode
		if stopCode == "" && len(params.StopCodes) > 0 {
			stopCode = params.StopCodes[0]
		}
		stopCode = ingest.ResolveStopCode(stopCode, "")
		if stopCode == ingest.FallbackStopCode {
			return nil, ErrStopRequired
		}
		p, err := b.BuildStopReport(stopCode, params.StartDate, params.EndDate, params.Notes)
		if err != nil {
			return nil, err
		}
		payload = p
	case schema.ReportTypeMulti:
		codes := normalizeCodes(params.StopCodes)
		if len(codes) == 0 {
			return nil, ErrStopsRequired
		}
		p, err := b.BuildMultiReport(codes, params.StartDate, params.EndDate, params.ComparePrevious)
		if err != nil {
			return nil, err
		}
		payload = p
	case schema.ReportTypeExecutive:
		codes := normalizeCodes(params.StopCodes)
		if len(codes) == 0 {
			return nil, ErrStopsRequired
		}
		p, err := b.BuildExecutiveReport(codes, params.StartDate, params.EndDate)
		if err != nil {
			return nil, err
		}
		payload = p
	default:
		return nil, ErrUnsupportedType
	}

	generatedBy := params.GeneratedBy
	if generatedBy == "" {
		generatedBy = "admin"
	}
	format := params.Format
	if format == "" {
		format = "pdf"
	}

	report := schema.Report{
		Name:        fmt.Sprintf("Informe %s %s a %s", params.Type, params.StartDate, params.EndDate),
		Type:        params.Type,
		Status:      "ready",
		GeneratedBy: generatedBy,
		GeneratedAt: b.now().UTC().Format(time.RFC3339),
		Format:      format,
		TemplateID:  params.TemplateID,
		Filters: schema.ReportFilters{
			StartDate:       params.StartDate,
			EndDate:         params.EndDate,
			StopCode:        params.StopCode,
			StopCodes:       append([]string{}, params.StopCodes...),
			ComparePrevious: params.ComparePrevious,
		},
		DataSnapshot: payload,
	}
	return b.reports.SaveReport(report)
}

// BuildStopReport composes the single-stop payload: headline KPIs, the daily
// trend, demographic folds and the alerts overlapping the period.
func (b *Builder) BuildStopReport(stopCode, startDate, endDate, notes string) (*schema.StopReportPayload, error) {
	records, err := b.records.ListRecords(schema.RecordFilter{
		StopCode:  stopCode,
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     recordLimit,
	})
	if err != nil {
		return nil, err
	}
	summary := aggregate.Summarize(records, stopCode, startDate, endDate)

	total := 0
	scope := stopCode
	gender := schema.GenderBreakdown{}
	age := schema.AgeBreakdown{}
	if summary != nil {
		total = summary.Totals.TotalNumber
		gender = summary.Gender
		age = summary.Age
	}
	for _, rec := range records {
		if rec.Entity != "" {
			scope = rec.Entity
			break
		}
	}
	dailyAvg := 0
	if len(records) > 0 {
		dailyAvg = roundDiv(total, len(records))
	}

	periodAlerts, err := b.alertsInPeriod(startDate, endDate, func(a schema.Alert) bool {
		return a.StopCode == stopCode
	})
	if err != nil {
		return nil, err
	}

	return &schema.StopReportPayload{
		Type:       schema.ReportTypeStop,
		StopCode:   stopCode,
		Scope:      scope,
		Period:     schema.Period{StartDate: startDate, EndDate: endDate},
		KPIs:       schema.StopKPIs{Total: total, DailyAvg: dailyAvg, PeakDay: pickPeakDay(records)},
		DailyTrend: dailyTrend(records),
		Gender:     gender,
		Age:        age,
		TopAgeBand: topAgeBand(age),
		Alerts:     periodAlerts,
		Notes:      notes,
	}, nil
}

// BuildMultiReport composes the fleet payload: per-stop ranking rows, the
// aggregate fold over all requested stops and the alert counts by rule type.
// With comparePrevious set it also ranks each stop against the preceding
// period of equal length.
func (b *Builder) BuildMultiReport(stopCodes []string, startDate, endDate string, comparePrevious bool) (*schema.MultiReportPayload, error) {
	rows, err := b.stopRows(stopCodes, startDate, endDate)
	if err != nil {
		return nil, err
	}

	aggregateRecords, err := b.records.ListRecords(schema.RecordFilter{
		StopCodes: stopCodes,
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     int64(recordLimit * len(stopCodes)),
	})
	if err != nil {
		return nil, err
	}
	summary := aggregate.Summarize(aggregateRecords, joinCodes(stopCodes), startDate, endDate)
	byDate := aggregate.ByDate(aggregateRecords)
	if len(byDate) > recordLimit {
		byDate = byDate[:recordLimit]
	}

	total := 0
	gender := schema.GenderBreakdown{}
	age := schema.AgeBreakdown{}
	if summary != nil {
		total = summary.Totals.TotalNumber
		gender = summary.Gender
		age = summary.Age
	}
	dailyAvg := 0
	if len(byDate) > 0 {
		dailyAvg = roundDiv(total, len(byDate))
	}

	inScope := map[string]bool{}
	for _, code := range stopCodes {
		inScope[code] = true
	}
	periodAlerts, err := b.alertsInPeriod(startDate, endDate, func(a schema.Alert) bool {
		return inScope[a.StopCode]
	})
	if err != nil {
		return nil, err
	}
	alertsByType := map[schema.AlertType]int{}
	for _, alert := range periodAlerts {
		alertsByType[alert.Type]++
	}

	payload := &schema.MultiReportPayload{
		Type:         schema.ReportTypeMulti,
		Period:       schema.Period{StartDate: startDate, EndDate: endDate},
		StopCodes:    stopCodes,
		KPIs:         schema.StopKPIs{Total: total, DailyAvg: dailyAvg, PeakDay: pickPeakDayDaily(byDate)},
		Ranking:      buildRanking(rows),
		Comparisons:  rows,
		Gender:       gender,
		Age:          age,
		AlertsByType: alertsByType,
	}

	if comparePrevious {
		previous := PreviousPeriod(startDate, endDate)
		prevRows, err := b.stopRows(stopCodes, previous.StartDate, previous.EndDate)
		if err != nil {
			return nil, err
		}
		prevTotals := map[string]int{}
		for _, row := range prevRows {
			prevTotals[row.StopCode] = row.Total
		}

		comparison := make([]schema.PeriodVariance, 0, len(rows))
		for _, row := range rows {
			previousTotal := prevTotals[row.StopCode]
			variance := schema.PeriodVariance{
				StopCode:      row.StopCode,
				CurrentTotal:  row.Total,
				PreviousTotal: previousTotal,
				VariationAbs:  row.Total - previousTotal,
			}
			if previousTotal > 0 {
				pct := float64(variance.VariationAbs) / float64(previousTotal) * 100
				variance.VariationPct = &pct
			}
			comparison = append(comparison, variance)
		}
		sort.SliceStable(comparison, func(i, j int) bool {
			return comparison[i].VariationAbs > comparison[j].VariationAbs
		})
		payload.PreviousComparison = comparison
	}

	return payload, nil
}

// BuildExecutiveReport composes the fleet-wide executive payload on top of
// the multi report: period-over-period KPIs, the growth and drop leaders,
// the critical alerts and localized insight lines.
func (b *Builder) BuildExecutiveReport(stopCodes []string, startDate, endDate string) (*schema.ExecutiveReportPayload, error) {
	multi, err := b.BuildMultiReport(stopCodes, startDate, endDate, true)
	if err != nil {
		return nil, err
	}
	previous := PreviousPeriod(startDate, endDate)

	previousTotal := 0
	for _, variance := range multi.PreviousComparison {
		previousTotal += variance.PreviousTotal
	}
	currentTotal := multi.KPIs.Total

	topGrowth := make([]schema.PeriodVariance, 0, 5)
	for _, variance := range multi.PreviousComparison {
		if variance.VariationAbs > 0 && len(topGrowth) < 5 {
			topGrowth = append(topGrowth, variance)
		}
	}
	topDrop := make([]schema.PeriodVariance, 0, 5)
	for i := len(multi.PreviousComparison) - 1; i >= 0 && len(topDrop) < 5; i-- {
		if multi.PreviousComparison[i].VariationAbs < 0 {
			topDrop = append(topDrop, multi.PreviousComparison[i])
		}
	}

	inScope := map[string]bool{}
	for _, code := range stopCodes {
		inScope[code] = true
	}
	criticalAlerts, err := b.alertsInPeriod(startDate, endDate, func(a schema.Alert) bool {
		return inScope[a.StopCode] && a.Severity == schema.AlertSeverityCritical
	})
	if err != nil {
		return nil, err
	}
	if len(criticalAlerts) > 20 {
		criticalAlerts = criticalAlerts[:20]
	}

	kpis := schema.ExecutiveKPIs{
		CurrentTotal:  currentTotal,
		PreviousTotal: previousTotal,
		VariationAbs:  currentTotal - previousTotal,
	}
	if previousTotal > 0 {
		pct := float64(kpis.VariationAbs) / float64(previousTotal) * 100
		kpis.VariationPct = &pct
	}

	localizer := utils.NewLocalizer(b.lang)
	return &schema.ExecutiveReportPayload{
		Type:           schema.ReportTypeExecutive,
		Period:         schema.Period{StartDate: startDate, EndDate: endDate},
		PreviousPeriod: previous,
		KPIs:           kpis,
		TopGrowth:      topGrowth,
		TopDrop:        topDrop,
		CriticalAlerts: criticalAlerts,
		Insights:       buildInsights(localizer, kpis, topGrowth, topDrop, len(criticalAlerts)),
		Recommendations: []string{
			utils.Localize(localizer, "rec_investigate_drops", nil),
			utils.Localize(localizer, "rec_check_sensors", nil),
			utils.Localize(localizer, "rec_attend_critical", nil),
		},
	}, nil
}

// stopRows builds one ranking row per stop, sorted by total descending.
func (b *Builder) stopRows(stopCodes []string, startDate, endDate string) ([]schema.MultiReportRow, error) {
	rows := make([]schema.MultiReportRow, 0, len(stopCodes))
	for _, stopCode := range stopCodes {
		records, err := b.records.ListRecords(schema.RecordFilter{
			StopCode:  stopCode,
			StartDate: startDate,
			EndDate:   endDate,
			Limit:     recordLimit,
		})
		if err != nil {
			return nil, err
		}
		total := 0
		for _, rec := range records {
			total += rec.Totals.TotalNumber
		}
		dailyAvg := 0
		if len(records) > 0 {
			dailyAvg = roundDiv(total, len(records))
		}
		rows = append(rows, schema.MultiReportRow{
			StopCode: stopCode,
			Total:    total,
			DailyAvg: dailyAvg,
			Peak:     pickPeakDay(records),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Total > rows[j].Total })
	return rows, nil
}

func (b *Builder) alertsInPeriod(startDate, endDate string, match func(schema.Alert) bool) ([]schema.Alert, error) {
	all, err := b.alerts.ListAlerts()
	if err != nil {
		return nil, err
	}
	matched := []schema.Alert{}
	for _, alert := range all {
		if match(alert) && alertInPeriod(alert, startDate, endDate) {
			matched = append(matched, alert)
		}
	}
	return alerting.SortAlerts(matched), nil
}

func buildRanking(rows []schema.MultiReportRow) schema.Ranking {
	top := rows
	if len(top) > 10 {
		top = top[:10]
	}
	bottomCount := len(rows)
	if bottomCount > 10 {
		bottomCount = 10
	}
	bottom := make([]schema.MultiReportRow, 0, bottomCount)
	for i := len(rows) - 1; i >= len(rows)-bottomCount; i-- {
		bottom = append(bottom, rows[i])
	}
	return schema.Ranking{
		Top:    append([]schema.MultiReportRow{}, top...),
		Bottom: bottom,
	}
}

func buildInsights(localizer *i18n.Localizer, kpis schema.ExecutiveKPIs, topGrowth, topDrop []schema.PeriodVariance, criticalCount int) []string {
	insights := []string{
		utils.Localize(localizer, "insight_total", map[string]interface{}{
			"Total": strconv.Itoa(kpis.CurrentTotal),
		}),
	}

	if kpis.VariationPct != nil {
		insights = append(insights, utils.Localize(localizer, "insight_variation", map[string]interface{}{
			"Variation": signedPct(*kpis.VariationPct),
		}))
	} else {
		insights = append(insights, utils.Localize(localizer, "insight_no_baseline", nil))
	}

	if len(topGrowth) > 0 {
		insights = append(insights, utils.Localize(localizer, "insight_top_growth", map[string]interface{}{
			"StopCode":  topGrowth[0].StopCode,
			"Variation": varianceLabel(topGrowth[0]),
		}))
	} else {
		insights = append(insights, utils.Localize(localizer, "insight_no_growth", nil))
	}

	if len(topDrop) > 0 {
		insights = append(insights, utils.Localize(localizer, "insight_top_drop", map[string]interface{}{
			"StopCode":  topDrop[0].StopCode,
			"Variation": varianceLabel(topDrop[0]),
		}))
	} else {
		insights = append(insights, utils.Localize(localizer, "insight_no_drop", nil))
	}

	insights = append(insights, utils.Localize(localizer, "insight_critical_alerts", map[string]interface{}{
		"Count": strconv.Itoa(criticalCount),
	}))
	return insights
}

func varianceLabel(v schema.PeriodVariance) string {
	if v.VariationPct != nil {
		return signedPct(*v.VariationPct)
	}
	return signedInt(v.VariationAbs)
}

func signedPct(v float64) string {
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if v >= 0 {
		return "+" + s
	}
	return s
}

func signedInt(v int) string {
	if v >= 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

func pickPeakDay(records []schema.Record) *schema.PeakDay {
	var best *schema.PeakDay
	for _, rec := range records {
		total := rec.Totals.TotalNumber
		if best == nil || total > best.Total {
			hour := ""
			if rec.PeakHour != nil {
				hour = rec.PeakHour.Hour
			}
			best = &schema.PeakDay{Date: rec.Date, Total: total, Hour: hour}
		}
	}
	return best
}

func pickPeakDayDaily(days []schema.DailySummary) *schema.PeakDay {
	var best *schema.PeakDay
	for _, day := range days {
		total := day.Totals.TotalNumber
		if best == nil || total > best.Total {
			hour := ""
			if day.PeakHour != nil {
				hour = day.PeakHour.Hour
			}
			best = &schema.PeakDay{Date: day.Date, Total: total, Hour: hour}
		}
	}
	return best
}

func dailyTrend(records []schema.Record) []schema.TrendPoint {
	trend := make([]schema.TrendPoint, 0, len(records))
	for _, rec := range records {
		trend = append(trend, schema.TrendPoint{Date: rec.Date, Total: rec.Totals.TotalNumber})
	}
	sort.SliceStable(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	return trend
}

// topAgeBand returns the named band with the highest count, empty when all
// bands are zero. The unknown bucket never wins.
func topAgeBand(age schema.AgeBreakdown) string {
	bands := []struct {
		name  string
		count int
	}{
		{"0-9", age.Age0_9},
		{"10-16", age.Age10_16},
		{"17-30", age.Age17_30},
		{"31-45", age.Age31_45},
		{"46-60", age.Age46_60},
		{"60+", age.Age60Up},
	}
	best := ""
	bestCount := 0
	for _, band := range bands {
		if band.count > bestCount {
			bestCount = band.count
			best = band.name
		}
	}
	return best
}

func roundDiv(total, count int) int {
	if count == 0 {
		return 0
	}
	return int(float64(total)/float64(count) + 0.5)
}

func normalizeCodes(codes []string) []string {
	normalized := make([]string, 0, len(codes))
	for _, code := range codes {
		resolved := ingest.ResolveStopCode(code, "")
		if resolved == ingest.FallbackStopCode {
			continue
		}
		normalized = append(normalized, resolved)
	}
	return normalized
}

func joinCodes(codes []string) string {
	return strings.Join(codes, ", ")
}
