package schema

const (
	ReportCollection         = "reports"
	ReportTemplateCollection = "report_templates"
)

type ReportType string

const (
	ReportTypeStop      ReportType = "stop"
	ReportTypeMulti     ReportType = "multi"
	ReportTypeExecutive ReportType = "executive"
)

// ReportTemplate is a named section layout for rendered reports. The core
// only stores and lists templates; rendering is out of scope.
type ReportTemplate struct {
	ID         string            `bson:"_id" json:"id"`
	Name       string            `bson:"name" json:"name"`
	ReportType ReportType        `bson:"reportType" json:"reportType"`
	Sections   []string          `bson:"sections" json:"sections"`
	Branding   map[string]string `bson:"branding" json:"branding"`
	Formats    []string          `bson:"formats" json:"formats"`
}

type ReportFilters struct {
	StartDate       string   `bson:"startDate" json:"startDate"`
	EndDate         string   `bson:"endDate" json:"endDate"`
	StopCode        string   `bson:"stopCode,omitempty" json:"stopCode,omitempty"`
	StopCodes       []string `bson:"stopCodes" json:"stopCodes"`
	ComparePrevious bool     `bson:"comparePrevious" json:"comparePrevious"`
}

// Report is a generated report with its data snapshot frozen at generation
// time.
type Report struct {
	ID           string        `bson:"_id" json:"id"`
	Name         string        `bson:"name" json:"name"`
	Type         ReportType    `bson:"type" json:"type"`
	Status       string        `bson:"status" json:"status"`
	GeneratedBy  string        `bson:"generatedBy" json:"generatedBy"`
	GeneratedAt  string        `bson:"generatedAt" json:"generatedAt"`
	Format       string        `bson:"format" json:"format"`
	TemplateID   string        `bson:"templateId,omitempty" json:"templateId,omitempty"`
	Filters      ReportFilters `bson:"filters" json:"filters"`
	DataSnapshot interface{}   `bson:"dataSnapshot" json:"dataSnapshot"`
}

type PeakDay struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
	Hour  string `json:"hour,omitempty"`
}

type TrendPoint struct {
	Date  string `json:"date"`
	Total int    `json:"total"`
}

// StopReportPayload is the report-ready composition for a single stop.
type StopReportPayload struct {
	Type       ReportType      `json:"type"`
	StopCode   string          `json:"stopCode"`
	Scope      string          `json:"scope"`
	Period     Period          `json:"period"`
	KPIs       StopKPIs        `json:"kpis"`
	DailyTrend []TrendPoint    `json:"dailyTrend"`
	Gender     GenderBreakdown `json:"gender"`
	Age        AgeBreakdown    `json:"age"`
	TopAgeBand string          `json:"topAgeBand,omitempty"`
	Alerts     []Alert         `json:"alerts"`
	Notes      string          `json:"notes"`
}

type StopKPIs struct {
	Total    int      `json:"total"`
	DailyAvg int      `json:"dailyAvg"`
	PeakDay  *PeakDay `json:"peakDay"`
}

// MultiReportRow is one stop's line in the multi-stop ranking.
type MultiReportRow struct {
	StopCode string   `json:"stopCode"`
	Total    int      `json:"total"`
	DailyAvg int      `json:"dailyAvg"`
	Peak     *PeakDay `json:"peak"`
}

type Ranking struct {
	Top    []MultiReportRow `json:"top"`
	Bottom []MultiReportRow `json:"bottom"`
}

// PeriodVariance compares one stop's total against the immediately preceding
// period of equal length.
type PeriodVariance struct {
	StopCode      string   `json:"stopCode"`
	CurrentTotal  int      `json:"currentTotal"`
	PreviousTotal int      `json:"previousTotal"`
	VariationAbs  int      `json:"variationAbs"`
	VariationPct  *float64 `json:"variationPct"`
}

type MultiReportPayload struct {
	Type               ReportType         `json:"type"`
	Period             Period             `json:"period"`
	StopCodes          []string           `json:"stopCodes"`
	KPIs               StopKPIs           `json:"kpis"`
	Ranking            Ranking            `json:"ranking"`
	Comparisons        []MultiReportRow   `json:"comparisons"`
	Gender             GenderBreakdown    `json:"gender"`
	Age                AgeBreakdown       `json:"age"`
	AlertsByType       map[AlertType]int  `json:"alertsByType"`
	PreviousComparison []PeriodVariance   `json:"previousComparison,omitempty"`
}

type ExecutiveKPIs struct {
	CurrentTotal  int      `json:"currentTotal"`
	PreviousTotal int      `json:"previousTotal"`
	VariationAbs  int      `json:"variationAbs"`
	VariationPct  *float64 `json:"variationPct"`
}

type ExecutiveReportPayload struct {
	Type            ReportType       `json:"type"`
	Period          Period           `json:"period"`
	PreviousPeriod  Period           `json:"previousPeriod"`
	KPIs            ExecutiveKPIs    `json:"kpis"`
	TopGrowth       []PeriodVariance `json:"topGrowth"`
	TopDrop         []PeriodVariance `json:"topDrop"`
	CriticalAlerts  []Alert          `json:"criticalAlerts"`
	Insights        []string         `json:"insights"`
	Recommendations []string         `json:"recommendations"`
}
