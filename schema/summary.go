package schema

// Period is an inclusive date range in YYYY-MM-DD.
type Period struct {
	StartDate string `bson:"startDate,omitempty" json:"startDate,omitempty"`
	EndDate   string `bson:"endDate,omitempty" json:"endDate,omitempty"`
}

// Summary is the additive fold of N canonical records over a scope and date
// range. It is derived on every read and never persisted.
type Summary struct {
	Scope            string          `json:"scope"`
	Period           Period          `json:"period"`
	TotalRecords     int             `json:"totalRecords"`
	Totals           Totals          `json:"totals"`
	Gender           GenderBreakdown `json:"gender"`
	Age              AgeBreakdown    `json:"age"`
	AgeHeavy         AgeBreakdown    `json:"ageHeavy"`
	AvgResidenceTime string          `json:"avgResidenceTime"`
	PassengerFlow    *PassengerFlow  `json:"passengerFlow"`
	Hourly           []HourlyEntry   `json:"hourly,omitempty"`
	PeakHour         *PeakHour       `json:"peakHour,omitempty"`
	TrafficTotals    *TrafficTotals  `json:"trafficTotals,omitempty"`
}

// DailySummary is one per-date rollup row produced by grouping the same fold
// by calendar date.
type DailySummary struct {
	Date          string          `json:"date"`
	Totals        Totals          `json:"totals"`
	Gender        GenderBreakdown `json:"gender"`
	Age           AgeBreakdown    `json:"age"`
	AgeHeavy      AgeBreakdown    `json:"ageHeavy"`
	ResidenceTime string          `json:"residenceTime"`
	Hourly        []HourlyEntry   `json:"hourly,omitempty"`
	PeakHour      *PeakHour       `json:"peakHour,omitempty"`
	TrafficTotals *TrafficTotals  `json:"trafficTotals,omitempty"`
}
