package schema

const (
	RecordCollection = "afluencia_records"
	IoTDayCollection = "marquesina_days"
)

// Totals holds the headline counters of one canonical per-day record.
type Totals struct {
	Adults             int `bson:"adults" json:"adults"`
	Children           int `bson:"children" json:"children"`
	AfterDeduplication int `bson:"afterDeduplication" json:"afterDeduplication"`
	TotalNumber        int `bson:"totalNumber" json:"totalNumber"`
	HeavyEmployees     int `bson:"heavyEmployees" json:"heavyEmployees"`
}

type GenderBreakdown struct {
	Man     int `bson:"man" json:"man"`
	Woman   int `bson:"woman" json:"woman"`
	Unknown int `bson:"unknown" json:"unknown"`
}

// AgeBreakdown uses the seven fixed age buckets shared by both ingestion
// formats.
type AgeBreakdown struct {
	Age0_9   int `bson:"age0_9" json:"0-9"`
	Age10_16 int `bson:"age10_16" json:"10-16"`
	Age17_30 int `bson:"age17_30" json:"17-30"`
	Age31_45 int `bson:"age31_45" json:"31-45"`
	Age46_60 int `bson:"age46_60" json:"46-60"`
	Age60Up  int `bson:"age60up" json:"60+"`
	Unknown  int `bson:"unknown" json:"unknown"`
}

// Add accumulates another breakdown into the receiver.
func (a *AgeBreakdown) Add(b AgeBreakdown) {
	a.Age0_9 += b.Age0_9
	a.Age10_16 += b.Age10_16
	a.Age17_30 += b.Age17_30
	a.Age31_45 += b.Age31_45
	a.Age46_60 += b.Age46_60
	a.Age60Up += b.Age60Up
	a.Unknown += b.Unknown
}

type FlowPeriod struct {
	Value      float64 `bson:"value" json:"value"`
	ChainIndex float64 `bson:"chainIndex" json:"chainIndex"`
	YoY        float64 `bson:"yoy" json:"yoy"`
}

// PassengerFlow carries the comparative flow figures present only in the
// classic export format.
type PassengerFlow struct {
	Yesterday FlowPeriod `bson:"yesterday" json:"yesterday"`
	LastWeek  FlowPeriod `bson:"lastWeek" json:"lastWeek"`
	LastMonth FlowPeriod `bson:"lastMonth" json:"lastMonth"`
	ThisYear  FlowPeriod `bson:"thisYear" json:"thisYear"`
}

// Add sums another flow field-by-field into the receiver.
func (f *PassengerFlow) Add(g PassengerFlow) {
	addPeriod := func(dst *FlowPeriod, src FlowPeriod) {
		dst.Value += src.Value
		dst.ChainIndex += src.ChainIndex
		dst.YoY += src.YoY
	}
	addPeriod(&f.Yesterday, g.Yesterday)
	addPeriod(&f.LastWeek, g.LastWeek)
	addPeriod(&f.LastMonth, g.LastMonth)
	addPeriod(&f.ThisYear, g.ThisYear)
}

// HourlyEntry is one active hour of IoT sensor counters. Hour is an
// "HH:MM" bucket.
type HourlyEntry struct {
	Hour              string          `bson:"hour" json:"hour"`
	EntryLot          int             `bson:"entryLot" json:"entryLot"`
	OutgoingBatch     int             `bson:"outgoingBatch" json:"outgoingBatch"`
	TotalPersons      int             `bson:"totalPersons" json:"totalPersons"`
	PeopleDetained    int             `bson:"peopleDet" json:"peopleDet"`
	PeopleIn          int             `bson:"peopleIn" json:"peopleIn"`
	PeopleOut         int             `bson:"peopleOut" json:"peopleOut"`
	Passby            int             `bson:"passby" json:"passby"`
	Turnback          int             `bson:"turnback" json:"turnback"`
	Adult             int             `bson:"adult" json:"adult"`
	Children          int             `bson:"children" json:"children"`
	Residents         int             `bson:"residents" json:"residents"`
	EmployeeEntry     int             `bson:"employeeEntry" json:"employeeEntry"`
	CustomersEnter    int             `bson:"customersEnter" json:"customersEnter"`
	VehicleEntry      int             `bson:"vehicleEntry" json:"vehicleEntry"`
	VehicleExit       int             `bson:"vehicleExit" json:"vehicleExit"`
	Deduplicated      int             `bson:"deduplicated" json:"deduplicated"`
	TotalVehicles     int             `bson:"totalVehicles" json:"totalVehicles"`
	EmployeesEntering int             `bson:"employeesEntering" json:"employeesEntering"`
	Gender            GenderBreakdown `bson:"gender" json:"gender"`
	Age               AgeBreakdown    `bson:"age" json:"age"`
	GenderG2          GenderBreakdown `bson:"genderG2" json:"genderG2"`
	AgeG2             AgeBreakdown    `bson:"ageG2" json:"ageG2"`
	AvgDwellMinutes   int             `bson:"avgDwellMinutes" json:"avgDwellMinutes"`
}

type PeakHour struct {
	Hour       string  `bson:"hour" json:"hour"`
	Detected   int     `bson:"detected" json:"detected"`
	PctOfTotal float64 `bson:"pct_of_total" json:"pct_of_total"`
}

// TrafficTotals are the seven directional flow counters summed over the
// measurement window.
type TrafficTotals struct {
	EntryLot       int `bson:"entryLot" json:"entryLot"`
	OutgoingBatch  int `bson:"outgoingBatch" json:"outgoingBatch"`
	PeopleDetained int `bson:"peopleDet" json:"peopleDet"`
	PeopleIn       int `bson:"peopleIn" json:"peopleIn"`
	PeopleOut      int `bson:"peopleOut" json:"peopleOut"`
	Passby         int `bson:"passby" json:"passby"`
	Turnback       int `bson:"turnback" json:"turnback"`
}

// Add accumulates another set of traffic totals into the receiver.
func (t *TrafficTotals) Add(u TrafficTotals) {
	t.EntryLot += u.EntryLot
	t.OutgoingBatch += u.OutgoingBatch
	t.PeopleDetained += u.PeopleDetained
	t.PeopleIn += u.PeopleIn
	t.PeopleOut += u.PeopleOut
	t.Passby += u.Passby
	t.Turnback += u.Turnback
}

// Record is one stop's observations for one calendar date. There is at most
// one record per (stopCode, date) pair; a second upload for the same pair
// fully replaces the first.
type Record struct {
	ID            string          `bson:"_id,omitempty" json:"id"`
	StopCode      string          `bson:"stopCode" json:"stopCode"`
	Date          string          `bson:"date" json:"date"`
	Entity        string          `bson:"entity" json:"entity"`
	Totals        Totals          `bson:"totals" json:"totals"`
	Gender        GenderBreakdown `bson:"gender" json:"gender"`
	Age           AgeBreakdown    `bson:"age" json:"age"`
	AgeHeavy      AgeBreakdown    `bson:"ageHeavy" json:"ageHeavy"`
	ResidenceTime string          `bson:"residenceTime" json:"residenceTime"`
	PassengerFlow *PassengerFlow  `bson:"passengerFlow,omitempty" json:"passengerFlow,omitempty"`
	Hourly        []HourlyEntry   `bson:"hourly,omitempty" json:"hourly,omitempty"`
	PeakHour      *PeakHour       `bson:"peakHour,omitempty" json:"peakHour,omitempty"`
	TrafficTotals *TrafficTotals  `bson:"trafficTotals,omitempty" json:"trafficTotals,omitempty"`
	IoTReport     *IoTReport      `bson:"iotReport,omitempty" json:"iotReport,omitempty"`
	UploadedFile  string          `bson:"uploadedFile,omitempty" json:"uploadedFile,omitempty"`
	UploadID      string          `bson:"uploadId,omitempty" json:"uploadId,omitempty"`
	UploadedAt    string          `bson:"uploadedAt,omitempty" json:"uploadedAt,omitempty"`
	RowIndex      int             `bson:"-" json:"-"`
}

// RecordFilter narrows record queries. Zero values mean "no constraint".
type RecordFilter struct {
	StopCode  string
	StopCodes []string
	Entity    string
	StartDate string
	EndDate   string
	Limit     int64
}
