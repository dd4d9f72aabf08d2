package schema

// CountPct is a counter with its share of the detection base, one decimal.
type CountPct struct {
	Count int     `bson:"count" json:"count"`
	Pct   float64 `bson:"pct" json:"pct"`
}

type IoTMeta struct {
	Location         string `bson:"location" json:"location"`
	Date             string `bson:"date" json:"date"`
	MeasurementStart string `bson:"measurement_start" json:"measurement_start"`
	MeasurementEnd   string `bson:"measurement_end" json:"measurement_end"`
	ActiveHours      int    `bson:"active_hours" json:"active_hours"`
	Note             string `bson:"note" json:"note"`
	ProcessedAt      string `bson:"processed_at" json:"processed_at"`
}

type IoTTraffic struct {
	EntryLot       int `bson:"entry_lot" json:"entry_lot"`
	OutgoingBatch  int `bson:"outgoing_batch" json:"outgoing_batch"`
	PeopleDetained int `bson:"people_detained" json:"people_detained"`
	PeopleIn       int `bson:"people_in" json:"people_in"`
	PeopleOut      int `bson:"people_out" json:"people_out"`
	Passby         int `bson:"passby" json:"passby"`
	Turnback       int `bson:"turnback" json:"turnback"`
}

type IoTPeople struct {
	Adult             int `bson:"adult" json:"adult"`
	Children          int `bson:"children" json:"children"`
	Residents         int `bson:"residents" json:"residents"`
	EmployeeEntry     int `bson:"employee_entry" json:"employee_entry"`
	CustomersEnter    int `bson:"customers_enter" json:"customers_enter"`
	EmployeesEntering int `bson:"employees_entering" json:"employees_entering"`
}

type IoTVehicles struct {
	VehicleEntry  int `bson:"vehicle_entry" json:"vehicle_entry"`
	VehicleExit   int `bson:"vehicle_exit" json:"vehicle_exit"`
	TotalVehicles int `bson:"total_vehicles" json:"total_vehicles"`
}

type IoTSummary struct {
	TotalDetected      int         `bson:"total_detected" json:"total_detected"`
	TotalIdentified    int         `bson:"total_identified" json:"total_identified"`
	TotalNotIdentified int         `bson:"total_not_identified" json:"total_not_identified"`
	IdentificationRate float64     `bson:"identification_rate" json:"identification_rate"`
	AvgDwellMinutes    int         `bson:"avg_dwell_minutes" json:"avg_dwell_minutes"`
	PeakHour           PeakHour    `bson:"peak_hour" json:"peak_hour"`
	Traffic            IoTTraffic  `bson:"traffic" json:"traffic"`
	People             IoTPeople   `bson:"people" json:"people"`
	Vehicles           IoTVehicles `bson:"vehicles" json:"vehicles"`
	Deduplicated       int         `bson:"deduplicated" json:"deduplicated"`
}

// IoTGender carries per-gender counts with percentages; NotIdentified is the
// detection remainder that neither classifier pass covered.
type IoTGender struct {
	Male          CountPct `bson:"male" json:"male"`
	Female        CountPct `bson:"female" json:"female"`
	Unknown       CountPct `bson:"unknown" json:"unknown"`
	NotIdentified CountPct `bson:"not_identified" json:"not_identified"`
}

type IoTAge struct {
	Under10       CountPct `bson:"age_lt10" json:"<10"`
	Age10_16      CountPct `bson:"age_10_16" json:"10-16"`
	Age17_30      CountPct `bson:"age_17_30" json:"17-30"`
	Age31_45      CountPct `bson:"age_31_45" json:"31-45"`
	Age46_60      CountPct `bson:"age_46_60" json:"46-60"`
	Over60        CountPct `bson:"age_gt60" json:">60"`
	Unknown       CountPct `bson:"age_unknown" json:"unknown"`
	NotIdentified CountPct `bson:"not_identified" json:"not_identified"`
}

// IoTOfficialTotals is the vendor-reported "Total" row of the export, kept
// aside as a cross-check against our own accumulation.
type IoTOfficialTotals struct {
	PeopleIn          int `bson:"people_in" json:"people_in"`
	PeopleOut         int `bson:"people_out" json:"people_out"`
	Passby            int `bson:"passby" json:"passby"`
	Turnback          int `bson:"turnback" json:"turnback"`
	PeopleDetained    int `bson:"people_detained" json:"people_detained"`
	EntryLot          int `bson:"entry_lot" json:"entry_lot"`
	OutgoingBatch     int `bson:"outgoing_batch" json:"outgoing_batch"`
	Adult             int `bson:"adult" json:"adult"`
	Children          int `bson:"children" json:"children"`
	Residents         int `bson:"residents" json:"residents"`
	EmployeeEntry     int `bson:"employee_entry" json:"employee_entry"`
	CustomersEnter    int `bson:"customers_enter" json:"customers_enter"`
	VehicleEntry      int `bson:"vehicle_entry" json:"vehicle_entry"`
	VehicleExit       int `bson:"vehicle_exit" json:"vehicle_exit"`
	Deduplicated      int `bson:"deduplicated" json:"deduplicated"`
	TotalDwellTime    int `bson:"total_dwell_time" json:"total_dwell_time"`
	AvgDwellTime      int `bson:"avg_dwell_time" json:"avg_dwell_time"`
	TotalPeople       int `bson:"total_people" json:"total_people"`
	TotalVehicles     int `bson:"total_vehicles" json:"total_vehicles"`
	EmployeesEntering int `bson:"employees_entering" json:"employees_entering"`
	Male              int `bson:"male" json:"male"`
	Female            int `bson:"female" json:"female"`
	GenderUnknown     int `bson:"gender_unknown" json:"gender_unknown"`
}

// IoTDay is the full processed output of one IoT sensor export: one stop, one
// date, hour-by-hour.
type IoTDay struct {
	Meta           IoTMeta            `bson:"meta" json:"meta"`
	Summary        IoTSummary         `bson:"summary" json:"summary"`
	Gender         IoTGender          `bson:"gender" json:"gender"`
	Age            IoTAge             `bson:"age" json:"age"`
	GenderG2       IoTGender          `bson:"gender_g2" json:"gender_g2"`
	AgeG2          IoTAge             `bson:"age_g2" json:"age_g2"`
	OfficialTotals *IoTOfficialTotals `bson:"officialTotals,omitempty" json:"officialTotals,omitempty"`
	Observations   []string           `bson:"observations" json:"observations"`
	Hourly         []HourlyEntry      `bson:"hourly" json:"hourly"`
}

// IoTReport is the subset of an IoTDay embedded into the canonical record so
// the dashboard can render the full sensor report without a second lookup.
type IoTReport struct {
	Meta           IoTMeta            `bson:"meta" json:"meta"`
	Summary        IoTSummary         `bson:"summary" json:"summary"`
	Gender         IoTGender          `bson:"gender" json:"gender"`
	Age            IoTAge             `bson:"age" json:"age"`
	GenderG2       *IoTGender         `bson:"genderG2,omitempty" json:"genderG2,omitempty"`
	AgeG2          *IoTAge            `bson:"ageG2,omitempty" json:"ageG2,omitempty"`
	OfficialTotals *IoTOfficialTotals `bson:"officialTotals,omitempty" json:"officialTotals,omitempty"`
	Observations   []string           `bson:"observations" json:"observations"`
}
