package weather

import (
	"time"
)

// Params are the request parameters for one flow run.
// The order of Hourly is significant: dataset columns are assigned by position.
type Params struct {
	Latitude  float64  `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64  `json:"longitude" validate:"gte=-180,lte=180"`
	Hourly    []string `json:"hourly" validate:"required,min=1,dive,required"`
}

// Clone returns a copy of p that does not share the Hourly slice.
func (p Params) Clone() Params {
	out := p
	out.Hourly = append([]string(nil), p.Hourly...)
	return out
}

// Location represents a logical place for which we fetch weather.
// Either City/Country or Lat/Lon must be provided.
type Location struct {
	City    string   `json:"city"`
	Country string   `json:"country"`
	Lat     *float64 `json:"lat,omitempty"`
	Lon     *float64 `json:"lon,omitempty"`
}

// Key returns a canonical string key for this location.
func (l Location) Key() string {
	return l.City + ":" + l.Country
}

// Response is a single location returned by the forecast API.
type Response struct {
	Latitude             float64
	Longitude            float64
	Elevation            float64
	Timezone             string
	TimezoneAbbreviation string
	UTCOffsetSeconds     int
	Hourly               *HourlySeries
}

// HourlySeries is a fixed-interval time series over [Start, End).
type HourlySeries struct {
	Start     time.Time // always UTC
	End       time.Time // exclusive
	Interval  time.Duration
	Variables []Variable
}

// Variable is one named hourly measurement. Missing samples are NaN.
type Variable struct {
	Name   string
	Values []float64
}

// Dataset is the tabular form of an hourly series.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Row is one sampling interval. Values line up with Dataset.Columns.
type Row struct {
	Date   time.Time `json:"date"`
	Values []float64 `json:"values"`
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}
