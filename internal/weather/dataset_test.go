package weather

import (
	"errors"
	"testing"
	"time"
)

func hourlyResponse(start time.Time, hours int, vars ...Variable) Response {
	return Response{
		Latitude:  52.52,
		Longitude: 13.41,
		Hourly: &HourlySeries{
			Start:     start,
			End:       start.Add(time.Duration(hours) * time.Hour),
			Interval:  time.Hour,
			Variables: vars,
		},
	}
}

func TestBuildDatasetRowCountIsLeftInclusive(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := hourlyResponse(start, 2, Variable{Name: "temperature_2m", Values: []float64{1.5, 2.5}})

	ds, err := BuildDataset(resp, Params{Hourly: []string{"temperature_2m"}})
	if err != nil {
		t.Fatalf("BuildDataset failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", ds.Len())
	}
	if !ds.Rows[0].Date.Equal(start) || !ds.Rows[1].Date.Equal(start.Add(time.Hour)) {
		t.Fatalf("unexpected dates: %v, %v", ds.Rows[0].Date, ds.Rows[1].Date)
	}
	if ds.Rows[0].Values[0] != 1.5 || ds.Rows[1].Values[0] != 2.5 {
		t.Fatalf("unexpected values: %+v", ds.Rows)
	}
}

func TestBuildDatasetKeepsRequestOrder(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := hourlyResponse(start, 1,
		Variable{Name: "relative_humidity_2m", Values: []float64{80}},
		Variable{Name: "temperature_2m", Values: []float64{3}},
	)

	ds, err := BuildDataset(resp, Params{Hourly: []string{"relative_humidity_2m", "temperature_2m"}})
	if err != nil {
		t.Fatalf("BuildDataset failed: %v", err)
	}
	if ds.Columns[0] != "relative_humidity_2m" || ds.Columns[1] != "temperature_2m" {
		t.Fatalf("unexpected column order: %v", ds.Columns)
	}
	if ds.Rows[0].Values[0] != 80 || ds.Rows[0].Values[1] != 3 {
		t.Fatalf("values not assigned by position: %v", ds.Rows[0].Values)
	}
}

func TestBuildDatasetRejectsMalformedSeries(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]Response{
		"no hourly":     {},
		"short values":  hourlyResponse(start, 3, Variable{Name: "temperature_2m", Values: []float64{1, 2}}),
		"extra values":  hourlyResponse(start, 1, Variable{Name: "temperature_2m", Values: []float64{1, 2}}),
		"no variables":  hourlyResponse(start, 1),
		"zero interval": {Hourly: &HourlySeries{Start: start, End: start.Add(time.Hour)}},
	}
	for name, resp := range cases {
		_, err := BuildDataset(resp, Params{Hourly: []string{"temperature_2m"}})
		if !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("%s: expected ErrMalformedResponse, got %v", name, err)
		}
	}
}

func TestBuildDatasetEmptyWindow(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	resp := hourlyResponse(start, 0, Variable{Name: "temperature_2m"})

	ds, err := BuildDataset(resp, Params{Hourly: []string{"temperature_2m"}})
	if err != nil {
		t.Fatalf("BuildDataset failed: %v", err)
	}
	if ds.Len() != 0 {
		t.Fatalf("expected no rows, got %d", ds.Len())
	}
}
