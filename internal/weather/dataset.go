package weather

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoData is returned when the API answered without any location.
	ErrNoData = errors.New("no weather data in response")
	// ErrMalformedResponse is returned when a response violates the series contract.
	ErrMalformedResponse = errors.New("malformed weather response")
)

// BuildDataset turns the hourly block of resp into a Dataset.
// Dates cover [Start, End) at Interval; columns follow params.Hourly.
func BuildDataset(resp Response, params Params) (*Dataset, error) {
	h := resp.Hourly
	if h == nil {
		return nil, fmt.Errorf("%w: missing hourly block", ErrMalformedResponse)
	}
	if h.Interval <= 0 {
		return nil, fmt.Errorf("%w: non-positive interval %s", ErrMalformedResponse, h.Interval)
	}
	if h.End.Before(h.Start) {
		return nil, fmt.Errorf("%w: end %s before start %s", ErrMalformedResponse, h.End, h.Start)
	}
	if len(h.Variables) < len(params.Hourly) {
		return nil, fmt.Errorf("%w: requested %d hourly variables, got %d",
			ErrMalformedResponse, len(params.Hourly), len(h.Variables))
	}

	n := int(h.End.Sub(h.Start) / h.Interval)

	// The order of variables needs to be the same as requested.
	for i, name := range params.Hourly {
		if got := len(h.Variables[i].Values); got != n {
			return nil, fmt.Errorf("%w: variable %q has %d values for %d intervals",
				ErrMalformedResponse, name, got, n)
		}
	}

	ds := &Dataset{
		Columns: append([]string(nil), params.Hourly...),
		Rows:    make([]Row, 0, n),
	}

	start := h.Start.UTC()
	for i := 0; i < n; i++ {
		values := make([]float64, len(params.Hourly))
		for j := range params.Hourly {
			values[j] = h.Variables[j].Values[i]
		}
		ds.Rows = append(ds.Rows, Row{
			Date:   start.Add(time.Duration(i) * h.Interval),
			Values: values,
		})
	}

	return ds, nil
}
