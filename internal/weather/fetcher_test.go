package weather

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
	"time"
)

type stubProvider struct {
	responses []Response
	err       error
	calls     int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) FetchHourly(ctx context.Context, params Params) ([]Response, error) {
	p.calls++
	return p.responses, p.err
}

func TestFetcherUsesFirstLocationAndLogsMetadata(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := hourlyResponse(start, 2, Variable{Name: "temperature_2m", Values: []float64{1, 2}})
	first.Elevation = 38
	first.Timezone = "GMT"
	first.TimezoneAbbreviation = "GMT"
	second := hourlyResponse(start, 5, Variable{Name: "temperature_2m", Values: []float64{9, 9, 9, 9, 9}})

	var buf bytes.Buffer
	lg := log.New(&buf, "", 0)

	f := NewFetcher(&stubProvider{responses: []Response{first, second}})
	ds, err := f.Fetch(context.Background(), Params{Latitude: 52.52, Longitude: 13.41, Hourly: []string{"temperature_2m"}}, lg)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if ds.Len() != 2 {
		t.Fatalf("expected rows of the first location only, got %d", ds.Len())
	}

	out := buf.String()
	for _, want := range []string{
		"Coordinates 52.52°N 13.41°E",
		"Elevation 38 m asl",
		"Timezone GMT GMT",
		"Timezone difference to GMT+0 0 s",
		"returned 2 locations",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestFetcherValidatesParams(t *testing.T) {
	p := &stubProvider{}
	f := NewFetcher(p)

	bad := []Params{
		{Latitude: 91, Hourly: []string{"temperature_2m"}},
		{Longitude: -181, Hourly: []string{"temperature_2m"}},
		{},
		{Hourly: []string{""}},
	}
	for _, params := range bad {
		if _, err := f.Fetch(context.Background(), params, nil); err == nil {
			t.Fatalf("expected validation error for %+v", params)
		}
	}
	if p.calls != 0 {
		t.Fatalf("provider must not be called for invalid params")
	}
}

func TestFetcherPropagatesErrors(t *testing.T) {
	upstream := errors.New("boom")
	f := NewFetcher(&stubProvider{err: upstream})
	params := Params{Hourly: []string{"temperature_2m"}}

	if _, err := f.Fetch(context.Background(), params, nil); !errors.Is(err, upstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}

	f = NewFetcher(&stubProvider{})
	if _, err := f.Fetch(context.Background(), params, nil); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}
