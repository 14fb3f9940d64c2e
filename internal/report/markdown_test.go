package report

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/i474232898/weather-flow/internal/weather"
)

func TestRenderMarkdown(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ds := &weather.Dataset{
		Columns: []string{"temperature_2m"},
		Rows: []weather.Row{
			{Date: t0, Values: []float64{1.5}},
			{Date: t0.Add(time.Hour), Values: []float64{math.NaN()}},
		},
	}

	got := RenderMarkdown(ds)
	want := strings.Join([]string{
		"|    | date                      |   temperature_2m |",
		"|---:|:--------------------------|-----------------:|",
		"|  0 | 2024-01-01 00:00:00+00:00 |              1.5 |",
		"|  1 | 2024-01-01 01:00:00+00:00 |              nan |",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected markdown:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderMarkdownIsDeterministic(t *testing.T) {
	ds := &weather.Dataset{
		Columns: []string{"a", "b"},
		Rows:    []weather.Row{{Date: time.Unix(0, 0), Values: []float64{1, 2}}},
	}
	if RenderMarkdown(ds) != RenderMarkdown(ds) {
		t.Fatalf("rendering the same dataset twice must give the same document")
	}
}

func TestRenderMarkdownEmpty(t *testing.T) {
	got := RenderMarkdown(nil)
	want := "|    | date   |\n|---:|:-------|"
	if got != want {
		t.Fatalf("unexpected markdown %q, want %q", got, want)
	}
}

func TestRenderMarkdownNumberFormat(t *testing.T) {
	ds := &weather.Dataset{
		Columns: []string{"a", "b", "c"},
		Rows:    []weather.Row{{Date: time.Unix(0, 0), Values: []float64{3, 1.2345678, 1.5e6}}},
	}

	got := RenderMarkdown(ds)
	want := strings.Join([]string{
		"|    | date                      |   a |       b |       c |",
		"|---:|:--------------------------|----:|--------:|--------:|",
		"|  0 | 1970-01-01 00:00:00+00:00 |   3 | 1.23457 | 1.5e+06 |",
	}, "\n")
	if got != want {
		t.Fatalf("unexpected markdown:\n%s\nwant:\n%s", got, want)
	}
}
