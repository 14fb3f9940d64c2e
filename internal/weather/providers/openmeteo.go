package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/i474232898/weather-flow/internal/weather"
)

// DefaultForecastURL is the public Open-Meteo forecast endpoint.
const DefaultForecastURL = "https://api.open-meteo.com/v1/forecast"

// hourlyInterval is used when a series has fewer than two samples.
const hourlyInterval = time.Hour

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *Client
}

// NewOpenMeteoProvider creates a provider that sends requests through client.
// An empty baseURL selects DefaultForecastURL.
func NewOpenMeteoProvider(client *Client, baseURL string) *OpenMeteoProvider {
	if baseURL == "" {
		baseURL = DefaultForecastURL
	}
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		client:  client,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// FetchHourly requests the hourly variables in params and returns one
// Response per location in the answer.
func (p *OpenMeteoProvider) FetchHourly(ctx context.Context, params weather.Params) ([]weather.Response, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(params.Latitude, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(params.Longitude, 'f', -1, 64))
		values.Set("hourly", strings.Join(params.Hourly, ","))
		values.Set("timeformat", "unixtime")
		values.Set("timezone", "GMT")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := p.client.Do(ctx, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return decodeOpenMeteo(body, params.Hourly)
}

type openMeteoPayload struct {
	Latitude             float64                    `json:"latitude"`
	Longitude            float64                    `json:"longitude"`
	Elevation            float64                    `json:"elevation"`
	UTCOffsetSeconds     int                        `json:"utc_offset_seconds"`
	Timezone             string                     `json:"timezone"`
	TimezoneAbbreviation string                     `json:"timezone_abbreviation"`
	Hourly               map[string]json.RawMessage `json:"hourly"`
}

// decodeOpenMeteo accepts a single object or, for multi-location requests, an array.
func decodeOpenMeteo(body []byte, hourly []string) ([]weather.Response, error) {
	body = bytes.TrimSpace(body)

	var payloads []openMeteoPayload
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &payloads); err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
		}
	} else {
		var single openMeteoPayload
		if err := json.Unmarshal(body, &single); err != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
		}
		payloads = append(payloads, single)
	}

	out := make([]weather.Response, 0, len(payloads))
	for _, pl := range payloads {
		r := weather.Response{
			Latitude:             pl.Latitude,
			Longitude:            pl.Longitude,
			Elevation:            pl.Elevation,
			Timezone:             pl.Timezone,
			TimezoneAbbreviation: pl.TimezoneAbbreviation,
			UTCOffsetSeconds:     pl.UTCOffsetSeconds,
		}
		if pl.Hourly != nil {
			series, err := decodeHourly(pl.Hourly, hourly)
			if err != nil {
				return nil, err
			}
			r.Hourly = series
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeHourly(raw map[string]json.RawMessage, names []string) (*weather.HourlySeries, error) {
	var times []int64
	if err := json.Unmarshal(raw["time"], &times); err != nil {
		return nil, fmt.Errorf("%w: hourly time: %v", weather.ErrMalformedResponse, err)
	}

	series := &weather.HourlySeries{Interval: hourlyInterval}
	if len(times) >= 2 {
		series.Interval = time.Duration(times[1]-times[0]) * time.Second
	}
	if len(times) > 0 {
		series.Start = time.Unix(times[0], 0).UTC()
		series.End = time.Unix(times[len(times)-1], 0).UTC().Add(series.Interval)
	}

	for _, name := range names {
		msg, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("%w: hourly variable %q missing", weather.ErrMalformedResponse, name)
		}
		var vals []*float64
		if err := json.Unmarshal(msg, &vals); err != nil {
			return nil, fmt.Errorf("%w: hourly %s: %v", weather.ErrMalformedResponse, name, err)
		}
		v := weather.Variable{Name: name, Values: make([]float64, len(vals))}
		for i, x := range vals {
			if x == nil {
				v.Values[i] = math.NaN()
				continue
			}
			v.Values[i] = *x
		}
		series.Variables = append(series.Variables, v)
	}

	return series, nil
}
