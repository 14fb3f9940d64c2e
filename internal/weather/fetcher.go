package weather

import (
	"context"
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks the request parameters before they reach the network.
func (p Params) Validate() error {
	return validate.Struct(p)
}

// Fetcher calls a Provider and turns its first location into a Dataset.
type Fetcher struct {
	provider Provider
}

// NewFetcher creates a new Fetcher.
func NewFetcher(provider Provider) *Fetcher {
	return &Fetcher{provider: provider}
}

// Fetch requests the hourly series for params and builds the Dataset for the
// first returned location. Diagnostic lines go to lg (log.Default when nil).
func (f *Fetcher) Fetch(ctx context.Context, params Params, lg *log.Logger) (*Dataset, error) {
	if lg == nil {
		lg = log.Default()
	}
	if f.provider == nil {
		return nil, fmt.Errorf("no weather provider configured")
	}

	params = params.Clone()
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weather params: %w", err)
	}

	responses, err := f.provider.FetchHourly(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.provider.Name(), err)
	}
	if len(responses) == 0 {
		return nil, ErrNoData
	}
	if len(responses) > 1 {
		// Only a single location is processed; the rest are dropped.
		lg.Printf("WARN: %s returned %d locations; using the first", f.provider.Name(), len(responses))
	}

	resp := responses[0]
	lg.Printf("Coordinates %v°N %v°E", resp.Latitude, resp.Longitude)
	lg.Printf("Elevation %v m asl", resp.Elevation)
	lg.Printf("Timezone %s %s", resp.Timezone, resp.TimezoneAbbreviation)
	lg.Printf("Timezone difference to GMT+0 %d s", resp.UTCOffsetSeconds)

	return BuildDataset(resp, params)
}
