package weather

import (
	"context"
)

// Provider abstracts an hourly forecast source (e.g. Open-Meteo).
// Implementations return one Response per location the upstream answered with.
type Provider interface {
	Name() string
	FetchHourly(ctx context.Context, params Params) ([]Response, error)
}
