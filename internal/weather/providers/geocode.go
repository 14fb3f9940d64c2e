package providers

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-flow/internal/weather"
)

// ErrNoGeocoderKey is returned when a city lookup is needed but no key is configured.
var ErrNoGeocoderKey = errors.New("geocoding requires a Google API key")

// geocodeFunc matches geocoder.Geocoding; swapped in tests.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// Geocoder resolves City/Country locations to coordinates via the Google
// Geocoding API.
type Geocoder struct {
	apiKey string
	lookup geocodeFunc
}

// The geocoder package keeps its key in a package variable.
var geocoderMu sync.Mutex

// NewGeocoder creates a Geocoder using apiKey.
func NewGeocoder(apiKey string) *Geocoder {
	return &Geocoder{
		apiKey: apiKey,
		lookup: geocoder.Geocoding,
	}
}

// Resolve returns loc with Lat/Lon filled in. Locations that already carry
// coordinates are returned unchanged.
func (g *Geocoder) Resolve(loc weather.Location) (weather.Location, error) {
	if loc.Lat != nil && loc.Lon != nil {
		return loc, nil
	}
	if loc.City == "" {
		return loc, fmt.Errorf("location needs either coordinates or a city")
	}
	if g.apiKey == "" {
		return loc, ErrNoGeocoderKey
	}

	geocoderMu.Lock()
	geocoder.ApiKey = g.apiKey
	res, err := g.lookup(geocoder.Address{
		City:    loc.City,
		Country: loc.Country,
	})
	geocoderMu.Unlock()
	if err != nil {
		return loc, fmt.Errorf("geocode %s: %w", loc.Key(), err)
	}

	lat, lon := res.Latitude, res.Longitude
	loc.Lat = &lat
	loc.Lon = &lon
	return loc, nil
}
