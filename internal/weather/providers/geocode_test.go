package providers

import (
	"errors"
	"testing"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-flow/internal/weather"
)

func TestGeocoderResolve(t *testing.T) {
	g := NewGeocoder("test-key")
	var asked geocoder.Address
	g.lookup = func(a geocoder.Address) (geocoder.Location, error) {
		asked = a
		return geocoder.Location{Latitude: 52.52, Longitude: 13.41}, nil
	}

	loc, err := g.Resolve(weather.Location{City: "Berlin", Country: "DE"})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if asked.City != "Berlin" || asked.Country != "DE" {
		t.Fatalf("unexpected lookup address: %+v", asked)
	}
	if loc.Lat == nil || *loc.Lat != 52.52 || loc.Lon == nil || *loc.Lon != 13.41 {
		t.Fatalf("coordinates not filled in: %+v", loc)
	}
}

func TestGeocoderKeepsCoordinates(t *testing.T) {
	g := NewGeocoder("")
	g.lookup = func(geocoder.Address) (geocoder.Location, error) {
		t.Fatalf("lookup must not be called")
		return geocoder.Location{}, nil
	}

	lat, lon := 1.0, 2.0
	loc, err := g.Resolve(weather.Location{Lat: &lat, Lon: &lon})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if *loc.Lat != 1 || *loc.Lon != 2 {
		t.Fatalf("coordinates changed: %+v", loc)
	}
}

func TestGeocoderRequiresKey(t *testing.T) {
	_, err := NewGeocoder("").Resolve(weather.Location{City: "Berlin"})
	if !errors.Is(err, ErrNoGeocoderKey) {
		t.Fatalf("expected ErrNoGeocoderKey, got %v", err)
	}
}
