package geo

import (
	"testing"

	"github.com/example/med-dispatch/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// one degree of latitude is about 111.2 km
	d := Distance(models.Coord{Lat: 0, Lon: 0}, models.Coord{Lat: 1, Lon: 0})
	if d < 110000 || d > 112500 {
		t.Fatalf("unexpected distance for 1 degree latitude: %f", d)
	}
}
