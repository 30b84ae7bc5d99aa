package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/med-dispatch/internal/models"
)

type fakeUpdater struct {
	geoErrs  int
	hsetErrs int
	geoCalls []*redis.GeoLocation
	metas    []map[string]interface{}
}

func (f *fakeUpdater) GeoAdd(ctx context.Context, key string, loc *redis.GeoLocation) error {
	if f.geoErrs > 0 {
		f.geoErrs--
		return errors.New("geoadd failed")
	}
	f.geoCalls = append(f.geoCalls, loc)
	return nil
}

func (f *fakeUpdater) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	if f.hsetErrs > 0 {
		f.hsetErrs--
		return errors.New("hset failed")
	}
	f.metas = append(f.metas, values)
	return nil
}

func sampleEvent() *positionEvent {
	return &positionEvent{
		DriverID: "drv-9",
		Status:   models.StatusTransporting,
		Sample: models.PositionSample{
			Coord:    models.Coord{Lat: 52.52, Lon: 13.405},
			SpeedMps: 11.5,
			At:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestUpdateRedisWritesGeoAndMeta(t *testing.T) {
	f := &fakeUpdater{}
	ev := sampleEvent()
	if err := updateRedisWithRetry(context.Background(), f, ev, 3, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.geoCalls) != 1 {
		t.Fatalf("expected 1 geo call, got %d", len(f.geoCalls))
	}
	loc := f.geoCalls[0]
	if loc.Name != "drv-9" || loc.Latitude != 52.52 || loc.Longitude != 13.405 {
		t.Fatalf("unexpected geo location: %+v", loc)
	}
	if len(f.metas) != 1 {
		t.Fatalf("expected 1 meta write, got %d", len(f.metas))
	}
	if f.metas[0]["status"] != "transporting" {
		t.Fatalf("unexpected status meta: %v", f.metas[0]["status"])
	}
}

func TestUpdateRedisRetriesTransientFailures(t *testing.T) {
	f := &fakeUpdater{geoErrs: 2}
	if err := updateRedisWithRetry(context.Background(), f, sampleEvent(), 3, time.Millisecond); err != nil {
		t.Fatalf("expected retries to succeed, got %v", err)
	}
	if len(f.geoCalls) != 1 {
		t.Fatalf("expected eventual geo write, got %d", len(f.geoCalls))
	}
}

func TestUpdateRedisGivesUpAfterAttempts(t *testing.T) {
	f := &fakeUpdater{hsetErrs: 5}
	err := updateRedisWithRetry(context.Background(), f, sampleEvent(), 3, time.Millisecond)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
}

func TestPositionEventDecoding(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		valid bool
	}{
		{"ok", `{"driver_id":"d1","status":"en_route","sample":{"lat":48.1,"lon":11.6,"at":"2025-06-01T12:00:00Z"}}`, true},
		{"missing driver", `{"status":"en_route","sample":{"lat":48.1,"lon":11.6,"at":"2025-06-01T12:00:00Z"}}`, false},
		{"bad coords", `{"driver_id":"d1","status":"en_route","sample":{"lat":123.0,"lon":11.6,"at":"2025-06-01T12:00:00Z"}}`, false},
		{"garbage", `not json`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var ev positionEvent
			err := json.Unmarshal([]byte(tc.body), &ev)
			ok := err == nil && ev.DriverID != "" && ev.Sample.Valid()
			if ok != tc.valid {
				t.Fatalf("valid=%v, want %v (err=%v)", ok, tc.valid, err)
			}
		})
	}
}
