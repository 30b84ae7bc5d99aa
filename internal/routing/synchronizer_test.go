package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/med-dispatch/internal/models"
)

// fakeClient implements Client for tests
type fakeClient struct {
	calls int
	fail  bool
	route []models.Coord
}

func (f *fakeClient) Route(ctx context.Context, from, to models.Coord) ([]models.Coord, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("provider down")
	}
	return f.route, nil
}

func newTestSync(c Client) (*Synchronizer, *time.Time) {
	s := NewSynchronizer(c, 30*time.Second, nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestThrottleServesCacheWithinWindow(t *testing.T) {
	fc := &fakeClient{route: []models.Coord{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}}}
	s, now := newTestSync(fc)
	s.BeginLeg(models.Coord{Lat: 2, Lon: 2})

	origin := models.Coord{Lat: 0, Lon: 0}
	first := s.Refresh(context.Background(), origin, false)
	if first == nil || len(first.Coordinates) != 2 {
		t.Fatal("expected polyline from first refresh")
	}
	if fc.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", fc.calls)
	}

	// inside the window: served from cache, no provider call
	*now = now.Add(10 * time.Second)
	second := s.Refresh(context.Background(), origin, false)
	if fc.calls != 1 {
		t.Fatalf("throttle violated: %d provider calls", fc.calls)
	}
	if second != first {
		t.Fatal("expected cached snapshot inside window")
	}

	// window elapsed: a new request goes out
	*now = now.Add(25 * time.Second)
	s.Refresh(context.Background(), origin, false)
	if fc.calls != 2 {
		t.Fatalf("expected refresh after window, got %d calls", fc.calls)
	}
}

func TestForceBypassesThrottle(t *testing.T) {
	fc := &fakeClient{route: []models.Coord{{Lat: 1, Lon: 1}}}
	s, now := newTestSync(fc)
	s.BeginLeg(models.Coord{Lat: 1, Lon: 1})

	origin := models.Coord{Lat: 0, Lon: 0}
	s.Refresh(context.Background(), origin, false)
	*now = now.Add(time.Second)
	s.Refresh(context.Background(), origin, true)
	if fc.calls != 2 {
		t.Fatalf("force refresh must bypass throttle, got %d calls", fc.calls)
	}
}

func TestFailureKeepsPreviousPolylineAndWindow(t *testing.T) {
	fc := &fakeClient{route: []models.Coord{{Lat: 1, Lon: 1}}}
	s, now := newTestSync(fc)
	s.BeginLeg(models.Coord{Lat: 1, Lon: 1})

	origin := models.Coord{Lat: 0, Lon: 0}
	good := s.Refresh(context.Background(), origin, false)
	if good == nil {
		t.Fatal("expected initial polyline")
	}

	fc.fail = true
	*now = now.Add(31 * time.Second)
	after := s.Refresh(context.Background(), origin, false)
	if after != good {
		t.Fatal("failed refresh must keep the previous polyline")
	}

	// failure consumed the window: no immediate retry
	*now = now.Add(time.Second)
	s.Refresh(context.Background(), origin, false)
	if fc.calls != 2 {
		t.Fatalf("expected no retry inside window after failure, got %d calls", fc.calls)
	}
}

func TestBeginLegResetsCache(t *testing.T) {
	fc := &fakeClient{route: []models.Coord{{Lat: 1, Lon: 1}}}
	s, _ := newTestSync(fc)
	s.BeginLeg(models.Coord{Lat: 1, Lon: 1})
	s.Refresh(context.Background(), models.Coord{Lat: 0, Lon: 0}, false)
	if s.Current() == nil {
		t.Fatal("expected cached polyline")
	}
	s.BeginLeg(models.Coord{Lat: 9, Lon: 9})
	if s.Current() != nil {
		t.Fatal("new leg must start without a stale polyline")
	}
}
