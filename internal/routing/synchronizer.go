package routing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/example/med-dispatch/internal/models"
	"github.com/example/med-dispatch/internal/observability"
)

// Synchronizer keeps the last good polyline for the active transport leg
// and throttles provider requests to one per window. A failed fetch keeps
// the previous polyline and waits for the next window; a forced refresh
// (manual start-route) bypasses the throttle once.
type Synchronizer struct {
	client Client
	window time.Duration
	log    *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	dest      models.Coord
	lastFetch time.Time
	inflight  bool
	cached    *models.RouteSnapshot
}

func NewSynchronizer(client Client, window time.Duration, log *slog.Logger) *Synchronizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synchronizer{client: client, window: window, log: log, now: time.Now}
}

// BeginLeg resets the throttle and cache for a fresh transport leg.
func (s *Synchronizer) BeginLeg(dest models.Coord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dest = dest
	s.lastFetch = time.Time{}
	s.cached = nil
}

// EndLeg drops the cached polyline once the leg is over.
func (s *Synchronizer) EndLeg() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	s.lastFetch = time.Time{}
}

// Restore reinstates a polyline recovered from an interruption snapshot
// without consuming a throttle window.
func (s *Synchronizer) Restore(snap *models.RouteSnapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = snap
	s.dest = snap.ForDestination
}

// Current returns the last successful polyline, or nil when none is cached.
func (s *Synchronizer) Current() *models.RouteSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// Refresh requests a new polyline from origin to the active destination.
// Within the throttle window the cached polyline is served and no request
// is issued; force bypasses the window. The fetch itself runs on the
// calling goroutine, so callers on the event loop should dispatch it async.
func (s *Synchronizer) Refresh(ctx context.Context, origin models.Coord, force bool) *models.RouteSnapshot {
	s.mu.Lock()
	if s.client == nil || s.inflight {
		cached := s.cached
		s.mu.Unlock()
		return cached
	}
	now := s.now()
	if !force && !s.lastFetch.IsZero() && now.Sub(s.lastFetch) < s.window {
		cached := s.cached
		s.mu.Unlock()
		return cached
	}
	// claim the window before the request so a failed fetch still waits
	// out the window instead of retrying immediately
	s.lastFetch = now
	s.inflight = true
	dest := s.dest
	s.mu.Unlock()

	coords, err := s.client.Route(ctx, origin, dest)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false
	if err != nil {
		observability.RouteRefreshFailures.Inc()
		s.log.Warn("route refresh failed, keeping previous polyline", "error", err)
		return s.cached
	}
	observability.RouteRefreshes.Inc()
	s.cached = &models.RouteSnapshot{
		Coordinates:    coords,
		ComputedAt:     s.now(),
		ForOrigin:      origin,
		ForDestination: dest,
	}
	return s.cached
}
