package proximity

import (
	"math"
	"sync"

	"github.com/example/med-dispatch/internal/geo"
	"github.com/example/med-dispatch/internal/models"
)

// Monitor watches position samples against a pickup coordinate and emits a
// one-shot arrival signal the first time a sample lands inside the radius.
// Re-arming happens on each new en-route episode; further samples under the
// threshold after the first do not re-emit.
type Monitor struct {
	mu       sync.Mutex
	radiusM  float64
	pickup   models.Coord
	armed    bool
	lastDist float64
}

func NewMonitor(radiusM float64) *Monitor {
	return &Monitor{radiusM: radiusM, lastDist: math.NaN()}
}

// Arm resets the monitor for a new en-route episode toward pickup.
func (m *Monitor) Arm(pickup models.Coord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pickup = pickup
	m.armed = true
	m.lastDist = math.NaN()
}

// Disarm stops arrival detection until the next Arm.
func (m *Monitor) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = false
}

// Observe folds one sample into the monitor. It returns the current
// distance to pickup and whether this sample crossed the threshold for the
// first time since arming.
func (m *Monitor) Observe(sample models.PositionSample) (distance float64, arrived bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	distance = geo.Distance(sample.Coord, m.pickup)
	m.lastDist = distance
	if !m.armed {
		return distance, false
	}
	if distance < m.radiusM {
		m.armed = false
		return distance, true
	}
	return distance, false
}

// LastDistance returns the most recently observed distance in meters, or
// NaN if no sample has been observed since arming.
func (m *Monitor) LastDistance() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastDist
}
