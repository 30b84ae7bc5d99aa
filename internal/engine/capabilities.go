package engine

import "github.com/example/med-dispatch/internal/models"

// PositionWatch is the injected device capability controlling the
// continuous position stream. The engine starts it only while a transport
// is underway to conserve battery and stops it when the driver goes
// offline.
type PositionWatch interface {
	Start()
	Stop()
}

// ScreenKeepAlive is the injected wake-lock equivalent, held while a
// transport is active.
type ScreenKeepAlive interface {
	Set(on bool)
}

// PollControl lets the engine start and stop the reconciliation loop when
// the driver goes online or offline.
type PollControl interface {
	Start()
	Stop()
}

// Notifier is the engine's view of the alert dispatcher.
type Notifier interface {
	OfferAssignment(a models.Assignment)
	AssignmentWithdrawn(id string)
	StateChanged(v models.StateView)
	SurfaceError(msg string)
	Resolve(id string) bool
	Pending() string
}

// Telemetry publishes accepted position samples for fleet-side visibility.
type Telemetry interface {
	PublishPosition(status models.DriverStatus, sample models.PositionSample) error
}

type nopNotifier struct{}

func (nopNotifier) OfferAssignment(models.Assignment) {}
func (nopNotifier) AssignmentWithdrawn(string)        {}
func (nopNotifier) StateChanged(models.StateView)     {}
func (nopNotifier) SurfaceError(string)               {}
func (nopNotifier) Resolve(string) bool               { return false }
func (nopNotifier) Pending() string                   { return "" }

type nopWatch struct{}

func (nopWatch) Start() {}
func (nopWatch) Stop()  {}

type nopKeepAlive struct{}

func (nopKeepAlive) Set(bool) {}

type nopPollControl struct{}

func (nopPollControl) Start() {}
func (nopPollControl) Stop()  {}
