package alert

import (
	"log/slog"
	"sync"

	"github.com/example/med-dispatch/internal/models"
	"github.com/example/med-dispatch/internal/observability"
)

// Message is the envelope pushed to the UI shell over the websocket feed
// (or the webhook fallback when no session is connected).
type Message struct {
	Type       string             `json:"type"`
	Assignment *models.Assignment `json:"assignment,omitempty"`
	State      *models.StateView  `json:"state,omitempty"`
	Error      string             `json:"error,omitempty"`
	// device cue hints for the shell; the prompt itself never times out
	VibratePattern []int  `json:"vibrate_pattern_ms,omitempty"`
	Sound          string `json:"sound,omitempty"`
}

const (
	TypeAssignmentOffer     = "assignment_offer"
	TypeAssignmentWithdrawn = "assignment_withdrawn"
	TypeState               = "state"
	TypeError               = "error"
)

// defaultVibratePattern mirrors the on/off millisecond cadence the shell
// plays for an incoming transport offer.
var defaultVibratePattern = []int{400, 200, 400, 200, 800}

// Sink delivers a message to whatever UI transport is attached.
type Sink interface {
	Push(msg Message) error
}

// Dispatcher raises the blocking accept/reject prompt for a new assignment
// and keeps it pending until an explicit user decision arrives. No
// timeout-based auto-decision exists; a prompt survives until resolved or
// the assignment is withdrawn by reconciliation.
//
// Messages are queued and delivered on a dedicated goroutine; sink I/O
// must never run on the engine's event loop.
type Dispatcher struct {
	log   *slog.Logger
	sinks []Sink
	queue chan Message
	done  chan struct{}

	mu      sync.Mutex
	pending string // assignment id awaiting a decision
}

func NewDispatcher(log *slog.Logger, sinks ...Sink) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		log:   log,
		sinks: sinks,
		queue: make(chan Message, 256),
		done:  make(chan struct{}),
	}
	go d.deliver()
	return d
}

func (d *Dispatcher) deliver() {
	defer close(d.done)
	for msg := range d.queue {
		for _, s := range d.sinks {
			if err := s.Push(msg); err != nil {
				d.log.Warn("alert push failed", "type", msg.Type, "error", err)
			}
		}
	}
}

// Close flushes queued messages and stops the delivery goroutine. Callers
// must not push after Close.
func (d *Dispatcher) Close() {
	close(d.queue)
	<-d.done
}

// OfferAssignment raises the prompt for the given assignment. Callers
// guarantee exactly-once per assignment id via the last-seen diff.
func (d *Dispatcher) OfferAssignment(a models.Assignment) {
	d.mu.Lock()
	d.pending = a.ID
	d.mu.Unlock()
	observability.AssignmentAlertsTotal.Inc()
	d.push(Message{
		Type:           TypeAssignmentOffer,
		Assignment:     &a,
		VibratePattern: defaultVibratePattern,
		Sound:          "assignment_chime",
	})
}

// Resolve clears the pending prompt after a user decision. It returns
// false when no prompt for that id is open, so duplicate decisions from a
// reconnecting shell are ignored.
func (d *Dispatcher) Resolve(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != id {
		return false
	}
	d.pending = ""
	return true
}

// Pending returns the assignment id currently awaiting a decision.
func (d *Dispatcher) Pending() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// AssignmentWithdrawn tells the shell the dispatcher reassigned the
// transport while the prompt was still open.
func (d *Dispatcher) AssignmentWithdrawn(id string) {
	d.mu.Lock()
	if d.pending == id {
		d.pending = ""
	}
	d.mu.Unlock()
	d.push(Message{Type: TypeAssignmentWithdrawn, Assignment: &models.Assignment{ID: id}})
}

// StateChanged pushes the latest read-only projection to the shell.
func (d *Dispatcher) StateChanged(v models.StateView) {
	d.push(Message{Type: TypeState, State: &v})
}

// SurfaceError shows a non-retryable failure (auth, rejected user action)
// that requires user acknowledgment.
func (d *Dispatcher) SurfaceError(msg string) {
	d.push(Message{Type: TypeError, Error: msg})
}

func (d *Dispatcher) push(msg Message) {
	select {
	case d.queue <- msg:
	default:
		// a wedged sink must not stall the caller; drop and log
		d.log.Warn("alert queue full, dropping message", "type", msg.Type)
	}
}
