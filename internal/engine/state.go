package engine

import "github.com/example/med-dispatch/internal/models"

// EventKind names the inputs the lifecycle state machine accepts. They
// come from three independent sources: the poller, the proximity monitor,
// and explicit user actions.
type EventKind string

const (
	EventGoOnline       EventKind = "go_online"
	EventGoOffline      EventKind = "go_offline"
	EventNewAssignment  EventKind = "new_assignment"
	EventAccept         EventKind = "accept"
	EventReject         EventKind = "reject"
	EventStartRoute     EventKind = "start_route"
	EventArrived        EventKind = "arrived"
	EventStartTransport EventKind = "start_transport"
	EventComplete       EventKind = "complete"
	EventAssignmentGone EventKind = "assignment_gone"
)

// transitions is the full legal-transition table. Any (state, event) pair
// absent here is a logged no-op; the machine never errors on out-of-order
// events because asynchronous sources can legitimately race.
var transitions = map[models.DriverStatus]map[EventKind]models.DriverStatus{
	models.StatusOffline: {
		EventGoOnline: models.StatusAvailable,
	},
	models.StatusAvailable: {
		EventGoOffline:     models.StatusOffline,
		EventNewAssignment: models.StatusAssigned,
	},
	models.StatusAssigned: {
		EventAccept:         models.StatusEnRoutePending,
		EventReject:         models.StatusAvailable,
		EventStartRoute:     models.StatusEnRoute,
		EventAssignmentGone: models.StatusAvailable,
	},
	models.StatusEnRoutePending: {
		EventStartRoute:     models.StatusEnRoute,
		EventAssignmentGone: models.StatusAvailable,
	},
	models.StatusEnRoute: {
		EventArrived:        models.StatusOnSite,
		EventAssignmentGone: models.StatusAvailable,
	},
	models.StatusOnSite: {
		EventStartTransport: models.StatusTransporting,
		EventAssignmentGone: models.StatusAvailable,
	},
	models.StatusTransporting: {
		EventComplete:       models.StatusAvailable,
		EventAssignmentGone: models.StatusAvailable,
	},
}

// NextStatus resolves a (state, event) pair against the table. ok is false
// for illegal pairs, in which case next equals from.
func NextStatus(from models.DriverStatus, ev EventKind) (next models.DriverStatus, ok bool) {
	allowed, found := transitions[from]
	if !found {
		return from, false
	}
	next, found = allowed[ev]
	if !found {
		return from, false
	}
	return next, true
}
