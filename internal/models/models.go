package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DriverStatus is the driver's current stage within a transport lifecycle.
type DriverStatus string

const (
	StatusOffline        DriverStatus = "offline"
	StatusAvailable      DriverStatus = "available"
	StatusAssigned       DriverStatus = "assigned"
	StatusEnRoutePending DriverStatus = "en_route_pending"
	StatusEnRoute        DriverStatus = "en_route"
	StatusOnSite         DriverStatus = "on_site"
	StatusTransporting   DriverStatus = "transporting"
)

func (s DriverStatus) String() string { return string(s) }

// Active reports whether the driver currently holds an assignment.
func (s DriverStatus) Active() bool {
	switch s {
	case StatusAssigned, StatusEnRoutePending, StatusEnRoute, StatusOnSite, StatusTransporting:
		return true
	}
	return false
}

// TransportActive reports whether a transport is underway, i.e. the states
// during which snapshots are written and the position watch runs.
func (s DriverStatus) TransportActive() bool {
	switch s {
	case StatusEnRoute, StatusOnSite, StatusTransporting:
		return true
	}
	return false
}

// Assignment is one transport offer/engagement. The id is stable across
// polls and is the identity key for new-assignment diffing.
type Assignment struct {
	ID                 string `json:"id"`
	PatientName        string `json:"patient_name"`
	PickupAddress      string `json:"pickup_address"`
	PickupCoord        *Coord `json:"pickup_coord,omitempty"`
	DestinationAddress string `json:"destination_address"`
	DestinationCoord   *Coord `json:"destination_coord,omitempty"`
	ContactPhone       string `json:"contact_phone,omitempty"`
}

// PositionSample is one reading from the device position stream. Only the
// latest sample is retained by the engine.
type PositionSample struct {
	Coord
	SpeedMps float64   `json:"speed_mps,omitempty"`
	At       time.Time `json:"at"`
}

func (p PositionSample) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// RouteSnapshot is the last successfully fetched polyline for a transport
// leg. It is replaced wholesale on refresh, never merged.
type RouteSnapshot struct {
	Coordinates    []Coord   `json:"coordinates"`
	ComputedAt     time.Time `json:"computed_at"`
	ForOrigin      Coord     `json:"for_origin"`
	ForDestination Coord     `json:"for_destination"`
}

// PersistedSnapshot is what interruption persistence writes on every
// mutation while a transport is active. Status and assignment are recorded
// for diagnostics but are never restored; the backend stays authoritative
// for both.
type PersistedSnapshot struct {
	DriverStatus DriverStatus    `json:"driver_status"`
	Assignment   *Assignment     `json:"assignment,omitempty"`
	RouteVisible bool            `json:"route_visible"`
	Route        *RouteSnapshot  `json:"route,omitempty"`
	LastLocation *PositionSample `json:"last_location,omitempty"`
	SavedAt      time.Time       `json:"saved_at"`
}

// TransportOutcome labels a finished engagement in the journal.
type TransportOutcome string

const (
	OutcomeCompleted TransportOutcome = "completed"
	OutcomeRejected  TransportOutcome = "rejected"
	OutcomeWithdrawn TransportOutcome = "withdrawn"
)

// TransportRecord is the advisory journal row written when an engagement
// ends. Best-effort only; losing one never blocks a transition.
type TransportRecord struct {
	AssignmentID string           `json:"assignment_id"`
	PatientName  string           `json:"patient_name"`
	Outcome      TransportOutcome `json:"outcome"`
	StartedAt    time.Time        `json:"started_at"`
	EndedAt      time.Time        `json:"ended_at"`
}

// StateView is the read-only projection exposed to the UI shell.
type StateView struct {
	Status           DriverStatus    `json:"status"`
	Assignment       *Assignment     `json:"assignment,omitempty"`
	DistanceToPickup *float64        `json:"distance_to_pickup_m,omitempty"`
	RouteVisible     bool            `json:"route_visible"`
	Route            *RouteSnapshot  `json:"route,omitempty"`
	LastLocation     *PositionSample `json:"last_location,omitempty"`
	PendingPromptID  string          `json:"pending_prompt_id,omitempty"`
}

// RemoteState is the backend's view of the driver, fetched on each poll
// tick and reconciled against local state.
type RemoteState struct {
	Status        DriverStatus `json:"status"`
	HasAssignment bool         `json:"has_assignment"`
	Assignment    *Assignment  `json:"assignment,omitempty"`
}
