package engine

import (
	"testing"

	"github.com/example/med-dispatch/internal/models"
)

func TestNextStatusLegalPairs(t *testing.T) {
	tests := []struct {
		from models.DriverStatus
		ev   EventKind
		want models.DriverStatus
	}{
		{models.StatusOffline, EventGoOnline, models.StatusAvailable},
		{models.StatusAvailable, EventGoOffline, models.StatusOffline},
		{models.StatusAvailable, EventNewAssignment, models.StatusAssigned},
		{models.StatusAssigned, EventAccept, models.StatusEnRoutePending},
		{models.StatusAssigned, EventReject, models.StatusAvailable},
		{models.StatusAssigned, EventStartRoute, models.StatusEnRoute},
		{models.StatusEnRoutePending, EventStartRoute, models.StatusEnRoute},
		{models.StatusEnRoute, EventArrived, models.StatusOnSite},
		{models.StatusOnSite, EventStartTransport, models.StatusTransporting},
		{models.StatusTransporting, EventComplete, models.StatusAvailable},
		{models.StatusEnRoute, EventAssignmentGone, models.StatusAvailable},
		{models.StatusTransporting, EventAssignmentGone, models.StatusAvailable},
	}
	for _, tt := range tests {
		got, ok := NextStatus(tt.from, tt.ev)
		if !ok {
			t.Fatalf("%s + %s: expected legal transition", tt.from, tt.ev)
		}
		if got != tt.want {
			t.Fatalf("%s + %s: got %s, want %s", tt.from, tt.ev, got, tt.want)
		}
	}
}

// every pair absent from the table must resolve to the input state
func TestNextStatusIllegalPairsAreNoOps(t *testing.T) {
	statuses := []models.DriverStatus{
		models.StatusOffline, models.StatusAvailable, models.StatusAssigned,
		models.StatusEnRoutePending, models.StatusEnRoute, models.StatusOnSite,
		models.StatusTransporting,
	}
	events := []EventKind{
		EventGoOnline, EventGoOffline, EventNewAssignment, EventAccept,
		EventReject, EventStartRoute, EventArrived, EventStartTransport,
		EventComplete, EventAssignmentGone,
	}
	for _, st := range statuses {
		for _, ev := range events {
			next, ok := NextStatus(st, ev)
			if ok {
				continue
			}
			if next != st {
				t.Fatalf("illegal %s + %s must keep state, got %s", st, ev, next)
			}
		}
	}
	// spot-check a few pairs that must be illegal
	illegal := []struct {
		from models.DriverStatus
		ev   EventKind
	}{
		{models.StatusOffline, EventAccept},
		{models.StatusAvailable, EventComplete},
		// replacement goes through assignment_gone first, never directly
		{models.StatusAssigned, EventNewAssignment},
		{models.StatusEnRoute, EventAccept},
		{models.StatusTransporting, EventStartRoute},
		{models.StatusOnSite, EventArrived},
		{models.StatusEnRoute, EventGoOffline},
	}
	for _, p := range illegal {
		if _, ok := NextStatus(p.from, p.ev); ok {
			t.Fatalf("%s + %s must be illegal", p.from, p.ev)
		}
	}
}
