package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/med-dispatch/internal/models"
)

func viewPtr(v models.StateView) *models.StateView { return &v }

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.engine.View())
}

// handleAction maps the shell's user actions onto engine events. Illegal
// actions are accepted here and dropped by the state machine; the shell
// re-syncs from the pushed state either way.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := mux.Vars(r)["action"]
	switch action {
	case "go-online":
		s.engine.GoOnline()
	case "go-offline":
		s.engine.GoOffline()
	case "accept":
		s.engine.Accept()
	case "reject":
		s.engine.Reject()
	case "start-route":
		s.engine.StartRoute()
	case "arrive":
		s.engine.Arrive()
	case "start-transport":
		s.engine.StartTransport()
	case "complete":
		s.engine.Complete()
	default:
		http.Error(w, "unknown action", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	var sample models.PositionSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !sample.Valid() {
		http.Error(w, "coordinates out of range", http.StatusBadRequest)
		return
	}
	if sample.At.IsZero() {
		sample.At = time.Now()
	}
	s.engine.SubmitPosition(sample)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Visible bool `json:"visible"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if body.Visible {
		s.engine.Resume()
	} else {
		s.engine.Suspend()
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
