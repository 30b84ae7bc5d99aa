package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/med-dispatch/internal/alert"
	"github.com/example/med-dispatch/internal/engine"
)

// Server exposes the engine to the UI shell: the read-only state
// projection, the user-action endpoints, the position and visibility feeds
// and the websocket alert channel.
type Server struct {
	engine *engine.Engine
	wsreg  *alert.WSRegistry
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(e *engine.Engine, wsreg *alert.WSRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{engine: e, wsreg: wsreg, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/state", s.handleState).Methods("GET")
	s.mux.HandleFunc("/api/v1/actions/{action}", s.handleAction).Methods("POST")
	s.mux.HandleFunc("/api/v1/position", s.handlePosition).Methods("POST")
	s.mux.HandleFunc("/api/v1/visibility", s.handleVisibility).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	sess := s.wsreg.Add(conn)
	// a fresh session starts from the current projection
	_ = sess.Send(alert.Message{Type: alert.TypeState, State: viewPtr(s.engine.View())})
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
