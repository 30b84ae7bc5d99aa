package routing

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/example/med-dispatch/internal/models"
)

func TestOSRMClientRoute(t *testing.T) {
	tests := []struct {
		name        string
		handler     func(w http.ResponseWriter, r *http.Request)
		wantLen     int
		wantErr     bool
		errContains string
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				if !strings.HasPrefix(r.URL.Path, "/route/v1/driving/") {
					t.Fatalf("unexpected path: %s", r.URL.Path)
				}
				if got := r.URL.Query().Get("geometries"); got != "geojson" {
					t.Fatalf("unexpected geometries param: %s", got)
				}
				w.Header().Set("Content-Type", "application/json")
				io.WriteString(w, `{"code":"Ok","routes":[{"geometry":{"coordinates":[[16.37,48.20],[16.38,48.21]]}}]}`)
			},
			wantLen: 2,
		},
		{
			name: "no route",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"code":"NoRoute","routes":[]}`)
			},
			wantErr:     true,
			errContains: "no route",
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantErr:     true,
			errContains: "502",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.handler))
			defer server.Close()

			client := NewOSRMClient(server.URL)
			coords, err := client.Route(context.Background(),
				models.Coord{Lat: 48.20, Lon: 16.37}, models.Coord{Lat: 48.21, Lon: 16.38})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(coords) != tt.wantLen {
				t.Fatalf("expected %d coords, got %d", tt.wantLen, len(coords))
			}
			if coords[0].Lat != 48.20 || coords[0].Lon != 16.37 {
				t.Fatalf("lon/lat order mishandled: %+v", coords[0])
			}
		})
	}
}
