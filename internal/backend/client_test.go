package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchDriverStateCombinesProfileAndAssignment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Fatalf("missing auth header, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/drivers/d1/profile":
			io.WriteString(w, `{"status":"available"}`)
		case "/api/v1/drivers/d1/assignment":
			io.WriteString(w, `{"has_assignment":true,"assignment":{"id":"A1","patient_name":"J. Doe","pickup_address":"Clinic 4"}}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok", "d1", time.Second)
	rs, err := c.FetchDriverState(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rs.Status != "available" || !rs.HasAssignment || rs.Assignment == nil || rs.Assignment.ID != "A1" {
		t.Fatalf("unexpected remote state: %+v", rs)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"server error", http.StatusInternalServerError, true},
		{"throttled", http.StatusTooManyRequests, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			c := NewClient(server.URL, "", "d1", time.Second)
			_, err := c.FetchDriverState(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %T", err)
			}
			if IsTransient(err) != tt.transient {
				t.Fatalf("transient classification wrong for %d", tt.status)
			}
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "", "d1", 200*time.Millisecond)
	_, err := c.FetchDriverState(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !IsTransient(err) {
		t.Fatal("network errors must classify as transient")
	}
}

func TestUpdateStatusSendsBookingID(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Fatalf("unexpected method %s", r.Method)
		}
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", "d1", time.Second)
	if err := c.UpdateStatus(context.Background(), "en_route", "A1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotBody != `{"booking_id":"A1","status":"en_route"}` {
		t.Fatalf("unexpected body: %s", gotBody)
	}
}
