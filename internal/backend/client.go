package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/example/med-dispatch/internal/models"
)

// Dispatch is the engine's view of the dispatch backend. All status-update
// style calls are fire-and-forget from the state machine's perspective;
// only FetchDriverState feeds reconciliation.
type Dispatch interface {
	FetchDriverState(ctx context.Context) (models.RemoteState, error)
	AcceptAssignment(ctx context.Context, id string) error
	RejectAssignment(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, status models.DriverStatus, bookingID string) error
	CompleteTransport(ctx context.Context, id string) error
}

// APIError carries the backend HTTP status so the poller can separate
// transient failures (retry with backoff) from permanent ones (surface,
// do not retry).
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: http %d: %s", e.StatusCode, e.Body)
}

// Transient reports whether the failure is worth retrying. Auth and
// permission rejections are permanent; server-side and throttling
// responses are not.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return false
	}
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// IsTransient classifies any poll/update error. Plain network errors
// (connection refused, timeouts) count as transient.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	return err != nil
}

// Client talks to the dispatch backend over its REST contract.
type Client struct {
	BaseURL  string
	Token    string
	DriverID string
	HTTP     *http.Client
}

func NewClient(baseURL, token, driverID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 4 * time.Second
	}
	return &Client{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Token:    token,
		DriverID: driverID,
		HTTP:     &http.Client{Timeout: timeout},
	}
}

// FetchDriverState combines the driver-profile and driver-assignment
// lookups into the single remote snapshot the poller reconciles against.
func (c *Client) FetchDriverState(ctx context.Context) (models.RemoteState, error) {
	var profile struct {
		Status models.DriverStatus `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/v1/drivers/"+c.DriverID+"/profile", &profile); err != nil {
		return models.RemoteState{}, err
	}
	var assignment struct {
		HasAssignment bool               `json:"has_assignment"`
		Assignment    *models.Assignment `json:"assignment"`
	}
	if err := c.getJSON(ctx, "/api/v1/drivers/"+c.DriverID+"/assignment", &assignment); err != nil {
		return models.RemoteState{}, err
	}
	return models.RemoteState{
		Status:        profile.Status,
		HasAssignment: assignment.HasAssignment,
		Assignment:    assignment.Assignment,
	}, nil
}

func (c *Client) AcceptAssignment(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPost, "/api/v1/assignments/"+id+"/accept", nil)
}

func (c *Client) RejectAssignment(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPost, "/api/v1/assignments/"+id+"/reject", nil)
}

func (c *Client) UpdateStatus(ctx context.Context, status models.DriverStatus, bookingID string) error {
	body := map[string]any{"status": status}
	if bookingID != "" {
		body["booking_id"] = bookingID
	}
	return c.send(ctx, http.MethodPut, "/api/v1/drivers/"+c.DriverID+"/status", body)
}

func (c *Client) CompleteTransport(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPost, "/api/v1/transports/"+id+"/complete", nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	c.auth(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return readAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.auth(req)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) auth(req *http.Request) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
}

func readAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
