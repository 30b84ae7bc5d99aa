package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/med-dispatch/internal/models"
)

// Client is the interface the synchronizer uses to fetch driving routes.
type Client interface {
	Route(ctx context.Context, from, to models.Coord) ([]models.Coord, error)
}

// OSRMClient fetches driving-route polylines from an OSRM HTTP server.
type OSRMClient struct {
	Endpoint string
	HTTP     *http.Client
}

func NewOSRMClient(endpoint string) *OSRMClient {
	return &OSRMClient{Endpoint: endpoint, HTTP: &http.Client{Timeout: 4 * time.Second}}
}

// Route queries OSRM /route between points and returns the ordered polyline.
func (o *OSRMClient) Route(ctx context.Context, from, to models.Coord) ([]models.Coord, error) {
	// OSRM route query: /route/v1/driving/{lon1},{lat1};{lon2},{lat2}
	url := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		o.Endpoint, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm: http %s", resp.Status)
	}
	var out struct {
		Routes []struct {
			Geometry struct {
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"routes"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if out.Code != "Ok" || len(out.Routes) == 0 {
		return nil, fmt.Errorf("osrm no route: %v", out.Code)
	}
	raw := out.Routes[0].Geometry.Coordinates
	coords := make([]models.Coord, 0, len(raw))
	for _, p := range raw {
		// geojson order is lon,lat
		coords = append(coords, models.Coord{Lat: p[1], Lon: p[0]})
	}
	return coords, nil
}
