package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/careops/mealtrack/internal/config"
	"github.com/careops/mealtrack/internal/routing/domain"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("directions api returned %d: %s", e.Code, e.Body)
}

// Client talks to a Google-Directions-compatible HTTP API.
type Client struct {
	session  *http.Client
	baseURL  string
	apiKey   string
	mode     string
	language string
}

func NewClient(cfg config.MapsConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("maps api key is empty")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	mode := cfg.Mode
	if mode == "" {
		mode = "driving"
	}

	return &Client{
		session:  &http.Client{Timeout: 10 * time.Second},
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		mode:     mode,
		language: cfg.Language,
	}, nil
}

type directionsPayload struct {
	Status string `json:"status"`
	Routes []struct {
		Legs []struct {
			Distance struct {
				Value int64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int64 `json:"value"`
			} `json:"duration"`
		} `json:"legs"`
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		WaypointOrder []int `json:"waypoint_order"`
	} `json:"routes"`
}

func (c *Client) GetDirections(ctx context.Context, req domain.DirectionsRequest) (domain.DirectionsResponse, error) {
	query := url.Values{}
	query.Set("origin", req.Origin.Location())
	query.Set("destination", req.Destination.Location())
	query.Set("mode", c.mode)
	query.Set("key", c.apiKey)
	if c.language != "" {
		query.Set("language", c.language)
	}
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.OptimizeWaypoints {
			parts = append(parts, "optimize:true")
		}
		for _, wp := range req.Waypoints {
			parts = append(parts, wp.Location())
		}
		query.Set("waypoints", strings.Join(parts, "|"))
	}

	endpoint := fmt.Sprintf("%s/maps/api/directions/json?%s", c.baseURL, query.Encode())
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.DirectionsResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(httpReq)
	if err != nil {
		return domain.DirectionsResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return domain.DirectionsResponse{}, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	var payload directionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.DirectionsResponse{}, fmt.Errorf("decode directions response: %w", err)
	}

	out := domain.DirectionsResponse{Status: payload.Status}
	for _, route := range payload.Routes {
		legs := make([]domain.Leg, 0, len(route.Legs))
		for _, leg := range route.Legs {
			legs = append(legs, domain.Leg{
				DistanceMeters:  leg.Distance.Value,
				DurationSeconds: leg.Duration.Value,
			})
		}
		out.Routes = append(out.Routes, domain.Route{
			Legs:             legs,
			OverviewPolyline: route.OverviewPolyline.Points,
			WaypointOrder:    route.WaypointOrder,
		})
	}

	return out, nil
}
