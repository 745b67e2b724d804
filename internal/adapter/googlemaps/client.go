// Package googlemaps is the HTTP client for the Google Maps places and
// directions APIs.
package googlemaps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/crisis-intel-service/internal/geo"
)

// categoryMapping translates requested facility categories into Google
// Places types. "shelter" has no exact Places type; community_center is
// the closest approximation.
var categoryMapping = map[string]string{
	"hospital":     "hospital",
	"police":       "police",
	"fire_station": "fire_station",
	"shelter":      "community_center",
	"pharmacy":     "pharmacy",
	"gas_station":  "gas_station",
}

// Client implements geo.PlacesClient and geo.DirectionsClient.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Google Maps client.
func NewClient(apiKey string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://maps.googleapis.com/maps/api",
		logger:  logger,
	}
}

// NearbySearch finds facilities of the given category around center.
func (c *Client) NearbySearch(ctx context.Context, center geo.Point, radiusMeters int, category string) ([]geo.Place, error) {
	placeType, ok := categoryMapping[strings.ToLower(category)]
	if !ok {
		placeType = category
	}

	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", center.Lat, center.Lon)},
		"radius":   {strconv.Itoa(radiusMeters)},
		"type":     {placeType},
		"key":      {c.apiKey},
	}

	var resp placesResponse
	if err := c.doRequest(ctx, c.baseURL+"/place/nearbysearch/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, fmt.Errorf("places API error: %s: %s", resp.Status, resp.ErrorMessage)
	}

	places := make([]geo.Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		place := geo.Place{
			Name:         r.Name,
			Address:      r.Vicinity,
			Point:        geo.Point{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng},
			Rating:       r.Rating,
			RatingsTotal: r.UserRatingsTotal,
			PlaceID:      r.PlaceID,
			Types:        r.Types,
		}
		if r.OpeningHours != nil {
			place.IsOpen = r.OpeningHours.OpenNow
		}
		places = append(places, place)
	}
	return places, nil
}

// Directions returns candidate routes between two points. The provider's
// overview polyline is passed through untouched for later decoding.
func (c *Client) Directions(ctx context.Context, origin, destination geo.Point, mode string, alternatives bool) ([]geo.Route, error) {
	params := url.Values{
		"origin":       {fmt.Sprintf("%f,%f", origin.Lat, origin.Lon)},
		"destination":  {fmt.Sprintf("%f,%f", destination.Lat, destination.Lon)},
		"mode":         {strings.ToLower(mode)},
		"alternatives": {strconv.FormatBool(alternatives)},
		"key":          {c.apiKey},
	}

	var resp directionsResponse
	if err := c.doRequest(ctx, c.baseURL+"/directions/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "OK" {
		return nil, fmt.Errorf("directions API error: %s: %s", resp.Status, resp.ErrorMessage)
	}

	routes := make([]geo.Route, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		if len(r.Legs) == 0 {
			continue
		}
		leg := r.Legs[0] // single-leg routes only
		routes = append(routes, geo.Route{
			Summary:         r.Summary,
			DistanceMeters:  leg.Distance.Value,
			DurationSeconds: leg.Duration.Value,
			Polyline:        r.OverviewPolyline.Points,
			StartAddress:    leg.StartAddress,
			EndAddress:      leg.EndAddress,
			StepCount:       len(leg.Steps),
		})
	}
	return routes, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("maps request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("maps API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Google Maps API response types, reduced to the fields used.

type placesResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	PlaceID          string   `json:"place_id"`
	Types            []string `json:"types"`
	OpeningHours     *struct {
		OpenNow *bool `json:"open_now"`
	} `json:"opening_hours"`
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Routes       []directionsRoute `json:"routes"`
}

type directionsRoute struct {
	Summary          string `json:"summary"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []struct {
		Distance struct {
			Value int `json:"value"`
		} `json:"distance"`
		Duration struct {
			Value int `json:"value"`
		} `json:"duration"`
		StartAddress string            `json:"start_address"`
		EndAddress   string            `json:"end_address"`
		Steps        []json.RawMessage `json:"steps"`
	} `json:"legs"`
}
