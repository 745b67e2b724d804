// Package usgs fetches the USGS earthquake GeoJSON summary feed and
// flattens it into raw hazard records.
package usgs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
)

// SourceName is the feed identifier attached to every record.
const SourceName = "USGS"

// Client implements ingest.Feed over the USGS summary feed.
type Client struct {
	feedURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client for the given summary feed URL.
func NewClient(feedURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		feedURL: feedURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch downloads the feed and converts each earthquake feature into a
// raw record. GeoJSON coordinates arrive [lon, lat, depth]; the first two
// components are kept in feed order and disambiguated later by the geo
// heuristic. Features without coordinates keep them absent.
func (c *Client) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch USGS feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("USGS API error: status %d: %s", resp.StatusCode, body)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode USGS feed: %w", err)
	}

	records := make([]domain.RawRecord, 0, len(feed.Features))
	for _, f := range feed.Features {
		place := f.Properties.Place
		if place == "" {
			place = "Unknown location"
		}

		rec := domain.RawRecord{
			EventID:     f.ID,
			Type:        "Earthquake",
			Location:    place,
			Description: fmt.Sprintf("M %s - %s", formatMagnitude(f.Properties.Mag), place),
			Source:      SourceName,
		}
		if f.Properties.Time > 0 {
			rec.Timestamp = time.UnixMilli(f.Properties.Time).UTC().Format(time.RFC3339)
		}
		if len(f.Geometry.Coordinates) >= 2 {
			rec.Coordinates = []float64{f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]}
		}
		records = append(records, rec)
	}

	c.logger.Debug("USGS feed fetched", "features", len(records))
	return records, nil
}

func formatMagnitude(mag *float64) string {
	if mag == nil {
		return "Unknown"
	}
	return fmt.Sprintf("%.1f", *mag)
}

// USGS GeoJSON summary feed types, reduced to the fields used.

type feedResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string `json:"id"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // epoch milliseconds
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
	} `json:"geometry"`
}
