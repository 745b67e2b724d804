package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/geo"
	"github.com/couchcryptid/crisis-intel-service/internal/store"
)

const maxBodyBytes = 1 << 20

type ingestRequest struct {
	Source         string `json:"source"`
	LocationFilter string `json:"location_filter"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Source == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}

	summary, err := s.ingestor.Ingest(r.Context(), req.Source, req.LocationFilter)
	if err != nil {
		s.logger.Error("ingest request failed", "source", req.Source, "error", err)
		writeJSON(w, http.StatusBadGateway, summary)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = domain.StatusNew
	}
	switch status {
	case domain.StatusNew, domain.StatusAssessed, domain.StatusError:
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid status %q", status))
		return
	}

	events, err := s.events.QueryByStatus(r.Context(), status, queryInt(r, "limit", 50))
	if err != nil {
		s.logger.Error("list events failed", "status", status, "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"count":  len(events),
		"events": events,
	})
}

func (s *Server) handleHighRisk(w http.ResponseWriter, r *http.Request) {
	minScore := queryInt(r, "min_risk_score", 70)
	events, err := s.events.QueryAssessedWithMinScore(r.Context(), minScore, queryInt(r, "limit", 50))
	if err != nil {
		s.logger.Error("high risk query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"min_risk_score": minScore,
		"count":          len(events),
		"events":         events,
	})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		s.logger.Error("get event failed", "event_id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleRequeue(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("id")
	if err := s.lifecycle.Requeue(r.Context(), identity); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "event not found")
			return
		}
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_id": identity, "status": string(domain.StatusNew)})
}

func (s *Server) handleReclaim(w http.ResponseWriter, r *http.Request) {
	count, err := s.lifecycle.Reclaim(r.Context())
	if err != nil {
		s.logger.Error("reclaim failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reclaim failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"reclaimed": count})
}

type threatsRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusKM     float64 `json:"radius_km"`
	MinRiskScore int     `json:"min_risk_score"`
}

func (s *Server) handleThreats(w http.ResponseWriter, r *http.Request) {
	var req threatsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, ok := validPoint(w, req.Latitude, req.Longitude)
	if !ok {
		return
	}
	if req.RadiusKM <= 0 {
		req.RadiusKM = 50
	}

	threats, err := s.engine.MapThreatRadius(r.Context(), user, req.RadiusKM, req.MinRiskScore)
	if err != nil {
		s.logger.Error("threat query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "threat query failed")
		return
	}
	writeJSON(w, http.StatusOK, threats)
}

type safeLocationsRequest struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	LocationType string  `json:"location_type"`
	RadiusKM     float64 `json:"radius_km"`
	MaxResults   int     `json:"max_results"`
}

func (s *Server) handleSafeLocations(w http.ResponseWriter, r *http.Request) {
	var req safeLocationsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, ok := validPoint(w, req.Latitude, req.Longitude)
	if !ok {
		return
	}
	if req.LocationType == "" {
		req.LocationType = "shelter"
	}
	if req.RadiusKM <= 0 {
		req.RadiusKM = 10
	}

	locations, err := s.engine.FindSafeLocations(r.Context(), user, req.LocationType, req.RadiusKM, req.MaxResults)
	if err != nil {
		s.logger.Error("safe location search failed", "type", req.LocationType, "error", err)
		writeError(w, http.StatusBadGateway, "location search failed")
		return
	}
	writeJSON(w, http.StatusOK, locations)
}

type safetyCheckRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKM  float64 `json:"radius_km"`
}

func (s *Server) handleSafetyCheck(w http.ResponseWriter, r *http.Request) {
	var req safetyCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}
	user, ok := validPoint(w, req.Latitude, req.Longitude)
	if !ok {
		return
	}
	if req.RadiusKM <= 0 {
		req.RadiusKM = 50
	}

	report, err := s.engine.CheckLocationSafety(r.Context(), user, req.RadiusKM)
	if err != nil {
		s.logger.Error("safety check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "safety check failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type routePoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type computeRoutesRequest struct {
	Origin       routePoint `json:"origin"`
	Destination  routePoint `json:"destination"`
	Mode         string     `json:"mode"`
	AvoidThreats bool       `json:"avoid_threats"`
}

func (s *Server) handleComputeRoutes(w http.ResponseWriter, r *http.Request) {
	var req computeRoutesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	origin, ok := validPoint(w, req.Origin.Latitude, req.Origin.Longitude)
	if !ok {
		return
	}
	destination, ok := validPoint(w, req.Destination.Latitude, req.Destination.Longitude)
	if !ok {
		return
	}
	if req.Mode == "" {
		req.Mode = "driving"
	}

	plan, err := s.engine.ComputeRoutes(r.Context(), origin, destination, req.Mode, req.AvoidThreats)
	if err != nil {
		s.logger.Error("route computation failed", "error", err)
		writeError(w, http.StatusBadGateway, "route computation failed")
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// decodeBody parses the JSON request body into v, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// validPoint validates latitude/longitude ranges, writing a 400 on failure.
func validPoint(w http.ResponseWriter, lat, lon float64) (geo.Point, bool) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid coordinates (%v, %v)", lat, lon))
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
