package geo

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/crisis-intel-service/internal/domain"
	"github.com/couchcryptid/crisis-intel-service/internal/observability"
)

const (
	// maxRouteSamples caps how many polyline points are distance-checked
	// per route.
	maxRouteSamples = 50

	// descriptionCap truncates threat descriptions in query output.
	descriptionCap = 200

	// routeMinRiskScore is the score floor for threats considered during
	// route and safety analysis.
	routeMinRiskScore = 50

	threatQueryLimit = 100
	routeThreatLimit = 50
	maxPlacesRadiusM = 50000
)

// Safety tiers shared by route analysis and location safety, keyed off the
// single closest threat distance.
const (
	SafetyLevelSafe     = "safe"
	SafetyLevelModerate = "moderate"
	SafetyLevelCaution  = "caution"
	SafetyLevelDanger   = "danger"
)

var recommendations = map[string]string{
	SafetyLevelSafe:     "No immediate threats detected in your area.",
	SafetyLevelModerate: "Threats detected more than 20 km away. Stay alert and monitor the situation.",
	SafetyLevelCaution:  "Threats within 20 km. Prepare an evacuation plan and stay informed.",
	SafetyLevelDanger:   "Immediate threats detected nearby. Consider evacuation if safe to do so.",
}

// classifySafety maps a closest-threat distance to a safety tier.
func classifySafety(distanceKM float64) string {
	switch {
	case distanceKM > 50:
		return SafetyLevelSafe
	case distanceKM > 20:
		return SafetyLevelModerate
	case distanceKM > 5:
		return SafetyLevelCaution
	default:
		return SafetyLevelDanger
	}
}

// ThreatStore reads assessed events for proximity analysis.
type ThreatStore interface {
	QueryAssessedWithMinScore(ctx context.Context, minScore, limit int) ([]domain.Event, error)
}

// PlacesClient searches for nearby facilities by category.
type PlacesClient interface {
	NearbySearch(ctx context.Context, center Point, radiusMeters int, category string) ([]Place, error)
}

// DirectionsClient computes candidate routes between two points.
type DirectionsClient interface {
	Directions(ctx context.Context, origin, destination Point, mode string, alternatives bool) ([]Route, error)
}

// Place is one facility returned by the places provider.
type Place struct {
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	Point        Point    `json:"coordinates"`
	DistanceKM   float64  `json:"distance_km"`
	Rating       float64  `json:"rating,omitempty"`
	RatingsTotal int      `json:"user_ratings_total,omitempty"`
	PlaceID      string   `json:"place_id,omitempty"`
	Types        []string `json:"types,omitempty"`
	IsOpen       *bool    `json:"is_open,omitempty"`
}

// Route is one candidate route as supplied by the directions provider.
type Route struct {
	Summary         string
	DistanceMeters  int
	DurationSeconds int
	Polyline        string
	StartAddress    string
	EndAddress      string
	StepCount       int
}

// Threat is an assessed event within a search radius.
type Threat struct {
	EventID     string  `json:"event_id"`
	Type        string  `json:"type"`
	Location    string  `json:"location"`
	Coordinates Point   `json:"coordinates"`
	DistanceKM  float64 `json:"distance_km"`
	Severity    string  `json:"severity"`
	RiskScore   int     `json:"risk_score"`
	Description string  `json:"description"`
}

// ThreatMap is the result of a threat-radius query.
type ThreatMap struct {
	UserLocation   Point    `json:"user_location"`
	SearchRadiusKM float64  `json:"search_radius_km"`
	MinRiskScore   int      `json:"min_risk_score"`
	ThreatCount    int      `json:"threat_count"`
	Threats        []Threat `json:"threats"`
	Status         string   `json:"status"` // "safe" or "threats_detected"
}

// SafeLocations is the result of a nearby-facility search.
type SafeLocations struct {
	UserLocation   Point   `json:"user_location"`
	LocationType   string  `json:"location_type"`
	SearchRadiusKM float64 `json:"search_radius_km"`
	FoundCount     int     `json:"found_count"`
	Locations      []Place `json:"locations"`
}

// ThreatProximity is one threat's minimum distance to a route.
type ThreatProximity struct {
	ThreatType string  `json:"threat_type"`
	DistanceKM float64 `json:"distance_km"`
	RiskScore  int     `json:"risk_score"`
}

// RouteThreatAnalysis summarizes a route's exposure to nearby threats.
type RouteThreatAnalysis struct {
	SafetyLevel         string            `json:"safety_level"`
	ClosestThreatType   string            `json:"closest_threat_type,omitempty"`
	MinThreatDistanceKM *float64          `json:"min_threat_distance_km"` // nil when no threats in range
	ThreatsAnalyzed     int               `json:"threats_analyzed"`
	ThreatProximities   []ThreatProximity `json:"threat_proximities"` // top 5 closest
}

// PlannedRoute is one candidate route with optional threat analysis.
type PlannedRoute struct {
	RouteIndex      int                  `json:"route_index"`
	Summary         string               `json:"summary"`
	DistanceKM      float64              `json:"distance_km"`
	DurationMinutes float64              `json:"duration_minutes"`
	StartAddress    string               `json:"start_address,omitempty"`
	EndAddress      string               `json:"end_address,omitempty"`
	StepCount       int                  `json:"steps_count"`
	Polyline        string               `json:"polyline"`
	ThreatAnalysis  *RouteThreatAnalysis `json:"threat_analysis,omitempty"`
}

// RoutePlan is the ranked set of candidate routes, safest first.
type RoutePlan struct {
	Origin           Point          `json:"origin"`
	Destination      Point          `json:"destination"`
	TravelMode       string         `json:"travel_mode"`
	RouteCount       int            `json:"route_count"`
	Routes           []PlannedRoute `json:"routes"`
	RecommendedRoute *int           `json:"recommended_route_index"`
}

// SafetyReport combines a threat-radius query with facility lookups.
type SafetyReport struct {
	UserLocation    Point     `json:"user_location"`
	Timestamp       time.Time `json:"timestamp"`
	OverallStatus   string    `json:"overall_status"`
	Recommendation  string    `json:"recommendation"`
	Threats         ThreatMap `json:"threats"`
	NearbyHospitals []Place   `json:"nearby_hospitals"`
	NearbyPolice    []Place   `json:"nearby_police"`
}

// Engine evaluates a requester's exposure to nearby hazards and safe
// egress routes, reading assessed events from the store and facilities and
// routes from the external provider.
type Engine struct {
	store      ThreatStore
	places     PlacesClient
	directions DirectionsClient
	logger     *slog.Logger
	metrics    *observability.Metrics
	clock      func() time.Time
}

// New creates an Engine. places and directions may be nil when the
// provider is not configured; the corresponding operations then fail with
// a clear error instead of at dial time.
func New(store ThreatStore, places PlacesClient, directions DirectionsClient, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		store:      store,
		places:     places,
		directions: directions,
		logger:     logger,
		metrics:    metrics,
		clock:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the report timestamp source, for tests.
func (e *Engine) SetNow(now func() time.Time) { e.clock = now }

// MapThreatRadius returns all qualifying threats within radiusKM of the
// user, sorted ascending by distance. Events scoring below minScore are
// excluded regardless of distance; events without coordinates cannot be
// ranged and are skipped.
func (e *Engine) MapThreatRadius(ctx context.Context, user Point, radiusKM float64, minScore int) (ThreatMap, error) {
	e.metrics.ThreatQueries.WithLabelValues("radius").Inc()
	events, err := e.store.QueryAssessedWithMinScore(ctx, minScore, threatQueryLimit)
	if err != nil {
		return ThreatMap{}, fmt.Errorf("query assessed events: %w", err)
	}

	threats := make([]Threat, 0, len(events))
	for _, ev := range events {
		if ev.Risk == nil {
			continue
		}
		point, ok := NormalizeOrder(ev.Coordinates)
		if !ok {
			continue
		}
		distance := Haversine(user, point)
		if distance > radiusKM {
			continue
		}
		threats = append(threats, Threat{
			EventID:     ev.Identity,
			Type:        ev.Type,
			Location:    ev.Location,
			Coordinates: point,
			DistanceKM:  round2(distance),
			Severity:    ev.Risk.Severity,
			RiskScore:   ev.Risk.RiskScore,
			Description: truncate(ev.Description, descriptionCap),
		})
	}

	sort.Slice(threats, func(i, j int) bool { return threats[i].DistanceKM < threats[j].DistanceKM })

	status := "threats_detected"
	if len(threats) == 0 {
		status = SafetyLevelSafe
	}
	return ThreatMap{
		UserLocation:   user,
		SearchRadiusKM: radiusKM,
		MinRiskScore:   minScore,
		ThreatCount:    len(threats),
		Threats:        threats,
		Status:         status,
	}, nil
}

// FindSafeLocations returns nearby facilities of the given category sorted
// ascending by distance, capped at maxResults.
func (e *Engine) FindSafeLocations(ctx context.Context, user Point, category string, radiusKM float64, maxResults int) (SafeLocations, error) {
	e.metrics.ThreatQueries.WithLabelValues("locations").Inc()
	if e.places == nil {
		return SafeLocations{}, fmt.Errorf("places provider not configured")
	}
	if maxResults <= 0 {
		maxResults = 10
	}
	radiusMeters := int(radiusKM * 1000)
	if radiusMeters > maxPlacesRadiusM {
		radiusMeters = maxPlacesRadiusM
	}

	found, err := e.places.NearbySearch(ctx, user, radiusMeters, category)
	if err != nil {
		return SafeLocations{}, fmt.Errorf("nearby search: %w", err)
	}

	for i := range found {
		found[i].DistanceKM = round2(Haversine(user, found[i].Point))
	}
	sort.Slice(found, func(i, j int) bool { return found[i].DistanceKM < found[j].DistanceKM })
	if len(found) > maxResults {
		found = found[:maxResults]
	}

	return SafeLocations{
		UserLocation:   user,
		LocationType:   category,
		SearchRadiusKM: radiusKM,
		FoundCount:     len(found),
		Locations:      found,
	}, nil
}

// ComputeRoutes fetches candidate routes and, when avoidThreats is set,
// analyzes each against known threats and ranks them safest first: primary
// key worst-case threat proximity descending (farther from threats wins),
// secondary key travel duration ascending. Index 0 is the recommendation.
func (e *Engine) ComputeRoutes(ctx context.Context, origin, destination Point, mode string, avoidThreats bool) (RoutePlan, error) {
	e.metrics.ThreatQueries.WithLabelValues("routes").Inc()
	if e.directions == nil {
		return RoutePlan{}, fmt.Errorf("directions provider not configured")
	}

	routes, err := e.directions.Directions(ctx, origin, destination, mode, true)
	if err != nil {
		return RoutePlan{}, fmt.Errorf("directions: %w", err)
	}

	planned := make([]PlannedRoute, 0, len(routes))
	var threats []threatPoint
	if avoidThreats {
		threats, err = e.loadThreatPoints(ctx)
		if err != nil {
			return RoutePlan{}, err
		}
	}

	for _, r := range routes {
		pr := PlannedRoute{
			Summary:         r.Summary,
			DistanceKM:      round2(float64(r.DistanceMeters) / 1000),
			DurationMinutes: math.Round(float64(r.DurationSeconds)/60*10) / 10,
			StartAddress:    r.StartAddress,
			EndAddress:      r.EndAddress,
			StepCount:       r.StepCount,
			Polyline:        r.Polyline,
		}
		if avoidThreats {
			analysis, err := e.analyzeRoute(r.Polyline, threats)
			if err != nil {
				e.logger.Warn("route threat analysis failed", "summary", r.Summary, "error", err)
			} else {
				pr.ThreatAnalysis = &analysis
			}
		}
		planned = append(planned, pr)
	}

	if avoidThreats {
		sort.SliceStable(planned, func(i, j int) bool {
			di := minDistanceOrInf(planned[i].ThreatAnalysis)
			dj := minDistanceOrInf(planned[j].ThreatAnalysis)
			if di != dj {
				return di > dj // farther from the closest threat ranks first
			}
			return planned[i].DurationMinutes < planned[j].DurationMinutes
		})
	}
	for i := range planned {
		planned[i].RouteIndex = i
	}

	plan := RoutePlan{
		Origin:      origin,
		Destination: destination,
		TravelMode:  mode,
		RouteCount:  len(planned),
		Routes:      planned,
	}
	if len(planned) > 0 {
		zero := 0
		plan.RecommendedRoute = &zero
	}
	return plan, nil
}

// CheckLocationSafety combines the threat-radius query with hospital and
// police lookups into one report. Facility lookup failures degrade to
// empty lists; the threat picture is the part that must not be silently
// wrong.
func (e *Engine) CheckLocationSafety(ctx context.Context, user Point, radiusKM float64) (SafetyReport, error) {
	e.metrics.ThreatQueries.WithLabelValues("safety").Inc()
	threats, err := e.MapThreatRadius(ctx, user, radiusKM, routeMinRiskScore)
	if err != nil {
		return SafetyReport{}, err
	}

	hospitals := e.findOrEmpty(ctx, user, "hospital", radiusKM, 3)
	police := e.findOrEmpty(ctx, user, "police", radiusKM, 3)

	level := SafetyLevelSafe
	if threats.ThreatCount > 0 {
		level = classifySafety(threats.Threats[0].DistanceKM)
	}

	return SafetyReport{
		UserLocation:    user,
		Timestamp:       e.clock(),
		OverallStatus:   level,
		Recommendation:  recommendations[level],
		Threats:         threats,
		NearbyHospitals: hospitals,
		NearbyPolice:    police,
	}, nil
}

func (e *Engine) findOrEmpty(ctx context.Context, user Point, category string, radiusKM float64, maxResults int) []Place {
	if e.places == nil {
		return []Place{}
	}
	result, err := e.FindSafeLocations(ctx, user, category, radiusKM, maxResults)
	if err != nil {
		e.logger.Warn("safe location lookup failed", "category", category, "error", err)
		return []Place{}
	}
	return result.Locations
}

type threatPoint struct {
	point     Point
	eventType string
	riskScore int
}

func (e *Engine) loadThreatPoints(ctx context.Context) ([]threatPoint, error) {
	events, err := e.store.QueryAssessedWithMinScore(ctx, routeMinRiskScore, routeThreatLimit)
	if err != nil {
		return nil, fmt.Errorf("query route threats: %w", err)
	}
	points := make([]threatPoint, 0, len(events))
	for _, ev := range events {
		p, ok := NormalizeOrder(ev.Coordinates)
		if !ok || ev.Risk == nil {
			continue
		}
		points = append(points, threatPoint{point: p, eventType: ev.Type, riskScore: ev.Risk.RiskScore})
	}
	return points, nil
}

// analyzeRoute samples at most maxRouteSamples evenly spaced points along
// the decoded polyline and computes each threat's minimum distance to any
// sample. The overall safety level comes from the single closest threat.
func (e *Engine) analyzeRoute(encodedPolyline string, threats []threatPoint) (RouteThreatAnalysis, error) {
	points, err := DecodePolyline(encodedPolyline)
	if err != nil {
		return RouteThreatAnalysis{}, err
	}
	if len(points) == 0 {
		return RouteThreatAnalysis{}, fmt.Errorf("empty route polyline")
	}

	stride := (len(points) + maxRouteSamples - 1) / maxRouteSamples
	if stride < 1 {
		stride = 1
	}
	samples := make([]Point, 0, maxRouteSamples)
	for i := 0; i < len(points); i += stride {
		samples = append(samples, points[i])
	}

	minDistance := math.Inf(1)
	closestType := ""
	proximities := make([]ThreatProximity, 0, len(threats))

	for _, threat := range threats {
		d := math.Inf(1)
		for _, s := range samples {
			if dist := Haversine(s, threat.point); dist < d {
				d = dist
			}
		}
		proximities = append(proximities, ThreatProximity{
			ThreatType: threat.eventType,
			DistanceKM: round2(d),
			RiskScore:  threat.riskScore,
		})
		if d < minDistance {
			minDistance = d
			closestType = threat.eventType
		}
	}

	sort.Slice(proximities, func(i, j int) bool { return proximities[i].DistanceKM < proximities[j].DistanceKM })
	if len(proximities) > 5 {
		proximities = proximities[:5]
	}

	analysis := RouteThreatAnalysis{
		SafetyLevel:       SafetyLevelSafe,
		ThreatsAnalyzed:   len(threats),
		ThreatProximities: proximities,
	}
	if !math.IsInf(minDistance, 1) {
		rounded := round2(minDistance)
		analysis.MinThreatDistanceKM = &rounded
		analysis.ClosestThreatType = closestType
		analysis.SafetyLevel = classifySafety(minDistance)
	}
	return analysis, nil
}

// minDistanceOrInf treats missing analysis as infinitely far from threats
// so unanalyzable routes don't outrank analyzed safe ones arbitrarily.
func minDistanceOrInf(a *RouteThreatAnalysis) float64 {
	if a == nil || a.MinThreatDistanceKM == nil {
		return math.Inf(1)
	}
	return *a.MinThreatDistanceKM
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
