// Package domain models crisis events tracked through their assessment
// lifecycle.
//
// # Data Sources
//
// Events arrive from heterogeneous hazard feeds. The USGS earthquake feed
// (https://earthquake.usgs.gov/earthquakes/feed/v1.0/) publishes GeoJSON
// summaries; a raw-reports Kafka topic carries records published by field
// collectors; a mock feed exists for development. All feeds are normalized
// into the canonical flat record shape before ingestion:
//
//	{event_id, type, location, description, timestamp, coordinates, source}
//
// # Coordinate Order
//
// Coordinate pairs are stored exactly as the feed supplied them, and feeds
// disagree on order: GeoJSON sources (USGS, GDACS) use [lon, lat], most
// others use [lat, lon]. The pair is disambiguated at read time by a
// heuristic (see the geo package); it is never rewritten in the store.
// Missing coordinates stay absent. They are never fabricated.
//
// # Lifecycle
//
// Every event is created with status NEW. The assessment orchestrator
// transitions it exactly once per cycle:
//
//	NEW -> ASSESSED   classification produced a result (possibly empty)
//	NEW -> ERROR      classification failed after all retries
//	ERROR -> NEW      explicit operator requeue
//	ASSESSED -> NEW   reclaim of a semantically empty assessment
//
// ASSESSED is terminal for the ingestion path: re-ingesting an identity
// that is already ASSESSED never overwrites it. Events are never deleted
// by this service.
//
// # Identity
//
// Feed-supplied ids are used verbatim when present. Otherwise the identity
// is a deterministic SHA-256 hash of source|type|location|timestamp, so
// re-ingesting the same real-world hazard merges instead of duplicating.
//
// # Risk Assessment
//
// The classification oracle returns severity (Low, Medium, High,
// Critical), a 0-100 risk score, and free-text reasoning. A structurally
// valid result with severity "Unknown" and score 0 is a semantically empty
// assessment: the oracle answered "don't know". That is a valid terminal
// outcome, distinct from an oracle failure, and such events can later be
// reclaimed for another pass.
package domain
