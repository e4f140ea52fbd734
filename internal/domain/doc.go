// Package domain models the chaos meter's threat indicator data.
//
// # Data Source
//
// The upstream collector aggregates free threat and anomaly feeds (NOAA space
// weather, NVD CVEs, URLhaus, FeodoTracker, ransomware leak-site trackers,
// crypto market indices, security news RSS) and publishes a single JSON
// snapshot document on a fixed cadence. This service only consumes that
// snapshot; it never talks to the raw feeds.
//
// # Snapshot Conventions
//
// chaosFactors:
//
//	Mapping of factor key → {value, max, reverse?}. Static display metadata
//	(name, icon, weight, unit, description) lives in the embedded registry
//	(factors.yaml); a snapshot key with no registry entry is ignored, and a
//	registered factor missing from the snapshot simply stays non-live.
//	Values are clamped into [0, max] at construction.
//
// reverse factors:
//
//	A reverse factor reads low-raw-value as high severity. The canonical
//	example is the fear index, where low market greed means high ambient fear.
//
// chaosIndex:
//
//	Optional precomputed aggregate. When present it is authoritative and wins
//	over local recomputation; local aggregation is the fallback for offline
//	and simulation contexts.
//
// attacks:
//
//	{from, to, type} flows between ISO 3166-1 alpha-2 country codes. Codes are
//	resolved against a static table of normalized map positions; an event with
//	an unmapped endpoint is silently dropped, not an error; upstream invents
//	origins from threat-intel heuristics and occasionally emits codes the map
//	does not carry.
//
// # Severity Classification
//
// A factor's normalized ratio n = value/max (inverted for reverse factors)
// buckets into four tiers:
//
//	n ≥ 0.75 critical | n ≥ 0.50 high | n ≥ 0.25 medium | else low
//
// # Chaos Index
//
// The composite score is a weighted mean over eligible factors, scaled to
// [0,100]: 100·Σ(n·w)/Σ(w). Missing or non-positive weights default to 1.
// Factors without a live value or with max ≤ 0 are excluded rather than
// treated as zero, so a dead feed never drags the index down. A weighted mean
// (rather than max or a geometric mean) keeps the index smooth under slider
// perturbation in simulation mode.
package domain
